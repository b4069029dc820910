package session

import (
	"sort"
	"sync/atomic"

	"github.com/tracepoint-go/libtracepoint/internal/kernel"
	"github.com/tracepoint-go/libtracepoint/perffile"
	"github.com/tracepoint-go/libtracepoint/ringbuffer"
)

// SampleHandler is invoked once per sample yielded by an enumeration.
// Returning a non-nil error stops enumeration at that record (spec
// §4.3.7).
type SampleHandler func(*Sample) error

func (s *Session) beginAndPause(cpu int) error {
	if s.opts.Mode == Circular {
 if err := kernel.PauseOutput(s.leaders[cpu].fd, true); err != nil {
 return err
 }
	}
	corrupt := s.leaders[cpu].buf.Begin()
	if corrupt {
 atomic.AddUint64(&s.counters.CorruptBuffers, 1)
	}
	return nil
}

func (s *Session) end(cpu int) {
	if s.opts.Mode == Circular {
 kernel.PauseOutput(s.leaders[cpu].fd, false)
	} else {
 s.leaders[cpu].buf.EndRealtime()
	}
}

// dispatch turns one raw ring buffer record into a Sample and invokes
// handler; corruption bumps corrupt_events and is not an error.
func (s *Session) dispatch(raw []byte, handler SampleHandler) error {
	sample, err := ParseSample(raw, s.opts.SampleMask, s.order)
	if err != nil {
 atomic.AddUint64(&s.counters.CorruptEvents, 1)
 return nil
	}
	sample.BindSchema(s.schemaByID, s.cache, s.order)
	atomic.AddUint64(&s.counters.Samples, 1)
	return handler(sample)
}

// EnumerateUnordered walks every CPU's buffer in sequence, Begin,
// Step, End, in each buffer's natural order: newest-to-oldest for
// Circular (the kernel writes backward), oldest-to-newest for
// Realtime .
func (s *Session) EnumerateUnordered(handler SampleHandler) error {
	for cpu := range s.leaders {
 if err := s.beginAndPause(cpu); err != nil {
 return err
 }

 var herr error
 corrupt, lost, stepErr := s.leaders[cpu].buf.Step(func(r ringbuffer.Record) error {
 return s.dispatch(r.Bytes, handler)
 })
 if corrupt {
 atomic.AddUint64(&s.counters.CorruptBuffers, 1)
 }
 atomic.AddUint64(&s.counters.Lost, lost)
 herr = stepErr

 if s.opts.Mode == Circular {
 kernel.PauseOutput(s.leaders[cpu].fd, false)
 } else if herr == nil {
 s.leaders[cpu].buf.EndRealtime()
 }
 // On handler error in Realtime mode, tail is intentionally not
 // published: unconsumed records remain in the buffer (spec
 // §4.3.7).

 if herr != nil {
 return herr
 }
	}
	return nil
}

type bookmark struct {
	timestamp uint64
	cpu int
	record []byte
	seq int // arrival order; the sort is stable and does not consult it
}

// EnumerateOrdered merge-sorts records from every CPU's buffer by
// timestamp, stable on ties, and invokes handler in that order (spec
// §4.3.3). Requires the session's sample mask to include the time bit.
func (s *Session) EnumerateOrdered(handler SampleHandler) error {
	const op = "session.EnumerateOrdered"
	if s.opts.SampleMask&perffile.SampleFormatTime == 0 {
 return notSupported(op, "ordered enumeration requires the time sample bit")
	}

	for cpu := range s.leaders {
 if err := s.beginAndPause(cpu); err != nil {
 return err
 }
	}

	var marks []bookmark
	seq := 0
	for cpu := range s.leaders {
 var cpuMarks []bookmark
 corrupt, lost, err := s.leaders[cpu].buf.Step(func(r ringbuffer.Record) error {
 ts, ok := peekTimestamp(r.Bytes, s.opts.SampleMask, s.order)
 if !ok {
 atomic.AddUint64(&s.counters.CorruptEvents, 1)
 return nil
 }
 cp := make([]byte, len(r.Bytes))
 copy(cp, r.Bytes)
 cpuMarks = append(cpuMarks, bookmark{timestamp: ts, cpu: cpu, record: cp, seq: seq})
 seq++
 return nil
 })
 if corrupt {
 atomic.AddUint64(&s.counters.CorruptBuffers, 1)
 }
 atomic.AddUint64(&s.counters.Lost, lost)
 if err != nil {
 for c := range s.leaders {
 s.end(c)
 }
 return err
 }

 // Circular buffers are walked newest-to-oldest; reverse each
 // CPU's sub-range so every sub-range is oldest-to-newest before
 // the global stable sort ( step 2).
 if s.opts.Mode == Circular {
 for i, j := 0, len(cpuMarks)-1; i < j; i, j = i+1, j-1 {
 cpuMarks[i], cpuMarks[j] = cpuMarks[j], cpuMarks[i]
 }
 }
 marks = append(marks, cpuMarks...)
	}

	sort.SliceStable(marks, func(i, j int) bool {
 return marks[i].timestamp < marks[j].timestamp
	})

	var herr error
	for _, m := range marks {
 if herr = s.dispatch(m.record, handler); herr != nil {
 break
 }
	}

	for cpu := range s.leaders {
 s.end(cpu)
	}
	return herr
}

// peekTimestamp extracts just the time field from a raw sample record
// without allocating a full Sample, for the ordered enumerator's first
// pass.
func peekTimestamp(raw []byte, mask perffile.SampleFormat, order interface {
	U64At([]byte, int) uint64
}) (uint64, bool) {
	if len(raw) < sampleHeaderSize {
 return 0, false
	}
	body := raw[sampleHeaderSize:]
	pos := 0
	advance := func(n int) bool {
 if pos+n > len(body) {
 return false
 }
 pos += n
 return true
	}
	if mask&perffile.SampleFormatIdentifier != 0 && !advance(8) {
 return 0, false
	}
	if mask&perffile.SampleFormatIP != 0 && !advance(8) {
 return 0, false
	}
	if mask&perffile.SampleFormatTID != 0 && !advance(8) {
 return 0, false
	}
	if mask&perffile.SampleFormatTime != 0 {
 if pos+8 > len(body) {
 return 0, false
 }
 return order.U64At(body, pos), true
	}
	return 0, false
}
