package session

import (
	"golang.org/x/sys/unix"

	"github.com/tracepoint-go/libtracepoint/filesink"
	"github.com/tracepoint-go/libtracepoint/internal/kernel"
)

// maxIovecsPerWrite bounds scatter-gather batching to minimise kernel
// write syscalls .
const maxIovecsPerWrite = 16

// SaveToFile runs an Unordered enumeration, handing each sample's raw
// tracepoint payload (Sample.Raw) to sink; the perf_event_header and
// the other sample fields (pid/tid, time, cpu, ...) are not written.
// It then writes the session-information feature blocks: utsname, the
// session's cpu count (as both the configured and the online count),
// the observed sample-time range, and the clock id with zero offsets.
func (s *Session) SaveToFile(sink filesink.Sink) error {
	for _, tp := range s.tracepoints {
 if err := sink.AddTracepointEventDesc(tp.schema, tp.sampleIDs); err != nil {
 return err
 }
	}
	if err := sink.WriteFinishedInit(); err != nil {
 return err
	}

	var first, last uint64
	haveAny := false

	batch := make([][]byte, 0, maxIovecsPerWrite)
	flush := func() error {
 if len(batch) == 0 {
 return nil
 }
 n, err := sink.WriteEventDataIovecs(batch)
 for n < len(batch) {
 // Sink partially wrote the batch; loop on what's left.
 if err != nil {
 return err
 }
 if werr := sink.WriteEventData(batch[n]); werr != nil {
 return werr
 }
 n++
 }
 batch = batch[:0]
 return err
	}

	err := s.EnumerateUnordered(func(sample *Sample) error {
 if sample.Time != 0 {
 if !haveAny || sample.Time < first {
 first = sample.Time
 }
 if !haveAny || sample.Time > last {
 last = sample.Time
 }
 haveAny = true
 }
 batch = append(batch, sample.Raw)
 if len(batch) == maxIovecsPerWrite {
 return flush()
 }
 return nil
	})
	if err != nil {
 return err
	}
	if err := flush(); err != nil {
 return err
	}

	if err := sink.WriteFinishedRound(); err != nil {
 return err
	}

	if err := writeUTSNameHeader(sink); err != nil {
 return err
	}
	if err := sink.SetNrCPUsHeader(uint32(len(s.leaders)), uint32(len(s.leaders))); err != nil {
 return err
	}
	if haveAny {
 if err := sink.SetSampleTimeHeader(first, last); err != nil {
 return err
 }
	}
	if err := sink.SetSessionInfoHeaders(uint32(kernel.CLOCK_MONOTONIC_RAW), 0, 0); err != nil {
 return err
	}

	return sink.FinalizeAndClose()
}

func writeUTSNameHeader(sink filesink.Sink) error {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
 return err
	}
	return sink.SetUTSNameHeaders(
 cstr(uts.Sysname[:]), cstr(uts.Nodename[:]), cstr(uts.Release[:]),
 cstr(uts.Version[:]), cstr(uts.Machine[:]))
}

func cstr(b []byte) string {
	for i, c := range b {
 if c == 0 {
 return string(b[:i])
 }
	}
	return string(b)
}
