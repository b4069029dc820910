package session

import (
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/tracepoint-go/libtracepoint/internal/byteio"
	"github.com/tracepoint-go/libtracepoint/internal/kernel"
	"github.com/tracepoint-go/libtracepoint/ringbuffer"
	"github.com/tracepoint-go/libtracepoint/tperr"
	"github.com/tracepoint-go/libtracepoint/tracefs"
)

// leaderBuffer is the first tracepoint enabled on a given CPU; its
// mmap is shared by every tracepoint enabled later on that CPU (spec
// GLOSSARY, "Leader fd").
type leaderBuffer struct {
	fd int
	mmap []byte
	buf *ringbuffer.Buffer
}

// Session is a tracepoint collection session: Inactive until the
// first tracepoint is enabled, Active (with bound leader buffers)
// thereafter until Clear.
type Session struct {
	opts Options
	cache *tracefs.Cache

	active bool
	leaders []leaderBuffer // len == opts.NumCPU once Active
	tracepoints map[uint32]*tracepointState
	schemaByID map[uint64]*tracefs.FieldSchemaList // sample-id -> schema

	counters Counters

	order byteio.Reader
}

// New creates an Inactive session bound to cache for schema lookups.
// opts.SampleMask is masked to SampleTypeSupported and opts.BufferSize
// is rounded up to a page-aligned power of two .
func New(cache *tracefs.Cache, opts Options) *Session {
	opts = opts.normalize()
	return &Session{
 opts: opts,
 cache: cache,
 tracepoints: make(map[uint32]*tracepointState),
 schemaByID: make(map[uint64]*tracefs.FieldSchemaList),
 order: byteio.NativeReader,
	}
}

// Mode reports the session's ring buffer discipline.
func (s *Session) Mode() Mode { return s.opts.Mode }

// IsActive reports whether at least one tracepoint is enabled and
// leader buffers are bound.
func (s *Session) IsActive() bool { return s.active }

// Counters returns a snapshot of the session's monotonic counters.
// Safe to call concurrently with enumeration.
func (s *Session) Counters() Counters {
	return Counters{
 Samples: atomic.LoadUint64(&s.counters.Samples),
 Lost: atomic.LoadUint64(&s.counters.Lost),
 CorruptEvents: atomic.LoadUint64(&s.counters.CorruptEvents),
 CorruptBuffers: atomic.LoadUint64(&s.counters.CorruptBuffers),
	}
}

// Status returns a tracepoint's current enable state.
func (s *Session) Status(id uint32) TPStatus {
	tp, ok := s.tracepoints[id]
	if !ok {
 return TPUnknown
	}
	return tp.status
}

func (s *Session) ringMode() ringbuffer.Mode {
	if s.opts.Mode == Circular {
 return ringbuffer.Circular
	}
	return ringbuffer.Realtime
}

// Clear transitions Active -> Inactive: closes every fd and unmaps
// every leader buffer in reverse order of acquisition, and drops all
// schema bindings ( Session state transitions, §5 resource
// lifetimes).
func (s *Session) Clear() {
	for _, tp := range s.tracepoints {
 for i := len(tp.fds) - 1; i >= 0; i-- {
 unix.Close(tp.fds[i])
 }
	}
	for i := len(s.leaders) - 1; i >= 0; i-- {
 kernel.Munmap(s.leaders[i].mmap)
	}
	s.tracepoints = make(map[uint32]*tracepointState)
	s.schemaByID = make(map[uint64]*tracefs.FieldSchemaList)
	s.leaders = nil
	s.active = false
}

// EnableTracepoint enables collection of the tracepoint identified by
// id, . Rollback on failure is total: any partial
// failure leaves the session exactly as it was before the call.
func (s *Session) EnableTracepoint(id uint32) error {
	const op = "session.EnableTracepoint"

	schema, ok := s.cache.FindByID(id)
	if !ok {
 return tperr.Newf(tperr.NotFound, op, "tracepoint %d not registered in cache", id)
	}

	if tp, exists := s.tracepoints[id]; exists && tp.status == TPEnabled {
 for _, fd := range tp.fds {
 if err := kernel.Enable(fd); err != nil {
 tp.status = TPUnknown
 return tperr.New(tperr.KernelError, op, err)
 }
 }
 return nil
	}

	numCPU := s.opts.NumCPU
	if s.leaders == nil {
 s.leaders = make([]leaderBuffer, numCPU)
	}

	attr := kernel.TracepointAttr(uint64(id), uint64(s.opts.SampleMask),
 s.opts.Wakeup.WatermarkBytes, s.opts.Wakeup.Events, s.opts.Mode == Circular)

	newFds := make([]int, 0, numCPU)
	newLeaderCPUs := make([]int, 0, numCPU) // cpus for which this call created the leader

	rollback := func() {
 for _, fd := range newFds {
 unix.Close(fd)
 }
 for _, cpu := range newLeaderCPUs {
 kernel.Munmap(s.leaders[cpu].mmap)
 s.leaders[cpu] = leaderBuffer{}
 }
	}

	for cpu := 0; cpu < numCPU; cpu++ {
 if s.leaders[cpu].buf == nil {
 fd, err := kernel.OpenTracepoint(attr, cpu)
 if err != nil {
 rollback()
 return tperr.New(tperr.KernelError, op, err)
 }
 newFds = append(newFds, fd)

 prot := unix.PROT_READ
 if s.opts.Mode == Realtime {
 prot |= unix.PROT_WRITE
 }
 mmap, err := kernel.MmapBuffer(fd, s.opts.BufferSize, prot)
 if err != nil {
 rollback()
 return tperr.New(tperr.KernelError, op, err)
 }
 s.leaders[cpu] = leaderBuffer{
 fd: fd,
 mmap: mmap,
 buf: ringbuffer.New(mmap, s.ringMode(), s.order),
 }
 newLeaderCPUs = append(newLeaderCPUs, cpu)
 } else {
 fd, err := kernel.OpenRedirected(attr, cpu, s.leaders[cpu].fd)
 if err != nil {
 rollback()
 return tperr.New(tperr.KernelError, op, err)
 }
 newFds = append(newFds, fd)
 }
	}

	sampleIDs := make([]uint64, 0, len(newFds))
	for _, fd := range newFds {
 sid, err := kernel.ReadID(fd)
 if err != nil {
 rollback()
 return tperr.New(tperr.KernelError, op, err)
 }
 sampleIDs = append(sampleIDs, sid)
	}

	for _, fd := range newFds {
 if err := kernel.Enable(fd); err != nil {
 rollback()
 return tperr.New(tperr.KernelError, op, err)
 }
	}

	tp := &tracepointState{id: id, schema: schema, fds: newFds, sampleIDs: sampleIDs, status: TPEnabled}
	s.tracepoints[id] = tp
	for _, sid := range sampleIDs {
 s.schemaByID[sid] = schema
	}
	s.active = true
	return nil
}

// DisableTracepoint issues the disable ioctl on every per-CPU fd for
// id. Disabling the last enabled tracepoint does not deactivate the
// session : Clear is required to return to Inactive.
func (s *Session) DisableTracepoint(id uint32) error {
	const op = "session.DisableTracepoint"
	tp, ok := s.tracepoints[id]
	if !ok {
 return tperr.Newf(tperr.NotFound, op, "tracepoint %d not enabled", id)
	}
	var firstErr error
	for _, fd := range tp.fds {
 if err := kernel.Disable(fd); err != nil && firstErr == nil {
 firstErr = err
 }
	}
	tp.status = TPDisabled
	if firstErr != nil {
 return tperr.New(tperr.KernelError, op, firstErr)
	}
	return nil
}
