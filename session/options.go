// Package session implements the tracepoint session manager: opening
// one kernel sampling stream per CPU, memory-mapping a shared ring
// buffer for each, coordinating wakeup, enabling/disabling individual
// tracepoints, and exposing time-ordered and per-buffer enumeration
// over events drawn from all buffers .
package session

import (
	"runtime"

	"github.com/tracepoint-go/libtracepoint/internal/kernel"
	"github.com/tracepoint-go/libtracepoint/perffile"
	"github.com/tracepoint-go/libtracepoint/tracefs"
)

// Mode selects the ring buffer discipline: Circular (flight-recorder,
// kernel writes backward) or Realtime (drain mode, kernel writes
// forward).
type Mode int

const (
	Realtime Mode = iota
	Circular
)

// WakeupPolicy selects how the kernel decides to wake a waiter in
// Realtime mode: either a byte watermark or an event count.
type WakeupPolicy struct {
	WatermarkBytes uint32 // if nonzero, wake after this many unconsumed bytes
	Events uint32 // otherwise, wake after this many events
}

// SampleTypeSupported is the subset of perffile.SampleFormat bits this
// session understands how to parse; bits outside this set are
// silently masked off at construction ( boundary behaviour).
const SampleTypeSupported = perffile.SampleFormatIP | perffile.SampleFormatTID |
	perffile.SampleFormatTime | perffile.SampleFormatAddr | perffile.SampleFormatCallchain |
	perffile.SampleFormatID | perffile.SampleFormatCPU | perffile.SampleFormatPeriod |
	perffile.SampleFormatStreamID | perffile.SampleFormatRaw | perffile.SampleFormatIdentifier

// SampleTypeDefault is tid|time|cpu|raw (0x486), the mask tpconfig
// hands to new sessions. It does not include identifier, so BindSchema
// resolves samples taken with it through common_type. ParseSample has
// no separate path for it: every mask goes through the same field walk.
const SampleTypeDefault = perffile.SampleFormatTID | perffile.SampleFormatTime |
	perffile.SampleFormatCPU | perffile.SampleFormatRaw

// Options configures a new Session.
type Options struct {
	Mode Mode
	SampleMask perffile.SampleFormat
	Wakeup WakeupPolicy
	BufferSize int // bytes, rounded up to a power of two >= page size

	// NumCPU defaults to runtime.NumCPU when zero; tests override it
	// to exercise multi-CPU enumeration without real hardware.
	NumCPU int
}

func (o Options) normalize() Options {
	o.SampleMask &= SampleTypeSupported
	o.BufferSize = kernel.RoundUpBufferSize(o.BufferSize)
	if o.NumCPU == 0 {
 o.NumCPU = runtime.NumCPU()
	}
	return o
}

// Counters are the session's monotonically increasing event counters
// ("readable at any time").
type Counters struct {
	Samples uint64
	Lost uint64
	CorruptEvents uint64
	CorruptBuffers uint64
}

// TPStatus is a tracepoint's enable state within a session.
type TPStatus int

const (
	TPUnknown TPStatus = iota
	TPEnabled
	TPDisabled
)

type tracepointState struct {
	id uint32
	schema *tracefs.FieldSchemaList
	fds []int // one per CPU
	sampleIDs []uint64
	status TPStatus
}
