// Package perffile carries the perf_event sample-format bitmask that
// the rest of this module shares between the live kernel attr
// (internal/kernel) and the ring-buffer sample parser (session):
// SampleFormat mirrors the perf_event_attr.sample_type bits the kernel
// itself defines, so a mask built against these constants is valid
// both to pass to perf_event_open and to interpret the resulting
// samples.
//
// Reading and writing full perf.data files is out of scope here; a
// session persists a live capture through the filesink package's own
// container format instead of reproducing perf.data's on-disk layout.
package perffile // import "github.com/tracepoint-go/libtracepoint/perffile"

// A SampleFormat is a bitmask of the fields recorded by a sample.
//
// This corresponds to the perf_event_sample_format enum from
// include/uapi/linux/perf_event.h
type SampleFormat uint64

const (
	SampleFormatIP SampleFormat = 1 << iota
	SampleFormatTID
	SampleFormatTime
	SampleFormatAddr
	SampleFormatRead
	SampleFormatCallchain
	SampleFormatID
	SampleFormatCPU
	SampleFormatPeriod
	SampleFormatStreamID
	SampleFormatRaw
	SampleFormatBranchStack
	SampleFormatRegsUser
	SampleFormatStackUser
	SampleFormatWeight
	SampleFormatDataSrc
	SampleFormatIdentifier
	SampleFormatTransaction
	SampleFormatRegsIntr
	SampleFormatPhysAddr
	SampleFormatAux
	SampleFormatCGroup
	SampleFormatDataPageSize
	SampleFormatCodePageSize
	SampleFormatWeightStruct
)
