// Package filesink defines the Sink interface a session writes
// captured records through when asked to persist a live capture to
// disk. perf.data's own binary layout is out of scope; Sink's own
// implementations write a small self-contained TLV container instead
// of reproducing perf.data byte-for-byte, and ReadFile reads it back.
// Sink is deliberately a thin collaborator boundary.
package filesink

import "github.com/tracepoint-go/libtracepoint/tracefs"

// Sink is an append-only consumer of perf.data records and feature
// headers. A session trusts the Sink to buffer and write atomically;
// it batches at most 16 scatter-gather segments per call to
// WriteEventDataIovecs to bound syscall count .
type Sink interface {
	// Create opens (or truncates) path for writing, with the given
	// file mode.
	Create(path string, mode uint32) error

	// WriteEventData writes one opaque record's bytes verbatim.
	WriteEventData(record []byte) error

	// WriteEventDataIovecs is the scatter-gather form of
	// WriteEventData; it may write fewer bytes than requested, in
	// which case the caller loops. The returned int is the number of
	// whole iovec entries fully written.
	WriteEventDataIovecs(iov [][]byte) (n int, err error)

	// AddTracepointEventDesc idempotently registers a tracepoint's
	// schema and kernel-assigned sample ids with the sink, so it can
	// emit the corresponding feature/attr section.
	AddTracepointEventDesc(schema *tracefs.FieldSchemaList, sampleIDs []uint64) error

	WriteFinishedInit() error
	WriteFinishedRound() error

	// SetHeader attaches an opaque feature header by index.
	SetHeader(index int, data []byte) error
	SetUTSNameHeaders(sysname, nodename, release, version, machine string) error
	SetNrCPUsHeader(configured, online uint32) error
	SetSampleTimeHeader(first, last uint64) error
	SetSessionInfoHeaders(clockID uint32, realtimeOffsetNS, monotonicOffsetNS int64) error

	FinalizeAndClose() error
}
