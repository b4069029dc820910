// Package ringbuffer implements the per-CPU mmap'd ring buffer that a
// session reads tracepoint samples from . It owns the
// head/tail/cursor bookkeeping and wrap arithmetic; callers supply the
// mmap'd bytes and an internal/kernel.HeaderPage to talk to the kernel
// side.
package ringbuffer

import (
	"github.com/tracepoint-go/libtracepoint/internal/byteio"
	"github.com/tracepoint-go/libtracepoint/internal/kernel"
	"github.com/tracepoint-go/libtracepoint/tperr"
)

// Mode selects which of the two wire disciplines a Buffer's data
// region follows.
type Mode int

const (
	// Realtime: the kernel writes forward; the consumer publishes a
	// tail to free space for more writes.
	Realtime Mode = iota
	// Circular: the kernel writes backward from the end of the window,
	// overwriting the oldest data; consumption requires pausing.
	Circular
)

// recordHeaderSize is sizeof(struct perf_event_header): {type:u32,
// misc:u16, size:u16}.
const recordHeaderSize = 8

// RecordTypeLost is PERF_RECORD_LOST's type value.
const RecordTypeLost = 2

// Buffer is one CPU's mmap'd perf_event ring: the header page plus its
// data region, together with this session's view of where the last
// consumed position was.
type Buffer struct {
	mmap []byte
	header kernel.HeaderPage
	data []byte // the ring data region, a power-of-two length slice of mmap
	reader byteio.Reader

	mode Mode

	headSeen uint64 // head observed at the most recent Begin
	tail uint64 // consumer's published/resumed read position
	cursor uint64 // current read position during a Step walk

	// scratch holds a reassembled copy of a record that wraps the end
	// of the data region, valid until the next call to Step.
	scratch []byte
}

// New wraps mmap (as returned by kernel.MmapBuffer) as a Buffer for
// the given mode.
func New(mmap []byte, mode Mode, order byteio.Reader) *Buffer {
	h := kernel.Header(mmap)
	off, size := h.DataOffset(), h.DataSize()
	return &Buffer{
 mmap: mmap,
 header: h,
 data: mmap[off : off+size],
 reader: order,
 mode: mode,
	}
}

// DataSize is the ring data region's length in bytes, always a power
// of two.
func (b *Buffer) DataSize() uint64 { return uint64(len(b.data)) }

// Fd-level pause/resume is driven by the session (it owns the leader
// fd, not the Buffer); Begin/End below only manage this Buffer's
// cursor state and tell the caller whether a pause/resume ioctl or a
// tail publish is needed.

// BeginResult tells the caller what kernel interaction Begin requires.
type BeginResult struct {
	// PauseRequired is true for Circular mode: the caller must issue
	// PERF_EVENT_IOC_PAUSE_OUTPUT(1) on the leader fd before trusting
	// this Buffer's view of head, and PERF_EVENT_IOC_PAUSE_OUTPUT(0)
	// after the walk. Begin itself does not return a BeginResult.
	PauseRequired bool
}

// Begin starts an enumeration pass .
//
// For Circular mode the caller must have already paused the producer;
// Begin then loads head with
// acquire ordering and rewinds to the oldest unoverwritten record.
//
// For Realtime mode, Begin resumes from the tail left by the previous
// enumeration (or 0 initially); if the gap between head and that tail
// exceeds the data size, the buffer is structurally corrupt and Begin
// resynchronises to head, reporting corrupt=true.
func (b *Buffer) Begin() (corrupt bool) {
	head := b.header.LoadHeadAcquire()
	b.headSeen = head

	switch b.mode {
	case Circular:
 size := b.DataSize()
 if head >= size {
 b.tail = head - size
 } else {
 b.tail = 0
 }
 b.cursor = b.tail
 return false

	default: // Realtime
 tail := b.header.LoadTailRelaxed()
 if head-tail > b.DataSize() {
 b.cursor = head
 b.tail = head
 return true
 }
 b.tail = tail
 b.cursor = tail
 return false
	}
}

// recordAt reads the 8-byte perf_event_header at cursor position pos
// (wrapped), returning (recordType, size).
func (b *Buffer) recordAt(pos uint64) (recordType uint32, size uint16) {
	p := int(pos & (b.DataSize() - 1))
	recordType = b.reader.U32AtWrapped(b.data, p)
	size = b.reader.U16AtWrapped(b.data, p+6)
	return
}

// Record is one yielded sample: its raw bytes (header included). When
// the record wrapped the end of the ring, Bytes aliases the Buffer's
// scratch space and is invalidated by the next Step call; Record does
// not say which case applies.
type Record struct {
	Bytes []byte
}

// Handler is invoked once per non-control record yielded by Step. A
// non-nil return stops enumeration at that record (// "handler returning non-zero error").
type Handler func(Record) error

// Step walks from the current cursor to head, invoking handler for
// every record that isn't a LOST control record, whose count instead
// accumulates into lost. It returns (corrupt, lostDelta, err) where
// err is the handler's error, if any, and corrupt indicates a
// structural problem (size 0, oversized, or misaligned) that forced
// the walk to resynchronise to head.
func (b *Buffer) Step(handler Handler) (corrupt bool, lostDelta uint64, err error) {
	size := b.DataSize()
	for b.cursor < b.headSeen {
 recType, recSize := b.recordAt(b.cursor)
 remaining := b.headSeen - b.cursor

 if recSize == 0 || uint64(recSize) > remaining || recSize%8 != 0 {
 b.cursor = b.headSeen
 return true, lostDelta, nil
 }

 if recType == RecordTypeLost {
 // struct { header; id:u64; count:u64 } — count is the
 // second 8-byte field after the header.
 p := int(b.cursor & (size - 1))
 count := b.reader.U64AtWrapped(b.data, p+recordHeaderSize+8)
 lostDelta += count
 b.cursor += uint64(recSize)
 continue
 }

 rec := b.sliceRecord(b.cursor, uint64(recSize))
 if herr := handler(Record{Bytes: rec}); herr != nil {
 return false, lostDelta, herr
 }
 b.cursor += uint64(recSize)
	}
	return false, lostDelta, nil
}

// sliceRecord returns recSize bytes starting at pos, reassembling into
// scratch if the record wraps the end of the data region.
func (b *Buffer) sliceRecord(pos, recSize uint64) []byte {
	size := b.DataSize()
	start := int(pos & (size - 1))
	if uint64(start)+recSize <= size {
 return b.data[start : start+int(recSize)]
	}
	if cap(b.scratch) < int(recSize) {
 b.scratch = make([]byte, recSize)
	} else {
 b.scratch = b.scratch[:recSize]
	}
	byteio.CopyWrapped(b.scratch, b.data, int(pos), int(recSize))
	return b.scratch
}

// EndRealtime publishes the consumed cursor as the new tail with
// release ordering, taking care that the 64-bit published value never
// wraps past the head observed at Begin ( End, "Care: the
// kernel tail is 64-bit; the in-memory cursor may be size_t").
func (b *Buffer) EndRealtime() {
	size := b.DataSize()
	headLow := b.headSeen & (size - 1)
	cursorLow := b.cursor & (size - 1)
	published := b.headSeen - ((headLow - cursorLow) & (size - 1))
	b.header.StoreTailRelease(published)
	b.tail = published
}

// DrainToHead advances cursor to headSeen, resynchronising after a
// structural corruption ("buffer drained to resynchronise").
func (b *Buffer) DrainToHead() {
	b.cursor = b.headSeen
}

// corruptBufferErr wraps a corrupt signal into the tperr vocabulary for
// callers that want a single error value rather than separate bools.
func corruptBufferErr(op string) error {
	return tperr.Newf(tperr.CorruptBuffer, op, "ring buffer structurally corrupt")
}
