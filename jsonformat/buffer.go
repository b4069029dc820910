// Package jsonformat renders a decoded EventHeader event (or a raw
// tracefs sample) to JSON: a bounded-growth output buffer, UTF
// transcoding, and the field-rendering rules for each EventHeader
// format .
package jsonformat

import "github.com/tracepoint-go/libtracepoint/tperr"

// Buffer is an append-only, transactional byte buffer. Every public
// Formatter operation reserves its worst-case byte count up front and
// rolls the buffer back to its entry length on any failure (// testable property 7), so a caller never has to worry about a
// half-written field polluting the output.
type Buffer struct {
	data []byte
}

// NewBuffer returns an empty Buffer with a small initial capacity.
func NewBuffer() *Buffer {
	return &Buffer{data: make([]byte, 0, 256)}
}

// Bytes returns the buffer's current contents. The slice is only
// valid until the next write.
func (b *Buffer) Bytes() []byte { return b.data }

// Len is the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.data) }

// checkpoint returns a token that rollback can restore to.
func (b *Buffer) checkpoint() int { return len(b.data) }

// rollback truncates the buffer back to a checkpoint, discarding any
// partial write from a failed operation.
func (b *Buffer) rollback(mark int) { b.data = b.data[:mark] }

// reserve grows the backing array so that at least extra more bytes
// can be appended without reallocating mid-write, doubling capacity as
// needed. An allocation failure (Go: an oversized make panicking)
// surfaces as OutOfMemory rather than propagating a runtime panic,
// per ("never panics on overflow... on allocation failure
// the whole formatter surfaces OutOfMemory").
func (b *Buffer) reserve(extra int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = tperr.Newf(tperr.OutOfMemory, "jsonformat.reserve", "allocation failed: %v", r)
		}
	}()
	need := len(b.data) + extra
	if need <= cap(b.data) {
 return nil
	}
	newCap := cap(b.data) * 2
	if newCap < need {
 newCap = need
	}
	grown := make([]byte, len(b.data), newCap)
	copy(grown, b.data)
	b.data = grown
	return nil
}

func (b *Buffer) writeByte(c byte) { b.data = append(b.data, c) }
func (b *Buffer) writeString(s string) { b.data = append(b.data, s...) }
func (b *Buffer) writeBytes(p []byte) { b.data = append(b.data, p...) }
