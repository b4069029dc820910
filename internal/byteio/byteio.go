// Package byteio provides endian-aware fixed-width loads from unaligned,
// possibly-wrapping byte buffers. It is the one place that does pointer
// arithmetic over mmap'd kernel memory; every unaligned access in
// ringbuffer and session goes through a Reader.
package byteio

import "encoding/binary"

// A Reader loads fixed-width integers from a byte slice without
// requiring alignment, optionally wrapping reads around the end of the
// slice back to the start. This matches how a perf ring buffer's data
// region is addressed: positions are taken modulo the buffer's data
// size, so a multi-byte value can straddle the end of the slice.
type Reader struct {
	order binary.ByteOrder
}

// NativeReader is a Reader using the host's native byte order. Kernel
// ring buffers are always written in the host's byte order.
var NativeReader = New(nativeOrder())

// New returns a Reader that interprets multi-byte values using order.
func New(order binary.ByteOrder) Reader {
	return Reader{order: order}
}

// Order returns the byte order this Reader uses.
func (r Reader) Order() binary.ByteOrder {
	return r.order
}

// SwapOf returns a Reader using the opposite byte order, for decoding
// payloads flagged as coming from a foreign-endian producer.
func (r Reader) SwapOf() Reader {
	if r.order == binary.LittleEndian {
 return New(binary.BigEndian)
	}
	return New(binary.LittleEndian)
}

func wrap(pos, size int) int {
	if size == 0 {
 return 0
	}
	return pos & (size - 1)
}

// byteAtWrapped returns buf[(pos+i) mod len(buf)]. len(buf) must be a
// power of two; ring buffer data regions always are (see
// kernel.RoundUpBufferSize).
func byteAtWrapped(buf []byte, pos, i int) byte {
	return buf[wrap(pos+i, len(buf))]
}

// U16AtWrapped reads a uint16 starting at byte position pos within buf,
// treating buf as circular.
func (r Reader) U16AtWrapped(buf []byte, pos int) uint16 {
	var tmp [2]byte
	for i := range tmp {
 tmp[i] = byteAtWrapped(buf, pos, i)
	}
	return r.order.Uint16(tmp[:])
}

// U32AtWrapped reads a uint32 starting at byte position pos within buf,
// treating buf as circular.
func (r Reader) U32AtWrapped(buf []byte, pos int) uint32 {
	var tmp [4]byte
	for i := range tmp {
 tmp[i] = byteAtWrapped(buf, pos, i)
	}
	return r.order.Uint32(tmp[:])
}

// U64AtWrapped reads a uint64 starting at byte position pos within buf,
// treating buf as circular.
func (r Reader) U64AtWrapped(buf []byte, pos int) uint64 {
	var tmp [8]byte
	for i := range tmp {
 tmp[i] = byteAtWrapped(buf, pos, i)
	}
	return r.order.Uint64(tmp[:])
}

// CopyWrapped copies n bytes starting at byte position pos within buf
// (treated as circular) into dst, which must have length >= n.
func CopyWrapped(dst, buf []byte, pos, n int) {
	for i := 0; i < n; i++ {
 dst[i] = byteAtWrapped(buf, pos, i)
	}
}

// U16At reads a uint16 at a non-wrapping byte offset.
func (r Reader) U16At(buf []byte, off int) uint16 { return r.order.Uint16(buf[off:]) }

// U32At reads a uint32 at a non-wrapping byte offset.
func (r Reader) U32At(buf []byte, off int) uint32 { return r.order.Uint32(buf[off:]) }

// U64At reads a uint64 at a non-wrapping byte offset.
func (r Reader) U64At(buf []byte, off int) uint64 { return r.order.Uint64(buf[off:]) }

// I16At, I32At, I64At are the signed equivalents of U16At/U32At/U64At.
func (r Reader) I16At(buf []byte, off int) int16 { return int16(r.U16At(buf, off)) }
func (r Reader) I32At(buf []byte, off int) int32 { return int32(r.U32At(buf, off)) }
func (r Reader) I64At(buf []byte, off int) int64 { return int64(r.U64At(buf, off)) }
