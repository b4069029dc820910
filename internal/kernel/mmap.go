package kernel

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// PageSize is the host's memory page size, cached once at process
// start; perf_event_open buffers are always sized in whole pages.
var PageSize = os.Getpagesize()

// RoundUpBufferSize rounds want up to a power of two no smaller than
// PageSize, per boundary behaviour ("buffer_size=0 is rounded
// up to one page"; "not a power of two is rounded up to the next power
// of two >= page size").
func RoundUpBufferSize(want int) int {
	if want <= PageSize {
 return PageSize
	}
	n := PageSize
	for n < want {
 n <<= 1
	}
	return n
}

// MmapBuffer mmaps the header page plus dataSize bytes of ring data for
// fd. prot is PROT_READ for Circular sessions (the kernel writes
// backward and the consumer never advances tail) or
// PROT_READ|PROT_WRITE for Realtime sessions (the consumer writes
// tail).
func MmapBuffer(fd int, dataSize int, prot int) ([]byte, error) {
	total := PageSize + dataSize
	b, err := unix.Mmap(fd, 0, total, prot, unix.MAP_SHARED)
	if err != nil {
 return nil, errors.Wrapf(err, "mmap(fd=%d, size=%d)", fd, total)
	}
	return b, nil
}

// Munmap unmaps a buffer returned by MmapBuffer.
func Munmap(b []byte) error {
	if b == nil {
 return nil
	}
	return errors.Wrap(unix.Munmap(b), "munmap")
}

// HeaderPage is a typed view over the perf_event_mmap_page that begins
// every mmap'd buffer ("mmap of page_size+data_size bytes
// giving a header page with atomic data_head, data_tail, data_offset,
// data_size fields").
type HeaderPage struct {
	raw *unix.PerfEventMmapPage
}

// Header interprets the first PageSize bytes of an mmap'd buffer as a
// HeaderPage. b must have been returned by MmapBuffer.
func Header(b []byte) HeaderPage {
	return HeaderPage{raw: (*unix.PerfEventMmapPage)(ptrOf(b))}
}

// DataOffset and DataSize are the kernel-reported location of the ring
// data region within the mmap, which in practice always equals
// PageSize and the requested data size respectively, but is read back
// rather than assumed.
func (h HeaderPage) DataOffset() uint64 { return h.raw.Data_offset }
func (h HeaderPage) DataSize() uint64 { return h.raw.Data_size }

// LoadHeadAcquire performs an acquire load of data_head, the
// producer-published write position ( ordering guarantees).
func (h HeaderPage) LoadHeadAcquire() uint64 {
	return loadAcquire64(&h.raw.Data_head)
}

// StoreTailRelease performs a release store of data_tail, publishing
// the consumer's read position to the kernel.
func (h HeaderPage) StoreTailRelease(tail uint64) {
	storeRelease64(&h.raw.Data_tail, tail)
}

// LoadTailRelaxed reads back the previously stored tail, e.g. to
// resume a Realtime enumeration where the last one left off.
func (h HeaderPage) LoadTailRelaxed() uint64 {
	return loadAcquire64(&h.raw.Data_tail)
}

// NewFakeMmap builds a buffer laid out like a real perf_event_open
// mmap (header page + dataSize bytes of ring data) without touching
// the kernel, for tests that exercise ringbuffer.Buffer against
// hand-crafted records. dataSize must be a power of two.
func NewFakeMmap(dataSize int) []byte {
	b := make([]byte, PageSize+dataSize)
	h := Header(b)
	h.raw.Data_offset = uint64(PageSize)
	h.raw.Data_size = uint64(dataSize)
	return b
}

// SetFakeHead writes data_head directly, standing in for the kernel
// producer in tests.
func SetFakeHead(mmap []byte, head uint64) {
	Header(mmap).raw.Data_head = head
}
