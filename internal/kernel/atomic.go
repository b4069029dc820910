package kernel

import (
	"sync/atomic"
	"unsafe"
)

// ptrOf returns an unsafe.Pointer to the start of b's backing array,
// for overlaying the perf_event_mmap_page struct onto the mmap'd
// region ( "manual pointer arithmetic ... concentrated" here
// and in internal/byteio).
func ptrOf(b []byte) unsafe.Pointer {
	return unsafe.Pointer(&b[0])
}

// loadAcquire64 loads *p with acquire semantics. On amd64/arm64, a
// plain atomic load already provides acquire ordering; Go's memory
// model documents sync/atomic loads as acquire operations as of Go 1.19.
func loadAcquire64(p *uint64) uint64 {
	return atomic.LoadUint64(p)
}

// storeRelease64 stores v into *p with release semantics.
func storeRelease64(p *uint64, v uint64) {
	atomic.StoreUint64(p, v)
}
