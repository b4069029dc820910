package byteio

import (
	"encoding/binary"
	"unsafe"
)

// nativeOrder detects the host's byte order the same way the rest of
// the corpus does (e.g. the ebpf loader's nativeEndian helper): probe a
// known bit pattern rather than hardcode GOARCH.
func nativeOrder() binary.ByteOrder {
	var i uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 1 {
 return binary.LittleEndian
	}
	return binary.BigEndian
}
