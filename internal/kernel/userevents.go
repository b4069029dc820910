package kernel

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// UserEventsDataSuffix is appended to the tracing mount point to find
// the registration/write device .
const UserEventsDataSuffix = "/user_events_data"

// OpenUserEventsData opens the user_events_data file for registering
// and emitting dynamic tracepoints.
func OpenUserEventsData() (*os.File, error) {
	mount, err := Find()
	if err != nil {
 return nil, errors.Wrap(err, "locating tracing mount point")
	}
	path := mount + UserEventsDataSuffix
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
 return nil, errors.Wrapf(err, "opening %s", path)
	}
	return f, nil
}

// user_events ioctl request codes, from
// include/uapi/linux/user_events.h. The _IOWR/_IOW encoding isn't
// exposed by x/sys/unix for this newer header, so the request numbers
// are pinned directly, matching the documented ABI ("ioctls
// REG (0), DEL (1), UNREG (2) with 24-byte and 16-byte request
// structs").
const (
	diagIOCMagic = 'E'
)

var (
	ueRegIoctl = ioctlRequest(diagIOCMagic, 0, unsafe.Sizeof(RegisterRequest{}))
	ueUnregIoctl = ioctlRequest(diagIOCMagic, 2, unsafe.Sizeof(UnregisterRequest{}))
	ueDelIoctl = ioctlRequest(diagIOCMagic, 1, unsafe.Sizeof(uintptr(0)))
)

func ioctlRequest(magic byte, nr, size uintptr) uint {
	const iocWrite = 1
	const iocRead = 2
	const dirShift = 30
	const sizeShift = 16
	const typeShift = 8
	dir := uintptr(iocRead | iocWrite)
	return uint(dir<<dirShift | size<<sizeShift | uintptr(magic)<<typeShift | nr)
}

// RegisterRequest is user_reg, the 24-(or 32-)byte REG request:
// {size, name_args, status_bit, write_index, existing_status}.
// Field order and widths follow include/uapi/linux/user_events.h's
// struct user_reg.
type RegisterRequest struct {
	Size uint32
	NameArgsPtr uint64
	StatusBit uint32 // out: assigned enable bit within the status page
	WriteIndex uint32 // out: index to prepend to writev payloads
	ExistingStatus uint64 // in: optional matching-event status address (unused here, 0)
}

// UnregisterRequest is user_unreg, the 16-byte UNREG request:
// {size, disable_bit, reserved, disable_addr}.
type UnregisterRequest struct {
	Size uint32
	DisableBit uint8
	Reserved1 uint8
	Reserved2 uint16
	DisableAddr uint64
}

// Register issues the REG ioctl for definition (e.g.
// "myevent u32 field1") and returns the kernel-assigned write index
// and the enable bit within the status page.
func Register(fd uintptr, definition string) (writeIndex uint32, statusBit uint32, err error) {
	cstr := append([]byte(definition), 0)
	req := RegisterRequest{
 NameArgsPtr: uint64(uintptr(unsafe.Pointer(&cstr[0]))),
	}
	req.Size = uint32(unsafe.Sizeof(req))

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(ueRegIoctl), uintptr(unsafe.Pointer(&req))); errno != 0 {
 return 0, 0, errors.Wrapf(errno, "ioctl(DIAG_IOCSREG) for %q", definition)
	}
	return req.WriteIndex, req.StatusBit, nil
}

// Unregister issues the UNREG ioctl for the enable bit returned by
// Register.
func Unregister(fd uintptr, statusBit uint32) error {
	req := UnregisterRequest{DisableBit: uint8(statusBit)}
	req.Size = uint32(unsafe.Sizeof(req))
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(ueUnregIoctl), uintptr(unsafe.Pointer(&req))); errno != 0 {
 return errors.Wrap(errno, "ioctl(DIAG_IOCSUNREG)")
	}
	return nil
}

// DeleteEvent issues the DEL ioctl, removing a dynamic event
// definition by name (rather than by enable bit).
func DeleteEvent(fd uintptr, name string) error {
	cstr := append([]byte(name), 0)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(ueDelIoctl), uintptr(unsafe.Pointer(&cstr[0]))); errno != 0 {
 return errors.Wrapf(errno, "ioctl(DIAG_IOCSDEL) for %q", name)
	}
	return nil
}

// StatusByte reads the status byte at byteOffset within the
// process-shared status page mmap'd from the user_events_data fd. The
// emitter consults this before every write: a nonzero bit means a
// consumer is listening.
func StatusByte(statusPage []byte, byteOffset uint32) byte {
	if int(byteOffset) >= len(statusPage) {
 return 0
	}
	return statusPage[byteOffset]
}
