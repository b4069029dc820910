package kernel

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/tracepoint-go/libtracepoint/internal/byteio"
)

// TracepointAttr builds the perf_event_attr for sampling a single
// tracefs event id, per step 4: type=tracepoint,
// config=event id, sample_period=1, read_format=id-only, plus the
// watermark/write-backward/wakeup bits the session's mode and wakeup
// policy demand.
func TracepointAttr(eventID uint64, sampleFormat uint64, watermarkBytes uint32, wakeupEvents uint32, circular bool) *unix.PerfEventAttr {
	attr := &unix.PerfEventAttr{
 Type: unix.PERF_TYPE_TRACEPOINT,
 Config: eventID,
 Sample: 1,
 Sample_type: sampleFormat,
 Read_format: unix.PERF_FORMAT_ID,
 Clockid: CLOCK_MONOTONIC_RAW,
 Bits: unix.PerfBitClockid,
	}
	if circular {
 attr.Bits |= unix.PerfBitWriteBackward
	}
	if watermarkBytes > 0 {
 attr.Bits |= unix.PerfBitWatermark
 attr.Wakeup = watermarkBytes
	} else {
 attr.Wakeup = wakeupEvents
	}
	attr.Size = uint32(unsafe.Sizeof(*attr))
	return attr
}

// CLOCK_MONOTONIC_RAW isn't exported by x/sys/unix under that name in
// every build tag combination, so it's pinned here to the documented
// constant value (4) per clock_gettime(2).
const CLOCK_MONOTONIC_RAW = 4

// OpenTracepoint opens a sampling stream for eventID bound to the
// given cpu, with no process filter (pid=-1, i.e. all processes on
// that cpu) and CLOEXEC set.
func OpenTracepoint(attr *unix.PerfEventAttr, cpu int) (fd int, err error) {
	fd, err = unix.PerfEventOpen(attr, -1, cpu, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
 return -1, errors.Wrapf(err, "perf_event_open(cpu=%d)", cpu)
	}
	return fd, nil
}

// OpenRedirected opens a sampling stream like OpenTracepoint, but
// configured to redirect its output into leaderFd's buffer rather than
// mmap its own ( step 6, "issue redirect output ioctl").
// The kernel performs the redirection via PERF_EVENT_IOC_SET_OUTPUT
// after open, so this is just OpenTracepoint followed by SetOutput.
func OpenRedirected(attr *unix.PerfEventAttr, cpu int, leaderFd int) (fd int, err error) {
	fd, err = OpenTracepoint(attr, cpu)
	if err != nil {
 return -1, err
	}
	if err := SetOutput(fd, leaderFd); err != nil {
 unix.Close(fd)
 return -1, err
	}
	return fd, nil
}

// Enable issues PERF_EVENT_IOC_ENABLE on fd.
func Enable(fd int) error {
	return ioctlNoArg(fd, unix.PERF_EVENT_IOC_ENABLE, "ENABLE")
}

// Disable issues PERF_EVENT_IOC_DISABLE on fd.
func Disable(fd int) error {
	return ioctlNoArg(fd, unix.PERF_EVENT_IOC_DISABLE, "DISABLE")
}

// Reset issues PERF_EVENT_IOC_RESET on fd.
func Reset(fd int) error {
	return ioctlNoArg(fd, unix.PERF_EVENT_IOC_RESET, "RESET")
}

// SetOutput issues PERF_EVENT_IOC_SET_OUTPUT on fd, redirecting its
// samples into outputFd's ring buffer.
func SetOutput(fd, outputFd int) error {
	if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_SET_OUTPUT, outputFd); err != nil {
 return errors.Wrap(err, "ioctl(PERF_EVENT_IOC_SET_OUTPUT)")
	}
	return nil
}

// PauseOutput issues PERF_EVENT_IOC_PAUSE_OUTPUT(1) (pause=true) or
// (0) (pause=false) on fd.
func PauseOutput(fd int, pause bool) error {
	v := 0
	if pause {
 v = 1
	}
	if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_PAUSE_OUTPUT, v); err != nil {
 return errors.Wrap(err, "ioctl(PERF_EVENT_IOC_PAUSE_OUTPUT)")
	}
	return nil
}

// ReadID reads back the kernel-assigned sample id for fd, using the
// {value, id} layout fixed by PERF_FORMAT_ID .
func ReadID(fd int) (uint64, error) {
	var buf [16]byte
	n, err := unix.Read(fd, buf[:])
	if err != nil {
 return 0, errors.Wrap(err, "read(perf fd)")
	}
	if n != 16 {
 return 0, errors.Errorf("read(perf fd): short read of %d bytes", n)
	}
	id := byteio.NativeReader.U64At(buf[:], 8)
	return id, nil
}

func ioctlNoArg(fd int, req uint, name string) error {
	if err := unix.IoctlSetInt(fd, req, 0); err != nil {
 return errors.Wrapf(err, "ioctl(PERF_EVENT_IOC_%s)", name)
	}
	return nil
}
