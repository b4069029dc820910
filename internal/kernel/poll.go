package kernel

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Wait blocks in ppoll on fds (one per leader CPU) until one becomes
// readable, timeout elapses, or a signal in sigmask (if non-nil)
// arrives. It returns the number of ready descriptors (0 on
// timeout/signal), matching wait_for_wakeup.
func Wait(fds []int, timeout time.Duration, sigmask *unix.Sigset_t) (int, error) {
	pollFds := make([]unix.PollFd, len(fds))
	for i, fd := range fds {
 pollFds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	var ts *unix.Timespec
	if timeout >= 0 {
 t := unix.NsecToTimespec(timeout.Nanoseconds)
 ts = &t
	}

	n, err := unix.Ppoll(pollFds, ts, sigmask)
	if err != nil {
 if errors.Is(err, unix.EINTR) {
 return 0, nil
 }
 return 0, errors.Wrap(err, "ppoll")
	}
	return n, nil
}
