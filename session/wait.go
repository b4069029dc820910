package session

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/tracepoint-go/libtracepoint/internal/kernel"
)

// WaitForWakeup blocks until at least one leader buffer is readable,
// timeout elapses, or a signal in sigmask (if non-nil) arrives, and
// returns the number of ready descriptors .
//
// Requires Realtime mode and an Active session; Circular sessions
// cannot be waited on (there is no producer-side wakeup signal for a
// flight recorder that's meant to be paused and drained on demand).
func (s *Session) WaitForWakeup(timeout time.Duration, sigmask *unix.Sigset_t) (int, error) {
	const op = "session.WaitForWakeup"
	if s.opts.Mode != Realtime {
 return 0, notSupported(op, "wait_for_wakeup requires Realtime mode")
	}
	if !s.active {
 return 0, notSupported(op, "wait_for_wakeup requires an Active session")
	}

	fds := make([]int, len(s.leaders))
	for i, l := range s.leaders {
 fds[i] = l.fd
	}
	n, err := kernel.Wait(fds, timeout, sigmask)
	if err != nil {
 return 0, err
	}
	return n, nil
}
