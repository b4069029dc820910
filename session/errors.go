package session

import "github.com/tracepoint-go/libtracepoint/tperr"

func notSupported(op, format string, args ...interface{}) error {
	return tperr.Newf(tperr.NotSupported, op, format, args...)
}
