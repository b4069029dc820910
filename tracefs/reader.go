package tracefs

import (
	"os"

	"github.com/tracepoint-go/libtracepoint/internal/kernel"
	"github.com/tracepoint-go/libtracepoint/tperr"
)

// FSReader is the real Reader: it reads
// "<tracing mount>/events/<system>/<name>/format" off the discovered
// tracefs/debugfs mount ("/sys/.../tracing/events/<sys>/<event>/format").
type FSReader struct{}

// ReadFormat implements Reader.
func (FSReader) ReadFormat(system, name string) (string, error) {
	const op = "tracefs.FSReader.ReadFormat"
	mount, err := kernel.Find()
	if err != nil {
 return "", tperr.New(tperr.KernelError, op, err)
	}
	path := mount + "/events/" + system + "/" + name + "/format"
	data, err := os.ReadFile(path)
	if err != nil {
 return "", tperr.New(tperr.KernelError, op, err)
	}
	return string(data), nil
}

var _ Reader = FSReader{}
