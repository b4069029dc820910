// Package emitter is the event-production side of user_events (spec
// §4.6): registering a provider's tracepoints with the kernel and
// emitting records into them.
package emitter

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/tracepoint-go/libtracepoint/internal/kernel"
	"github.com/tracepoint-go/libtracepoint/tperr"
)

// nativeOrder is the host byte order, used only to lay out the write
// index prepended to every user_events writev (the kernel reads it in
// host order, not wire order).
func nativeOrder() binary.ByteOrder {
	var i uint16 = 1
	b := [2]byte{byte(i), byte(i >> 8)}
	if b[0] == 1 {
 return binary.LittleEndian
	}
	return binary.BigEndian
}

// eventHeaderFieldList is the fixed-field-list every EventHeader
// tracepoint's definition string carries, exactly as the kernel
// expects it .
const eventHeaderFieldList = "u8 eventheader_flags;u8 version;u16 id;u16 tag;u8 opcode;u8 level"

var (
	dataFileOnce sync.Once
	dataFile *os.File
	dataFileErr error
)

// openUserEventsData opens the kernel user_events_data file once per
// process, caching the result ( "Global state... belongs in a
// process-wide singleton with explicit initialisation").
func openUserEventsData() (*os.File, error) {
	dataFileOnce.Do(func() {
		dataFile, dataFileErr = kernel.OpenUserEventsData()
	})
	return dataFile, dataFileErr
}

// Tracepoint is one registered event within a Provider: its kernel
// write index, the status byte the kernel toggles when a consumer is
// listening, and the name it was registered under.
type Tracepoint struct {
	name string
	writeIndex uint32
	statusBit uint32
}

// Provider owns a set of registered tracepoints and a mutex serialising
// mutation of that set. The mutex belongs to the Provider; separate
// Providers do not share a lock.
type Provider struct {
	mu sync.Mutex
	name string
	tracepoints map[string]*Tracepoint
}

// OpenProvider populates the shared user_events_data fd (opening it on
// first use) and returns a Provider ready to register tracepoints
// under name.
func OpenProvider(name string) (*Provider, error) {
	const op = "emitter.OpenProvider"
	if _, err := openUserEventsData(); err != nil {
 return nil, tperr.Newf(tperr.KernelError, op, "open user_events_data: %v", err)
	}
	return &Provider{name: name, tracepoints: make(map[string]*Tracepoint)}, nil
}

// CloseProvider walks the provider's registered-tracepoint list and
// unregisters each via ioctl .
func (p *Provider) CloseProvider() error {
	const op = "emitter.CloseProvider"
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := openUserEventsData()
	if err != nil {
 return tperr.Newf(tperr.KernelError, op, "%v", err)
	}
	var firstErr error
	for name, tp := range p.tracepoints {
 if err := kernel.Unregister(f.Fd(), tp.statusBit); err != nil && firstErr == nil {
 firstErr = tperr.Newf(tperr.KernelError, op, "unregister %s: %v", name, err)
 }
 delete(p.tracepoints, name)
	}
	return firstErr
}

// BuildDefinition rewrites an EventHeader tracepoint name into the
// kernel registration string the spec's "EventHeader sugar" describes
// : "name field1;field2" with the fixed EventHeader field
// list appended.
func BuildDefinition(tracepointName string) string {
	return tracepointName + " " + eventHeaderFieldList
}

// TracepointName formats a provider/level/keyword/group tuple into the
// "<provider>_L<level>K<keyword>[G<group>]" attribute tail the kernel
// and the Metadata extension both expect (§6).
func TracepointName(provider string, level uint8, keyword uint64, group string) string {
	name := fmt.Sprintf("%s_L%xK%x", provider, level, keyword)
	if group != "" {
 name += "G" + group
	}
	return name
}

// Connect issues the kernel registration ioctl for tracepointName
// using definition as the format string, and stores the kernel-
// assigned write index and status bit for later Write calls (spec
// §4.6 "connect").
func (p *Provider) Connect(tracepointName, definition string) (*Tracepoint, error) {
	const op = "emitter.Connect"
	p.mu.Lock()
	defer p.mu.Unlock()

	if tp, ok := p.tracepoints[tracepointName]; ok {
 return tp, nil
	}

	f, err := openUserEventsData()
	if err != nil {
 return nil, tperr.Newf(tperr.KernelError, op, "%v", err)
	}
	writeIndex, statusBit, err := kernel.Register(f.Fd(), definition)
	if err != nil {
 return nil, tperr.Newf(tperr.KernelError, op, "register %q: %v", tracepointName, err)
	}

	tp := &Tracepoint{name: tracepointName, writeIndex: writeIndex, statusBit: statusBit}
	p.tracepoints[tracepointName] = tp
	return tp, nil
}

// Write emits one event: iff the kernel's status word shows an active
// consumer, prepends the write index (and a zero byte if payload is
// empty, working around a kernel quirk that rejects a zero-length
// writev) and issues writev. A no-op (not an error) when nobody is
// listening .
func (p *Provider) Write(tp *Tracepoint, statusPage []byte, payload ...[]byte) error {
	const op = "emitter.Write"
	if kernel.StatusByte(statusPage, tp.statusBit>>3)&(1<<(tp.statusBit&7)) == 0 {
 return nil
	}

	f, err := openUserEventsData()
	if err != nil {
 return tperr.Newf(tperr.KernelError, op, "%v", err)
	}

	var idxBuf [4]byte
	nativeOrder().PutUint32(idxBuf[:], tp.writeIndex)

	iov := make([][]byte, 0, len(payload)+2)
	iov = append(iov, idxBuf[:])
	total := 0
	for _, seg := range payload {
 total += len(seg)
	}
	if total == 0 {
 iov = append(iov, []byte{0})
	}
	iov = append(iov, payload...)

	if err := writevFd(f.Fd(), iov); err != nil {
 return tperr.Newf(tperr.KernelError, op, "writev: %v", err)
	}
	return nil
}

func writevFd(fd uintptr, iov [][]byte) error {
	sysIov := make([]unix.Iovec, len(iov))
	for i, seg := range iov {
 if len(seg) == 0 {
 continue
 }
 sysIov[i].SetLen(len(seg))
 sysIov[i].Base = &seg[0]
	}
	_, err := unix.Writev(int(fd), sysIov)
	return err
}
