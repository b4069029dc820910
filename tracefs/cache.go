package tracefs

import (
	"strconv"
	"strings"
	"sync"

	"github.com/tracepoint-go/libtracepoint/emitter"
	"github.com/tracepoint-go/libtracepoint/tperr"
)

// EventHeaderRegistrar abstracts the Emitter collaborator a Cache uses
// to register a dynamic EventHeader tracepoint with the kernel, so
// tests can substitute a fake without pulling in user_events ioctls.
type EventHeaderRegistrar interface {
	// Connect issues the kernel registration for tracepointName using
	// definition as the user_events format string.
	Connect(tracepointName, definition string) (*emitter.Tracepoint, error)
}

// Reader abstracts the filesystem collaborator a Cache uses to find and
// read a tracepoint's format file, so tests can substitute an in-memory
// fixture for the real tracefs/debugfs mount point discovered by
// internal/kernel.TracingMountPoint.
type Reader interface {
	// ReadFormat returns the text of
	// "<mount>/events/<system>/<name>/format".
	ReadFormat(system, name string) (string, error)
}

// Cache maps tracepoint common_type values and system:name pairs to
// their parsed FieldSchemaList, so that decoding a sample's common_type
// back to a schema is O(1) after the first lookup .
//
// A Cache is safe for concurrent use; session enumeration and a
// concurrent EnableTracepoint call may both touch it.
type Cache struct {
	mu sync.RWMutex
	byID map[uint32]*FieldSchemaList
	byName map[string]*FieldSchemaList
	wordIs64 bool
}

// NewCache returns an empty Cache. wordIs64Bit fixes the platform word
// width used to size "long" and pointer fields when parsing format
// text ; it does not change later.
func NewCache(wordIs64Bit bool) *Cache {
	return &Cache{
 byID: make(map[uint32]*FieldSchemaList),
 byName: make(map[string]*FieldSchemaList),
 wordIs64: wordIs64Bit,
	}
}

// FindByID returns the schema registered under common_type id, if any.
func (c *Cache) FindByID(id uint32) (*FieldSchemaList, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.byID[id]
	return l, ok
}

// FindByName returns the schema registered under "system:name", if any.
func (c *Cache) FindByName(system, name string) (*FieldSchemaList, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.byName[system+":"+name]
	return l, ok
}

// FindByRawRecord reads the common_type value out of a raw tracepoint
// record (the first two bytes, in the given byte order, per every tracefs
// event's fixed common_type field) and resolves it via FindByID.
//
// raw must be at least 2 bytes; shorter records are always
// CorruptEvent regardless of what any schema says, since there is no
// common_type to even look up.
func (c *Cache) FindByRawRecord(raw []byte, order Endian) (*FieldSchemaList, error) {
	const op = "tracefs.Cache.FindByRawRecord"
	if len(raw) < 2 {
 return nil, tperr.Newf(tperr.CorruptEvent, op, "record too short for common_type: %d bytes", len(raw))
	}
	id := uint32(order.Uint16(raw))
	l, ok := c.FindByID(id)
	if !ok {
 return nil, tperr.Newf(tperr.NotFound, op, "no schema registered for common_type %d", id)
	}
	return l, nil
}

// Endian is the subset of encoding/binary.ByteOrder that
// FindByRawRecord needs; it exists so callers pass an
// internal/byteio.Reader's Order without tracefs importing byteio
// solely for the interface.
type Endian interface {
	Uint16([]byte) uint16
}

// AddFromText parses text and registers the resulting schema.
//
// Failures:
// - InvalidFormat, if text does not parse (see Parse).
// - AlreadyExists, if a schema is already registered under text's ID.
// - InconsistentCommonType, if the common_type offset/size already
// in the cache (fixed by the first schema added, whatever its system)
// differs from the one just parsed; tracefs guarantees this never happens for a
// sane kernel, so a mismatch means the caller is pointed at format
// files from two different kernel boots or namespaces.
func (c *Cache) AddFromText(system, text string) (*FieldSchemaList, error) {
	const op = "tracefs.Cache.AddFromText"

	list, err := Parse(system, text, c.wordIs64)
	if err != nil {
 return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.byID[list.EventID]; ok {
 return nil, tperr.Newf(tperr.AlreadyExists, op, "common_type %d already registered for %s", list.EventID, existing.FullName())
	}

	ct, _ := list.CommonTypeField()
	for _, other := range c.byID {
 oct, ok := other.CommonTypeField()
 if !ok {
 continue
 }
 if oct.Offset != ct.Offset || oct.Size != ct.Size {
 return nil, tperr.Newf(tperr.InconsistentCommonType, op,
 "system %s: common_type at offset %d/size %d conflicts with existing offset %d/size %d",
 system, ct.Offset, ct.Size, oct.Offset, oct.Size)
 }
 break
	}

	c.byID[list.EventID] = list
	c.byName[list.FullName()] = list
	return list, nil
}

// FindOrAddFromSystem resolves "system:name" from the cache, falling
// back to r.ReadFormat and AddFromText on a miss.
func (c *Cache) FindOrAddFromSystem(r Reader, system, name string) (*FieldSchemaList, error) {
	if l, ok := c.FindByName(system, name); ok {
 return l, nil
	}
	text, err := r.ReadFormat(system, name)
	if err != nil {
 return nil, tperr.New(tperr.KernelError, "tracefs.Cache.FindOrAddFromSystem", err)
	}
	return c.AddFromText(system, text)
}

// PreregisterEventHeader validates that name's attribute tail looks
// like "_L<hex-level>K<hex-keyword>[G<group>]" and, if so, registers it
// with the kernel through reg's Emitter collaborator .
//
// This never touches the schema cache itself: an EventHeader
// tracepoint's field schema lives inside each payload's own Metadata
// extension , not in a tracefs format file, so there is
// nothing here to add to byID/byName.
func (c *Cache) PreregisterEventHeader(reg EventHeaderRegistrar, name string) error {
	const op = "tracefs.Cache.PreregisterEventHeader"

	if err := validateEventHeaderTail(name); err != nil {
 return tperr.New(tperr.InvalidFormat, op, err.Error())
	}

	definition := emitter.BuildDefinition(name)
	if _, err := reg.Connect(name, definition); err != nil {
 return tperr.New(tperr.KernelError, op, err.Error())
	}
	return nil
}

// validateEventHeaderTail checks that name ends in
// "_L<hex>K<hex>[G<group>]" without attempting to resolve it against
// any particular provider (§6).
func validateEventHeaderTail(name string) error {
	idx := strings.LastIndex(name, "_L")
	if idx < 0 {
 return tperr.Newf(tperr.InvalidFormat, "tracefs.validateEventHeaderTail", "%q has no _L<level> attribute tail", name)
	}
	tail := name[idx+2:]

	kIdx := strings.IndexByte(tail, 'K')
	if kIdx < 0 {
 return tperr.Newf(tperr.InvalidFormat, "tracefs.validateEventHeaderTail", "%q has no K<keyword> after _L<level>", name)
	}
	levelHex, rest := tail[:kIdx], tail[kIdx+1:]
	if _, err := strconv.ParseUint(levelHex, 16, 8); err != nil {
 return tperr.Newf(tperr.InvalidFormat, "tracefs.validateEventHeaderTail", "%q: level %q is not hex", name, levelHex)
	}

	keywordHex := rest
	if gIdx := strings.IndexByte(rest, 'G'); gIdx >= 0 {
 keywordHex = rest[:gIdx]
	}
	if _, err := strconv.ParseUint(keywordHex, 16, 64); err != nil {
 return tperr.Newf(tperr.InvalidFormat, "tracefs.validateEventHeaderTail", "%q: keyword %q is not hex", name, keywordHex)
	}
	return nil
}
