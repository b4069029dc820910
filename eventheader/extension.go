package eventheader

import (
	"github.com/google/uuid"

	"github.com/tracepoint-go/libtracepoint/internal/byteio"
	"github.com/tracepoint-go/libtracepoint/tperr"
)

// extensionKind identifies an EventHeaderExtension block (
// "extension chain").
type extensionKind uint8

const (
	extKindInvalid extensionKind = 0
	extKindMetadata extensionKind = 1
	extKindActivityID extensionKind = 2
	extKindActivityIDAndRelated extensionKind = 3
)

// extensionHeader is {size:u16, kind:u8, has_more:u8} as laid out on
// the wire ( "Record layouts"), always present when
// Header.Flags has FlagExtension set.
type extensionHeader struct {
	size uint16
	kind extensionKind
	last bool
}

func parseExtensionHeader(buf []byte, order byteio.Reader) (extensionHeader, error) {
	const op = "eventheader.parseExtensionHeader"
	if len(buf) < 4 {
 return extensionHeader{}, tperr.New(tperr.CorruptEvent, op, "truncated extension header")
	}
	return extensionHeader{
 size: order.U16At(buf, 0),
 kind: extensionKind(buf[2]),
 last: buf[3] == 0,
	}, nil
}

// extensions holds the decoded content of every extension block found
// in the chain, keyed by kind. Metadata carries the event's own name
// plus its inline field schema; ActivityID carries the optional UUID
// pair.
type extensions struct {
	eventName string
	fieldSchema []byte // bytes following the NUL-terminated event name
	haveMeta bool
	activity ActivityID
	haveActivity bool
}

// walkExtensions parses the chain of EventHeaderExtension blocks
// starting at payload[HeaderSize:], returning what the chain carried
// (event name, field-schema bytes, activity ids) and the payload
// offset where the chain ends, which is where the event data begins.
func walkExtensions(payload []byte, order byteio.Reader) (extensions, int, error) {
	const op = "eventheader.walkExtensions"
	var ext extensions
	pos := HeaderSize
	for {
 if pos+4 > len(payload) {
 return ext, pos, tperr.New(tperr.CorruptEvent, op, "extension chain runs past payload end")
 }
 eh, err := parseExtensionHeader(payload[pos:], order)
 if err != nil {
 return ext, pos, err
 }
 body := pos + 4
 end := body + int(eh.size)
 if end > len(payload) {
 return ext, pos, tperr.New(tperr.CorruptEvent, op, "extension body runs past payload end")
 }

 switch eh.kind {
 case extKindMetadata:
 name, rest, perr := parseMetadataName(payload[body:end])
 if perr != nil {
 return ext, pos, perr
 }
 ext.eventName = name
 ext.fieldSchema = rest
 ext.haveMeta = true
 case extKindActivityID, extKindActivityIDAndRelated:
 if err := parseActivityExtension(payload[body:end], eh.kind, &ext); err != nil {
 return ext, pos, err
 }
 default:
 // Unknown extension kinds are skipped, per 
 // forward-compatibility note: unrecognised kinds are data
 // the decoder doesn't understand yet, not corruption.
 }

 pos = end
 if eh.last {
 break
 }
	}
	return ext, pos, nil
}

// parseMetadataName splits a Metadata extension body into its
// NUL-terminated event-name string and the remaining field-schema
// bytes.
func parseMetadataName(body []byte) (string, []byte, error) {
	const op = "eventheader.parseMetadataName"
	for i, b := range body {
 if b == 0 {
 return string(body[:i]), body[i+1:], nil
 }
	}
	return "", nil, tperr.New(tperr.CorruptEvent, op, "metadata extension missing NUL-terminated name")
}

func parseActivityExtension(body []byte, kind extensionKind, ext *extensions) error {
	const op = "eventheader.parseActivityExtension"
	if len(body) < 16 {
 return tperr.New(tperr.CorruptEvent, op, "activity id extension shorter than one uuid")
	}
	id, err := uuid.FromBytes(body[:16])
	if err != nil {
 return tperr.Newf(tperr.CorruptEvent, op, "invalid activity uuid: %v", err)
	}
	ext.activity.Activity = id
	ext.haveActivity = true
	if kind == extKindActivityIDAndRelated {
 if len(body) < 32 {
 return tperr.New(tperr.CorruptEvent, op, "related activity id extension shorter than two uuids")
 }
 related, err := uuid.FromBytes(body[16:32])
 if err != nil {
 return tperr.Newf(tperr.CorruptEvent, op, "invalid related activity uuid: %v", err)
 }
 ext.activity.RelatedActivity = related
 ext.activity.HasRelated = true
	}
	return nil
}
