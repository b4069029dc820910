package eventheader

import (
	"github.com/tracepoint-go/libtracepoint/internal/byteio"
	"github.com/tracepoint-go/libtracepoint/tperr"
)

// Decoder walks a single EventHeader payload . Use Start to
// validate the header and extensions, then call MoveNext in a loop and
// inspect Item/State at each step.
type Decoder struct {
	payload []byte
	order byteio.Reader

	header Header
	eventName string
	provider string
	options string
	activity ActivityID
	haveActivity bool

	forest []declNode
	needByteSwap bool

	dataStart int
	pos int

	state State
	item ItemInfo
	stack []pendingList
	err error
}

// Start validates payload's fixed header and extension chain and
// prepares a Decoder positioned BeforeFirst. tracepointName is the
// kernel-registered name (used to recover the provider name and
// options suffix, since those are not repeated inside the payload
// itself).
func Start(tracepointName string, payload []byte) (*Decoder, error) {
	const op = "eventheader.Start"

	header, err := parseHeader(payload)
	if err != nil {
 return nil, err
	}

	order := byteio.NativeReader
	if header.NeedByteSwap() {
 order = order.SwapOf()
	}

	d := &Decoder{
 payload: payload,
 order: order,
 header: header,
 needByteSwap: header.NeedByteSwap(),
 state: BeforeFirst,
	}
	d.provider, d.options = ProviderAndOptions(tracepointName)

	dataStart := HeaderSize
	if header.Flags&FlagExtension != 0 {
 ext, consumed, err := walkExtensions(payload, order)
 if err != nil {
 return nil, err
 }
 if !ext.haveMeta {
 return nil, tperr.New(tperr.MissingMetadata, op, "EventHeader payload has no Metadata extension")
 }
 d.eventName = ext.eventName
 d.activity = ext.activity
 d.haveActivity = ext.haveActivity

 decls, err := parseFieldSchema(ext.fieldSchema, order)
 if err != nil {
 return nil, err
 }
 forest, err := buildForest(decls)
 if err != nil {
 return nil, err
 }
 d.forest = forest
 dataStart = consumed
	} else {
 return nil, tperr.New(tperr.MissingMetadata, op, "EventHeader payload has no extension chain")
	}

	d.dataStart = dataStart
	d.stack = []pendingList{{items: d.forest, close: closeNone}}
	return d, nil
}

// Header returns the fixed EventHeader header fields.
func (d *Decoder) Header() Header { return d.header }

// EventName, Provider, and Options return the names recovered at
// Start .
func (d *Decoder) EventName() string { return d.eventName }
func (d *Decoder) Provider() string { return d.provider }
func (d *Decoder) Options() string { return d.options }

// ActivityID returns the decoded ActivityId extension, if present.
func (d *Decoder) ActivityID() (ActivityID, bool) { return d.activity, d.haveActivity }

func (d *Decoder) arrayCountOf(decl fieldDecl) (int, error) {
	const op = "eventheader.arrayCountOf"
	if decl.arrayKind == ArrayFixed {
 return int(decl.arrayCount), nil
	}
	// Variable-size array: a u16 element count is inline in the data
	// block, immediately before the elements .
	if d.dataStart+d.pos+2 > len(d.payload) {
 return 0, tperr.New(tperr.CorruptEvent, op, "truncated variable array count")
	}
	n := d.order.U16At(d.payload, d.dataStart+d.pos)
	d.pos += 2
	return int(n), nil
}

// readValue slices the current scalar field's bytes out of the data
// block, advancing pos past them ("computes the slice at
// walk time rather than at Start").
func (d *Decoder) readValue(decl fieldDecl) (ItemInfo, error) {
	const op = "eventheader.readValue"
	format := resolveFormat(decl.encoding, decl.format)

	item := ItemInfo{
 Name: decl.name, FieldTag: decl.tag, Encoding: decl.encoding, Format: format,
 ArrayFlags: ArrayNone, NeedByteSwap: d.needByteSwap,
	}

	abs := d.dataStart + d.pos
	switch {
	case decl.encoding.isString() && decl.encoding.isLengthPrefixed():
 if abs+2 > len(d.payload) {
 return ItemInfo{}, tperr.New(tperr.CorruptEvent, op, "truncated string length prefix")
 }
 n := int(d.order.U16At(d.payload, abs))
 abs += 2
 if abs+n > len(d.payload) {
 return ItemInfo{}, tperr.New(tperr.CorruptEvent, op, "string length exceeds payload")
 }
 item.ValueBytes = d.payload[abs : abs+n]
 item.ElementSize = decl.encoding.charSize()
 d.pos = abs + n - d.dataStart

	case decl.encoding.isString():
 charSize := decl.encoding.charSize()
 end, err := findNulTerminator(d.payload, abs, charSize)
 if err != nil {
 return ItemInfo{}, tperr.Newf(tperr.CorruptEvent, op, "%v", err)
 }
 item.ValueBytes = d.payload[abs:end]
 item.ElementSize = charSize
 d.pos = end + charSize - d.dataStart

	default:
 // expectedSize returns -1 for formats like Time that accept
 // either 4 or 8 bytes; fixedSize then picks the one this
 // field's own encoding declares.
 size := expectedSize(decl.encoding, format)
 if size <= 0 {
 size = decl.encoding.fixedSize()
 }
 if abs+size > len(d.payload) {
 return ItemInfo{}, tperr.Newf(tperr.CorruptEvent, op, "field %q: %d bytes exceed payload", decl.name, size)
 }
 item.ValueBytes = d.payload[abs : abs+size]
 item.ElementSize = size
 d.pos = abs + size - d.dataStart
	}

	return item, nil
}

func findNulTerminator(buf []byte, start, charSize int) (int, error) {
	for i := start; i+charSize <= len(buf); i += charSize {
 allZero := true
 for j := 0; j < charSize; j++ {
 if buf[i+j] != 0 {
 allZero = false
 break
 }
 }
 if allZero {
 return i, nil
 }
	}
	return 0, tperr.New(tperr.CorruptEvent, "eventheader.findNulTerminator", "string missing NUL terminator before payload end")
}
