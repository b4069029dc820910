package eventheader

import (
	"strings"

	"github.com/tracepoint-go/libtracepoint/internal/byteio"
	"github.com/tracepoint-go/libtracepoint/tperr"
)

const (
	formatValueMask = 0x7F
	formatChainFlag = 0x80 // a tag:u16 follows the format byte
)

// fieldDecl is one parsed entry from a Metadata extension's inline
// field schema: {name, encoding, format, tag}, plus the struct
// child-count and fixed-array-count extensions describes.
type fieldDecl struct {
	name string
	encoding Encoding
	arrayKind ArrayKind
	arrayCount uint16 // valid only when arrayKind == ArrayFixed
	format Format
	tag uint16
	childCount uint8 // valid only when encoding == EncodingStruct
}

// parseFieldSchema decodes the flat, depth-first list of fieldDecls
// following a Metadata extension's NUL-terminated event name. Nesting
// is expressed only through each Struct entry's childCount; the list
// itself carries no explicit tree pointers ( "schema tree owns
// nodes").
func parseFieldSchema(buf []byte, order byteio.Reader) ([]fieldDecl, error) {
	const op = "eventheader.parseFieldSchema"
	var decls []fieldDecl
	for len(buf) > 0 {
 d, rest, err := parseOneFieldDecl(buf, order)
 if err != nil {
 return nil, tperr.Newf(tperr.CorruptEvent, op, "%v", err)
 }
 decls = append(decls, d)
 buf = rest
	}
	return decls, nil
}

func parseOneFieldDecl(buf []byte, order byteio.Reader) (fieldDecl, []byte, error) {
	const op = "eventheader.parseOneFieldDecl"
	nul := indexByte(buf, 0)
	if nul < 0 {
 return fieldDecl{}, nil, tperr.New(tperr.CorruptEvent, op, "field name missing NUL terminator")
	}
	d := fieldDecl{name: string(buf[:nul])}
	rest := buf[nul+1:]

	if len(rest) < 1 {
 return fieldDecl{}, nil, tperr.New(tperr.CorruptEvent, op, "truncated field declaration")
	}
	raw := rest[0]
	rest = rest[1:]
	d.encoding = baseEncoding(raw)
	d.arrayKind = arrayKindOf(raw)

	if raw&encodingChainFlag != 0 {
 if len(rest) < 1 {
 return fieldDecl{}, nil, tperr.New(tperr.CorruptEvent, op, "truncated format byte")
 }
 fb := rest[0]
 rest = rest[1:]
 if d.encoding == EncodingStruct {
 d.childCount = fb
 } else {
 d.format = Format(fb & formatValueMask)
 if fb&formatChainFlag != 0 {
 if len(rest) < 2 {
 return fieldDecl{}, nil, tperr.New(tperr.CorruptEvent, op, "truncated field tag")
 }
 d.tag = order.U16At(rest, 0)
 rest = rest[2:]
 }
 }
	} else if d.encoding == EncodingStruct {
 if len(rest) < 1 {
 return fieldDecl{}, nil, tperr.New(tperr.CorruptEvent, op, "struct missing child count")
 }
 d.childCount = rest[0]
 rest = rest[1:]
	}

	if d.arrayKind == ArrayFixed {
 if len(rest) < 2 {
 return fieldDecl{}, nil, tperr.New(tperr.CorruptEvent, op, "truncated fixed array count")
 }
 d.arrayCount = order.U16At(rest, 0)
 rest = rest[2:]
	}

	return d, rest, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
 if v == c {
 return i
 }
	}
	return -1
}

// ProviderAndOptions splits a tracepoint's registered name into its
// provider name and the provider-options suffix (the tail after the
// last underscore), per and the `_Lhex_Khex[G...]` attribute
// tail documented in §6.
func ProviderAndOptions(tracepointName string) (provider, options string) {
	if i := strings.LastIndexByte(tracepointName, '_'); i >= 0 {
 return tracepointName[:i], tracepointName[i+1:]
	}
	return tracepointName, ""
}
