// Package eventheader decodes the self-describing EventHeader binary
// payload layered on top of a generic tracepoint's raw bytes: a fixed
// header, optional chained extensions, and a data block walked
// depth-first against an inline field schema .
package eventheader

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/tracepoint-go/libtracepoint/internal/byteio"
	"github.com/tracepoint-go/libtracepoint/tperr"
)

// HeaderSize is sizeof(struct EventHeader): flags(u8) version(u8)
// id(u16) tag(u16) opcode(u8) level(u8), matching the fixed-field-list
// the kernel definition string declares for every EventHeader
// tracepoint : "u8 eventheader_flags;u8 version;u16 id;u16
// tag;u8 opcode;u8 level".
const HeaderSize = 8

// Flags bits within Header.Flags.
const (
	FlagPointer64 = 1 << 0
	FlagBigEndian = 1 << 1
	FlagExtension = 1 << 2
)

// Header is the fixed portion of every EventHeader payload.
type Header struct {
	Flags uint8
	Version uint8
	ID uint16
	Tag uint16
	Opcode uint8
	Level uint8
}

// NeedByteSwap reports whether this payload's byte order differs from
// the host's ( "Byte swap").
func (h Header) NeedByteSwap() bool {
	hostBigEndian := byteio.NativeReader.Order() == binary.BigEndian
	return (h.Flags&FlagBigEndian != 0) != hostBigEndian
}

// parseHeader validates and decodes the fixed header at the start of
// payload. The header's own multi-byte fields (id, tag) are read using
// the header's own declared byte order, since the byte-swap flag lives
// inside the header itself.
func parseHeader(payload []byte) (Header, error) {
	const op = "eventheader.parseHeader"
	if len(payload) < HeaderSize {
 return Header{}, tperr.Newf(tperr.CorruptEvent, op, "payload shorter than %d-byte header", HeaderSize)
	}
	flags := payload[0]
	order := byteio.NativeReader
	if (flags&FlagBigEndian != 0) != (order.Order() == binary.BigEndian) {
 order = order.SwapOf()
	}
	return Header{
 Flags: flags,
 Version: payload[1],
 ID: order.U16At(payload, 2),
 Tag: order.U16At(payload, 4),
 Opcode: payload[6],
 Level: payload[7],
	}, nil
}

// ActivityID is a pair of UUIDs carried by an optional ActivityId
// extension: the event's own activity id, and optionally the related
// (parent) activity id.
type ActivityID struct {
	Activity uuid.UUID
	RelatedActivity uuid.UUID
	HasRelated bool
}
