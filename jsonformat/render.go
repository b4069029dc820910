package jsonformat

import (
	"encoding/binary"
	"math"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tracepoint-go/libtracepoint/eventheader"
	"github.com/tracepoint-go/libtracepoint/tperr"
)

func orderFor(needByteSwap bool) binary.ByteOrder {
	native := nativeByteOrder()
	if !needByteSwap {
 return native
	}
	if native == binary.LittleEndian {
 return binary.BigEndian
	}
	return binary.LittleEndian
}

func nativeByteOrder() binary.ByteOrder {
	var i uint16 = 1
	b := [2]byte{byte(i), byte(i >> 8)}
	if b[0] == 1 {
 return binary.LittleEndian
	}
	return binary.BigEndian
}

func readUint(buf []byte, order binary.ByteOrder) uint64 {
	switch len(buf) {
	case 1:
 return uint64(buf[0])
	case 2:
 return uint64(order.Uint16(buf))
	case 4:
 return uint64(order.Uint32(buf))
	case 8:
 return order.Uint64(buf)
	default:
 return 0
	}
}

func readInt(buf []byte, order binary.ByteOrder) int64 {
	switch len(buf) {
	case 1:
 return int64(int8(buf[0]))
	case 2:
 return int64(int16(order.Uint16(buf)))
	case 4:
 return int64(int32(order.Uint32(buf)))
	case 8:
 return int64(order.Uint64(buf))
	default:
 return 0
	}
}

// writeValue appends item's rendered value (no surrounding field name)
// to b, reserving its worst-case size first per 
// reserve-before-write contract.
func (b *Buffer) writeValue(item eventheader.ItemInfo) error {
	const op = "jsonformat.writeValue"
	order := orderFor(item.NeedByteSwap)

	switch item.Format {
	case eventheader.FormatUnsignedInt:
 return b.writeRawNumber(strconv.FormatUint(readUint(item.ValueBytes, order), 10))

	case eventheader.FormatSignedInt:
 return b.writeRawNumber(strconv.FormatInt(readInt(item.ValueBytes, order), 10))

	case eventheader.FormatHexInt:
 return b.writeJSONString("0x" + strconv.FormatUint(readUint(item.ValueBytes, order), 16))

	case eventheader.FormatErrno:
 if len(item.ValueBytes) != 4 {
 return tperr.New(tperr.CorruptEvent, op, "errno field is not 4 bytes")
 }
 return b.writeJSONString(errnoString(uint32(readUint(item.ValueBytes, order))))

	case eventheader.FormatPid:
 return b.writeRawNumber(strconv.FormatInt(readInt(item.ValueBytes, order), 10))

	case eventheader.FormatBoolean:
 if readUint(item.ValueBytes, order) != 0 {
 return b.writeRawNumber("true")
 }
 return b.writeRawNumber("false")

	case eventheader.FormatTime:
 sec := readInt(item.ValueBytes, order)
 return b.writeJSONString(time.Unix(sec, 0).UTC().Format(time.RFC3339))

	case eventheader.FormatFloat:
 var f float64
 switch len(item.ValueBytes) {
 case 4:
 f = float64(math.Float32frombits(uint32(readUint(item.ValueBytes, order))))
 case 8:
 f = math.Float64frombits(readUint(item.ValueBytes, order))
 default:
 return tperr.New(tperr.CorruptEvent, op, "float field is not 4 or 8 bytes")
 }
 return b.writeRawNumber(strconv.FormatFloat(f, 'g', -1, 64))

	case eventheader.FormatHexBytes:
 return b.writeHexBytesString(item.ValueBytes)

	case eventheader.FormatString8:
 if len(item.ValueBytes) != 1 {
 return tperr.New(tperr.CorruptEvent, op, "string8 field is not 1 byte")
 }
 return b.writeJSONString(string(rune(item.ValueBytes[0])))

	case eventheader.FormatStringUtf:
 return b.writeJSONString(decodeToUTF8(item.ValueBytes, charSizeOrDefault(item), order))

	case eventheader.FormatStringUtfBom:
 charSize, bomOrder, rest, _ := sniffBOM(item.ValueBytes, charSizeOrDefault(item), order)
 return b.writeJSONString(decodeToUTF8(rest, charSize, bomOrder))

	case eventheader.FormatStringXml, eventheader.FormatStringJson:
 // Rendered the same as plain UTF text: the field's content is
 // already well-formed XML/JSON text from the producer's side,
 // so it needs only JSON-string escaping, not reinterpretation.
 return b.writeJSONString(decodeToUTF8(item.ValueBytes, charSizeOrDefault(item), order))

	case eventheader.FormatUuid:
 if len(item.ValueBytes) != 16 {
 return tperr.New(tperr.CorruptEvent, op, "uuid field is not 16 bytes")
 }
 id, err := uuid.FromBytes(item.ValueBytes)
 if err != nil {
 return tperr.Newf(tperr.CorruptEvent, op, "%v", err)
 }
 return b.writeJSONString(id.String())

	case eventheader.FormatPort:
 if len(item.ValueBytes) != 2 {
 return tperr.New(tperr.CorruptEvent, op, "port field is not 2 bytes")
 }
 return b.writeRawNumber(strconv.FormatUint(uint64(binary.BigEndian.Uint16(item.ValueBytes)), 10))

	case eventheader.FormatIpv4:
 if len(item.ValueBytes) != 4 {
 return tperr.New(tperr.CorruptEvent, op, "ipv4 field is not 4 bytes")
 }
 return b.writeJSONString(net.IP(item.ValueBytes).String())

	case eventheader.FormatIpv6:
 if len(item.ValueBytes) != 16 {
 return tperr.New(tperr.CorruptEvent, op, "ipv6 field is not 16 bytes")
 }
 return b.writeJSONString(net.IP(item.ValueBytes).String())

	default:
 return b.writeHexBytesString(item.ValueBytes)
	}
}

func charSizeOrDefault(item eventheader.ItemInfo) int {
	if item.ElementSize > 0 {
 return item.ElementSize
	}
	return 1
}

// writeRawNumber appends a pre-formatted JSON number literal verbatim.
func (b *Buffer) writeRawNumber(s string) error {
	if err := b.reserve(len(s)); err != nil {
 return err
	}
	b.writeString(s)
	return nil
}

func (b *Buffer) writeHexBytesString(raw []byte) error {
	const hex = "0123456789abcdef"
	if err := b.reserve(2 + 2*len(raw) + 2); err != nil {
 return err
	}
	b.writeString(`"0x`)
	for _, c := range raw {
 b.writeByte(hex[c>>4])
 b.writeByte(hex[c&0xF])
	}
	b.writeByte('"')
	return nil
}
