package jsonformat

import (
	"encoding/binary"
	"unicode/utf16"
	"unicode/utf8"
)

// sniffBOM detects a byte-order mark at the start of buf and returns
// the code-unit width and byte order it implies, plus the remaining
// bytes after the mark. isBOM is false (charSize/order passed through
// unchanged) when no recognised mark is present ( scenario 5:
// "UTF-16 BOM sniff").
func sniffBOM(buf []byte, fallbackCharSize int, fallbackOrder binary.ByteOrder) (charSize int, order binary.ByteOrder, rest []byte, isBOM bool) {
	switch {
	case len(buf) >= 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF:
 return 1, binary.LittleEndian, buf[3:], true
	case len(buf) >= 4 && buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00:
 return 4, binary.LittleEndian, buf[4:], true
	case len(buf) >= 4 && buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF:
 return 4, binary.BigEndian, buf[4:], true
	case len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE:
 return 2, binary.LittleEndian, buf[2:], true
	case len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF:
 return 2, binary.BigEndian, buf[2:], true
	default:
 return fallbackCharSize, fallbackOrder, buf, false
	}
}

// decodeToUTF8 transcodes buf (a string_utf/string_utf_bom field's raw
// bytes, charSize bytes per code unit) into valid UTF-8. For charSize
// 1, input that is not valid UTF-8 is reinterpreted byte-for-byte as
// Latin-1, so nothing is dropped or replaced. For charSize 2 and 4,
// unpaired surrogates and values above U+10FFFF are replaced with
// U+FFFD, so those inputs do not round-trip.
func decodeToUTF8(buf []byte, charSize int, order binary.ByteOrder) string {
	switch charSize {
	case 1:
 return latin1FallbackUTF8(buf)
	case 2:
 return utf16ToUTF8(buf, order)
	case 4:
 return utf32ToUTF8(buf, order)
	default:
 return latin1FallbackUTF8(buf)
	}
}

// latin1FallbackUTF8 returns buf re-encoded as UTF-8 if it is already
// valid UTF-8; otherwise every byte is reinterpreted as a Latin-1
// codepoint (0-255 maps 1:1 to the same Unicode codepoint), which is
// always representable and always round-trips.
func latin1FallbackUTF8(buf []byte) string {
	if utf8.Valid(buf) {
 return string(buf)
	}
	out := make([]rune, len(buf))
	for i, c := range buf {
 out[i] = rune(c)
	}
	return string(out)
}

func utf16ToUTF8(buf []byte, order binary.ByteOrder) string {
	n := len(buf) / 2
	units := make([]uint16, n)
	for i := 0; i < n; i++ {
 units[i] = order.Uint16(buf[i*2:])
	}
	return string(utf16.Decode(units))
}

func utf32ToUTF8(buf []byte, order binary.ByteOrder) string {
	n := len(buf) / 4
	runes := make([]rune, 0, n)
	for i := 0; i < n; i++ {
 v := order.Uint32(buf[i*4:])
 r := rune(v)
 if !utf8.ValidRune(r) {
 r = utf8.RuneError
 }
 runes = append(runes, r)
	}
	return string(runes)
}

// writeJSONString appends s as a quoted, escaped JSON string literal.
func (b *Buffer) writeJSONString(s string) error {
	if err := b.reserve(worstCaseJSONStringLen(s)); err != nil {
 return err
	}
	b.writeByte('"')
	for _, r := range s {
 switch r {
 case '"':
 b.writeString(`\"`)
 case '\\':
 b.writeString(`\\`)
 case '\n':
 b.writeString(`\n`)
 case '\r':
 b.writeString(`\r`)
 case '\t':
 b.writeString(`\t`)
 default:
 if r < 0x20 {
 b.writeString(`\u00`)
 const hex = "0123456789abcdef"
 b.writeByte(hex[(r>>4)&0xF])
 b.writeByte(hex[r&0xF])
 } else {
 var tmp [4]byte
 n := utf8.EncodeRune(tmp[:], r)
 b.writeBytes(tmp[:n])
 }
 }
	}
	b.writeByte('"')
	return nil
}

// worstCaseJSONStringLen bounds the escaped-and-quoted size of s: two
// quote bytes plus up to 6 bytes (\u00XX) per input byte.
func worstCaseJSONStringLen(s string) int {
	return 2 + 6*len(s)
}
