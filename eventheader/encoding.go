package eventheader

// Encoding is how an EventHeader field's bytes are laid out on the
// wire. It is one axis of the encoding×format cross-product (
// "Field encoding taxonomy", §9 "Polymorphism over encoding×format").
type Encoding uint8

const (
	EncodingInvalid Encoding = iota
	EncodingValue8
	EncodingValue16
	EncodingValue32
	EncodingValue64
	EncodingValue128
	EncodingZStringChar8
	EncodingZStringChar16
	EncodingZStringChar32
	EncodingStringLength16Char8
	EncodingStringLength16Char16
	EncodingStringLength16Char32
	EncodingStruct
	encodingCount
)

// Encoding byte layout: the low 5 bits select the base Encoding above;
// the high 3 bits are flags (array kind, a Format byte follows).
const (
	encodingValueMask = 0x1F
	encodingCArrayFlag = 0x20 // fixed-size array; count follows in the field declaration
	encodingVArrayFlag = 0x40 // variable-size array; a u16 element count is inline in the data
	encodingChainFlag = 0x80 // another field-schema byte follows carrying a Format byte
)

// Format is how to render a field's decoded value. The zero value,
// FormatDefault, asks the decoder to use each Encoding's default.
type Format uint8

const (
	FormatDefault Format = iota
	FormatUnsignedInt
	FormatSignedInt
	FormatHexInt
	FormatErrno
	FormatPid
	FormatTime
	FormatBoolean
	FormatFloat
	FormatHexBytes
	FormatString8
	FormatStringUtf
	FormatStringUtfBom
	FormatStringXml
	FormatStringJson
	FormatUuid
	FormatPort
	FormatIpv4
	FormatIpv6
	formatCount
)

// ArrayKind distinguishes plain (non-array), fixed-size, and
// variable-size (count given inline) array fields.
type ArrayKind uint8

const (
	ArrayNone ArrayKind = iota
	ArrayFixed
	ArrayVariable
)

// baseEncoding strips the array/chain flag bits from a raw encoding
// byte.
func baseEncoding(raw uint8) Encoding {
	e := Encoding(raw & encodingValueMask)
	if e >= encodingCount {
 return EncodingInvalid
	}
	return e
}

func arrayKindOf(raw uint8) ArrayKind {
	switch {
	case raw&encodingVArrayFlag != 0:
 return ArrayVariable
	case raw&encodingCArrayFlag != 0:
 return ArrayFixed
	default:
 return ArrayNone
	}
}

// fixedSize returns the byte width of one value for fixed-width value
// encodings, and 0 for string/struct encodings whose size is computed
// at walk time.
func (e Encoding) fixedSize() int {
	switch e {
	case EncodingValue8:
 return 1
	case EncodingValue16:
 return 2
	case EncodingValue32:
 return 4
	case EncodingValue64:
 return 8
	case EncodingValue128:
 return 16
	default:
 return 0
	}
}

func (e Encoding) isString() bool {
	switch e {
	case EncodingZStringChar8, EncodingZStringChar16, EncodingZStringChar32,
 EncodingStringLength16Char8, EncodingStringLength16Char16, EncodingStringLength16Char32:
 return true
	default:
 return false
	}
}

// charSize returns the code-unit width of a string encoding's
// underlying character type.
func (e Encoding) charSize() int {
	switch e {
	case EncodingZStringChar8, EncodingStringLength16Char8:
 return 1
	case EncodingZStringChar16, EncodingStringLength16Char16:
 return 2
	case EncodingZStringChar32, EncodingStringLength16Char32:
 return 4
	default:
 return 0
	}
}

func (e Encoding) isLengthPrefixed() bool {
	switch e {
	case EncodingStringLength16Char8, EncodingStringLength16Char16, EncodingStringLength16Char32:
 return true
	default:
 return false
	}
}

// formatRule describes one permitted (encoding, format) pair: the
// expected byte width for that format when the encoding is fixed-width
// (0 means "use the encoding's own width"), matching 
// "byte-size expectation for fixed-width formats".
type formatRule struct {
	expectSize int // 0 = no override; -1 = either 4 or 8 accepted (time)
}

// formatTable is the table-driven dispatch the design notes ask for:
// one row per permitted (encoding, format) pair. An absent entry means
// the pair falls back to the encoding's default rendering (// "unspecified pairs fall back to a default render for that
// encoding").
var formatTable = map[Encoding]map[Format]formatRule{
	EncodingValue8: {
 FormatUnsignedInt: {}, FormatSignedInt: {}, FormatHexInt: {},
 FormatBoolean: {}, FormatString8: {expectSize: 1},
	},
	EncodingValue16: {
 FormatUnsignedInt: {}, FormatSignedInt: {}, FormatHexInt: {},
 FormatBoolean: {}, FormatPort: {expectSize: 2},
	},
	EncodingValue32: {
 FormatUnsignedInt: {}, FormatSignedInt: {}, FormatHexInt: {},
 FormatErrno: {expectSize: 4}, FormatPid: {}, FormatBoolean: {},
 FormatFloat: {expectSize: 4}, FormatTime: {expectSize: -1}, FormatIpv4: {expectSize: 4},
	},
	EncodingValue64: {
 FormatUnsignedInt: {}, FormatSignedInt: {}, FormatHexInt: {},
 FormatFloat: {expectSize: 8}, FormatTime: {expectSize: -1},
	},
	EncodingValue128: {
 FormatUuid: {expectSize: 16}, FormatIpv6: {expectSize: 16}, FormatHexBytes: {},
	},
	EncodingZStringChar8: {FormatStringUtf: {}, FormatStringXml: {}, FormatStringJson: {}, FormatHexBytes: {}},
	EncodingZStringChar16: {FormatStringUtf: {}, FormatStringUtfBom: {}, FormatStringXml: {}, FormatStringJson: {}},
	EncodingZStringChar32: {FormatStringUtf: {}, FormatStringUtfBom: {}, FormatStringXml: {}, FormatStringJson: {}},
	EncodingStringLength16Char8: {FormatStringUtf: {}, FormatStringUtfBom: {}, FormatStringXml: {}, FormatStringJson: {}, FormatHexBytes: {}},
	EncodingStringLength16Char16: {FormatStringUtf: {}, FormatStringUtfBom: {}, FormatStringXml: {}, FormatStringJson: {}},
	EncodingStringLength16Char32: {FormatStringUtf: {}, FormatStringUtfBom: {}, FormatStringXml: {}, FormatStringJson: {}},
}

// defaultFormat returns the rendering used when a field's declared
// Format is FormatDefault or not a permitted pair for its Encoding.
func defaultFormat(e Encoding) Format {
	switch e {
	case EncodingValue8, EncodingValue16, EncodingValue32, EncodingValue64:
 return FormatUnsignedInt
	case EncodingValue128:
 return FormatHexBytes
	case EncodingZStringChar8:
 return FormatStringUtf
	case EncodingZStringChar16, EncodingZStringChar32,
 EncodingStringLength16Char8, EncodingStringLength16Char16, EncodingStringLength16Char32:
 return FormatStringUtf
	default:
 return FormatDefault
	}
}

// resolveFormat applies fallback rule: a format not in the
// permitted table for its encoding renders using the encoding's
// default instead of erroring.
func resolveFormat(e Encoding, f Format) Format {
	if f == FormatDefault {
 return defaultFormat(e)
	}
	if rules, ok := formatTable[e]; ok {
 if _, ok := rules[f]; ok {
 return f
 }
	}
	return defaultFormat(e)
}

// expectedSize returns the required byte width for (e, f): the
// format's own width where the format table gives one (-1 if either 4
// or 8 bytes are acceptable, "time accepts 4 or 8"), otherwise the
// encoding's fixedSize, which is 0 for strings and structs.
func expectedSize(e Encoding, f Format) int {
	if rules, ok := formatTable[e]; ok {
 if rule, ok := rules[f]; ok && rule.expectSize != 0 {
 return rule.expectSize
 }
	}
	return e.fixedSize()
}
