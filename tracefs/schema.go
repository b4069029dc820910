// Package tracefs parses the tracefs "format" text files that describe
// a kernel tracepoint's fixed record layout, and caches the resulting
// schemas for O(1) dispatch from a raw sample's common_type value back
// to a FieldSchemaList ( MetadataParser, §4.2 MetadataCache).
package tracefs

import "fmt"

// ArrayKind classifies how a field's array-ness (if any) is encoded in
// the record.
type ArrayKind int

const (
	// ArrayNone means the field is a plain scalar.
	ArrayNone ArrayKind = iota
	// ArrayFixed means the field is a fixed-size array of Count elements.
	ArrayFixed
	// ArrayDynamicLen16 means the field is a __data_loc: the four bytes at
	// Offset hold a 16-bit byte length in the high half and a 16-bit byte
	// offset (from the start of the record) in the low half.
	ArrayDynamicLen16
)

// Format is the semantic rendering hint for a field, inferred from its
// declared C type.
type Format int

const (
	FormatNone Format = iota
	FormatHex
	FormatSigned
	FormatUnsigned
	FormatString
)

// FieldSchema describes one field of a tracepoint's fixed record
// layout.
//
// Invariant: Offset+Size must not exceed the fixed portion of the
// record that declared it. For ArrayDynamicLen16 fields, Offset/Size
// describe the location of the 4-byte offset+length word, not the
// variable-length data itself; the data's location must be validated
// against the record's actual length by whatever reads the field data;
// neither tracefs nor session reads field data.
type FieldSchema struct {
	Name string
	Offset int
	Size int // size, in bytes, of the field as it appears in the fixed record
	ElemSize int // size of one array element (1, 2, 4, or 8); equals Size when Array == ArrayNone
	Array ArrayKind
	Count int // number of elements, meaningful only when Array == ArrayFixed
	Format Format
	Signed bool
}

// FieldSchemaList is the parsed, ordered field list for one tracepoint.
// The first CommonCount fields are the fields shared by every event in
// the owning tracefs subsystem; the remainder are specific to this
// event. The list exclusively owns the field names (sub-strings of the
// text it was parsed from); schemas are never mutated after insertion
// into a Cache.
type FieldSchemaList struct {
	EventID uint32
	System string
	Name string
	Fields []FieldSchema
	CommonCount int
	PrintFmt string
}

// CommonTypeField returns the schema's common_type field, and whether
// one was found. Every well-formed tracefs event has exactly one.
func (l *FieldSchemaList) CommonTypeField() (FieldSchema, bool) {
	for _, f := range l.Fields {
 if f.Name == "common_type" {
 return f, true
 }
	}
	return FieldSchema{}, false
}

// FullName returns "system:name", the conventional tracepoint
// identifier used by the emitter and by TracepointName validation.
func (l *FieldSchemaList) FullName() string {
	return fmt.Sprintf("%s:%s", l.System, l.Name)
}
