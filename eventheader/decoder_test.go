package eventheader

import (
	"encoding/binary"
	"testing"
)

// declBytes encodes one flat fieldDecl entry by hand, mirroring
// parseOneFieldDecl's expectations, for test fixtures.
type declBytes struct {
	name string
	encByte byte
	hasFormat bool
	format byte
	hasTag bool
	tag uint16
	childCount byte // only meaningful for EncodingStruct
	arrayCount uint16
}

func (d declBytes) encode() []byte {
	var b []byte
	b = append(b, []byte(d.name)...)
	b = append(b, 0)

	enc := d.encByte
	if d.hasFormat || d.hasTag {
 enc |= encodingChainFlag
	}
	b = append(b, enc)

	base := baseEncoding(enc)
	if base == EncodingStruct {
 b = append(b, d.childCount)
	} else if enc&encodingChainFlag != 0 {
 fb := d.format
 if d.hasTag {
 fb |= formatChainFlag
 }
 b = append(b, fb)
 if d.hasTag {
 var tb [2]byte
 binary.LittleEndian.PutUint16(tb[:], d.tag)
 b = append(b, tb[:]...)
 }
	}

	if base == EncodingValue8 || base == EncodingValue16 || base == EncodingValue32 || base == EncodingValue64 || base == EncodingValue128 {
 if enc&encodingCArrayFlag != 0 {
 var cb [2]byte
 binary.LittleEndian.PutUint16(cb[:], d.arrayCount)
 b = append(b, cb[:]...)
 }
	}
	return b
}

func buildPayload(flags, version byte, id, tag uint16, opcode, level byte, eventName string, schema []byte, data []byte) []byte {
	var p []byte
	p = append(p, flags, version)
	var idb, tagb [2]byte
	binary.LittleEndian.PutUint16(idb[:], id)
	binary.LittleEndian.PutUint16(tagb[:], tag)
	p = append(p, idb[:]...)
	p = append(p, tagb[:]...)
	p = append(p, opcode, level)

	body := append([]byte(eventName), 0)
	body = append(body, schema...)

	var sizeb [2]byte
	binary.LittleEndian.PutUint16(sizeb[:], uint16(len(body)))
	p = append(p, sizeb[0], sizeb[1], byte(extKindMetadata), 0) // has_more=0: last extension
	p = append(p, body...)

	p = append(p, data...)
	return p
}

func TestDecodeScalarField(t *testing.T) {
	schema := declBytes{name: "pid", encByte: byte(EncodingValue32)}.encode()
	data := []byte{0x2A, 0, 0, 0} // 42 little-endian

	payload := buildPayload(FlagExtension, 1, 7, 0, 0, 5, "MyEvent", schema, data)

	dec, err := Start("MyProvider_L5K0", payload)
	if err != nil {
 t.Fatalf("Start: %v", err)
	}
	if dec.EventName() != "MyEvent" {
 t.Fatalf("EventName = %q", dec.EventName())
	}
	if dec.Header().ID != 7 || dec.Header().Level != 5 {
 t.Fatalf("Header = %+v", dec.Header())
	}
	if dec.Provider() != "MyProvider" {
 t.Fatalf("Provider = %q", dec.Provider())
	}

	if !dec.MoveNext() {
 t.Fatal("expected a Value transition")
	}
	if dec.State() != Value {
 t.Fatalf("State = %v, want Value", dec.State())
	}
	item := dec.Item()
	if item.Name != "pid" || len(item.ValueBytes) != 4 {
 t.Fatalf("item = %+v", item)
	}
	if dec.MoveNext() {
 t.Fatalf("expected walk to end, got state %v", dec.State())
	}
	if dec.State() != AfterLast {
 t.Fatalf("final state = %v, want AfterLast", dec.State())
	}
}

func TestDecodeFixedArray(t *testing.T) {
	schema := declBytes{
 name: "values", encByte: byte(EncodingValue16) | encodingCArrayFlag, arrayCount: 3,
	}.encode()
	data := []byte{1, 0, 2, 0, 3, 0}

	payload := buildPayload(FlagExtension, 0, 1, 0, 0, 0, "Evt", schema, data)
	dec, err := Start("Prov_L0K0", payload)
	if err != nil {
 t.Fatalf("Start: %v", err)
	}

	if !dec.MoveNext() || dec.State() != ArrayBegin {
 t.Fatalf("expected ArrayBegin, got %v", dec.State())
	}
	if dec.Item().ArrayCount != 3 {
 t.Fatalf("ArrayCount = %d, want 3", dec.Item().ArrayCount)
	}

	var values []uint16
	for i := 0; i < 3; i++ {
 if !dec.MoveNext() || dec.State() != Value {
 t.Fatalf("element %d: state = %v", i, dec.State())
 }
 values = append(values, binary.LittleEndian.Uint16(dec.Item().ValueBytes))
	}
	if !dec.MoveNext() || dec.State() != ArrayEnd {
 t.Fatalf("expected ArrayEnd, got %v", dec.State())
	}
	if values[0] != 1 || values[1] != 2 || values[2] != 3 {
 t.Fatalf("values = %v", values)
	}
	if dec.MoveNext() {
 t.Fatal("expected walk to end after ArrayEnd")
	}
}

func TestDecodeStruct(t *testing.T) {
	child1 := declBytes{name: "x", encByte: byte(EncodingValue32)}.encode()
	child2 := declBytes{name: "y", encByte: byte(EncodingValue32)}.encode()
	structDecl := declBytes{name: "point", encByte: byte(EncodingStruct), childCount: 2}.encode()

	schema := append(structDecl, child1...)
	schema = append(schema, child2...)
	data := []byte{1, 0, 0, 0, 2, 0, 0, 0}

	payload := buildPayload(FlagExtension, 0, 9, 0, 0, 0, "Evt", schema, data)
	dec, err := Start("Prov_L0K0", payload)
	if err != nil {
 t.Fatalf("Start: %v", err)
	}

	if !dec.MoveNext() || dec.State() != StructBegin {
 t.Fatalf("expected StructBegin, got %v", dec.State())
	}
	if dec.Item().Name != "point" {
 t.Fatalf("struct name = %q", dec.Item().Name)
	}
	if !dec.MoveNext() || dec.State() != Value || dec.Item().Name != "x" {
 t.Fatalf("expected Value x, got %v %+v", dec.State(), dec.Item())
	}
	if !dec.MoveNext() || dec.State() != Value || dec.Item().Name != "y" {
 t.Fatalf("expected Value y, got %v %+v", dec.State(), dec.Item())
	}
	if !dec.MoveNext() || dec.State() != StructEnd {
 t.Fatalf("expected StructEnd, got %v", dec.State())
	}
	if dec.MoveNext() {
 t.Fatal("expected walk to end after StructEnd")
	}
}

func TestDecodeMissingMetadataExtension(t *testing.T) {
	payload := []byte{0, 1, 0, 0, 0, 0, 0, 0} // no FlagExtension bit set
	_, err := Start("Prov_L0K0", payload)
	if err == nil {
 t.Fatal("expected MissingMetadata error")
	}
}

func TestDecodeZStringField(t *testing.T) {
	schema := declBytes{name: "msg", encByte: byte(EncodingZStringChar8)}.encode()
	data := append([]byte("hello"), 0)

	payload := buildPayload(FlagExtension, 0, 2, 0, 0, 0, "Evt", schema, data)
	dec, err := Start("Prov_L0K0", payload)
	if err != nil {
 t.Fatalf("Start: %v", err)
	}
	if !dec.MoveNext() || dec.State() != Value {
 t.Fatalf("state = %v", dec.State())
	}
	if string(dec.Item().ValueBytes) != "hello" {
 t.Fatalf("ValueBytes = %q", dec.Item().ValueBytes)
	}
}

func TestProviderAndOptions(t *testing.T) {
	provider, options := ProviderAndOptions("MyProvider_L5K1Gmygroup")
	if provider != "MyProvider" || options != "L5K1Gmygroup" {
 t.Fatalf("provider=%q options=%q", provider, options)
	}
}
