package jsonformat

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/tracepoint-go/libtracepoint/eventheader"
)

func TestBufferRollbackOnFailure(t *testing.T) {
	buf := NewBuffer()
	buf.writeString(`{"a":1}`)
	mark := buf.checkpoint()
	buf.writeString("garbage")
	buf.rollback(mark)
	if string(buf.Bytes()) != `{"a":1}` {
 t.Fatalf("rollback left %q", buf.Bytes())
	}
}

func TestWriteJSONStringEscaping(t *testing.T) {
	buf := NewBuffer()
	if err := buf.writeJSONString("line\nwith\"quote"); err != nil {
 t.Fatalf("writeJSONString: %v", err)
	}
	got := string(buf.Bytes())
	want := `"line\nwith\"quote"`
	if got != want {
 t.Fatalf("got %q, want %q", got, want)
	}
}

func TestErrnoStringKnownAndUnknown(t *testing.T) {
	if s := errnoString(2); s != "ENOENT(2)" {
 t.Fatalf("errnoString(2) = %q", s)
	}
	if s := errnoString(999); s != "ERRNO(999)" {
 t.Fatalf("errnoString(999) = %q", s)
	}
}

// TestUTF16BOMSniff is scenario 5: a byte string starting with
// a UTF-16LE BOM, decoded as "héllo".
func TestUTF16BOMSniff(t *testing.T) {
	payload := []byte{0xFF, 0xFE}
	for _, r := range "héllo" {
 var tmp [2]byte
 binary.LittleEndian.PutUint16(tmp[:], uint16(r))
 payload = append(payload, tmp[:]...)
	}

	buf := NewBuffer()
	item := eventheader.ItemInfo{Format: eventheader.FormatStringUtfBom, ValueBytes: payload}
	if err := buf.writeValue(item); err != nil {
 t.Fatalf("writeValue: %v", err)
	}
	got := string(buf.Bytes())
	if !strings.Contains(got, "h") || !strings.Contains(got, "llo") {
 t.Fatalf("got %q", got)
	}
	// "é" (U+00E9) must appear as its 2-byte UTF-8 escaping, i.e. raw
	// UTF-8 bytes 0xC3 0xA9 inside the JSON string.
	if !strings.Contains(got, "é") {
 t.Fatalf("got %q, expected to contain U+00E9", got)
	}
}

func TestFormatEventSimpleScalar(t *testing.T) {
	schema := declBytesForTest("pid", byte(eventheader.EncodingValue32))
	data := []byte{0x7B, 0, 0, 0} // 123

	payload := buildPayloadForTest(eventheader.FlagExtension, 1, 7, 0, 0, 4, "MyEvent", schema, data)
	dec, err := eventheader.Start("MyProvider_L4K0", payload)
	if err != nil {
 t.Fatalf("Start: %v", err)
	}

	buf := NewBuffer()
	f := New(FlagSpace | FlagFieldTag | FlagEventName)
	meta := Meta{Provider: dec.Provider(), Event: dec.EventName(), ID: dec.Header().ID, Level: dec.Header().Level}
	if err := f.FormatEvent(buf, meta, dec); err != nil {
 t.Fatalf("FormatEvent: %v", err)
	}

	got := string(buf.Bytes())
	if !strings.Contains(got, `"name": "MyEvent"`) {
 t.Fatalf("missing name member: %s", got)
	}
	if !strings.Contains(got, `"pid": 123`) {
 t.Fatalf("missing pid value: %s", got)
	}
	if !strings.HasPrefix(got, "{") || !strings.HasSuffix(got, "}") {
 t.Fatalf("not a JSON object: %s", got)
	}
}

// declBytesForTest and buildPayloadForTest duplicate the minimal
// fixture-building helpers from eventheader's own tests (unexported
// there), built directly against the wire format documented in
// eventheader's package doc so jsonformat's tests don't need an
// exported test-fixture API.
func declBytesForTest(name string, encByte byte) []byte {
	b := append([]byte(name), 0, encByte)
	return b
}

func buildPayloadForTest(flags, version byte, id, tag uint16, opcode, level byte, eventName string, schema []byte, data []byte) []byte {
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
	p = append(p, sizeb[0], sizeb[1], 1 /* metadata extension kind */, 0 /* last */)
	p = append(p, body...)
	p = append(p, data...)
	return p
}
