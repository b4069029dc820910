package tracefs

import (
	"encoding/binary"
	"testing"

	"github.com/tracepoint-go/libtracepoint/emitter"
	"github.com/tracepoint-go/libtracepoint/tperr"
)

const sampleFormatText = "ID: 42\n" +
	"format:\n" +
	"\tfield:unsigned short common_type;\toffset:0;\tsize:2;\tsigned:0;\n" +
	"\tfield:unsigned char common_flags;\toffset:2;\tsize:1;\tsigned:0;\n" +
	"\tfield:int common_pid;\toffset:4;\tsize:4;\tsigned:1;\n" +
	"\tfield:u32 mypid;\toffset:8;\tsize:4;\tsigned:0;\n" +
	"\n" +
	"print fmt: \"pid=%u\", REC->mypid\n"

func TestParseCommonAndEventFields(t *testing.T) {
	list, err := Parse("mygroup", sampleFormatText, true)
	if err != nil {
 t.Fatalf("Parse: %v", err)
	}
	if list.EventID != 42 {
 t.Fatalf("EventID = %d, want 42", list.EventID)
	}
	ct, ok := list.CommonTypeField()
	if !ok {
 t.Fatal("missing common_type field")
	}
	if ct.Offset != 0 || ct.Size != 2 {
 t.Fatalf("common_type = offset %d size %d, want 0/2", ct.Offset, ct.Size)
	}
	if list.CommonCount != 3 {
 t.Fatalf("CommonCount = %d, want 3", list.CommonCount)
	}
	last := list.Fields[len(list.Fields)-1]
	if last.Name != "mypid" || last.Offset != 8 || last.Size != 4 {
 t.Fatalf("mypid field = %+v", last)
	}
}

func TestParseMissingID(t *testing.T) {
	_, err := Parse("mygroup", "format:\n\tfield:unsigned short common_type;\toffset:0;\tsize:2;\tsigned:0;\n", true)
	if !tperr.Is(err, tperr.InvalidFormat) {
 t.Fatalf("err = %v, want InvalidFormat", err)
	}
}

func TestParseMissingCommonType(t *testing.T) {
	text := "ID: 1\nformat:\n\tfield:u32 mypid;\toffset:0;\tsize:4;\tsigned:0;\n"
	_, err := Parse("mygroup", text, true)
	if !tperr.Is(err, tperr.InvalidFormat) {
 t.Fatalf("err = %v, want InvalidFormat", err)
	}
}

func TestParseDynamicArray(t *testing.T) {
	text := "ID: 7\n" +
 "format:\n" +
 "\tfield:unsigned short common_type;\toffset:0;\tsize:2;\tsigned:0;\n" +
 "\tfield:__data_loc char[] msg;\toffset:8;\tsize:4;\tsigned:0;\n"
	list, err := Parse("mygroup", text, true)
	if err != nil {
 t.Fatalf("Parse: %v", err)
	}
	f := list.Fields[1]
	if f.Array != ArrayDynamicLen16 {
 t.Fatalf("Array = %v, want ArrayDynamicLen16", f.Array)
	}
	if f.Format != FormatString {
 t.Fatalf("Format = %v, want FormatString", f.Format)
	}
}

func TestParseFixedArray(t *testing.T) {
	text := "ID: 8\n" +
 "format:\n" +
 "\tfield:unsigned short common_type;\toffset:0;\tsize:2;\tsigned:0;\n" +
 "\tfield:char comm[16];\toffset:8;\tsize:16;\tsigned:0;\n"
	list, err := Parse("mygroup", text, true)
	if err != nil {
 t.Fatalf("Parse: %v", err)
	}
	f := list.Fields[1]
	if f.Array != ArrayFixed || f.Count != 16 || f.ElemSize != 1 {
 t.Fatalf("comm field = %+v", f)
	}
}

// TestCacheRoundTrip exercises the cache round-trip scenario: adding a
// schema from text, then resolving it back by raw record bytes whose
// first two bytes carry the matching common_type.
func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(true)
	list, err := c.AddFromText("mygroup", sampleFormatText)
	if err != nil {
 t.Fatalf("AddFromText: %v", err)
	}
	if list.EventID != 42 {
 t.Fatalf("EventID = %d, want 42", list.EventID)
	}

	byID, ok := c.FindByID(42)
	if !ok || byID != list {
 t.Fatalf("FindByID(42) = %v, %v", byID, ok)
	}

	byName, ok := c.FindByName("mygroup", "")
	// name wasn't set in the fixture text, so FullName is "mygroup:"
	if !ok || byName != list {
 t.Fatalf("FindByName = %v, %v", byName, ok)
	}

	raw := make([]byte, 12)
	binary.LittleEndian.PutUint16(raw, 42)
	got, err := c.FindByRawRecord(raw, binary.LittleEndian)
	if err != nil {
 t.Fatalf("FindByRawRecord: %v", err)
	}
	if got != list {
 t.Fatalf("FindByRawRecord returned a different schema")
	}
}

func TestCacheAddFromTextDuplicateID(t *testing.T) {
	c := NewCache(true)
	if _, err := c.AddFromText("mygroup", sampleFormatText); err != nil {
 t.Fatalf("AddFromText: %v", err)
	}
	_, err := c.AddFromText("mygroup", sampleFormatText)
	if !tperr.Is(err, tperr.AlreadyExists) {
 t.Fatalf("err = %v, want AlreadyExists", err)
	}
}

func TestCacheFindByRawRecordTooShort(t *testing.T) {
	c := NewCache(true)
	_, err := c.FindByRawRecord([]byte{1}, binary.LittleEndian)
	if !tperr.Is(err, tperr.CorruptEvent) {
 t.Fatalf("err = %v, want CorruptEvent", err)
	}
}

func TestCacheFindByRawRecordNotFound(t *testing.T) {
	c := NewCache(true)
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint16(raw, 999)
	_, err := c.FindByRawRecord(raw, binary.LittleEndian)
	if !tperr.Is(err, tperr.NotFound) {
 t.Fatalf("err = %v, want NotFound", err)
	}
}

type fakeReader struct {
	text map[string]string
}

func (f *fakeReader) ReadFormat(system, name string) (string, error) {
	text, ok := f.text[system+"/"+name]
	if !ok {
 return "", tperr.Newf(tperr.NotFound, "fakeReader.ReadFormat", "no such event %s/%s", system, name)
	}
	return text, nil
}

func TestCacheFindOrAddFromSystem(t *testing.T) {
	c := NewCache(true)
	r := &fakeReader{text: map[string]string{"mygroup/myevent": "name: myevent\n" + sampleFormatText}}

	list, err := c.FindOrAddFromSystem(r, "mygroup", "myevent")
	if err != nil {
 t.Fatalf("FindOrAddFromSystem: %v", err)
	}
	if list.EventID != 42 {
 t.Fatalf("EventID = %d, want 42", list.EventID)
	}

	// Second call is a cache hit and must not re-read.
	r.text = nil
	again, err := c.FindOrAddFromSystem(r, "mygroup", "myevent")
	if err != nil {
 t.Fatalf("FindOrAddFromSystem (cached): %v", err)
	}
	if again != list {
 t.Fatal("expected cached schema to be returned")
	}
}

type fakeRegistrar struct {
	connected []string
	failWith error
}

func (f *fakeRegistrar) Connect(tracepointName, definition string) (*emitter.Tracepoint, error) {
	if f.failWith != nil {
 return nil, f.failWith
	}
	f.connected = append(f.connected, tracepointName+"|"+definition)
	return &emitter.Tracepoint{}, nil
}

func TestPreregisterEventHeaderValid(t *testing.T) {
	c := NewCache(true)
	reg := &fakeRegistrar{}
	if err := c.PreregisterEventHeader(reg, "MyProvider_L5K3ffGmygroup"); err != nil {
 t.Fatalf("PreregisterEventHeader: %v", err)
	}
	if len(reg.connected) != 1 {
 t.Fatalf("Connect called %d times, want 1", len(reg.connected))
	}
}

func TestPreregisterEventHeaderRejectsMalformedTail(t *testing.T) {
	c := NewCache(true)
	reg := &fakeRegistrar{}
	err := c.PreregisterEventHeader(reg, "MyProviderNoLevelSuffix")
	if !tperr.Is(err, tperr.InvalidFormat) {
 t.Fatalf("err = %v, want InvalidFormat", err)
	}
	if len(reg.connected) != 0 {
 t.Fatal("Connect must not be called for a malformed name")
	}
}

func TestPreregisterEventHeaderPropagatesKernelError(t *testing.T) {
	c := NewCache(true)
	reg := &fakeRegistrar{failWith: tperr.New(tperr.KernelError, "fakeRegistrar.Connect", "ioctl failed")}
	err := c.PreregisterEventHeader(reg, "MyProvider_L2K1")
	if !tperr.Is(err, tperr.KernelError) {
 t.Fatalf("err = %v, want KernelError", err)
	}
}
