package session

import (
	"encoding/binary"
	"testing"

	"github.com/tracepoint-go/libtracepoint/internal/byteio"
	"github.com/tracepoint-go/libtracepoint/perffile"
	"github.com/tracepoint-go/libtracepoint/tperr"
	"github.com/tracepoint-go/libtracepoint/tracefs"
)

func buildSampleRecord(tid, pid int32, t uint64, cpu uint32, raw []byte) []byte {
	body := make([]byte, 0, 8+8+8+4+len(raw))
	put32 := func(v int32) { body = binary.LittleEndian.AppendUint32(body, uint32(v)) }
	put64 := func(v uint64) { body = binary.LittleEndian.AppendUint64(body, v) }

	put32(pid)
	put32(tid)
	put64(t)
	put32(int32(cpu))
	put32(0) // reserved
	body = binary.LittleEndian.AppendUint32(body, uint32(len(raw)))
	body = append(body, raw...)

	header := make([]byte, 8)
	return append(header, body...)
}

func TestParseSampleDefaultMask(t *testing.T) {
	raw := []byte{1, 2, 3, 4}
	rec := buildSampleRecord(456, 123, 99999, 2, raw)

	s, err := ParseSample(rec, SampleTypeDefault, byteio.NativeReader)
	if err != nil {
 t.Fatalf("ParseSample: %v", err)
	}
	if s.PID != 123 || s.TID != 456 {
 t.Fatalf("PID/TID = %d/%d, want 123/456", s.PID, s.TID)
	}
	if s.Time != 99999 {
 t.Fatalf("Time = %d, want 99999", s.Time)
	}
	if s.CPU != 2 {
 t.Fatalf("CPU = %d, want 2", s.CPU)
	}
	if len(s.Raw) != 4 || s.Raw[0] != 1 {
 t.Fatalf("Raw = %v", s.Raw)
	}
}

func TestParseSampleTruncated(t *testing.T) {
	rec := buildSampleRecord(1, 1, 1, 0, []byte{1, 2, 3, 4})
	truncated := rec[:len(rec)-2]

	_, err := ParseSample(truncated, SampleTypeDefault, byteio.NativeReader)
	if !tperr.Is(err, tperr.CorruptEvent) {
 t.Fatalf("err = %v, want CorruptEvent", err)
	}
}

func TestParseSampleRawSizeExceedsRemaining(t *testing.T) {
	header := make([]byte, 8)
	header = binary.LittleEndian.AppendUint32(header, 1000) // bogus raw_size
	_, err := ParseSample(header, perffile.SampleFormatRaw, byteio.NativeReader)
	if !tperr.Is(err, tperr.CorruptEvent) {
 t.Fatalf("err = %v, want CorruptEvent", err)
	}
}

func TestBindSchemaFallsBackToCommonType(t *testing.T) {
	cache := tracefs.NewCache(true)
	text := "ID: 42\nformat:\n\tfield:unsigned short common_type;\toffset:0;\tsize:2;\tsigned:0;\n\tfield:u32 mypid;\toffset:8;\tsize:4;\tsigned:0;\n"
	schema, err := cache.AddFromText("mygroup", text)
	if err != nil {
 t.Fatalf("AddFromText: %v", err)
	}

	raw := make([]byte, 12)
	binary.LittleEndian.PutUint16(raw, 42)

	s := &Sample{Raw: raw}
	s.BindSchema(map[uint64]*tracefs.FieldSchemaList{}, cache, byteio.NativeReader)
	if s.Schema != schema {
 t.Fatalf("BindSchema did not resolve via common_type fallback")
	}
}
