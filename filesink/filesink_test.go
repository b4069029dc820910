package filesink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tracepoint-go/libtracepoint/tracefs"
)

func TestFileSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.tpfs")

	format := "ID: 9\n" +
 "format:\n" +
 "\tfield:unsigned short common_type;\toffset:0;\tsize:2;\tsigned:0;\n" +
 "\n" +
 "\tfield:u8 eventheader_flags;\toffset:2;\tsize:1;\tsigned:0;\n" +
 "\tfield:u8 version;\toffset:3;\tsize:1;\tsigned:0;\n"
	schema, err := tracefs.Parse("mygroup", format, true)
	if err != nil {
 t.Fatalf("Parse: %v", err)
	}

	sink := NewFileSink()
	if err := sink.Create(path, 0o644); err != nil {
 t.Fatalf("Create: %v", err)
	}
	if err := sink.AddTracepointEventDesc(schema, []uint64{100, 101}); err != nil {
 t.Fatalf("AddTracepointEventDesc: %v", err)
	}
	if err := sink.WriteFinishedInit(); err != nil {
 t.Fatalf("WriteFinishedInit: %v", err)
	}
	if err := sink.WriteEventData([]byte("record-one")); err != nil {
 t.Fatalf("WriteEventData: %v", err)
	}
	if n, err := sink.WriteEventDataIovecs([][]byte{[]byte("a"), []byte("b")}); err != nil || n != 2 {
 t.Fatalf("WriteEventDataIovecs: n=%d err=%v", n, err)
	}
	if err := sink.WriteFinishedRound(); err != nil {
 t.Fatalf("WriteFinishedRound: %v", err)
	}
	if err := sink.SetUTSNameHeaders("Linux", "host", "6.1", "#1", "x86_64"); err != nil {
 t.Fatalf("SetUTSNameHeaders: %v", err)
	}
	if err := sink.SetNrCPUsHeader(4, 4); err != nil {
 t.Fatalf("SetNrCPUsHeader: %v", err)
	}
	if err := sink.SetSampleTimeHeader(10, 20); err != nil {
 t.Fatalf("SetSampleTimeHeader: %v", err)
	}
	if err := sink.SetSessionInfoHeaders(4, 0, 0); err != nil {
 t.Fatalf("SetSessionInfoHeaders: %v", err)
	}
	if err := sink.FinalizeAndClose(); err != nil {
 t.Fatalf("FinalizeAndClose: %v", err)
	}

	res, err := ReadFile(path)
	if err != nil {
 t.Fatalf("ReadFile: %v", err)
	}
	if len(res.Records) != 3 {
 t.Fatalf("Records = %d, want 3", len(res.Records))
	}
	if string(res.Records[0]) != "record-one" {
 t.Fatalf("Records[0] = %q", res.Records[0])
	}
	if len(res.Tracepoints) != 1 {
 t.Fatalf("Tracepoints = %d, want 1", len(res.Tracepoints))
	}
	tp := res.Tracepoints[0]
	if tp.EventID != 9 || len(tp.SampleIDs) != 2 || tp.SampleIDs[1] != 101 {
 t.Fatalf("Tracepoints[0] = %+v", tp)
	}
	if tp.CommonCount != 1 || len(tp.Fields) != 3 {
 t.Fatalf("Tracepoints[0] field schema = %+v", tp)
	}
	if tp.Fields[1].Name != "eventheader_flags" || tp.Fields[1].Offset != 2 {
 t.Fatalf("Tracepoints[0].Fields[1] = %+v", tp.Fields[1])
	}
	if got := tp.EventHeaderDataOffset(); got != 2 {
 t.Fatalf("EventHeaderDataOffset = %d, want 2", got)
	}
}

func TestReadFileRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tpfs")
	if err := os.WriteFile(path, []byte("not a tpfs file"), 0o644); err != nil {
 t.Fatalf("os.WriteFile: %v", err)
	}
	if _, err := ReadFile(path); err == nil {
 t.Fatal("expected an error for a bad magic")
	}
}
