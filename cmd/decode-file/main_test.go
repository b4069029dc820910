package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/tracepoint-go/libtracepoint/jsonformat"
)

func TestJSONName(t *testing.T) {
	got, err := jsonName(`weird "name".dat`)
	if err != nil {
 t.Fatalf("jsonName: %v", err)
	}
	if got != `"weird \"name\".dat"` {
 t.Fatalf("jsonName = %s", got)
	}
}

func TestDecodeAllEmptyFile(t *testing.T) {
	path := writeEmptyFileSink(t)

	var buf bytes.Buffer
	if err := decodeAll(&buf, []string{path}, jsonformat.New(0)); err != nil {
 t.Fatalf("decodeAll: %v", err)
	}
	want, _ := jsonName(path)
	wantJSON := "{" + want + ":[]}"
	if buf.String() != wantJSON {
 t.Fatalf("decodeAll = %s, want %s", buf.String(), wantJSON)
	}
}

func TestDecodeAllMultipleFiles(t *testing.T) {
	a := writeEmptyFileSink(t)
	b := writeEmptyFileSink(t)

	var buf bytes.Buffer
	if err := decodeAll(&buf, []string{a, b}, jsonformat.New(0)); err != nil {
 t.Fatalf("decodeAll: %v", err)
	}
	nameA, _ := jsonName(a)
	nameB, _ := jsonName(b)
	want := "{" + nameA + ":[]," + nameB + ":[]}"
	if buf.String() != want {
 t.Fatalf("decodeAll = %s, want %s", buf.String(), want)
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(usageError{"bad flag"}); got != 22 {
 t.Fatalf("exitCode(usageError) = %d, want 22", got)
	}
	if got := exitCode(os.ErrNotExist); got != 1 {
 t.Fatalf("exitCode(other) = %d, want 1", got)
	}
}

// writeEmptyFileSink writes a minimal FileSink-format file with no
// tracepoints and no records, matching what tracepoint-collect would
// produce for an input spec that enabled nothing.
func writeEmptyFileSink(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.dat")
	if err := os.WriteFile(path, []byte("TPFSILE1"), 0o600); err != nil {
 t.Fatalf("writeEmptyFileSink: %v", err)
	}
	return path
}
