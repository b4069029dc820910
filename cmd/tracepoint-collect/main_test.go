package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spec.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
 t.Fatalf("writeTemp: %v", err)
	}
	return path
}

func TestReadInputSpec(t *testing.T) {
	path := writeTemp(t, "# comment\n\nsched:sched_switch\nsyscalls:sys_enter_open\n")
	specs, err := readInputSpec(path)
	if err != nil {
 t.Fatalf("readInputSpec: %v", err)
	}
	want := []tracepointSpec{
 {system: "sched", name: "sched_switch"},
 {system: "syscalls", name: "sys_enter_open"},
	}
	if len(specs) != len(want) {
 t.Fatalf("got %d specs, want %d", len(specs), len(want))
	}
	for i, s := range specs {
 if s != want[i] {
 t.Fatalf("specs[%d] = %+v, want %+v", i, s, want[i])
 }
	}
}

func TestReadInputSpecRejectsMalformedLine(t *testing.T) {
	path := writeTemp(t, "sched_switch\n")
	if _, err := readInputSpec(path); err == nil {
 t.Fatal("expected an error for a line with no ':'")
	}
}

func TestReadInputSpecMissingFile(t *testing.T) {
	if _, err := readInputSpec(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
 t.Fatal("expected an error for a missing file")
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
