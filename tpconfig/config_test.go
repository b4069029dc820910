package tpconfig_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tracepoint-go/libtracepoint/session"
	"github.com/tracepoint-go/libtracepoint/tpconfig"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
 t.Fatalf("writeTempFile: %v", err)
	}
	return path
}

func TestParseCollectorConfigDefaults(t *testing.T) {
	yaml := "input_spec: /tmp/spec.txt\noutput_path: /tmp/out.perf\n"
	cfg, err := tpconfig.ParseCollectorConfig([]byte(yaml))
	if err != nil {
 t.Fatalf("ParseCollectorConfig: %v", err)
	}
	if cfg.Mode != tpconfig.ModeRealtime {
 t.Fatalf("Mode = %q, want realtime default", cfg.Mode)
	}
	if cfg.BufferSizeKB != 256 {
 t.Fatalf("BufferSizeKB = %d, want 256 default", cfg.BufferSizeKB)
	}
	if cfg.PollTimeout != 5*time.Second {
 t.Fatalf("PollTimeout = %v, want 5s default", cfg.PollTimeout)
	}
}

func TestParseCollectorConfigCircularMode(t *testing.T) {
	yaml := "mode: CIRCULAR\ninput_spec: a\noutput_path: b\n"
	cfg, err := tpconfig.ParseCollectorConfig([]byte(yaml))
	if err != nil {
 t.Fatalf("ParseCollectorConfig: %v", err)
	}
	if cfg.Mode.Session() != session.Circular {
 t.Fatalf("Mode.Session = %v, want Circular", cfg.Mode.Session())
	}
}

func TestParseCollectorConfigInvalidMode(t *testing.T) {
	_, err := tpconfig.ParseCollectorConfig([]byte("mode: sideways\ninput_spec: a\noutput_path: b\n"))
	if err == nil {
 t.Fatal("expected an error for an invalid mode")
	}
}

func TestParseCollectorConfigMissingRequiredFields(t *testing.T) {
	_, err := tpconfig.ParseCollectorConfig([]byte("mode: realtime\n"))
	if err == nil {
 t.Fatal("expected an error for missing input_spec/output_path")
	}
}

func TestParseCollectorConfigFile(t *testing.T) {
	path := writeTempFile(t, "collector.yaml", "input_spec: a\noutput_path: b\nbuffer_size_kb: 1024\n")
	cfg, err := tpconfig.ParseCollectorConfigFile(path)
	if err != nil {
 t.Fatalf("ParseCollectorConfigFile: %v", err)
	}
	if cfg.BufferSizeKB != 1024 {
 t.Fatalf("BufferSizeKB = %d, want 1024", cfg.BufferSizeKB)
	}
}

func TestToSessionOptions(t *testing.T) {
	cfg, err := tpconfig.ParseCollectorConfig([]byte("mode: circular\ninput_spec: a\noutput_path: b\nbuffer_size_kb: 64\nwakeup_events: 10\n"))
	if err != nil {
 t.Fatalf("ParseCollectorConfig: %v", err)
	}
	opts := cfg.ToSessionOptions()
	if opts.Mode != session.Circular {
 t.Fatalf("Mode = %v, want Circular", opts.Mode)
	}
	if opts.BufferSize != 64*1024 {
 t.Fatalf("BufferSize = %d, want %d", opts.BufferSize, 64*1024)
	}
	if opts.Wakeup.Events != 10 {
 t.Fatalf("Wakeup.Events = %d, want 10", opts.Wakeup.Events)
	}
}

func TestParseDecoderConfigRequiresInputPaths(t *testing.T) {
	_, err := tpconfig.ParseDecoderConfig([]byte("output_path: out.json\n"))
	if err == nil {
 t.Fatal("expected an error for missing input_paths")
	}
}

func TestParseDecoderConfigFormatterFlags(t *testing.T) {
	cfg, err := tpconfig.ParseDecoderConfig([]byte("input_paths: [a.dat]\nspace: true\nfield_tag: true\n"))
	if err != nil {
 t.Fatalf("ParseDecoderConfig: %v", err)
	}
	f := cfg.Formatter()
	if f == nil {
 t.Fatal("Formatter returned nil")
	}
}
