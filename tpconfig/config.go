// Package tpconfig provides YAML configuration parsing for the
// tracepoint-collect and decode-file command-line tools ( "CLI
// surfaces"). It is the only place flag defaults and file settings are
// merged into the types the core packages (session, jsonformat)
// actually consume.
package tpconfig

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tracepoint-go/libtracepoint/jsonformat"
	"github.com/tracepoint-go/libtracepoint/session"
)

// Mode mirrors session.Mode as a YAML-friendly string enum ("circular"
// or "realtime"), normalised and validated at parse time the way
// config.Severity is in the teacher's YAML config.
type Mode string

const (
	ModeRealtime Mode = "realtime"
	ModeCircular Mode = "circular"
)

var validModes = map[Mode]struct{}{
	ModeRealtime: {},
	ModeCircular: {},
}

// UnmarshalYAML normalises case/whitespace and rejects unknown modes.
func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
 return err
	}
	normalized := Mode(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := validModes[normalized]; !ok {
 return fmt.Errorf("invalid mode %q: must be one of realtime, circular", raw)
	}
	*m = normalized
	return nil
}

// Session maps to session.Mode.
func (m Mode) Session() session.Mode {
	if m == ModeCircular {
 return session.Circular
	}
	return session.Realtime
}

// CollectorConfig is the YAML shape for tracepoint-collect (// "Collectors accept: buffer size (KB), mode (circular/realtime),
// input-spec file, output path, verbose flag").
type CollectorConfig struct {
	// BufferSizeKB is the requested per-CPU ring buffer size in
	// kilobytes; rounded up to a page-aligned power of two by
	// kernel.RoundUpBufferSize when zero or not a power of two.
	BufferSizeKB int `yaml:"buffer_size_kb"`
	// Mode selects Circular or Realtime; defaults to Realtime.
	Mode Mode `yaml:"mode"`
	// InputSpec is the path to the newline-separated "sys:name" list
	// of tracepoints to enable.
	InputSpec string `yaml:"input_spec"`
	// OutputPath is the filesink.FileSink container file to write (not
	// a perf.data file).
	OutputPath string `yaml:"output_path"`
	// WatermarkBytes and WakeupEvents configure the Realtime wakeup
	// policy; WatermarkBytes takes precedence when both are set.
	WatermarkBytes uint32 `yaml:"watermark_bytes"`
	WakeupEvents uint32 `yaml:"wakeup_events"`
	// PollTimeout bounds each WaitForWakeup call.
	PollTimeout time.Duration `yaml:"poll_timeout"`
	// Verbose enables one-line-per-error diagnostics .
	Verbose bool `yaml:"verbose"`
}

// DefaultCollectorConfig returns the zero-value-safe defaults the
// teacher's config.go applies before validation: a modest buffer, a
// five-second poll timeout, realtime mode.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
 BufferSizeKB: 256,
 Mode: ModeRealtime,
 PollTimeout: 5 * time.Second,
	}
}

// ToSessionOptions builds a session.Options from the parsed config.
func (c CollectorConfig) ToSessionOptions() session.Options {
	return session.Options{
 Mode: c.Mode.Session(),
 SampleMask: session.SampleTypeDefault,
 BufferSize: c.BufferSizeKB * 1024,
 Wakeup: session.WakeupPolicy{
 WatermarkBytes: c.WatermarkBytes,
 Events: c.WakeupEvents,
 },
	}
}

// Validate checks the fields ParseCollectorConfig cannot default away: an
// InputSpec and OutputPath must be given.
func (c CollectorConfig) Validate() error {
	if c.InputSpec == "" {
 return fmt.Errorf("input_spec is required")
	}
	if c.OutputPath == "" {
 return fmt.Errorf("output_path is required")
	}
	return nil
}

// ParseCollectorConfig parses and validates a CollectorConfig,
// applying DefaultCollectorConfig's defaults to unset fields.
func ParseCollectorConfig(data []byte) (*CollectorConfig, error) {
	cfg := DefaultCollectorConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
 return nil, fmt.Errorf("parsing collector config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
 return nil, fmt.Errorf("invalid collector config: %w", err)
	}
	return &cfg, nil
}

// ParseCollectorConfigFile reads path and parses it as a CollectorConfig.
func ParseCollectorConfigFile(path string) (*CollectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
 return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseCollectorConfig(data)
}

// DecoderConfig is the YAML shape for decode-file ("Decoders
// accept: one or more input paths, optional output path, help").
type DecoderConfig struct {
	InputPaths []string `yaml:"input_paths"`
	OutputPath string `yaml:"output_path"` // stdout when empty
	Space bool `yaml:"space"`
	FieldTag bool `yaml:"field_tag"`
	EventName bool `yaml:"event_name"`
}

// Formatter builds the jsonformat.Flags this config selects.
func (c DecoderConfig) Formatter() *jsonformat.Formatter {
	var flags jsonformat.Flags
	if c.Space {
 flags |= jsonformat.FlagSpace
	}
	if c.FieldTag {
 flags |= jsonformat.FlagFieldTag
	}
	if c.EventName {
 flags |= jsonformat.FlagEventName
	}
	return jsonformat.New(flags)
}

// Validate requires at least one input path.
func (c DecoderConfig) Validate() error {
	if len(c.InputPaths) == 0 {
 return fmt.Errorf("input_paths must list at least one file")
	}
	return nil
}

// ParseDecoderConfig parses and validates a DecoderConfig.
func ParseDecoderConfig(data []byte) (*DecoderConfig, error) {
	var cfg DecoderConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
 return nil, fmt.Errorf("parsing decoder config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
 return nil, fmt.Errorf("invalid decoder config: %w", err)
	}
	return &cfg, nil
}

// ParseDecoderConfigFile reads path and parses it as a DecoderConfig.
func ParseDecoderConfigFile(path string) (*DecoderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
 return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseDecoderConfig(data)
}
