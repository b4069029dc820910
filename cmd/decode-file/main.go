// Command decode-file reads one or more files written by
// tracepoint-collect's FileSink and renders every EventHeader event
// found in them as JSON: a top-level object whose keys are the input
// filenames and whose values are arrays of per-event objects, written
// to the configured output path or stdout.
//
// Usage:
//
//	decode-file --config /etc/decode-file.yaml
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tracepoint-go/libtracepoint/eventheader"
	"github.com/tracepoint-go/libtracepoint/filesink"
	"github.com/tracepoint-go/libtracepoint/jsonformat"
	"github.com/tracepoint-go/libtracepoint/tpconfig"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
 fmt.Fprintf(os.Stderr, "decode-file: %v\n", err)
 os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if _, ok := err.(usageError); ok {
 return 22 // EINVAL
	}
	return 1
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func run(args []string) error {
	fs := flag.NewFlagSet("decode-file", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML configuration file (required)")
	if err := fs.Parse(args); err != nil {
 return usageError{err.Error()}
	}
	if *configPath == "" {
 return usageError{"--config is required"}
	}

	cfg, err := tpconfig.ParseDecoderConfigFile(*configPath)
	if err != nil {
 return usageError{err.Error()}
	}

	out := os.Stdout
	if cfg.OutputPath != "" {
 f, err := os.Create(cfg.OutputPath)
 if err != nil {
 return fmt.Errorf("creating %s: %w", cfg.OutputPath, err)
 }
 defer f.Close()
 out = f
	}

	w := bufio.NewWriter(out)
	if err := decodeAll(w, cfg.InputPaths, cfg.Formatter()); err != nil {
 return err
	}
	return w.Flush()
}

// decodeAll writes {"<path>": [event, event, ...], ...} to w, one
// input file's decoded events per member, in cfg.InputPaths order.
func decodeAll(w io.Writer, paths []string, f *jsonformat.Formatter) error {
	if _, err := io.WriteString(w, "{"); err != nil {
 return err
	}
	for i, path := range paths {
 if i > 0 {
 if _, err := io.WriteString(w, ","); err != nil {
 return err
 }
 }
 name, err := jsonName(path)
 if err != nil {
 return err
 }
 if _, err := io.WriteString(w, name+":"); err != nil {
 return err
 }
 if err := decodeOne(w, path, f); err != nil {
 return fmt.Errorf("decoding %s: %w", path, err)
 }
	}
	_, err := io.WriteString(w, "}")
	return err
}

func jsonName(s string) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
 return "", err
	}
	return string(b), nil
}

// decodeOne appends one input file's events, as a JSON array, to w.
func decodeOne(w io.Writer, path string, f *jsonformat.Formatter) error {
	res, err := filesink.ReadFile(path)
	if err != nil {
 return err
	}
	byID := make(map[uint32]filesink.TracepointRecord, len(res.Tracepoints))
	for _, tp := range res.Tracepoints {
 byID[tp.EventID] = tp
	}

	if _, err := io.WriteString(w, "["); err != nil {
 return err
	}
	wroteAny := false
	for _, raw := range res.Records {
 if len(raw) < 2 {
 continue
 }
 commonType := binary.NativeEndian.Uint16(raw)
 tp, ok := byID[uint32(commonType)]
 if !ok {
 continue
 }
 off := tp.EventHeaderDataOffset()
 if off < 0 || off > len(raw) {
 continue
 }

 buf := jsonformat.NewBuffer()
 if err := decodeEvent(buf, f, tp, raw[off:]); err != nil {
 return err
 }
 if buf.Len() == 0 {
 continue
 }
 if wroteAny {
 if _, err := io.WriteString(w, ","); err != nil {
 return err
 }
 }
 wroteAny = true
 if _, err := w.Write(buf.Bytes()); err != nil {
 return err
 }
	}
	_, err = io.WriteString(w, "]")
	return err
}

func decodeEvent(buf *jsonformat.Buffer, f *jsonformat.Formatter, tp filesink.TracepointRecord, payload []byte) error {
	dec, err := eventheader.Start(tp.Name, payload)
	if err != nil {
 return err
	}
	h := dec.Header()
	meta := jsonformat.Meta{
 Provider: dec.Provider(),
 Event: dec.EventName(),
 ID: h.ID,
 Version: h.Version,
 Level: h.Level,
 Opcode: h.Opcode,
 Tag: h.Tag,
 Options: dec.Options(),
 Flags: h.Flags,
	}
	if activity, ok := dec.ActivityID(); ok {
 meta.Activity = activity.Activity
 meta.HaveActivity = true
 if activity.HasRelated {
 meta.RelatedActivity = activity.RelatedActivity
 meta.HaveRelated = true
 }
	}
	return f.FormatEvent(buf, meta, dec)
}
