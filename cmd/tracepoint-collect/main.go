// Command tracepoint-collect enables a list of tracepoints for the
// duration of one collection pass and saves the captured records to a
// file ( "CLI surfaces").
//
// Usage:
//
//	tracepoint-collect --config /etc/tracepoint-collect.yaml
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tracepoint-go/libtracepoint/filesink"
	"github.com/tracepoint-go/libtracepoint/session"
	"github.com/tracepoint-go/libtracepoint/tpconfig"
	"github.com/tracepoint-go/libtracepoint/tracefs"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
 fmt.Fprintf(os.Stderr, "tracepoint-collect: %v\n", err)
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
	fs := flag.NewFlagSet("tracepoint-collect", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML configuration file (required)")
	verbose := fs.Bool("verbose", false, "print a one-line diagnostic per non-fatal error")
	if err := fs.Parse(args); err != nil {
 return usageError{err.Error()}
	}
	if *configPath == "" {
 return usageError{"--config is required"}
	}

	cfg, err := tpconfig.ParseCollectorConfigFile(*configPath)
	if err != nil {
 return usageError{err.Error()}
	}
	if *verbose {
 cfg.Verbose = true
	}

	specs, err := readInputSpec(cfg.InputSpec)
	if err != nil {
 return err
	}

	cache := tracefs.NewCache(strconv.IntSize == 64)
	sess := session.New(cache, cfg.ToSessionOptions())

	for _, spec := range specs {
 schema, err := cache.FindOrAddFromSystem(tracefs.FSReader{}, spec.system, spec.name)
 if err != nil {
 if cfg.Verbose {
 fmt.Fprintf(os.Stderr, "tracepoint-collect: skipping %s:%s: %v\n", spec.system, spec.name, err)
 }
 continue
 }
 if err := sess.EnableTracepoint(schema.EventID); err != nil {
 if cfg.Verbose {
 fmt.Fprintf(os.Stderr, "tracepoint-collect: enabling %s:%s: %v\n", spec.system, spec.name, err)
 }
 }
	}

	sink := filesink.NewFileSink()
	if err := sink.Create(cfg.OutputPath, 0o644); err != nil {
 return fmt.Errorf("creating %s: %w", cfg.OutputPath, err)
	}
	if err := sess.SaveToFile(sink); err != nil {
 return fmt.Errorf("saving capture: %w", err)
	}
	return nil
}

type tracepointSpec struct{ system, name string }

// readInputSpec reads a newline-separated list of "system:name" pairs
// ("input-spec file"), skipping blank lines and '#' comments.
func readInputSpec(path string) ([]tracepointSpec, error) {
	f, err := os.Open(path)
	if err != nil {
 return nil, fmt.Errorf("opening input spec %s: %w", path, err)
	}
	defer f.Close()

	var specs []tracepointSpec
	sc := bufio.NewScanner(f)
	for sc.Scan() {
 line := strings.TrimSpace(sc.Text())
 if line == "" || strings.HasPrefix(line, "#") {
 continue
 }
 parts := strings.SplitN(line, ":", 2)
 if len(parts) != 2 {
 return nil, fmt.Errorf("input spec %s: malformed line %q, want system:name", path, line)
 }
 specs = append(specs, tracepointSpec{system: parts[0], name: parts[1]})
	}
	if err := sc.Err(); err != nil {
 return nil, fmt.Errorf("reading input spec %s: %w", path, err)
	}
	return specs, nil
}
