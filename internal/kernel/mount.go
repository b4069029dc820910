// Package kernel wraps the raw Linux syscalls and /proc/mounts
// discovery that the rest of this module needs to talk to
// perf_event_open ring buffers, tracefs, and the user_events facility.
// It is the concentration point for unsafe and platform-specific code
// ( "Manual pointer arithmetic" / "Global state").
package kernel

import (
	"bufio"
	"os"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// TracingMountPoint is the absolute path of the tracefs (preferred) or
// debugfs (fallback) mount's "tracing" subdirectory, e.g.
// "/sys/kernel/tracing" or "/sys/kernel/debug/tracing".
//
// Discovery is one-shot and cached for the process lifetime, matching
// the source's "protected by one-shot initialisation" global state
// note .
type TracingMountPoint struct {
	once sync.Once
	path atomic.Value // string
	err atomic.Value // error
}

var defaultMount TracingMountPoint

// Find returns the cached tracing mount point, discovering it on first
// call by parsing /proc/mounts.
func Find() (string, error) {
	return defaultMount.Find()
}

// Find is the instance method so tests can use a private
// TracingMountPoint instead of the package singleton.
func (m *TracingMountPoint) Find() (string, error) {
	m.once.Do(func() {
 path, err := discoverTracingMount("/proc/mounts")
 if err != nil {
 m.err.Store(err)
 return
 }
 m.path.Store(path)
	})
	if v := m.err.Load(); v != nil {
 return "", v.(error)
	}
	return m.path.Load().(string), nil
}

// discoverTracingMount parses a /proc/mounts-formatted file looking
// first for a tracefs mount, falling back to debugfs (whose tracing
// subtree lives at "<mount>/tracing").
func discoverTracingMount(procMounts string) (string, error) {
	f, err := os.Open(procMounts)
	if err != nil {
 return "", errors.Wrap(err, "opening /proc/mounts")
	}
	defer f.Close()

	var tracefsPath, debugfsPath string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
 fields := splitMountLine(sc.Text())
 if len(fields) < 3 {
 continue
 }
 mountPoint, fsType := fields[1], fields[2]
 switch fsType {
 case "tracefs":
 tracefsPath = mountPoint
 case "debugfs":
 debugfsPath = mountPoint
 }
	}
	if err := sc.Err(); err != nil {
 return "", errors.Wrap(err, "reading /proc/mounts")
	}

	if tracefsPath != "" {
 return tracefsPath, nil
	}
	if debugfsPath != "" {
 return debugfsPath + "/tracing", nil
	}
	return "", errors.New("no tracefs or debugfs mount found")
}

func splitMountLine(line string) []string {
	var fields []string
	start := -1
	for i, r := range line {
 if r == ' ' || r == '\t' {
 if start >= 0 {
 fields = append(fields, line[start:i])
 start = -1
 }
 continue
 }
 if start < 0 {
 start = i
 }
	}
	if start >= 0 {
 fields = append(fields, line[start:])
	}
	return fields
}
