package filesink

import "github.com/tracepoint-go/libtracepoint/tracefs"

// MemSink is an in-memory Sink for exercising SaveToFile without
// touching the filesystem.
type MemSink struct {
	Path string
	Mode uint32
	Records [][]byte

	Descs []TracepointDesc

	FinishedInitCalls int
	FinishedRoundCalls int

	Headers map[int][]byte
	UTSName [5]string
	NrCPUsConfig uint32
	NrCPUsOnline uint32
	FirstSample uint64
	LastSample uint64
	ClockID uint32
	RealtimeOff int64
	MonotonicOff int64

	Closed bool
}

// TracepointDesc is one AddTracepointEventDesc call, retained for test
// assertions.
type TracepointDesc struct {
	Schema *tracefs.FieldSchemaList
	SampleIDs []uint64
}

// NewMemSink returns a ready-to-use MemSink.
func NewMemSink() *MemSink {
	return &MemSink{Headers: make(map[int][]byte)}
}

func (m *MemSink) Create(path string, mode uint32) error {
	m.Path, m.Mode = path, mode
	return nil
}

func (m *MemSink) WriteEventData(record []byte) error {
	cp := make([]byte, len(record))
	copy(cp, record)
	m.Records = append(m.Records, cp)
	return nil
}

func (m *MemSink) WriteEventDataIovecs(iov [][]byte) (int, error) {
	for i, seg := range iov {
 if err := m.WriteEventData(seg); err != nil {
 return i, err
 }
	}
	return len(iov), nil
}

func (m *MemSink) AddTracepointEventDesc(schema *tracefs.FieldSchemaList, sampleIDs []uint64) error {
	for _, d := range m.Descs {
 if d.Schema == schema {
 return nil // idempotent
 }
	}
	m.Descs = append(m.Descs, TracepointDesc{Schema: schema, SampleIDs: sampleIDs})
	return nil
}

func (m *MemSink) WriteFinishedInit() error { m.FinishedInitCalls++; return nil }
func (m *MemSink) WriteFinishedRound() error { m.FinishedRoundCalls++; return nil }

func (m *MemSink) SetHeader(index int, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.Headers[index] = cp
	return nil
}

func (m *MemSink) SetUTSNameHeaders(sysname, nodename, release, version, machine string) error {
	m.UTSName = [5]string{sysname, nodename, release, version, machine}
	return nil
}

func (m *MemSink) SetNrCPUsHeader(configured, online uint32) error {
	m.NrCPUsConfig, m.NrCPUsOnline = configured, online
	return nil
}

func (m *MemSink) SetSampleTimeHeader(first, last uint64) error {
	m.FirstSample, m.LastSample = first, last
	return nil
}

func (m *MemSink) SetSessionInfoHeaders(clockID uint32, realtimeOffsetNS, monotonicOffsetNS int64) error {
	m.ClockID, m.RealtimeOff, m.MonotonicOff = clockID, realtimeOffsetNS, monotonicOffsetNS
	return nil
}

func (m *MemSink) FinalizeAndClose() error {
	m.Closed = true
	return nil
}

var _ Sink = (*MemSink)(nil)
