package session

import (
	"encoding/binary"
	"testing"

	"github.com/tracepoint-go/libtracepoint/internal/byteio"
	"github.com/tracepoint-go/libtracepoint/internal/kernel"
	"github.com/tracepoint-go/libtracepoint/ringbuffer"
	"github.com/tracepoint-go/libtracepoint/tracefs"
)

// newFakeRealtimeSession builds an Active, Realtime-mode session whose
// leader buffers are fake mmaps (no real perf_event_open fd), for
// exercising enumeration logic that never calls PauseOutput.
func newFakeRealtimeSession(t *testing.T, dataSizes []int) *Session {
	t.Helper()
	cache := tracefs.NewCache(true)
	opts := Options{Mode: Realtime, SampleMask: SampleTypeDefault, NumCPU: len(dataSizes)}.normalize()
	s := &Session{
 opts: opts,
 cache: cache,
 tracepoints: make(map[uint32]*tracepointState),
 schemaByID: make(map[uint64]*tracefs.FieldSchemaList),
 order: byteio.NativeReader,
 active: true,
	}
	s.leaders = make([]leaderBuffer, len(dataSizes))
	for i, sz := range dataSizes {
 mmap := kernel.NewFakeMmap(sz)
 s.leaders[i] = leaderBuffer{fd: -1, mmap: mmap, buf: ringbuffer.New(mmap, ringbuffer.Realtime, s.order)}
	}
	return s
}

func putSampleRecordAt(data []byte, pos int, tid, pidv int32, t uint64, cpu uint32) int {
	body := make([]byte, 0, 32)
	body = binary.LittleEndian.AppendUint32(body, uint32(pidv))
	body = binary.LittleEndian.AppendUint32(body, uint32(tid))
	body = binary.LittleEndian.AppendUint64(body, t)
	body = binary.LittleEndian.AppendUint32(body, cpu)
	body = binary.LittleEndian.AppendUint32(body, 0)
	body = binary.LittleEndian.AppendUint32(body, 0) // raw_size = 0

	recSize := 8 + len(body)
	for recSize%8 != 0 {
 body = append(body, 0)
 recSize++
	}

	binary.LittleEndian.PutUint32(data[pos:], 9) // PERF_RECORD_SAMPLE
	binary.LittleEndian.PutUint16(data[pos+4:], 0)
	binary.LittleEndian.PutUint16(data[pos+6:], uint16(recSize))
	copy(data[pos+8:], body)
	return recSize
}

func TestEnumerateUnorderedSingleCPU(t *testing.T) {
	s := newFakeRealtimeSession(t, []int{4096})
	data := s.leaders[0].mmap[kernel.PageSize:]

	n1 := putSampleRecordAt(data, 0, 1, 100, 100, 0)
	putSampleRecordAt(data, n1, 2, 200, 200, 0)
	kernel.SetFakeHead(s.leaders[0].mmap, uint64(n1)+uint64(n1))

	var times []uint64
	err := s.EnumerateUnordered(func(sample *Sample) error {
 times = append(times, sample.Time)
 return nil
	})
	if err != nil {
 t.Fatalf("EnumerateUnordered: %v", err)
	}
	if len(times) != 2 || times[0] != 100 || times[1] != 200 {
 t.Fatalf("times = %v, want [100 200]", times)
	}
	if got := s.Counters().Samples; got != 2 {
 t.Fatalf("Samples = %d, want 2", got)
	}
}

func TestEnumerateOrderedMergesTwoCPUs(t *testing.T) {
	s := newFakeRealtimeSession(t, []int{4096, 4096})

	data0 := s.leaders[0].mmap[kernel.PageSize:]
	n1 := putSampleRecordAt(data0, 0, 1, 1, 100, 0)
	n2 := putSampleRecordAt(data0, n1, 1, 1, 300, 0)
	n3 := putSampleRecordAt(data0, n1+n2, 1, 1, 500, 0)
	kernel.SetFakeHead(s.leaders[0].mmap, uint64(n1+n2+n3))

	data1 := s.leaders[1].mmap[kernel.PageSize:]
	m1 := putSampleRecordAt(data1, 0, 2, 2, 200, 1)
	m2 := putSampleRecordAt(data1, m1, 2, 2, 400, 1)
	kernel.SetFakeHead(s.leaders[1].mmap, uint64(m1+m2))

	var times []uint64
	err := s.EnumerateOrdered(func(sample *Sample) error {
 times = append(times, sample.Time)
 return nil
	})
	if err != nil {
 t.Fatalf("EnumerateOrdered: %v", err)
	}
	want := []uint64{100, 200, 300, 400, 500}
	if len(times) != len(want) {
 t.Fatalf("times = %v, want %v", times, want)
	}
	for i := range want {
 if times[i] != want[i] {
 t.Fatalf("times = %v, want %v", times, want)
 }
	}
}

func TestEnumerateOrderedRequiresTimeBit(t *testing.T) {
	s := newFakeRealtimeSession(t, []int{4096})
	s.opts.SampleMask &^= 0x4 // clear SampleFormatTime

	err := s.EnumerateOrdered(func(*Sample) error { return nil })
	if err == nil {
 t.Fatal("expected NotSupported error")
	}
}

func TestWaitForWakeupCircularNotSupported(t *testing.T) {
	s := newFakeRealtimeSession(t, []int{4096})
	s.opts.Mode = Circular

	_, err := s.WaitForWakeup(0, nil)
	if err == nil {
 t.Fatal("expected NotSupported error for Circular mode")
	}
}
