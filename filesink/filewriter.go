package filesink

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/tracepoint-go/libtracepoint/tracefs"
)

// fileSinkMagic tags the simple TLV container FileSink writes. This is
// not perf.data binary compatible: full fidelity with that format is
// FileSink's concern to define and is explicitly out of scope here
// ("the byte-format machinery itself is out of scope");
// this is the minimal concrete Sink that makes tracepoint-collect and
// decode-file an actually runnable round trip.
var fileSinkMagic = [8]byte{'T', 'P', 'F', 'S', 'I', 'L', 'E', '1'}

const (
	tagTracepointDesc byte = 1
	tagFinishedInit byte = 2
	tagEventData byte = 3
	tagFinishedRound byte = 4
	tagHeader byte = 5
)

// FileSink is a real-filesystem Sink implementation: Create writes the
// 8-byte magic, and every later call appends TLV records (one per
// segment for WriteEventDataIovecs) to a buffered file, flushed and
// closed by FinalizeAndClose.
type FileSink struct {
	f *os.File
	bw *bufio.Writer
}

// NewFileSink returns a FileSink with no file open yet; callers must
// call Create before any Write*/Set* method.
func NewFileSink() *FileSink {
	return &FileSink{}
}

func (s *FileSink) Create(path string, mode uint32) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(mode))
	if err != nil {
 return err
	}
	s.f = f
	s.bw = bufio.NewWriter(f)
	_, err = s.bw.Write(fileSinkMagic[:])
	return err
}

func (s *FileSink) writeTLV(tag byte, payload []byte) error {
	if err := s.bw.WriteByte(tag); err != nil {
 return err
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := s.bw.Write(lenBuf[:]); err != nil {
 return err
	}
	_, err := s.bw.Write(payload)
	return err
}

func (s *FileSink) WriteEventData(record []byte) error {
	return s.writeTLV(tagEventData, record)
}

func (s *FileSink) WriteEventDataIovecs(iov [][]byte) (int, error) {
	for i, seg := range iov {
 if err := s.WriteEventData(seg); err != nil {
 return i, err
 }
	}
	return len(iov), nil
}

func (s *FileSink) AddTracepointEventDesc(schema *tracefs.FieldSchemaList, sampleIDs []uint64) error {
	name := schema.FullName()
	var buf []byte
	buf = appendUint32(buf, uint32(len(name)))
	buf = append(buf, name...)
	buf = appendUint32(buf, schema.EventID)
	buf = appendUint32(buf, uint32(schema.CommonCount))
	buf = appendUint32(buf, uint32(len(sampleIDs)))
	for _, id := range sampleIDs {
 buf = appendUint64(buf, id)
	}
	buf = appendUint32(buf, uint32(len(schema.Fields)))
	for _, f := range schema.Fields {
 buf = appendUint32(buf, uint32(len(f.Name)))
 buf = append(buf, f.Name...)
 buf = appendUint32(buf, uint32(f.Offset))
 buf = appendUint32(buf, uint32(f.Size))
 buf = appendUint32(buf, uint32(f.ElemSize))
 buf = append(buf, byte(f.Array))
 buf = appendUint32(buf, uint32(f.Count))
 buf = append(buf, byte(f.Format))
 if f.Signed {
 buf = append(buf, 1)
 } else {
 buf = append(buf, 0)
 }
	}
	return s.writeTLV(tagTracepointDesc, buf)
}

func (s *FileSink) WriteFinishedInit() error { return s.writeTLV(tagFinishedInit, nil) }
func (s *FileSink) WriteFinishedRound() error { return s.writeTLV(tagFinishedRound, nil) }

func (s *FileSink) SetHeader(index int, data []byte) error {
	buf := make([]byte, 0, 4+len(data))
	buf = appendUint32(buf, uint32(index))
	buf = append(buf, data...)
	return s.writeTLV(tagHeader, buf)
}

func (s *FileSink) SetUTSNameHeaders(sysname, nodename, release, version, machine string) error {
	var buf []byte
	for _, v := range []string{sysname, nodename, release, version, machine} {
 buf = appendUint32(buf, uint32(len(v)))
 buf = append(buf, v...)
	}
	return s.SetHeader(headerUTSName, buf)
}

func (s *FileSink) SetNrCPUsHeader(configured, online uint32) error {
	buf := appendUint32(appendUint32(nil, configured), online)
	return s.SetHeader(headerNrCPUs, buf)
}

func (s *FileSink) SetSampleTimeHeader(first, last uint64) error {
	buf := appendUint64(appendUint64(nil, first), last)
	return s.SetHeader(headerSampleTime, buf)
}

func (s *FileSink) SetSessionInfoHeaders(clockID uint32, realtimeOffsetNS, monotonicOffsetNS int64) error {
	buf := appendUint32(nil, clockID)
	buf = appendUint64(buf, uint64(realtimeOffsetNS))
	buf = appendUint64(buf, uint64(monotonicOffsetNS))
	return s.SetHeader(headerSessionInfo, buf)
}

// Header indices for SetHeader, arbitrary but stable within this
// package (no cross-process format to match).
const (
	headerUTSName = iota
	headerNrCPUs
	headerSampleTime
	headerSessionInfo
)

func (s *FileSink) FinalizeAndClose() error {
	if err := s.bw.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

var _ Sink = (*FileSink)(nil)
