package filesink

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/tracepoint-go/libtracepoint/tracefs"
)

// TracepointRecord is one AddTracepointEventDesc call recovered from a
// FileSink-written file, with its field schema reconstructed so a
// decoder never needs to re-read the live tracefs mount.
type TracepointRecord struct {
	Name string
	EventID uint32
	CommonCount int
	SampleIDs []uint64
	Fields []tracefs.FieldSchema
}

// EventHeaderDataOffset returns the byte offset within a raw record
// where the declared fields begin after the common prefix, or -1 if
// there are no event-specific fields (EventHeader payloads
// begin right after a tracepoint's common fields).
func (t TracepointRecord) EventHeaderDataOffset() int {
	if t.CommonCount >= len(t.Fields) {
 return -1
	}
	return t.Fields[t.CommonCount].Offset
}

// ReadResult is everything ReadFile recovers from a FileSink-written
// file: the tracepoint descriptors (so a decoder can map a sample's
// id/common_type back to a name) and the raw event records in
// write order.
type ReadResult struct {
	Tracepoints []TracepointRecord
	Records [][]byte
}

// ReadFile parses a file written by FileSink back into its TLV
// records. It does not interpret Records' bytes: that is the
// decoder's job.
func ReadFile(path string) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
 return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var magic [8]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
 return nil, fmt.Errorf("reading magic: %w", err)
	}
	if magic != fileSinkMagic {
 return nil, fmt.Errorf("not a FileSink file: bad magic %x", magic)
	}

	var res ReadResult
	for {
 tag, err := br.ReadByte()
 if err == io.EOF {
 break
 }
 if err != nil {
 return nil, err
 }
 var lenBuf [4]byte
 if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
 return nil, fmt.Errorf("reading record length: %w", err)
 }
 n := binary.LittleEndian.Uint32(lenBuf[:])
 payload := make([]byte, n)
 if _, err := io.ReadFull(br, payload); err != nil {
 return nil, fmt.Errorf("reading record payload: %w", err)
 }

 switch tag {
 case tagEventData:
 res.Records = append(res.Records, payload)
 case tagTracepointDesc:
 tp, err := parseTracepointDesc(payload)
 if err != nil {
 return nil, err
 }
 res.Tracepoints = append(res.Tracepoints, tp)
 case tagFinishedInit, tagFinishedRound, tagHeader:
 // Not needed for decoding; skipped.
 default:
 return nil, fmt.Errorf("unknown record tag %d", tag)
 }
	}
	return &res, nil
}

func parseTracepointDesc(buf []byte) (TracepointRecord, error) {
	readUint32 := func() (uint32, error) {
 if len(buf) < 4 {
 return 0, fmt.Errorf("truncated tracepoint descriptor")
 }
 v := binary.LittleEndian.Uint32(buf)
 buf = buf[4:]
 return v, nil
	}
	readString := func(n uint32) (string, error) {
 if uint32(len(buf)) < n {
 return "", fmt.Errorf("truncated tracepoint descriptor")
 }
 s := string(buf[:n])
 buf = buf[n:]
 return s, nil
	}
	readByte := func() (byte, error) {
 if len(buf) < 1 {
 return 0, fmt.Errorf("truncated tracepoint descriptor")
 }
 b := buf[0]
 buf = buf[1:]
 return b, nil
	}

	nameLen, err := readUint32()
	if err != nil {
 return TracepointRecord{}, err
	}
	name, err := readString(nameLen)
	if err != nil {
 return TracepointRecord{}, err
	}
	eventID, err := readUint32()
	if err != nil {
 return TracepointRecord{}, err
	}
	commonCount, err := readUint32()
	if err != nil {
 return TracepointRecord{}, err
	}
	idCount, err := readUint32()
	if err != nil {
 return TracepointRecord{}, err
	}
	if uint32(len(buf)) < 8*idCount {
 return TracepointRecord{}, fmt.Errorf("truncated sample id list")
	}
	ids := make([]uint64, idCount)
	for i := range ids {
 ids[i] = binary.LittleEndian.Uint64(buf[8*i:])
	}
	buf = buf[8*idCount:]

	fieldCount, err := readUint32()
	if err != nil {
 return TracepointRecord{}, err
	}
	fields := make([]tracefs.FieldSchema, fieldCount)
	for i := range fields {
 fnLen, err := readUint32()
 if err != nil {
 return TracepointRecord{}, err
 }
 fname, err := readString(fnLen)
 if err != nil {
 return TracepointRecord{}, err
 }
 offset, err := readUint32()
 if err != nil {
 return TracepointRecord{}, err
 }
 size, err := readUint32()
 if err != nil {
 return TracepointRecord{}, err
 }
 elemSize, err := readUint32()
 if err != nil {
 return TracepointRecord{}, err
 }
 array, err := readByte()
 if err != nil {
 return TracepointRecord{}, err
 }
 count, err := readUint32()
 if err != nil {
 return TracepointRecord{}, err
 }
 format, err := readByte()
 if err != nil {
 return TracepointRecord{}, err
 }
 signed, err := readByte()
 if err != nil {
 return TracepointRecord{}, err
 }
 fields[i] = tracefs.FieldSchema{
 Name: fname,
 Offset: int(offset),
 Size: int(size),
 ElemSize: int(elemSize),
 Array: tracefs.ArrayKind(array),
 Count: int(count),
 Format: tracefs.Format(format),
 Signed: signed != 0,
 }
	}

	return TracepointRecord{
 Name: name,
 EventID: eventID,
 CommonCount: int(commonCount),
 SampleIDs: ids,
 Fields: fields,
	}, nil
}
