package session

import (
	"github.com/tracepoint-go/libtracepoint/internal/byteio"
	"github.com/tracepoint-go/libtracepoint/perffile"
	"github.com/tracepoint-go/libtracepoint/tperr"
	"github.com/tracepoint-go/libtracepoint/tracefs"
)

// Sample is a decoded PERF_RECORD_SAMPLE, with only the fields
// selected by the session's sample mask populated .
type Sample struct {
	HasIdentifier bool
	Identifier uint64
	HasID bool
	ID uint64

	IP uint64
	PID, TID int32
	Time uint64
	Addr uint64
	StreamID uint64
	CPU, CPUReserved uint32
	Period uint64
	Callchain []uint64
	Raw []byte

	// Schema is the FieldSchemaList bound to this sample's
	// common_type (or sample id), or nil if no schema could be
	// resolved; the sample is still yielded with Raw available.
	Schema *tracefs.FieldSchemaList
}

const sampleHeaderSize = 8

// ParseSample extracts a Sample's fields from a raw ring buffer record
// (perf_event_header included) according to mask, in the fixed perf
// ABI order : identifier, ip, tid, time, addr, id,
// stream-id, (cpu,reserved), period, callchain, then raw_size+raw.
//
// Any short read or a raw_size exceeding the remaining bytes is
// reported as CorruptEvent.
func ParseSample(raw []byte, mask perffile.SampleFormat, order byteio.Reader) (*Sample, error) {
	const op = "session.ParseSample"

	if len(raw) < sampleHeaderSize {
 return nil, tperr.Newf(tperr.CorruptEvent, op, "record shorter than perf_event_header")
	}
	body := raw[sampleHeaderSize:]
	pos := 0
	need := func(n int) error {
 if pos+n > len(body) {
 return tperr.Newf(tperr.CorruptEvent, op, "sample truncated at offset %d, need %d more bytes", pos, n)
 }
 return nil
	}

	s := &Sample{}

	if mask&perffile.SampleFormatIdentifier != 0 {
 if err := need(8); err != nil {
 return nil, err
 }
 s.Identifier = order.U64At(body, pos)
 s.HasIdentifier = true
 pos += 8
	}
	if mask&perffile.SampleFormatIP != 0 {
 if err := need(8); err != nil {
 return nil, err
 }
 s.IP = order.U64At(body, pos)
 pos += 8
	}
	if mask&perffile.SampleFormatTID != 0 {
 if err := need(8); err != nil {
 return nil, err
 }
 s.PID = int32(order.U32At(body, pos))
 s.TID = int32(order.U32At(body, pos+4))
 pos += 8
	}
	if mask&perffile.SampleFormatTime != 0 {
 if err := need(8); err != nil {
 return nil, err
 }
 s.Time = order.U64At(body, pos)
 pos += 8
	}
	if mask&perffile.SampleFormatAddr != 0 {
 if err := need(8); err != nil {
 return nil, err
 }
 s.Addr = order.U64At(body, pos)
 pos += 8
	}
	if mask&perffile.SampleFormatID != 0 {
 if err := need(8); err != nil {
 return nil, err
 }
 s.ID = order.U64At(body, pos)
 s.HasID = true
 pos += 8
	}
	if mask&perffile.SampleFormatStreamID != 0 {
 if err := need(8); err != nil {
 return nil, err
 }
 s.StreamID = order.U64At(body, pos)
 pos += 8
	}
	if mask&perffile.SampleFormatCPU != 0 {
 if err := need(8); err != nil {
 return nil, err
 }
 s.CPU = order.U32At(body, pos)
 s.CPUReserved = order.U32At(body, pos+4)
 pos += 8
	}
	if mask&perffile.SampleFormatPeriod != 0 {
 if err := need(8); err != nil {
 return nil, err
 }
 s.Period = order.U64At(body, pos)
 pos += 8
	}
	if mask&perffile.SampleFormatCallchain != 0 {
 if err := need(8); err != nil {
 return nil, err
 }
 n := order.U64At(body, pos)
 pos += 8
 if err := need(int(n) * 8); err != nil {
 return nil, err
 }
 s.Callchain = make([]uint64, n)
 for i := range s.Callchain {
 s.Callchain[i] = order.U64At(body, pos)
 pos += 8
 }
	}
	if mask&perffile.SampleFormatRaw != 0 {
 if err := need(4); err != nil {
 return nil, err
 }
 rawSize := order.U32At(body, pos)
 pos += 4
 if err := need(int(rawSize)); err != nil {
 return nil, err
 }
 s.Raw = body[pos : pos+int(rawSize)]
 pos += int(rawSize)
	}

	return s, nil
}

// BindSchema resolves the sample's identifier/id against
// schemaByID, falling back to the common_type field inside the raw
// payload via cache, and sets s.Schema. The lookup failing is not an
// error: the sample is still usable with s.Raw ("reported
// as unknown schema but still yielded").
func (s *Sample) BindSchema(schemaByID map[uint64]*tracefs.FieldSchemaList, cache *tracefs.Cache, order byteio.Reader) {
	if s.HasIdentifier {
 if schema, ok := schemaByID[s.Identifier]; ok {
 s.Schema = schema
 return
 }
	} else if s.HasID {
 if schema, ok := schemaByID[s.ID]; ok {
 s.Schema = schema
 return
 }
	}
	if len(s.Raw) >= 2 {
 if schema, err := cache.FindByRawRecord(s.Raw, order.Order()); err == nil {
 s.Schema = schema
 }
	}
}
