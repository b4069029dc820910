package jsonformat

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/tracepoint-go/libtracepoint/eventheader"
)

// Flags selects the three output modes lists: whitespace
// after punctuation, a ";tag=0xNN" suffix on tagged field names, and
// emission of the event's own name as an outer JSON member.
type Flags uint8

const (
	FlagSpace Flags = 1 << iota
	FlagFieldTag
	FlagEventName
)

// Meta carries the per-event metadata members lists for the
// JSON output's "meta" sub-object. Each field is suppressed in the
// output when it is zero/empty (strings) or its Have* companion is
// false, matching EventFormatterMetaFlags-style gating in the
// reference decoder.
type Meta struct {
	Provider string
	Event string
	ID uint16
	Version uint8
	Level uint8
	Keyword uint64
	Opcode uint8
	Tag uint16
	Options string
	Flags uint8

	Activity uuid.UUID
	HaveActivity bool
	RelatedActivity uuid.UUID
	HaveRelated bool

	Time uint64
	HaveTime bool
	CPU uint32
	HaveCPU bool
	PID int32
	HavePID bool
	TID int32
	HaveTID bool
}

// Formatter renders EventHeaderDecoder walks to JSON under a fixed set
// of output Flags.
type Formatter struct {
	Flags Flags
}

// New returns a Formatter using the given output flags.
func New(flags Flags) *Formatter {
	return &Formatter{Flags: flags}
}

type frameKind uint8

const (
	frameObject frameKind = iota
	frameArray
)

type jsonFrame struct {
	kind frameKind
	wroteAny bool
}

// FormatEvent appends one complete JSON event object to buf: an
// optional "name" member, the "meta" sub-object, then the decoder's
// walk rendered as nested JSON members/arrays. On any error the buffer
// is rolled back to its length at entry (testable property
// 7).
func (f *Formatter) FormatEvent(buf *Buffer, meta Meta, dec *eventheader.Decoder) error {
	mark := buf.checkpoint()
	if err := f.formatEvent(buf, meta, dec); err != nil {
 buf.rollback(mark)
 return err
	}
	return nil
}

func (f *Formatter) formatEvent(buf *Buffer, meta Meta, dec *eventheader.Decoder) error {
	if err := buf.reserve(2); err != nil {
 return err
	}
	buf.writeByte('{')
	top := &jsonFrame{kind: frameObject}

	if f.Flags&FlagEventName != 0 && meta.Event != "" {
 if err := f.writeMember(buf, top, "name", 0); err != nil {
 return err
 }
 if err := buf.writeJSONString(meta.Event); err != nil {
 return err
 }
	}

	if err := f.writeMember(buf, top, "meta", 0); err != nil {
 return err
	}
	if err := f.writeMeta(buf, meta); err != nil {
 return err
	}

	stack := []jsonFrame{*top}
	for dec.MoveNext() {
 item := dec.Item()
 cur := &stack[len(stack)-1]
 switch dec.State() {
 case eventheader.Value:
 if err := f.writeMember(buf, cur, item.Name, item.FieldTag); err != nil {
 return err
 }
 if err := buf.writeValue(item); err != nil {
 return err
 }
 case eventheader.ArrayBegin:
 if err := f.writeMember(buf, cur, item.Name, item.FieldTag); err != nil {
 return err
 }
 if err := buf.reserve(1); err != nil {
 return err
 }
 buf.writeByte('[')
 stack = append(stack, jsonFrame{kind: frameArray})
 case eventheader.ArrayEnd:
 if err := buf.reserve(1); err != nil {
 return err
 }
 buf.writeByte(']')
 stack = stack[:len(stack)-1]
 case eventheader.StructBegin:
 if err := f.writeMember(buf, cur, item.Name, item.FieldTag); err != nil {
 return err
 }
 if err := buf.reserve(1); err != nil {
 return err
 }
 buf.writeByte('{')
 stack = append(stack, jsonFrame{kind: frameObject})
 case eventheader.StructEnd:
 if err := buf.reserve(1); err != nil {
 return err
 }
 buf.writeByte('}')
 stack = stack[:len(stack)-1]
 }
	}
	if dec.State() == eventheader.ErrorState {
 return dec.Err()
	}

	if err := buf.reserve(1); err != nil {
 return err
	}
	buf.writeByte('}')
	return nil
}

// writeMember writes the separating comma (if needed), and — inside a
// JSON object frame only — the quoted field name and colon. Array
// elements carry no field name.
func (f *Formatter) writeMember(buf *Buffer, frame *jsonFrame, name string, tag uint16) error {
	if err := buf.reserve(4); err != nil {
 return err
	}
	if frame.wroteAny {
 buf.writeByte(',')
 if f.Flags&FlagSpace != 0 {
 buf.writeByte(' ')
 }
	}
	frame.wroteAny = true

	if frame.kind != frameObject {
 return nil
	}
	if f.Flags&FlagFieldTag != 0 && tag != 0 {
 name = name + ";tag=0x" + strconv.FormatUint(uint64(tag), 16)
	}
	if err := buf.writeJSONString(name); err != nil {
 return err
	}
	if err := buf.reserve(2); err != nil {
 return err
	}
	buf.writeByte(':')
	if f.Flags&FlagSpace != 0 {
 buf.writeByte(' ')
	}
	return nil
}

func (f *Formatter) writeMeta(buf *Buffer, m Meta) error {
	if err := buf.reserve(2); err != nil {
 return err
	}
	buf.writeByte('{')
	frame := &jsonFrame{kind: frameObject}

	writeStr := func(name, v string) error {
 if v == "" {
 return nil
 }
 if err := f.writeMember(buf, frame, name, 0); err != nil {
 return err
 }
 return buf.writeJSONString(v)
	}
	writeUint := func(name string, v uint64, nonzero bool) error {
 if !nonzero {
 return nil
 }
 if err := f.writeMember(buf, frame, name, 0); err != nil {
 return err
 }
 return buf.writeRawNumber(strconv.FormatUint(v, 10))
	}
	writeInt := func(name string, v int64, present bool) error {
 if !present {
 return nil
 }
 if err := f.writeMember(buf, frame, name, 0); err != nil {
 return err
 }
 return buf.writeRawNumber(strconv.FormatInt(v, 10))
	}

	if err := writeStr("provider", m.Provider); err != nil {
 return err
	}
	if err := writeStr("event", m.Event); err != nil {
 return err
	}
	if err := writeUint("id", uint64(m.ID), m.ID != 0); err != nil {
 return err
	}
	if err := writeUint("version", uint64(m.Version), m.Version != 0); err != nil {
 return err
	}
	if err := writeUint("level", uint64(m.Level), m.Level != 0); err != nil {
 return err
	}
	if err := writeUint("keyword", m.Keyword, m.Keyword != 0); err != nil {
 return err
	}
	if err := writeUint("opcode", uint64(m.Opcode), m.Opcode != 0); err != nil {
 return err
	}
	if err := writeUint("tag", uint64(m.Tag), m.Tag != 0); err != nil {
 return err
	}
	if m.HaveActivity {
 if err := writeStr("activity", m.Activity.String()); err != nil {
 return err
 }
	}
	if m.HaveRelated {
 if err := writeStr("relatedActivity", m.RelatedActivity.String()); err != nil {
 return err
 }
	}
	if err := writeStr("options", m.Options); err != nil {
 return err
	}
	if err := writeUint("flags", uint64(m.Flags), m.Flags != 0); err != nil {
 return err
	}
	if err := writeUint("time", m.Time, m.HaveTime); err != nil {
 return err
	}
	if err := writeUint("cpu", uint64(m.CPU), m.HaveCPU); err != nil {
 return err
	}
	if err := writeInt("pid", int64(m.PID), m.HavePID); err != nil {
 return err
	}
	if err := writeInt("tid", int64(m.TID), m.HaveTID); err != nil {
 return err
	}

	if err := buf.reserve(1); err != nil {
 return err
	}
	buf.writeByte('}')
	return nil
}
