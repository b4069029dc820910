package tracefs

import (
	"strconv"
	"strings"

	"github.com/tracepoint-go/libtracepoint/tperr"
)

// Parse parses the text of a tracefs ".../events/<system>/<name>/format"
// file into a FieldSchemaList.
//
// wordIs64Bit tells the parser how wide a bare "long"/"unsigned long"/
// pointer field is on the platform that produced the text; tracefs
// itself doesn't record this, and the parser must not infer it from the
// host it happens to be running on .
func Parse(system, text string, wordIs64Bit bool) (*FieldSchemaList, error) {
	const op = "tracefs.Parse"

	list := &FieldSchemaList{System: system}
	haveID := false

	lines := strings.Split(text, "\n")
	for i := 0; i < len(lines); i++ {
 line := strings.TrimSpace(lines[i])
 switch {
 case line == "":
 continue

 case strings.HasPrefix(line, "name:"):
 list.Name = strings.TrimSpace(strings.TrimPrefix(line, "name:"))

 case strings.HasPrefix(line, "ID:"):
 idStr := strings.TrimSpace(strings.TrimPrefix(line, "ID:"))
 id, err := strconv.ParseUint(idStr, 10, 32)
 if err != nil {
 return nil, tperr.New(tperr.InvalidFormat, op, errJoin(line, err))
 }
 list.EventID = uint32(id)
 haveID = true

 case strings.HasPrefix(line, "format:"):
 // Marker line only; the field: lines that follow are handled below.

 case strings.HasPrefix(line, "field:"):
 f, err := parseField(line, wordIs64Bit)
 if err != nil {
 return nil, tperr.New(tperr.InvalidFormat, op, err)
 }
 list.Fields = append(list.Fields, f)

 case strings.HasPrefix(line, "print fmt:"):
 list.PrintFmt = strings.TrimSpace(strings.TrimPrefix(line, "print fmt:"))

 default:
 // Unrecognised line (e.g. a continuation of print fmt's
 // argument list): ignored, not an error.
 }
	}

	if !haveID {
 return nil, tperr.Newf(tperr.InvalidFormat, op, "missing ID: line")
	}
	if _, ok := list.CommonTypeField(); !ok {
 return nil, tperr.Newf(tperr.InvalidFormat, op, "missing common_type field")
	}

	// The common fields are the leading run of fields whose name is
	// conventionally prefixed "common_" (common_type, common_flags,
	// common_preempt_count, common_pid, ...); tracefs also separates
	// them from the event-specific fields with a blank line, but the
	// naming convention is the more robust signal to parse on.
	n := 0
	for n < len(list.Fields) && strings.HasPrefix(list.Fields[n].Name, "common_") {
 n++
	}
	if n == 0 {
 n = 1 // a common_type field was found above, even if unconventionally named
	}
	list.CommonCount = n

	return list, nil
}

func errJoin(line string, cause error) error {
	if cause == nil {
 return &lineError{line: line}
	}
	return &lineError{line: line, cause: cause}
}

type lineError struct {
	line string
	cause error
}

func (e *lineError) Error() string {
	if e.cause == nil {
 return "malformed line: " + e.line
	}
	return "malformed line: " + e.line + ": " + e.cause.Error()
}

func (e *lineError) Unwrap() error { return e.cause }

// parseField parses one "field:<decl>;	offset:<n>;	size:<n>;	signed:<0|1>;"
// line.
func parseField(line string, wordIs64Bit bool) (FieldSchema, error) {
	parts := strings.Split(line, ";")
	if len(parts) < 4 {
 return FieldSchema{}, errJoin(line, nil)
	}

	decl := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[0]), "field:"))

	var f FieldSchema
	for _, p := range parts[1:] {
 p = strings.TrimSpace(p)
 if p == "" {
 continue
 }
 kv := strings.SplitN(p, ":", 2)
 if len(kv) != 2 {
 continue
 }
 key, val := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
 n, err := strconv.Atoi(val)
 switch key {
 case "offset":
 if err != nil {
 return FieldSchema{}, errJoin(line, err)
 }
 f.Offset = n
 case "size":
 if err != nil {
 return FieldSchema{}, errJoin(line, err)
 }
 f.Size = n
 case "signed":
 f.Signed = n != 0
 }
	}

	typePart, nameAndArr, ok := splitDeclaration(decl)
	if !ok {
 return FieldSchema{}, errJoin(line, nil)
	}

	name, fixedCount, isFixedArray := splitArraySuffix(nameAndArr)
	f.Name = name

	switch {
	case strings.Contains(typePart, "__data_loc"):
 base := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(strings.Replace(typePart, "__data_loc", "", 1)), "[]"))
 f.Array = ArrayDynamicLen16
 f.ElemSize = sizeOfType(base, wordIs64Bit)
 f.Format = formatOfType(base, f.Signed, f.Name)

	case isFixedArray:
 f.Array = ArrayFixed
 f.Count = fixedCount
 if fixedCount > 0 && f.Size%fixedCount == 0 {
 f.ElemSize = f.Size / fixedCount
 } else {
 f.ElemSize = sizeOfType(typePart, wordIs64Bit)
 }
 f.Format = formatOfType(typePart, f.Signed, f.Name)

	default:
 f.Array = ArrayNone
 f.ElemSize = f.Size
 f.Format = formatOfType(typePart, f.Signed, f.Name)
	}

	if f.Size < 0 || f.Offset < 0 {
 return FieldSchema{}, errJoin(line, nil)
	}

	return f, nil
}

// splitDeclaration splits "unsigned short common_type" into
// ("unsigned short", "common_type") by the last space, except that a
// trailing "[]" on the type (the __data_loc marker) is kept attached to
// the type half.
func splitDeclaration(decl string) (typePart, nameAndArr string, ok bool) {
	decl = strings.TrimSpace(decl)
	i := strings.LastIndexByte(decl, ' ')
	if i < 0 {
 return "", "", false
	}
	return strings.TrimSpace(decl[:i]), strings.TrimSpace(decl[i+1:]), true
}

// splitArraySuffix splits "comm[16]" into ("comm", 16, true), or
// returns the name unchanged for a plain identifier.
func splitArraySuffix(nameAndArr string) (name string, count int, isArray bool) {
	open := strings.IndexByte(nameAndArr, '[')
	if open < 0 || !strings.HasSuffix(nameAndArr, "]") {
 return nameAndArr, 0, false
	}
	name = nameAndArr[:open]
	countStr := nameAndArr[open+1 : len(nameAndArr)-1]
	if countStr == "" {
 return name, 0, false
	}
	n, err := strconv.Atoi(countStr)
	if err != nil || n <= 0 {
 return name, 0, false
	}
	return name, n, true
}

func sizeOfType(t string, wordIs64Bit bool) int {
	t = strings.TrimSpace(t)
	t = strings.TrimPrefix(t, "const ")
	if strings.HasSuffix(t, "*") {
 if wordIs64Bit {
 return 8
 }
 return 4
	}
	switch t {
	case "char", "unsigned char", "s8", "u8", "__s8", "__u8", "int8_t", "uint8_t", "bool", "_Bool":
 return 1
	case "short", "unsigned short", "s16", "u16", "__s16", "__u16", "int16_t", "uint16_t":
 return 2
	case "int", "unsigned int", "unsigned", "s32", "u32", "__s32", "__u32", "int32_t", "uint32_t", "pid_t":
 return 4
	case "long long", "unsigned long long", "s64", "u64", "__s64", "__u64", "int64_t", "uint64_t":
 return 8
	case "long", "unsigned long":
 if wordIs64Bit {
 return 8
 }
 return 4
	default:
 return 4
	}
}

func formatOfType(t string, signed bool, name string) Format {
	t = strings.TrimSpace(t)
	switch {
	case name == "common_type":
 return FormatUnsigned
	case strings.Contains(t, "char") && !strings.Contains(t, "*"):
 return FormatString
	case strings.Contains(t, "*"):
 return FormatHex
	case signed:
 return FormatSigned
	default:
 return FormatUnsigned
	}
}
