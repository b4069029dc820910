package eventheader

import "github.com/tracepoint-go/libtracepoint/tperr"

// State is a position in the EventHeaderDecoder's depth-first walk
// ( "Walk").
type State uint8

const (
	BeforeFirst State = iota
	Value
	ArrayBegin
	ArrayEnd
	StructBegin
	StructEnd
	AfterLast
	ErrorState
)

// ItemInfo describes the walk's current position: the field whose
// Value, ArrayBegin, or StructBegin transition was just produced.
type ItemInfo struct {
	Name string
	FieldTag uint16
	Encoding Encoding
	Format Format
	ValueBytes []byte
	ElementSize int
	ArrayFlags ArrayKind
	ArrayCount int
	NeedByteSwap bool
}

// closeState marks what MoveNext emits when a pendingList is
// exhausted: nothing for the implicit top-level list, StructEnd for a
// struct's member list, ArrayEnd for an array's element list.
type closeState uint8

const (
	closeNone closeState = iota
	closeStruct
	closeArray
)

type pendingList struct {
	items []declNode
	close closeState
	// name/tag/encoding/format to report on the paired End transition's
	// ItemInfo; only meaningful when close != closeNone.
	owner declNode
}

// declNode is a schema entry with its struct children attached,
// produced once from the flat fieldDecl list at Start time (// "schema tree owns nodes; walker borrows").
type declNode struct {
	decl fieldDecl
	children []declNode
}

func buildForest(decls []fieldDecl) ([]declNode, error) {
	const op = "eventheader.buildForest"
	idx := 0
	var forest []declNode
	for idx < len(decls) {
 node, err := buildNode(decls, &idx)
 if err != nil {
 return nil, tperr.Newf(tperr.CorruptEvent, op, "%v", err)
 }
 forest = append(forest, node)
	}
	return forest, nil
}

func buildNode(decls []fieldDecl, idx *int) (declNode, error) {
	const op = "eventheader.buildNode"
	d := decls[*idx]
	*idx++
	node := declNode{decl: d}
	if d.encoding == EncodingStruct {
 for i := 0; i < int(d.childCount); i++ {
 if *idx >= len(decls) {
 return node, tperr.New(tperr.CorruptEvent, op, "struct child count exceeds schema length")
 }
 child, err := buildNode(decls, idx)
 if err != nil {
 return node, err
 }
 node.children = append(node.children, child)
 }
	}
	return node, nil
}

// asArrayElement returns a copy of n with its own array-ness cleared,
// for use as one repeated element while walking inside an ArrayBegin/
// ArrayEnd pair. The element's Name is cleared (the ArrayBegin item
// carries the array's name); its FieldTag is kept on every element.
func (n declNode) asArrayElement() declNode {
	d := n.decl
	d.arrayKind = ArrayNone
	d.name = ""
	return declNode{decl: d, children: n.children}
}

func (d *Decoder) pushStruct(n declNode) {
	d.state = StructBegin
	d.item = ItemInfo{Name: n.decl.name, FieldTag: n.decl.tag, Encoding: n.decl.encoding, NeedByteSwap: d.needByteSwap}
	d.stack = append(d.stack, pendingList{items: n.children, close: closeStruct, owner: n})
}

func (d *Decoder) pushArray(n declNode, count int) {
	d.state = ArrayBegin
	d.item = ItemInfo{
 Name: n.decl.name, FieldTag: n.decl.tag, Encoding: n.decl.encoding, Format: resolveFormat(n.decl.encoding, n.decl.format),
 ArrayFlags: n.decl.arrayKind, ArrayCount: count, ElementSize: n.decl.encoding.fixedSize(), NeedByteSwap: d.needByteSwap,
	}
	elem := n.asArrayElement()
	items := make([]declNode, count)
	for i := range items {
 items[i] = elem
	}
	d.stack = append(d.stack, pendingList{items: items, close: closeArray, owner: n})
}

// MoveNext advances the walk by one transition and reports whether a
// new state was produced (false at AfterLast or on Error).
func (d *Decoder) MoveNext() bool {
	if d.state == AfterLast || d.state == ErrorState {
 return false
	}
	for {
 if len(d.stack) == 0 {
 d.state = AfterLast
 return false
 }
 top := &d.stack[len(d.stack)-1]
 if len(top.items) == 0 {
 closed := top.close
 owner := top.owner
 d.stack = d.stack[:len(d.stack)-1]
 switch closed {
 case closeStruct:
 d.state = StructEnd
 d.item = ItemInfo{Name: owner.decl.name, FieldTag: owner.decl.tag, Encoding: owner.decl.encoding, NeedByteSwap: d.needByteSwap}
 return true
 case closeArray:
 d.state = ArrayEnd
 d.item = ItemInfo{Name: owner.decl.name, FieldTag: owner.decl.tag, Encoding: owner.decl.encoding, NeedByteSwap: d.needByteSwap}
 return true
 default:
 continue
 }
 }

 node := top.items[0]
 top.items = top.items[1:]

 if node.decl.arrayKind != ArrayNone {
 count, err := d.arrayCountOf(node.decl)
 if err != nil {
 d.fail(err)
 return false
 }
 d.pushArray(node, count)
 return true
 }
 if node.decl.encoding == EncodingStruct {
 d.pushStruct(node)
 return true
 }
 item, err := d.readValue(node.decl)
 if err != nil {
 d.fail(err)
 return false
 }
 d.state = Value
 d.item = item
 return true
	}
}

func (d *Decoder) fail(err error) {
	d.state = ErrorState
	d.err = err
}

// Err returns the error that moved the walk into ErrorState, if any.
func (d *Decoder) Err() error { return d.err }

// State returns the walk's current state.
func (d *Decoder) State() State { return d.state }

// Item returns the ItemInfo for the current Value/ArrayBegin/
// StructBegin/ArrayEnd/StructEnd state.
func (d *Decoder) Item() ItemInfo { return d.item }
