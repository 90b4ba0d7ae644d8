package arena

import (
	"encoding/binary"

	"github.com/TangJia025/simplejs/internal/value"
)

// Object record body, 16 bytes:
//
//	0..3   firstProp  head of the property chain (0 = empty)
//	4..7   aux1       scope parent / closure captured scope
//	8..11  aux2       closure code string
//	12..15 flags
//
// One record shape serves plain objects, scope frames, and closures;
// the flags word says which auxiliary fields are meaningful.
const (
	objBodySize   = 16
	objFirstProp  = 0
	objAux1       = 4
	objAux2       = 8
	objFlagsField = 12

	// FlagFuncFrame marks a scope frame that is a var-hoisting
	// boundary (function frames and the global object).
	FlagFuncFrame = 1
	// FlagClosure marks a function closure: aux1 is the captured
	// scope, aux2 the code string.
	FlagClosure = 2
	// FlagScope marks a lexical scope frame: aux1 is the parent.
	FlagScope = 4
)

// Property record body, 16 bytes: key string offset, next property
// offset, then the 8-byte value.
const (
	propBodySize = 16
	propKey      = 0
	propNext     = 4
	propValue    = 8
)

// CreateObject allocates an empty object.
func (a *Arena) CreateObject() (value.Value, error) {
	off, err := a.alloc(kindObject, objBodySize)
	if err != nil {
		return value.Undefined(), err
	}
	return value.Ref(value.TagObject, off), nil
}

// NewScope allocates a scope frame chained to parent. The global scope
// passes parent 0 and fnFrame true.
func (a *Arena) NewScope(parent uint32, fnFrame bool) (value.Value, error) {
	off, err := a.alloc(kindObject, objBodySize)
	if err != nil {
		return value.Undefined(), err
	}
	b := a.body(off)
	binary.LittleEndian.PutUint32(b[objAux1:], parent)
	flags := uint32(FlagScope)
	if fnFrame {
		flags |= FlagFuncFrame
	}
	binary.LittleEndian.PutUint32(b[objFlagsField:], flags)
	return value.Ref(value.TagObject, off), nil
}

// NewClosure allocates a function object capturing its defining scope
// and the arena string holding its source text.
func (a *Arena) NewClosure(scope, code uint32) (value.Value, error) {
	off, err := a.alloc(kindObject, objBodySize)
	if err != nil {
		return value.Undefined(), err
	}
	b := a.body(off)
	binary.LittleEndian.PutUint32(b[objAux1:], scope)
	binary.LittleEndian.PutUint32(b[objAux2:], code)
	binary.LittleEndian.PutUint32(b[objFlagsField:], FlagClosure)
	return value.Ref(value.TagFunction, off), nil
}

func (a *Arena) ObjectFirstProp(off uint32) uint32 {
	return binary.LittleEndian.Uint32(a.body(off)[objFirstProp:])
}

func (a *Arena) ObjectFlags(off uint32) uint32 {
	return binary.LittleEndian.Uint32(a.body(off)[objFlagsField:])
}

// ObjectParent returns a scope frame's parent (or a closure's captured
// scope; both live in aux1).
func (a *Arena) ObjectParent(off uint32) uint32 {
	return binary.LittleEndian.Uint32(a.body(off)[objAux1:])
}

// ClosureScope returns the scope captured at definition.
func (a *Arena) ClosureScope(off uint32) uint32 {
	return binary.LittleEndian.Uint32(a.body(off)[objAux1:])
}

// ClosureCode returns the offset of the code string.
func (a *Arena) ClosureCode(off uint32) uint32 {
	return binary.LittleEndian.Uint32(a.body(off)[objAux2:])
}

// IsFuncFrame reports whether the scope frame hoists var declarations.
func (a *Arena) IsFuncFrame(off uint32) bool {
	return a.ObjectFlags(off)&FlagFuncFrame != 0
}

// FindProp walks the property chain for key. O(n) by design: no
// hashing, bounded memory.
func (a *Arena) FindProp(obj uint32, key string) (uint32, bool) {
	for p := a.ObjectFirstProp(obj); p != 0; p = a.PropNext(p) {
		if a.StringEquals(a.PropKey(p), key) {
			return p, true
		}
	}
	return 0, false
}

// AddProp links a new property at the head of obj's chain. The caller
// has already checked the key is absent and keeps keyOff reachable
// while allocating.
func (a *Arena) AddProp(obj, keyOff uint32, v value.Value) (uint32, error) {
	p, err := a.alloc(kindProp, propBodySize)
	if err != nil {
		return 0, err
	}
	b := a.body(p)
	binary.LittleEndian.PutUint32(b[propKey:], keyOff)
	binary.LittleEndian.PutUint32(b[propNext:], a.ObjectFirstProp(obj))
	binary.LittleEndian.PutUint64(b[propValue:], uint64(v))
	binary.LittleEndian.PutUint32(a.body(obj)[objFirstProp:], p)
	return p, nil
}

func (a *Arena) PropKey(p uint32) uint32 {
	return binary.LittleEndian.Uint32(a.body(p)[propKey:])
}

func (a *Arena) PropNext(p uint32) uint32 {
	return binary.LittleEndian.Uint32(a.body(p)[propNext:])
}

func (a *Arena) PropValue(p uint32) value.Value {
	return value.Value(binary.LittleEndian.Uint64(a.body(p)[propValue:]))
}

// SetPropValue overwrites in place; refused for const bindings.
func (a *Arena) SetPropValue(p uint32, v value.Value) error {
	if a.header(p)&readonlyBit != 0 {
		return ErrReadonly
	}
	binary.LittleEndian.PutUint64(a.body(p)[propValue:], uint64(v))
	return nil
}

// SetPropReadonly marks a binding const after initialization.
func (a *Arena) SetPropReadonly(p uint32) {
	a.setHeader(p, a.header(p)|readonlyBit)
}

func (a *Arena) PropReadonly(p uint32) bool {
	return a.header(p)&readonlyBit != 0
}

// String record body: 4-byte length prefix, then the bytes.

// NewHeapString always allocates an arena record, even for short
// strings; property keys need a stable offset.
func (a *Arena) NewHeapString(s string) (uint32, error) {
	off, err := a.alloc(kindStr, 4+len(s))
	if err != nil {
		return 0, err
	}
	b := a.body(off)
	binary.LittleEndian.PutUint32(b, uint32(len(s)))
	copy(b[4:], s)
	return off, nil
}

// NewString returns a string Value, packed inline when it fits.
func (a *Arena) NewString(s string) (value.Value, error) {
	if v, ok := value.PackString(s); ok {
		return v, nil
	}
	off, err := a.NewHeapString(s)
	if err != nil {
		return value.Undefined(), err
	}
	return value.Ref(value.TagString, off), nil
}

// StringBytes returns the payload of a heap string record.
func (a *Arena) StringBytes(off uint32) []byte {
	b := a.body(off)
	n := binary.LittleEndian.Uint32(b)
	return b[4 : 4+n]
}

// StringValue decodes either string representation.
func (a *Arena) StringValue(v value.Value) string {
	switch v.Tag() {
	case value.TagInlineString:
		return v.InlineString()
	case value.TagString:
		return string(a.StringBytes(v.Ref()))
	}
	return ""
}

func (a *Arena) StringEquals(off uint32, s string) bool {
	b := a.StringBytes(off)
	return string(b) == s
}
