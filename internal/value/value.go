package value

import (
	"math"
)

// Value represents a simplejs value using NaN-boxing.
//
// All values are 64-bit words. A word whose bits form anything other
// than a reserved quiet-NaN pattern *is* that IEEE 754 double, unboxed.
// Non-number values live inside the quiet-NaN space: the quiet-NaN
// prefix, a 4-bit tag, and a 47-bit payload holding either an arena
// offset or an inline immediate.
//
// Encoding scheme:
//   - Number: native IEEE 754 double (NaN inputs are canonicalized)
//   - Heap ref: quiet NaN + tag + 32-bit arena offset
//   - Immediate: quiet NaN + tag + inline payload (bool bit, packed
//     short string bytes, native function index, error kind)
//
// Tag 0 is reserved so the canonical quiet NaN itself still decodes as
// a number. Tagged words never set the sign bit, so negative NaNs are
// numbers too.
type Value uint64

// NaN-boxing constants
const (
	// Exponent all 1s: NaN or Infinity
	expMask uint64 = 0x7FF0000000000000

	// Quiet NaN prefix: exponent all 1s, quiet bit set, sign bit 0
	qnanBits uint64 = 0x7FF8000000000000

	// Tag field: 4 bits below the quiet bit (bits 47..50)
	tagMask  uint64 = 0x0007800000000000
	tagShift        = 47

	// Payload: low 47 bits
	payloadMask uint64 = 0x00007FFFFFFFFFFF

	signBit uint64 = 0x8000000000000000
)

// Tag identifies the decoded type of a Value. The first three heap
// kinds mirror the arena record kinds (Object, Property, String).
type Tag uint8

const (
	TagNumber Tag = iota // tag bits 0: any unboxed double
	TagObject
	TagProperty
	TagString
	TagInlineString
	TagUndefined
	TagNull
	TagBoolean
	TagFunction
	TagCodeRef
	TagNative
	TagError
)

// ErrorKind distinguishes the error taxonomy carried inside an
// error-tagged Value's payload.
type ErrorKind uint8

const (
	ErrNone ErrorKind = iota
	ErrSyntax
	ErrReference
	ErrType
	ErrRange
	ErrOOM
	ErrInternal
)

// Error payload layout: kind in bits 44..46, message string offset in
// bits 0..43 (zero when no message could be allocated).
const (
	errKindShift        = 44
	errKindMask  uint64 = 0x7 << errKindShift
	errMsgMask   uint64 = (1 << errKindShift) - 1
)

// Inline string payload layout: length in bits 40..42, up to five raw
// bytes in bits 0..39.
const (
	inlineLenShift        = 40
	inlineLenMask  uint64 = 0x7 << inlineLenShift
	MaxInlineLen          = 5
)

func immediate(t Tag, payload uint64) Value {
	return Value(qnanBits | uint64(t)<<tagShift | payload&payloadMask)
}

// Undefined returns the undefined immediate.
func Undefined() Value { return immediate(TagUndefined, 0) }

// Null returns the null immediate.
func Null() Value { return immediate(TagNull, 0) }

// Boolean returns the true or false immediate.
func Boolean(b bool) Value {
	if b {
		return immediate(TagBoolean, 1)
	}
	return immediate(TagBoolean, 0)
}

// Number encodes a double. NaN inputs collapse to the canonical quiet
// NaN so they can never alias a tagged value; every other double
// round-trips bit-exact.
func Number(f float64) Value {
	if f != f {
		return Value(qnanBits)
	}
	return Value(math.Float64bits(f))
}

// Ref encodes an arena offset under a heap tag (Object, Property,
// String, Function, CodeRef).
func Ref(t Tag, off uint32) Value {
	return immediate(t, uint64(off))
}

// Native encodes an index into the engine's registered native
// function table.
func Native(index int) Value {
	return immediate(TagNative, uint64(index))
}

// Error encodes an error of the given kind. msgOff is the arena offset
// of the message string, or zero when none exists (the not-a-value
// sentinel, and the out-of-memory case where no message can be
// allocated).
func Error(kind ErrorKind, msgOff uint32) Value {
	return immediate(TagError, uint64(kind)<<errKindShift|uint64(msgOff))
}

// PackString packs a short string into an inline immediate. Returns
// false when the string is too long and needs an arena record.
func PackString(s string) (Value, bool) {
	if len(s) > MaxInlineLen {
		return 0, false
	}
	payload := uint64(len(s)) << inlineLenShift
	for i := 0; i < len(s); i++ {
		payload |= uint64(s[i]) << (8 * i)
	}
	return immediate(TagInlineString, payload), true
}

// IsNumber reports whether v decodes as a double. Infinities, the
// canonical quiet NaN, signaling-NaN patterns, and every sign-bit NaN
// are numbers; only quiet NaNs carrying a nonzero tag are boxed values.
func (v Value) IsNumber() bool {
	bits := uint64(v)
	if bits&expMask != expMask {
		return true
	}
	if bits&^signBit&^expMask == 0 {
		// +Inf or -Inf
		return true
	}
	if bits&signBit != 0 {
		return true
	}
	if bits&qnanBits != qnanBits {
		return true
	}
	return bits&tagMask == 0
}

// Tag returns the decoded type tag.
func (v Value) Tag() Tag {
	if v.IsNumber() {
		return TagNumber
	}
	return Tag((uint64(v) & tagMask) >> tagShift)
}

// Float decodes a number Value. Calling it on a non-number is an
// internal-consistency failure; it returns NaN rather than panicking.
// Callers that cannot guarantee the tag use AsNumber.
func (v Value) Float() float64 {
	if !v.IsNumber() {
		return math.NaN()
	}
	return math.Float64frombits(uint64(v))
}

// AsNumber decodes v when it is a number; ok is false for every tagged
// value, so a boxed value can never be mistaken for NaN.
func (v Value) AsNumber() (float64, bool) {
	if !v.IsNumber() {
		return 0, false
	}
	return math.Float64frombits(uint64(v)), true
}

// Ref returns the arena offset carried by a heap-tagged Value.
func (v Value) Ref() uint32 {
	return uint32(uint64(v) & payloadMask)
}

// NativeIndex returns the native-table index of a Native Value.
func (v Value) NativeIndex() int {
	return int(uint64(v) & payloadMask)
}

// Bool decodes a Boolean immediate.
func (v Value) Bool() bool {
	return uint64(v)&payloadMask == 1
}

// ErrorKind returns the kind carried by an error Value, or ErrNone for
// non-errors.
func (v Value) ErrorKind() ErrorKind {
	if v.Tag() != TagError {
		return ErrNone
	}
	return ErrorKind((uint64(v) & errKindMask) >> errKindShift)
}

// ErrorMessageRef returns the arena offset of the error's message
// string, or zero when it has none.
func (v Value) ErrorMessageRef() uint32 {
	return uint32(uint64(v) & errMsgMask)
}

// InlineString decodes a packed short string.
func (v Value) InlineString() string {
	payload := uint64(v) & payloadMask
	n := int((payload & inlineLenMask) >> inlineLenShift)
	buf := make([]byte, n)
	for i := 0; i < n; i++ {
		buf[i] = byte(payload >> (8 * i))
	}
	return string(buf)
}

// InlineLen returns the byte length of a packed short string.
func (v Value) InlineLen() int {
	return int((uint64(v) & inlineLenMask) >> inlineLenShift)
}

// IsError reports whether v is error-tagged. Every evaluation step
// checks this on its operands and propagates errors unchanged.
func (v Value) IsError() bool {
	return v.Tag() == TagError
}

// IsString reports whether v is a string in either representation.
func (v Value) IsString() bool {
	t := v.Tag()
	return t == TagString || t == TagInlineString
}

// IsHeapRef reports whether v carries an arena offset the collector
// must trace.
func (v Value) IsHeapRef() bool {
	switch v.Tag() {
	case TagObject, TagProperty, TagString, TagFunction, TagCodeRef:
		return true
	case TagError:
		return v.ErrorMessageRef() != 0
	}
	return false
}

// TypeName returns the typeof-style name for v.
func (v Value) TypeName() string {
	switch v.Tag() {
	case TagNumber:
		return "number"
	case TagString, TagInlineString:
		return "string"
	case TagBoolean:
		return "boolean"
	case TagUndefined:
		return "undefined"
	case TagNull, TagObject, TagProperty:
		return "object"
	case TagFunction, TagNative, TagCodeRef:
		return "function"
	case TagError:
		return "error"
	}
	return "undefined"
}
