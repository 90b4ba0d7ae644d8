// Package simplejs provides the high-level embedding API for the
// engine: create an instance over a caller-owned buffer, evaluate
// source text, exchange values, and register native functions.
//
// An Engine is single-owner: use from one goroutine at a time. Every
// failure surfaces as an error-tagged Value from Eval, never a panic.
package simplejs

import (
	"github.com/google/uuid"

	"github.com/TangJia025/simplejs/internal/config"
	"github.com/TangJia025/simplejs/internal/interp"
	"github.com/TangJia025/simplejs/internal/value"
)

// Value is the engine's 64-bit tagged value.
type Value = value.Value

// Type identifies a Value's decoded type.
type Type = value.Tag

// ErrorKind distinguishes the error taxonomy.
type ErrorKind = value.ErrorKind

// Stats reports arena usage.
type Stats = interp.Stats

const (
	TypeNumber    = value.TagNumber
	TypeObject    = value.TagObject
	TypeString    = value.TagString
	TypeBoolean   = value.TagBoolean
	TypeUndefined = value.TagUndefined
	TypeNull      = value.TagNull
	TypeFunction  = value.TagFunction
	TypeError     = value.TagError
)

const (
	ErrSyntax    = value.ErrSyntax
	ErrReference = value.ErrReference
	ErrType      = value.ErrType
	ErrRange     = value.ErrRange
	ErrOOM       = value.ErrOOM
	ErrInternal  = value.ErrInternal
)

// NativeFunc is a host function callable from script. Arguments are
// passed by value and remain live for the duration of the call.
type NativeFunc func(e *Engine, args []Value) Value

// Engine wraps one interpreter instance over one fixed buffer.
type Engine struct {
	it *interp.Interp
	id uuid.UUID
}

// New initializes an engine over the exact caller-owned memory region.
// It fails when the buffer is below the minimum viable size.
func New(buf []byte) (*Engine, error) {
	it, err := interp.New(buf)
	if err != nil {
		return nil, err
	}
	return &Engine{it: it, id: uuid.New()}, nil
}

// NewWithSize allocates a fresh buffer of n bytes (the original
// engine's default is 16 KiB) and hands it to New.
func NewWithSize(n int) (*Engine, error) {
	if n <= 0 {
		n = config.DefaultArenaSize
	}
	return New(make([]byte, n))
}

// ID returns the engine's instance id.
func (e *Engine) ID() string { return e.id.String() }

// Eval parses and executes source text, returning the last statement's
// value or an error-tagged Value.
func (e *Engine) Eval(src string) Value {
	return e.it.Eval(src)
}

// GlobalObject returns the global object.
func (e *Engine) GlobalObject() Value {
	return e.it.Global()
}

// SetProperty overwrites-or-appends key on obj.
func (e *Engine) SetProperty(obj Value, key string, v Value) Value {
	return e.it.SetProperty(obj, key, v)
}

// GetProperty returns Undefined for absent keys.
func (e *Engine) GetProperty(obj Value, key string) Value {
	return e.it.GetProperty(obj, key)
}

// CreateString allocates a string value (short strings are packed
// inline and cost nothing).
func (e *Engine) CreateString(s string) Value {
	return e.it.NewString(s)
}

// CreateObject allocates an empty object.
func (e *Engine) CreateObject() Value {
	return e.it.NewObject()
}

// CreateError builds an error value of the given kind.
func (e *Engine) CreateError(kind ErrorKind, msg string) Value {
	return e.it.NewError(kind, msg)
}

// CreateFunction wraps a native function as an unbound value.
func (e *Engine) CreateFunction(fn NativeFunc) Value {
	return e.it.RegisterNative(func(_ *interp.Interp, args []Value) Value {
		return fn(e, args)
	})
}

// Register binds a native function to a name on the global object and
// returns its value.
func (e *Engine) Register(name string, fn NativeFunc) Value {
	v := e.CreateFunction(fn)
	if res := e.it.SetProperty(e.it.Global(), name, v); res.IsError() {
		return res
	}
	return v
}

// Basic value constructors. These are pure bit operations; no engine
// is needed.

func Number(f float64) Value { return value.Number(f) }
func Boolean(b bool) Value   { return value.Boolean(b) }
func Undefined() Value       { return value.Undefined() }
func Null() Value            { return value.Null() }
func IsError(v Value) bool   { return v.IsError() }
func TypeOf(v Value) Type    { return v.Tag() }

// Truthy applies the engine's condition semantics (needs the arena to
// inspect heap strings).
func (e *Engine) Truthy(v Value) bool {
	return e.it.Truthy(v)
}

// ToString renders v for display.
func (e *Engine) ToString(v Value) string {
	return e.it.ToString(v)
}

// ToFloat decodes a number value. A non-number value decodes as NaN;
// callers that have not checked TypeOf should use AsNumber instead.
func (e *Engine) ToFloat(v Value) float64 {
	return v.Float()
}

// AsNumber decodes v when it is a number; ok is false for every other
// type, distinguishing a real NaN result from a non-number value.
func AsNumber(v Value) (float64, bool) {
	return v.AsNumber()
}

// SetGCThreshold configures the byte threshold that triggers an
// automatic collection cycle.
func (e *Engine) SetGCThreshold(bytes int) {
	e.it.SetGCThreshold(bytes)
}

// SetMaxCallStackBytes bounds nested evaluation depth; exceeding it
// yields a RangeError.
func (e *Engine) SetMaxCallStackBytes(n int) {
	e.it.SetMaxCallStackBytes(n)
}

// Stats returns current arena usage and collector counters.
func (e *Engine) Stats() Stats {
	return e.it.Stats()
}

// Collect runs an on-demand collection cycle.
func (e *Engine) Collect() {
	e.it.Collect()
}
