package interp

import (
	"github.com/TangJia025/simplejs/internal/value"
)

// NativeFunc is the host-side calling convention. Arguments arrive by
// value (immediates or arena offsets) and stay rooted for the duration
// of the call; a native may allocate through the engine and may
// trigger a collection. It must not retain arena offsets beyond the
// call unless a reachable binding keeps them live.
type NativeFunc func(e *Interp, args []value.Value) value.Value

// RegisterNative stores fn in the engine's native table and returns a
// function-typed Value the embedder can bind to a name.
func (e *Interp) RegisterNative(fn NativeFunc) value.Value {
	e.natives = append(e.natives, fn)
	return value.Native(len(e.natives) - 1)
}

func (e *Interp) callNative(fn value.Value, args []value.Value) value.Value {
	idx := fn.NativeIndex()
	if idx < 0 || idx >= len(e.natives) {
		return e.errorf(value.ErrInternal, "native function index out of range")
	}
	return e.natives[idx](e, args)
}
