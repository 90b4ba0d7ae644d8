package interp

import (
	"github.com/TangJia025/simplejs/internal/arena"
	"github.com/TangJia025/simplejs/internal/token"
	"github.com/TangJia025/simplejs/internal/value"
)

// Scope frames are ordinary arena objects chained through their parent
// offset, so the collector traces the whole chain from the single
// current-scope root.

func (e *Interp) pushScope(fnFrame bool) value.Value {
	frame := e.newScopeFrame(e.scope.Ref(), fnFrame)
	if frame.IsError() {
		return frame
	}
	e.scope = frame
	return frame
}

func (e *Interp) popScope() {
	parent := e.a.ObjectParent(e.scope.Ref())
	if parent == 0 {
		// Never pop the global frame.
		e.scope = e.global
		return
	}
	e.scope = value.Ref(value.TagObject, parent)
}

// resolve walks the chain from the innermost frame outward and returns
// the first matching binding's property record.
func (e *Interp) resolve(name string) (uint32, bool) {
	off := e.scope.Ref()
	for off != 0 {
		if p, ok := e.a.FindProp(off, name); ok {
			return p, true
		}
		off = e.a.ObjectParent(off)
	}
	return 0, false
}

// hoistFrame returns the frame a declaration binds to: the current
// frame for let/const, the nearest function (or global) frame for var.
func (e *Interp) hoistFrame(declKind token.Type) uint32 {
	off := e.scope.Ref()
	if declKind != token.VAR {
		return off
	}
	for !e.a.IsFuncFrame(off) {
		parent := e.a.ObjectParent(off)
		if parent == 0 {
			break
		}
		off = parent
	}
	return off
}

// declare binds name in the frame chosen by the declaration form.
func (e *Interp) declare(declKind token.Type, name string, v value.Value) value.Value {
	frame := e.hoistFrame(declKind)
	p, ok := e.a.FindProp(frame, name)
	if !ok {
		var fail value.Value
		p, fail = e.addProp(frame, name, v)
		if fail.IsError() {
			return fail
		}
	} else if err := e.a.SetPropValue(p, v); err == arena.ErrReadonly {
		return e.errorf(value.ErrType, "assignment to constant variable '%s'", name)
	}
	if declKind == token.CONST {
		e.a.SetPropReadonly(p)
	}
	return v
}

// assign stores into an existing binding; there is no implicit global
// creation, an unbound name is a ReferenceError.
func (e *Interp) assign(name string, v value.Value) value.Value {
	p, ok := e.resolve(name)
	if !ok {
		return e.errorf(value.ErrReference, "'%s' is not defined", name)
	}
	if err := e.a.SetPropValue(p, v); err == arena.ErrReadonly {
		return e.errorf(value.ErrType, "assignment to constant variable '%s'", name)
	}
	return v
}

// addProp allocates the key string and property record with both
// rooted across possible collections.
func (e *Interp) addProp(obj uint32, key string, v value.Value) (uint32, value.Value) {
	e.push(value.Ref(value.TagObject, obj))
	e.push(v)
	var keyOff uint32
	if fail := e.allocRetry(4+len(key), func() error {
		o, err := e.a.NewHeapString(key)
		keyOff = o
		return err
	}); fail.IsError() {
		e.popn(2)
		return 0, fail
	}
	e.push(value.Ref(value.TagString, keyOff))
	var p uint32
	fail := e.allocRetry(16, func() error {
		off, err := e.a.AddProp(obj, keyOff, v)
		p = off
		return err
	})
	e.popn(3)
	if fail.IsError() {
		return 0, fail
	}
	return p, value.Undefined()
}

// SetProperty overwrites-or-appends key on an object value.
func (e *Interp) SetProperty(obj value.Value, key string, v value.Value) value.Value {
	if t := obj.Tag(); t != value.TagObject && t != value.TagFunction {
		return e.errorf(value.ErrType, "cannot set property '%s' on %s", key, obj.TypeName())
	}
	off := obj.Ref()
	if p, ok := e.a.FindProp(off, key); ok {
		if err := e.a.SetPropValue(p, v); err == arena.ErrReadonly {
			return e.errorf(value.ErrType, "property '%s' is readonly", key)
		}
		return v
	}
	if _, fail := e.addProp(off, key, v); fail.IsError() {
		return fail
	}
	return v
}

// GetProperty returns the undefined immediate for absent keys; it
// never fails on a missing key.
func (e *Interp) GetProperty(obj value.Value, key string) value.Value {
	if t := obj.Tag(); t != value.TagObject && t != value.TagFunction {
		return e.errorf(value.ErrType, "cannot read property '%s' of %s", key, obj.TypeName())
	}
	if p, ok := e.a.FindProp(obj.Ref(), key); ok {
		return e.a.PropValue(p)
	}
	return value.Undefined()
}
