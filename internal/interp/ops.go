package interp

import (
	"math"

	"github.com/TangJia025/simplejs/internal/token"
	"github.com/TangJia025/simplejs/internal/value"
)

// binaryOp applies an already-parsed operator. Error operands
// propagate unchanged; evaluation never continues past one.
func (e *Interp) binaryOp(op token.Type, l, r value.Value) value.Value {
	if l.IsError() {
		return l
	}
	if r.IsError() {
		return r
	}
	switch op {
	case token.PLUS:
		if l.IsNumber() && r.IsNumber() {
			return value.Number(l.Float() + r.Float())
		}
		if l.IsString() && r.IsString() {
			// Both sides are copied out before allocating, so a
			// collection during newString cannot invalidate them.
			return e.newString(e.a.StringValue(l) + e.a.StringValue(r))
		}
		return e.errorf(value.ErrType, "cannot add %s and %s", l.TypeName(), r.TypeName())
	case token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT:
		if !l.IsNumber() || !r.IsNumber() {
			return e.errorf(value.ErrType, "arithmetic on %s and %s", l.TypeName(), r.TypeName())
		}
		lf, rf := l.Float(), r.Float()
		switch op {
		case token.MINUS:
			return value.Number(lf - rf)
		case token.ASTERISK:
			return value.Number(lf * rf)
		case token.SLASH:
			return value.Number(lf / rf)
		default:
			return value.Number(math.Mod(lf, rf))
		}
	case token.LT, token.GT, token.LTEQ, token.GTEQ:
		return e.compare(op, l, r)
	case token.EQ:
		return value.Boolean(e.equals(l, r))
	case token.NOTEQ:
		return value.Boolean(!e.equals(l, r))
	case token.BITAND, token.BITOR, token.BITXOR, token.SHL, token.SHR:
		if !l.IsNumber() || !r.IsNumber() {
			return e.errorf(value.ErrType, "bitwise operator on %s and %s", l.TypeName(), r.TypeName())
		}
		li, ri := toInt32(l.Float()), toInt32(r.Float())
		switch op {
		case token.BITAND:
			return value.Number(float64(li & ri))
		case token.BITOR:
			return value.Number(float64(li | ri))
		case token.BITXOR:
			return value.Number(float64(li ^ ri))
		case token.SHL:
			return value.Number(float64(li << (uint32(ri) & 31)))
		default:
			return value.Number(float64(li >> (uint32(ri) & 31)))
		}
	}
	return e.errorf(value.ErrInternal, "unhandled operator '%s'", op)
}

func (e *Interp) compare(op token.Type, l, r value.Value) value.Value {
	if l.IsNumber() && r.IsNumber() {
		lf, rf := l.Float(), r.Float()
		if lf != lf || rf != rf {
			return value.Boolean(false)
		}
		switch op {
		case token.LT:
			return value.Boolean(lf < rf)
		case token.GT:
			return value.Boolean(lf > rf)
		case token.LTEQ:
			return value.Boolean(lf <= rf)
		default:
			return value.Boolean(lf >= rf)
		}
	}
	if l.IsString() && r.IsString() {
		ls, rs := e.a.StringValue(l), e.a.StringValue(r)
		switch op {
		case token.LT:
			return value.Boolean(ls < rs)
		case token.GT:
			return value.Boolean(ls > rs)
		case token.LTEQ:
			return value.Boolean(ls <= rs)
		default:
			return value.Boolean(ls >= rs)
		}
	}
	return e.errorf(value.ErrType, "cannot compare %s and %s", l.TypeName(), r.TypeName())
}

func (e *Interp) equals(l, r value.Value) bool {
	if l.IsNumber() && r.IsNumber() {
		lf, rf := l.Float(), r.Float()
		if lf != lf || rf != rf {
			return false
		}
		return lf == rf
	}
	if l.IsString() && r.IsString() {
		return e.a.StringValue(l) == e.a.StringValue(r)
	}
	lt, rt := l.Tag(), r.Tag()
	if lt != rt {
		return false
	}
	switch lt {
	case value.TagBoolean:
		return l.Bool() == r.Bool()
	case value.TagNull, value.TagUndefined:
		return true
	case value.TagObject, value.TagFunction, value.TagProperty, value.TagCodeRef:
		return l.Ref() == r.Ref()
	case value.TagNative:
		return l.NativeIndex() == r.NativeIndex()
	}
	return l == r
}

// toInt32 mirrors the usual double-to-int32 conversion: truncate, wrap
// modulo 2^32, reinterpret as signed.
func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	t := math.Trunc(f)
	t = math.Mod(t, 4294967296)
	return int32(uint32(int64(t)))
}
