package interp

import (
	"strconv"

	"github.com/TangJia025/simplejs/internal/lexer"
	"github.com/TangJia025/simplejs/internal/token"
	"github.com/TangJia025/simplejs/internal/value"
)

// Operator precedence, climbing from logical up to multiplicative.
// Unary and postfix bind tighter and are handled structurally.
var precedences = map[token.Type]int{
	token.OR:       1,
	token.AND:      2,
	token.BITOR:    3,
	token.BITXOR:   4,
	token.BITAND:   5,
	token.EQ:       6,
	token.NOTEQ:    6,
	token.LT:       7,
	token.GT:       7,
	token.LTEQ:     7,
	token.GTEQ:     7,
	token.SHL:      8,
	token.SHR:      8,
	token.PLUS:     9,
	token.MINUS:    9,
	token.ASTERISK: 10,
	token.SLASH:    10,
	token.PERCENT:  10,
}

type refKind uint8

const (
	refNone refKind = iota
	refName
	refMember
)

// lref tracks the store target a subexpression denotes, so that `=`
// can assign without re-parsing the left side.
type lref struct {
	kind refKind
	name string
	obj  value.Value
	key  string
}

// expression parses and immediately evaluates one expression. Each
// nested entry is charged against the call-stack budget.
func (e *Interp) expression() value.Value {
	if fail := e.enter(); fail.IsError() {
		return fail
	}
	defer e.leave()
	v, _ := e.assignment()
	return v
}

func (e *Interp) assignment() (value.Value, lref) {
	left, ref := e.binary(1)
	if e.tok.Type != token.ASSIGN {
		return left, ref
	}
	off := e.tok.Offset
	e.next()

	rootedBase := false
	if e.exec() && ref.kind == refMember {
		e.push(ref.obj)
		rootedBase = true
	}
	rhs, _ := e.assignment()
	if rootedBase {
		e.popn(1)
	}
	if rhs.IsError() {
		return rhs, lref{}
	}
	if !e.exec() {
		return rhs, lref{}
	}
	switch ref.kind {
	case refName:
		return e.assign(ref.name, rhs), lref{}
	case refMember:
		if res := e.SetProperty(ref.obj, ref.key, rhs); res.IsError() {
			return res, lref{}
		}
		return rhs, lref{}
	}
	return e.syntaxErrorf(off, "invalid assignment target"), lref{}
}

func (e *Interp) binary(minPrec int) (value.Value, lref) {
	left, ref := e.unary()
	for {
		prec, ok := precedences[e.tok.Type]
		if !ok || prec < minPrec {
			return left, ref
		}
		op := e.tok.Type
		e.next()

		if op == token.AND || op == token.OR {
			take := false
			if e.exec() && !left.IsError() {
				if op == token.AND {
					take = e.Truthy(left)
				} else {
					take = !e.Truthy(left)
				}
			}
			if take {
				right, _ := e.binary(prec + 1)
				left = right
			} else {
				e.noexec++
				e.binary(prec + 1)
				e.noexec--
			}
			ref = lref{}
			continue
		}

		// Keep the left operand rooted; the right side may allocate
		// and trigger a collection.
		rooted := false
		if e.exec() {
			e.push(left)
			rooted = true
		}
		right, _ := e.binary(prec + 1)
		if rooted {
			e.popn(1)
		}
		if e.exec() {
			left = e.binaryOp(op, left, right)
		}
		ref = lref{}
	}
}

func (e *Interp) unary() (value.Value, lref) {
	switch e.tok.Type {
	case token.BANG:
		e.next()
		v, _ := e.unary()
		if v.IsError() || !e.exec() {
			return v, lref{}
		}
		return value.Boolean(!e.Truthy(v)), lref{}
	case token.MINUS:
		off := e.tok.Offset
		e.next()
		v, _ := e.unary()
		if v.IsError() || !e.exec() {
			return v, lref{}
		}
		if !v.IsNumber() {
			return e.errorf(value.ErrType, "unary '-' applied to %s at offset %d", v.TypeName(), off), lref{}
		}
		return value.Number(-v.Float()), lref{}
	case token.TILDE:
		off := e.tok.Offset
		e.next()
		v, _ := e.unary()
		if v.IsError() || !e.exec() {
			return v, lref{}
		}
		if !v.IsNumber() {
			return e.errorf(value.ErrType, "unary '~' applied to %s at offset %d", v.TypeName(), off), lref{}
		}
		return value.Number(float64(^toInt32(v.Float()))), lref{}
	case token.TYPEOF:
		e.next()
		v, _ := e.unary()
		if !e.exec() {
			return value.Undefined(), lref{}
		}
		// typeof of an unbound name is "undefined", not an error.
		if v.IsError() {
			if v.ErrorKind() == value.ErrReference {
				return e.newString("undefined"), lref{}
			}
			return v, lref{}
		}
		return e.newString(v.TypeName()), lref{}
	}
	return e.postfix()
}

func (e *Interp) postfix() (value.Value, lref) {
	left, ref := e.primary()
	for {
		switch e.tok.Type {
		case token.DOT:
			e.next()
			if e.tok.Type != token.IDENT {
				return e.syntaxErrorf(e.tok.Offset, "expected property name"), lref{}
			}
			key := e.tok.Literal
			e.next()
			if !e.exec() || left.IsError() {
				ref = lref{}
				continue
			}
			base := left
			left = e.GetProperty(base, key)
			ref = lref{kind: refMember, obj: base, key: key}
		case token.LBRACKET:
			e.next()
			rooted := false
			if e.exec() {
				e.push(left)
				rooted = true
			}
			idx := e.expression()
			if rooted {
				e.popn(1)
			}
			if e.tok.Type != token.RBRACKET {
				return e.syntaxErrorf(e.tok.Offset, "expected ']'"), lref{}
			}
			e.next()
			if !e.exec() || left.IsError() {
				ref = lref{}
				continue
			}
			if idx.IsError() {
				return idx, lref{}
			}
			base := left
			key := e.ToString(idx)
			left = e.GetProperty(base, key)
			ref = lref{kind: refMember, obj: base, key: key}
		case token.LPAREN:
			left = e.callExpr(left)
			ref = lref{}
		default:
			return left, ref
		}
	}
}

// callExpr evaluates arguments left-to-right and dispatches on the
// callee. The callee is rooted before the first argument is evaluated;
// argument expressions may allocate and collect, and the callee may be
// reachable through nothing else (an immediately-invoked function
// expression). Arguments then stay on the root stack for the duration
// of the call, which makes them the collector's argument-buffer root.
func (e *Interp) callExpr(callee value.Value) value.Value {
	lparen := e.tok.Offset
	e.next()
	rooted := 0
	if e.exec() && !callee.IsError() {
		e.push(callee)
		rooted++
	}
	var args []value.Value
	for e.tok.Type != token.RPAREN && e.tok.Type != token.EOF {
		v := e.expression()
		if v.IsError() {
			e.popn(rooted)
			return v
		}
		if e.exec() {
			e.push(v)
			rooted++
		}
		args = append(args, v)
		if e.tok.Type == token.COMMA {
			e.next()
			continue
		}
		break
	}
	if e.tok.Type != token.RPAREN {
		e.popn(rooted)
		return e.syntaxErrorf(lparen, "unclosed argument list")
	}
	e.next()

	if !e.exec() {
		return value.Undefined()
	}
	if callee.IsError() {
		e.popn(rooted)
		return callee
	}
	var res value.Value
	switch callee.Tag() {
	case value.TagFunction:
		res = e.callClosure(callee, args)
	case value.TagNative:
		res = e.callNative(callee, args)
	default:
		res = e.errorf(value.ErrType, "%s is not a function", callee.TypeName())
	}
	e.popn(rooted)
	return res
}

func (e *Interp) primary() (value.Value, lref) {
	switch e.tok.Type {
	case token.NUMBER:
		lit := e.tok.Literal
		off := e.tok.Offset
		e.next()
		f, err := parseNumber(lit)
		if err != nil {
			return e.syntaxErrorf(off, "malformed number literal '%s'", lit), lref{}
		}
		return value.Number(f), lref{}
	case token.STRING:
		lit := e.tok.Literal
		e.next()
		if !e.exec() {
			return value.Undefined(), lref{}
		}
		return e.newString(lit), lref{}
	case token.IDENT:
		name := e.tok.Literal
		e.next()
		ref := lref{kind: refName, name: name}
		if !e.exec() {
			return value.Undefined(), ref
		}
		if p, ok := e.resolve(name); ok {
			return e.a.PropValue(p), ref
		}
		return e.errorf(value.ErrReference, "'%s' is not defined", name), ref
	case token.TRUE:
		e.next()
		return value.Boolean(true), lref{}
	case token.FALSE:
		e.next()
		return value.Boolean(false), lref{}
	case token.NULL:
		e.next()
		return value.Null(), lref{}
	case token.UNDEFINED:
		e.next()
		return value.Undefined(), lref{}
	case token.LPAREN:
		e.next()
		v := e.expression()
		if e.tok.Type != token.RPAREN {
			return e.syntaxErrorf(e.tok.Offset, "expected ')'"), lref{}
		}
		e.next()
		return v, lref{}
	case token.LBRACE:
		return e.objectLiteral(), lref{}
	case token.FUNCTION:
		e.next()
		if e.tok.Type == token.IDENT {
			// Named function expression; the name is not bound.
			e.next()
		}
		return e.functionLiteral(), lref{}
	case token.ILLEGAL:
		return e.syntaxErrorf(e.tok.Offset, "%s", illegalDesc(e.tok)), lref{}
	case token.EOF:
		return e.syntaxErrorf(e.tok.Offset, "unexpected end of input"), lref{}
	}
	return e.syntaxErrorf(e.tok.Offset, "unexpected token '%s'", e.tok.Literal), lref{}
}

func illegalDesc(t token.Token) string {
	if len(t.Literal) > 1 {
		return t.Literal
	}
	return "unexpected character '" + t.Literal + "'"
}

func parseNumber(lit string) (float64, error) {
	if len(lit) > 2 && (lit[1] == 'x' || lit[1] == 'X') {
		u, err := strconv.ParseUint(lit[2:], 16, 64)
		return float64(u), err
	}
	return strconv.ParseFloat(lit, 64)
}

func (e *Interp) objectLiteral() value.Value {
	// current token is '{'
	e.next()
	obj := value.Undefined()
	rooted := false
	if e.exec() {
		obj = e.newObject()
		if obj.IsError() {
			return obj
		}
		e.push(obj)
		rooted = true
	}
	fail := func(v value.Value) value.Value {
		if rooted {
			e.popn(1)
		}
		return v
	}
	for e.tok.Type != token.RBRACE {
		if e.tok.Type != token.IDENT && e.tok.Type != token.STRING {
			return fail(e.syntaxErrorf(e.tok.Offset, "expected property key"))
		}
		key := e.tok.Literal
		e.next()
		if e.tok.Type != token.COLON {
			return fail(e.syntaxErrorf(e.tok.Offset, "expected ':' after property key"))
		}
		e.next()
		v := e.expression()
		if v.IsError() {
			return fail(v)
		}
		if e.exec() {
			if res := e.SetProperty(obj, key, v); res.IsError() {
				return fail(res)
			}
		}
		if e.tok.Type == token.COMMA {
			e.next()
			continue
		}
		break
	}
	if e.tok.Type != token.RBRACE {
		return fail(e.syntaxErrorf(e.tok.Offset, "expected '}'"))
	}
	e.next()
	if rooted {
		e.popn(1)
	}
	return obj
}

// functionLiteral captures the function's source text "(params){body}"
// into an arena string and builds a closure over the current scope.
// The body is recognized in noexec mode; it runs only when called.
func (e *Interp) functionLiteral() value.Value {
	start := e.tok.Offset
	if e.tok.Type != token.LPAREN {
		return e.syntaxErrorf(e.tok.Offset, "expected parameter list")
	}
	e.next()
	for e.tok.Type != token.RPAREN {
		if e.tok.Type != token.IDENT {
			return e.syntaxErrorf(e.tok.Offset, "expected parameter name")
		}
		e.next()
		if e.tok.Type == token.COMMA {
			e.next()
			continue
		}
		break
	}
	if e.tok.Type != token.RPAREN {
		return e.syntaxErrorf(e.tok.Offset, "expected ')'")
	}
	e.next()
	if e.tok.Type != token.LBRACE {
		return e.syntaxErrorf(e.tok.Offset, "expected function body")
	}
	e.next()
	e.noexec++
	for e.tok.Type != token.RBRACE && e.tok.Type != token.EOF {
		if res := e.statement(); res.IsError() {
			e.noexec--
			return res
		}
	}
	e.noexec--
	if e.tok.Type != token.RBRACE {
		return e.syntaxErrorf(e.tok.Offset, "unexpected end of input in function body")
	}
	end := e.tok.Offset + 1
	e.next()

	if !e.exec() {
		return value.Undefined()
	}
	code := e.src[start:end]
	var codeOff uint32
	if fail := e.allocRetry(4+len(code), func() error {
		o, err := e.a.NewHeapString(code)
		codeOff = o
		return err
	}); fail.IsError() {
		return fail
	}
	e.push(value.Ref(value.TagCodeRef, codeOff))
	fn := e.newClosure(e.scope.Ref(), codeOff)
	e.popn(1)
	return fn
}

// callClosure re-parses the closure's captured source with a fresh
// scope frame parented on the defining scope. Lexical, not dynamic:
// the caller's scope is saved and never visible to the body.
func (e *Interp) callClosure(fn value.Value, args []value.Value) value.Value {
	if fail := e.enter(); fail.IsError() {
		return fail
	}
	defer e.leave()

	off := fn.Ref()
	code := string(e.a.StringBytes(e.a.ClosureCode(off)))
	captured := e.a.ClosureScope(off)

	frame := e.newScopeFrame(captured, true)
	if frame.IsError() {
		return frame
	}

	savedSrc, savedLx, savedTok, savedScope := e.src, e.lx, e.tok, e.scope
	restore := func() {
		e.src, e.lx, e.tok, e.scope = savedSrc, savedLx, savedTok, savedScope
	}
	e.scope = frame
	e.src = code
	e.lx = lexer.New(code)
	e.next()

	// Parameter binding, positional; missing arguments are undefined.
	if e.tok.Type != token.LPAREN {
		restore()
		return e.errorf(value.ErrInternal, "corrupt function code")
	}
	e.next()
	i := 0
	for e.tok.Type == token.IDENT {
		name := e.tok.Literal
		e.next()
		arg := value.Undefined()
		if i < len(args) {
			arg = args[i]
		}
		if fail := e.declare(token.LET, name, arg); fail.IsError() {
			restore()
			return fail
		}
		i++
		if e.tok.Type == token.COMMA {
			e.next()
		}
	}
	if e.tok.Type != token.RPAREN {
		restore()
		return e.errorf(value.ErrInternal, "corrupt function code")
	}
	e.next()
	if e.tok.Type != token.LBRACE {
		restore()
		return e.errorf(value.ErrInternal, "corrupt function code")
	}
	e.next()

	for e.tok.Type != token.RBRACE && e.tok.Type != token.EOF {
		res := e.statement()
		if res.IsError() {
			restore()
			return res
		}
		switch e.ctrl {
		case ctrlReturn:
			e.ctrl = ctrlNone
			restore()
			return e.retVal
		case ctrlBreak:
			restore()
			return e.errorf(value.ErrSyntax, "illegal break outside loop")
		}
	}
	restore()
	return value.Undefined()
}
