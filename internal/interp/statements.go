package interp

import (
	"github.com/TangJia025/simplejs/internal/token"
	"github.com/TangJia025/simplejs/internal/value"
)

// statement recognizes and evaluates one statement, returning its
// value (the REPL and top-level eval report the last one).
func (e *Interp) statement() value.Value {
	switch e.tok.Type {
	case token.LET, token.VAR, token.CONST:
		return e.declStatement()
	case token.IF:
		return e.ifStatement()
	case token.WHILE:
		return e.whileStatement()
	case token.FOR:
		return e.forStatement()
	case token.BREAK:
		e.next()
		e.eatSemi()
		if e.exec() {
			e.ctrl = ctrlBreak
		}
		return value.Undefined()
	case token.RETURN:
		return e.returnStatement()
	case token.LBRACE:
		return e.blockStatement()
	case token.FUNCTION:
		return e.functionStatement()
	case token.SEMICOLON:
		e.next()
		return value.Undefined()
	}
	v := e.expression()
	e.eatSemi()
	return v
}

func (e *Interp) eatSemi() {
	if e.tok.Type == token.SEMICOLON {
		e.next()
	}
}

func (e *Interp) declStatement() value.Value {
	kind := e.tok.Type
	e.next()
	for {
		if e.tok.Type != token.IDENT {
			return e.syntaxErrorf(e.tok.Offset, "expected identifier in declaration")
		}
		name := e.tok.Literal
		nameOff := e.tok.Offset
		e.next()
		v := value.Undefined()
		if e.tok.Type == token.ASSIGN {
			e.next()
			v = e.expression()
			if v.IsError() {
				return v
			}
		} else if kind == token.CONST {
			return e.syntaxErrorf(nameOff, "missing initializer in const declaration")
		}
		if e.exec() {
			if fail := e.declare(kind, name, v); fail.IsError() {
				return fail
			}
		}
		if e.tok.Type == token.COMMA {
			e.next()
			continue
		}
		break
	}
	e.eatSemi()
	return value.Undefined()
}

func (e *Interp) returnStatement() value.Value {
	e.next()
	v := value.Undefined()
	if e.tok.Type != token.SEMICOLON && e.tok.Type != token.RBRACE && e.tok.Type != token.EOF {
		v = e.expression()
		if v.IsError() {
			return v
		}
	}
	e.eatSemi()
	if e.exec() {
		e.retVal = v
		e.ctrl = ctrlReturn
	}
	return v
}

// blockStatement pushes a fresh block frame. Once a control signal is
// raised mid-block, the remaining statements are recognized but not
// evaluated, keeping the parse position consistent.
func (e *Interp) blockStatement() value.Value {
	open := e.tok.Offset
	e.next()
	pushed := false
	if e.exec() {
		if f := e.pushScope(false); f.IsError() {
			return f
		}
		pushed = true
	}
	leave := func(v value.Value) value.Value {
		if pushed {
			e.popScope()
		}
		return v
	}
	res := value.Undefined()
	for e.tok.Type != token.RBRACE && e.tok.Type != token.EOF {
		if e.exec() && e.ctrl == ctrlNone {
			res = e.statement()
			if res.IsError() {
				return leave(res)
			}
		} else {
			e.noexec++
			s := e.statement()
			e.noexec--
			if s.IsError() {
				return leave(s)
			}
		}
	}
	if e.tok.Type != token.RBRACE {
		return leave(e.syntaxErrorf(open, "unclosed block"))
	}
	e.next()
	return leave(res)
}

func (e *Interp) ifStatement() value.Value {
	e.next()
	if e.tok.Type != token.LPAREN {
		return e.syntaxErrorf(e.tok.Offset, "expected '(' after if")
	}
	e.next()
	cond := e.expression()
	if cond.IsError() {
		return cond
	}
	if e.tok.Type != token.RPAREN {
		return e.syntaxErrorf(e.tok.Offset, "expected ')'")
	}
	e.next()

	takeThen := e.exec() && e.Truthy(cond)
	var res value.Value
	if takeThen {
		res = e.statement()
	} else {
		e.noexec++
		res = e.statement()
		e.noexec--
	}
	if res.IsError() {
		return res
	}
	if e.tok.Type == token.ELSE {
		e.next()
		if e.exec() && !takeThen {
			res = e.statement()
		} else {
			e.noexec++
			s := e.statement()
			e.noexec--
			if s.IsError() {
				return s
			}
		}
	}
	if !e.exec() {
		return value.Undefined()
	}
	return res
}

// whileStatement re-scans the condition and body from their recorded
// offsets on every iteration; no syntax tree is kept.
func (e *Interp) whileStatement() value.Value {
	e.next()
	if e.tok.Type != token.LPAREN {
		return e.syntaxErrorf(e.tok.Offset, "expected '(' after while")
	}
	e.next()
	condOff := e.tok.Offset
	for {
		e.seek(condOff)
		cond := e.expression()
		if cond.IsError() {
			return cond
		}
		if e.tok.Type != token.RPAREN {
			return e.syntaxErrorf(e.tok.Offset, "expected ')'")
		}
		e.next()

		if !e.exec() || !e.Truthy(cond) {
			e.noexec++
			s := e.statement()
			e.noexec--
			if s.IsError() {
				return s
			}
			return value.Undefined()
		}
		res := e.statement()
		if res.IsError() {
			return res
		}
		if e.ctrl == ctrlBreak {
			e.ctrl = ctrlNone
			return value.Undefined()
		}
		if e.ctrl == ctrlReturn {
			return value.Undefined()
		}
	}
}

func (e *Interp) forStatement() value.Value {
	e.next()
	if e.tok.Type != token.LPAREN {
		return e.syntaxErrorf(e.tok.Offset, "expected '(' after for")
	}
	e.next()

	pushed := false
	if e.exec() {
		if f := e.pushScope(false); f.IsError() {
			return f
		}
		pushed = true
	}
	leave := func(v value.Value) value.Value {
		if pushed {
			e.popScope()
		}
		return v
	}

	// init
	switch e.tok.Type {
	case token.SEMICOLON:
		e.next()
	case token.LET, token.VAR, token.CONST:
		if res := e.declStatement(); res.IsError() {
			return leave(res)
		}
	default:
		if v := e.expression(); v.IsError() {
			return leave(v)
		}
		if e.tok.Type != token.SEMICOLON {
			return leave(e.syntaxErrorf(e.tok.Offset, "expected ';' in for"))
		}
		e.next()
	}

	// Record offsets, recognizing cond and post without evaluating.
	condOff := e.tok.Offset
	if e.tok.Type != token.SEMICOLON {
		e.noexec++
		v := e.expression()
		e.noexec--
		if v.IsError() {
			return leave(v)
		}
	}
	if e.tok.Type != token.SEMICOLON {
		return leave(e.syntaxErrorf(e.tok.Offset, "expected ';' in for"))
	}
	e.next()
	postOff := e.tok.Offset
	if e.tok.Type != token.RPAREN {
		e.noexec++
		v := e.expression()
		e.noexec--
		if v.IsError() {
			return leave(v)
		}
	}
	if e.tok.Type != token.RPAREN {
		return leave(e.syntaxErrorf(e.tok.Offset, "expected ')'"))
	}
	e.next()
	bodyOff := e.tok.Offset

	if e.exec() {
		for {
			e.seek(condOff)
			run := true
			if e.tok.Type != token.SEMICOLON {
				c := e.expression()
				if c.IsError() {
					return leave(c)
				}
				run = e.Truthy(c)
			}
			if !run {
				break
			}
			e.seek(bodyOff)
			res := e.statement()
			if res.IsError() {
				return leave(res)
			}
			if e.ctrl == ctrlBreak {
				e.ctrl = ctrlNone
				break
			}
			if e.ctrl == ctrlReturn {
				break
			}
			e.seek(postOff)
			if e.tok.Type != token.RPAREN {
				if p := e.expression(); p.IsError() {
					return leave(p)
				}
			}
		}
	}

	// Leave the parse position after the body regardless of how the
	// loop ended.
	e.seek(bodyOff)
	e.noexec++
	s := e.statement()
	e.noexec--
	if s.IsError() {
		return leave(s)
	}
	return leave(value.Undefined())
}

// functionStatement binds a function declaration with var semantics
// (hoisted to the nearest function or global frame).
func (e *Interp) functionStatement() value.Value {
	e.next()
	if e.tok.Type != token.IDENT {
		fn := e.functionLiteral()
		e.eatSemi()
		return fn
	}
	name := e.tok.Literal
	e.next()
	fn := e.functionLiteral()
	if fn.IsError() {
		return fn
	}
	if e.exec() {
		if fail := e.declare(token.VAR, name, fn); fail.IsError() {
			return fail
		}
	}
	return fn
}
