package lexer

import (
	"github.com/TangJia025/simplejs/internal/token"
)

// Lexer produces a lazy token stream over a source string. A stream is
// not resumable mid-flight; to re-scan a region (loop bodies, function
// code), construct a new Lexer positioned at the region's byte offset
// with NewAt.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
}

func New(input string) *Lexer {
	return NewAt(input, 0)
}

// NewAt starts scanning at a byte offset previously reported in a
// token. Offsets in produced tokens stay absolute.
func NewAt(input string, offset int) *Lexer {
	l := &Lexer{input: input, position: offset, readPosition: offset}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// Next returns the next token. After EOF it keeps returning EOF.
func (l *Lexer) Next() token.Token {
	l.skipWhitespace()

	var tok token.Token
	tok.Offset = l.position

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.EQ, Literal: "==", Offset: tok.Offset}
		} else {
			tok = l.newToken(token.ASSIGN)
		}
	case '+':
		tok = l.newToken(token.PLUS)
	case '-':
		tok = l.newToken(token.MINUS)
	case '*':
		tok = l.newToken(token.ASTERISK)
	case '/':
		tok = l.newToken(token.SLASH)
	case '%':
		tok = l.newToken(token.PERCENT)
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NOTEQ, Literal: "!=", Offset: tok.Offset}
		} else {
			tok = l.newToken(token.BANG)
		}
	case '~':
		tok = l.newToken(token.TILDE)
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.LTEQ, Literal: "<=", Offset: tok.Offset}
		} else if l.peekChar() == '<' {
			l.readChar()
			tok = token.Token{Type: token.SHL, Literal: "<<", Offset: tok.Offset}
		} else {
			tok = l.newToken(token.LT)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GTEQ, Literal: ">=", Offset: tok.Offset}
		} else if l.peekChar() == '>' {
			l.readChar()
			tok = token.Token{Type: token.SHR, Literal: ">>", Offset: tok.Offset}
		} else {
			tok = l.newToken(token.GT)
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = token.Token{Type: token.AND, Literal: "&&", Offset: tok.Offset}
		} else {
			tok = l.newToken(token.BITAND)
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = token.Token{Type: token.OR, Literal: "||", Offset: tok.Offset}
		} else {
			tok = l.newToken(token.BITOR)
		}
	case '^':
		tok = l.newToken(token.BITXOR)
	case ',':
		tok = l.newToken(token.COMMA)
	case ';':
		tok = l.newToken(token.SEMICOLON)
	case ':':
		tok = l.newToken(token.COLON)
	case '.':
		tok = l.newToken(token.DOT)
	case '(':
		tok = l.newToken(token.LPAREN)
	case ')':
		tok = l.newToken(token.RPAREN)
	case '{':
		tok = l.newToken(token.LBRACE)
	case '}':
		tok = l.newToken(token.RBRACE)
	case '[':
		tok = l.newToken(token.LBRACKET)
	case ']':
		tok = l.newToken(token.RBRACKET)
	case '\'', '"':
		return l.readString(l.ch)
	case 0:
		tok.Type = token.EOF
		tok.Literal = ""
	default:
		if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = token.LookupIdent(tok.Literal)
			return tok
		}
		if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = l.newToken(token.ILLEGAL)
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(t token.Type) token.Token {
	return token.Token{Type: t, Literal: string(l.ch), Offset: l.position}
}

func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() token.Token {
	start := l.position

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		if !isHexDigit(l.ch) {
			return token.Token{Type: token.ILLEGAL, Literal: l.input[start:l.position], Offset: start}
		}
		for isHexDigit(l.ch) {
			l.readChar()
		}
		return token.Token{Type: token.NUMBER, Literal: l.input[start:l.position], Offset: start}
	}

	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		mark := l.position
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			// Not an exponent after all; report the malformed literal.
			return token.Token{Type: token.ILLEGAL, Literal: l.input[start:l.position], Offset: mark}
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return token.Token{Type: token.NUMBER, Literal: l.input[start:l.position], Offset: start}
}

// readString scans a quoted literal and resolves escapes. The returned
// Literal holds the decoded bytes; an unterminated literal or unknown
// escape yields ILLEGAL with the offset of the opening quote.
func (l *Lexer) readString(quote byte) token.Token {
	start := l.position
	var out []byte
	l.readChar()
	for l.ch != quote {
		switch l.ch {
		case 0, '\n':
			return token.Token{Type: token.ILLEGAL, Literal: "unterminated string", Offset: start}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '\\', '\'', '"':
				out = append(out, l.ch)
			case '0':
				out = append(out, 0)
			default:
				return token.Token{Type: token.ILLEGAL, Literal: "bad escape", Offset: l.position - 1}
			}
		default:
			out = append(out, l.ch)
		}
		l.readChar()
	}
	l.readChar()
	return token.Token{Type: token.STRING, Literal: string(out), Offset: start}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}
