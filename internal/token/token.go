package token

// Type identifies a lexical token class.
type Type string

// Token is a single lexeme with its byte offset into the source text.
// Offsets survive into error messages, so they always refer to the
// original source, not a normalized copy.
type Token struct {
	Type    Type
	Literal string
	Offset  int
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	IDENT  = "IDENT"
	NUMBER = "NUMBER"
	STRING = "STRING"

	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"
	BANG     = "!"
	TILDE    = "~"

	LT     = "<"
	GT     = ">"
	LTEQ   = "<="
	GTEQ   = ">="
	EQ     = "=="
	NOTEQ  = "!="
	AND    = "&&"
	OR     = "||"
	BITAND = "&"
	BITOR  = "|"
	BITXOR = "^"
	SHL    = "<<"
	SHR    = ">>"

	COMMA     = ","
	SEMICOLON = ";"
	COLON     = ":"
	DOT       = "."

	LPAREN   = "("
	RPAREN   = ")"
	LBRACE   = "{"
	RBRACE   = "}"
	LBRACKET = "["
	RBRACKET = "]"

	FUNCTION  = "FUNCTION"
	LET       = "LET"
	VAR       = "VAR"
	CONST     = "CONST"
	IF        = "IF"
	ELSE      = "ELSE"
	WHILE     = "WHILE"
	FOR       = "FOR"
	BREAK     = "BREAK"
	RETURN    = "RETURN"
	TRUE      = "TRUE"
	FALSE     = "FALSE"
	NULL      = "NULL"
	UNDEFINED = "UNDEFINED"
	TYPEOF    = "TYPEOF"
)

var keywords = map[string]Type{
	"function":  FUNCTION,
	"let":       LET,
	"var":       VAR,
	"const":     CONST,
	"if":        IF,
	"else":      ELSE,
	"while":     WHILE,
	"for":       FOR,
	"break":     BREAK,
	"return":    RETURN,
	"true":      TRUE,
	"false":     FALSE,
	"null":      NULL,
	"undefined": UNDEFINED,
	"typeof":    TYPEOF,
}

// LookupIdent maps an identifier to its keyword type, or IDENT.
func LookupIdent(ident string) Type {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}
