package config

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".js", ".mjs"}

// Arena sizing. The engine runs entirely inside one caller-supplied
// buffer; MinArenaSize is the smallest buffer that can hold the global
// object plus a handful of bindings.
const (
	MinArenaSize     = 1024
	DefaultArenaSize = 16 * 1024
)

// Call-stack accounting. Nested evaluation entries are charged a fixed
// byte cost against the configured budget so embedders can bound native
// stack growth without knowing Go's frame sizes.
const (
	DefaultMaxCallStackBytes = 64 * 1024
	CallFrameCost            = 256
)

// Error message prefixes. Error values carry their kind in the tag
// payload; the prefix keeps messages self-describing when printed.
const (
	SyntaxErrorPrefix    = "SyntaxError"
	ReferenceErrorPrefix = "ReferenceError"
	TypeErrorPrefix      = "TypeError"
	RangeErrorPrefix     = "RangeError"
	OOMErrorPrefix       = "OutOfMemoryError"
	InternalErrorPrefix  = "InternalError"
)
