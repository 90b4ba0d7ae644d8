// Package interp is the engine core: a single-pass recursive-descent
// parser that evaluates each construct immediately upon recognition.
// No syntax tree or bytecode survives beyond the current call frame;
// loops and function calls re-scan their source text from recorded
// byte offsets.
package interp

import (
	"fmt"
	"math"
	"strconv"

	"github.com/TangJia025/simplejs/internal/arena"
	"github.com/TangJia025/simplejs/internal/config"
	"github.com/TangJia025/simplejs/internal/lexer"
	"github.com/TangJia025/simplejs/internal/token"
	"github.com/TangJia025/simplejs/internal/value"
)

type ctrlKind uint8

const (
	ctrlNone ctrlKind = iota
	ctrlBreak
	ctrlReturn
)

// Interp executes scripts inside one caller-supplied buffer. One
// logical owner at a time; no internal locking.
type Interp struct {
	a      *arena.Arena
	global value.Value // global object, doubles as the outermost scope frame
	scope  value.Value // innermost scope frame

	natives []NativeFunc
	stack   []value.Value // evaluation root stack for in-flight temporaries

	maxStackBytes int
	stackBytes    int

	src string
	lx  *lexer.Lexer
	tok token.Token

	noexec int // >0: recognize syntax without evaluating
	ctrl   ctrlKind
	retVal value.Value
}

// New initializes an engine over the exact caller-owned region.
func New(buf []byte) (*Interp, error) {
	a, err := arena.New(buf)
	if err != nil {
		return nil, err
	}
	global, err := a.NewScope(0, true)
	if err != nil {
		return nil, err
	}
	return &Interp{
		a:             a,
		global:        global,
		scope:         global,
		maxStackBytes: config.DefaultMaxCallStackBytes,
	}, nil
}

// Arena exposes the underlying memory manager (stats, thresholds).
func (e *Interp) Arena() *arena.Arena { return e.a }

// Global returns the global object.
func (e *Interp) Global() value.Value { return e.global }

// SetMaxCallStackBytes bounds nested evaluation depth.
func (e *Interp) SetMaxCallStackBytes(n int) {
	if n <= 0 {
		n = config.DefaultMaxCallStackBytes
	}
	e.maxStackBytes = n
}

// SetGCThreshold configures the automatic collection trigger.
func (e *Interp) SetGCThreshold(bytes int) {
	e.a.SetThreshold(bytes)
}

// Stats reports arena usage for the embedder.
type Stats struct {
	UsedBytes       int
	AllocationCount uint64
	GCCycles        uint64
}

func (e *Interp) Stats() Stats {
	return Stats{
		UsedBytes:       e.a.Used(),
		AllocationCount: e.a.Allocations(),
		GCCycles:        e.a.Cycles(),
	}
}

// Eval parses and executes source text. Any failure comes back as an
// error-tagged Value, never a panic or a Go error.
func (e *Interp) Eval(src string) value.Value {
	e.src = src
	e.lx = lexer.New(src)
	e.scope = e.global
	e.ctrl = ctrlNone
	e.retVal = value.Undefined()
	e.noexec = 0
	e.stackBytes = 0
	e.stack = e.stack[:0]
	e.next()

	res := value.Undefined()
	for e.tok.Type != token.EOF {
		res = e.statement()
		if res.IsError() {
			return res
		}
		switch e.ctrl {
		case ctrlBreak:
			return e.errorf(value.ErrSyntax, "illegal break outside loop")
		case ctrlReturn:
			return e.errorf(value.ErrSyntax, "illegal return outside function")
		}
	}
	return res
}

// Collect runs an on-demand collection cycle.
func (e *Interp) Collect() {
	roots := make([]value.Value, 0, len(e.stack)+3)
	roots = append(roots, e.global, e.scope, e.retVal)
	roots = append(roots, e.stack...)
	e.a.Collect(roots)
}

// --- token plumbing ---

func (e *Interp) next() {
	e.tok = e.lx.Next()
}

// seek restarts lexing at a previously recorded byte offset. The lexer
// is restartable from an offset, not resumable mid-stream, so loops and
// calls record offsets and re-scan.
func (e *Interp) seek(off int) {
	e.lx = lexer.NewAt(e.src, off)
	e.next()
}

func (e *Interp) exec() bool {
	return e.noexec == 0
}

// --- root stack ---

func (e *Interp) push(v value.Value) {
	e.stack = append(e.stack, v)
}

func (e *Interp) popn(n int) {
	e.stack = e.stack[:len(e.stack)-n]
}

// --- call-stack accounting ---

// enter charges one nested evaluation entry against the configured
// byte budget. Exceeding it yields a RangeError instead of risking the
// host process stack.
func (e *Interp) enter() value.Value {
	e.stackBytes += config.CallFrameCost
	if e.stackBytes > e.maxStackBytes {
		return e.errorf(value.ErrRange, "maximum call stack size exceeded")
	}
	return value.Undefined()
}

func (e *Interp) leave() {
	e.stackBytes -= config.CallFrameCost
}

// --- allocation with collection pressure ---

// allocRetry wraps an arena allocation: collect when the threshold
// would be crossed, retry once after a full collection, and report
// out-of-memory only when the arena still cannot satisfy the request.
func (e *Interp) allocRetry(size int, alloc func() error) value.Value {
	if e.a.NeedsGC(size) {
		e.Collect()
	}
	err := alloc()
	if err == arena.ErrNoSpace {
		e.Collect()
		err = alloc()
	}
	if err != nil {
		return value.Error(value.ErrOOM, 0)
	}
	return value.Undefined()
}

func (e *Interp) newString(s string) value.Value {
	if v, ok := value.PackString(s); ok {
		return v
	}
	var out value.Value
	if fail := e.allocRetry(4+len(s), func() error {
		v, err := e.a.NewString(s)
		out = v
		return err
	}); fail.IsError() {
		return fail
	}
	return out
}

func (e *Interp) newObject() value.Value {
	var out value.Value
	if fail := e.allocRetry(16, func() error {
		v, err := e.a.CreateObject()
		out = v
		return err
	}); fail.IsError() {
		return fail
	}
	return out
}

func (e *Interp) newScopeFrame(parent uint32, fnFrame bool) value.Value {
	var out value.Value
	if fail := e.allocRetry(16, func() error {
		v, err := e.a.NewScope(parent, fnFrame)
		out = v
		return err
	}); fail.IsError() {
		return fail
	}
	return out
}

func (e *Interp) newClosure(scope, code uint32) value.Value {
	var out value.Value
	if fail := e.allocRetry(16, func() error {
		v, err := e.a.NewClosure(scope, code)
		out = v
		return err
	}); fail.IsError() {
		return fail
	}
	return out
}

// NewString allocates a string value for the embedder.
func (e *Interp) NewString(s string) value.Value { return e.newString(s) }

// NewObject allocates an empty object for the embedder.
func (e *Interp) NewObject() value.Value { return e.newObject() }

// NewError builds an error value of the given kind for the embedder.
func (e *Interp) NewError(kind value.ErrorKind, msg string) value.Value {
	return e.errorf(kind, "%s", msg)
}

// --- errors ---

var errPrefixes = map[value.ErrorKind]string{
	value.ErrSyntax:    config.SyntaxErrorPrefix,
	value.ErrReference: config.ReferenceErrorPrefix,
	value.ErrType:      config.TypeErrorPrefix,
	value.ErrRange:     config.RangeErrorPrefix,
	value.ErrOOM:       config.OOMErrorPrefix,
	value.ErrInternal:  config.InternalErrorPrefix,
}

// errorf builds an error value carrying its message as an arena
// string. If even that allocation fails the error degrades to a bare
// out-of-memory value.
func (e *Interp) errorf(kind value.ErrorKind, format string, args ...interface{}) value.Value {
	msg := fmt.Sprintf(format, args...)
	var off uint32
	if fail := e.allocRetry(4+len(msg), func() error {
		o, err := e.a.NewHeapString(msg)
		off = o
		return err
	}); fail.IsError() {
		return value.Error(value.ErrOOM, 0)
	}
	return value.Error(kind, off)
}

func (e *Interp) syntaxErrorf(off int, format string, args ...interface{}) value.Value {
	return e.errorf(value.ErrSyntax, "%s at offset %d", fmt.Sprintf(format, args...), off)
}

// ErrorMessage renders an error value with its taxonomy prefix.
func (e *Interp) ErrorMessage(v value.Value) string {
	prefix := errPrefixes[v.ErrorKind()]
	if prefix == "" {
		prefix = config.InternalErrorPrefix
	}
	if off := v.ErrorMessageRef(); off != 0 {
		return prefix + ": " + string(e.a.StringBytes(off))
	}
	return prefix
}

// --- value helpers ---

// Truthy decides condition and logical-operator semantics.
func (e *Interp) Truthy(v value.Value) bool {
	switch v.Tag() {
	case value.TagNumber:
		f := v.Float()
		return f != 0 && f == f
	case value.TagBoolean:
		return v.Bool()
	case value.TagInlineString:
		return v.InlineLen() > 0
	case value.TagString:
		return len(e.a.StringBytes(v.Ref())) > 0
	case value.TagObject, value.TagFunction, value.TagNative, value.TagCodeRef:
		return true
	}
	return false
}

// ToString renders a value for display.
func (e *Interp) ToString(v value.Value) string {
	switch v.Tag() {
	case value.TagNumber:
		f := v.Float()
		if f != f {
			return "NaN"
		}
		if math.IsInf(f, 1) {
			return "Infinity"
		}
		if math.IsInf(f, -1) {
			return "-Infinity"
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case value.TagString, value.TagInlineString:
		return e.a.StringValue(v)
	case value.TagBoolean:
		if v.Bool() {
			return "true"
		}
		return "false"
	case value.TagNull:
		return "null"
	case value.TagUndefined:
		return "undefined"
	case value.TagObject:
		return "[object Object]"
	case value.TagFunction, value.TagCodeRef:
		return "[function]"
	case value.TagNative:
		return "[native function]"
	case value.TagError:
		return e.ErrorMessage(v)
	}
	return "undefined"
}
