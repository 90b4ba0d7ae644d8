package interp

import (
	"testing"

	"github.com/TangJia025/simplejs/internal/value"
)

func newTestInterp(t *testing.T) *Interp {
	t.Helper()
	e, err := New(make([]byte, 16*1024))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func evalNumber(t *testing.T, src string, want float64) {
	t.Helper()
	e := newTestInterp(t)
	v := e.Eval(src)
	if v.IsError() {
		t.Fatalf("%q: %s", src, e.ErrorMessage(v))
	}
	if !v.IsNumber() {
		t.Fatalf("%q: got %s, want number", src, v.TypeName())
	}
	if got := v.Float(); got != want {
		t.Fatalf("%q = %v, want %v", src, got, want)
	}
}

func evalString(t *testing.T, src, want string) {
	t.Helper()
	e := newTestInterp(t)
	v := e.Eval(src)
	if v.IsError() {
		t.Fatalf("%q: %s", src, e.ErrorMessage(v))
	}
	if !v.IsString() {
		t.Fatalf("%q: got %s, want string", src, v.TypeName())
	}
	if got := e.ToString(v); got != want {
		t.Fatalf("%q = %q, want %q", src, got, want)
	}
}

func evalBool(t *testing.T, src string, want bool) {
	t.Helper()
	e := newTestInterp(t)
	v := e.Eval(src)
	if v.IsError() {
		t.Fatalf("%q: %s", src, e.ErrorMessage(v))
	}
	if v.Tag() != value.TagBoolean {
		t.Fatalf("%q: got %s, want boolean", src, v.TypeName())
	}
	if got := v.Bool(); got != want {
		t.Fatalf("%q = %v, want %v", src, got, want)
	}
}

func evalError(t *testing.T, src string, want value.ErrorKind) {
	t.Helper()
	e := newTestInterp(t)
	v := e.Eval(src)
	if !v.IsError() {
		t.Fatalf("%q: got %s %q, want error kind %d", src, v.TypeName(), e.ToString(v), want)
	}
	if got := v.ErrorKind(); got != want {
		t.Fatalf("%q: error kind %d (%s), want %d", src, got, e.ErrorMessage(v), want)
	}
}

func TestArithmetic(t *testing.T) {
	evalNumber(t, "1 + 2 * 3;", 7)
	evalNumber(t, "(1 + 2) * 3;", 9)
	evalNumber(t, "10 - 4 - 3;", 3)
	evalNumber(t, "7 / 2;", 3.5)
	evalNumber(t, "7 % 3;", 1)
	evalNumber(t, "-5 + 3;", -2)
	evalNumber(t, "2.5 * 4;", 10)
	evalNumber(t, "1e3 + 1;", 1001)
	evalNumber(t, "0xFF;", 255)
	evalNumber(t, "0x10 + 0x1;", 17)
}

func TestBitwise(t *testing.T) {
	evalNumber(t, "12 & 10;", 8)
	evalNumber(t, "12 | 10;", 14)
	evalNumber(t, "12 ^ 10;", 6)
	evalNumber(t, "1 << 4;", 16)
	evalNumber(t, "256 >> 4;", 16)
	evalNumber(t, "~0;", -1)
	evalNumber(t, "-1 >> 1;", -1)
}

func TestComparisonAndEquality(t *testing.T) {
	evalBool(t, "1 < 2;", true)
	evalBool(t, "2 <= 2;", true)
	evalBool(t, "3 > 4;", false)
	evalBool(t, "1 == 1;", true)
	evalBool(t, "1 != 2;", true)
	evalBool(t, "'abc' == 'abc';", true)
	evalBool(t, "'abc' < 'abd';", true)
	evalBool(t, "'a longer heap string' == 'a longer heap string';", true)
	evalBool(t, "null == null;", true)
	evalBool(t, "undefined == undefined;", true)
	evalBool(t, "true == true;", true)
	evalBool(t, "0 / 0 == 0 / 0;", false)
	evalBool(t, "let o = {}; let p = o; o == p;", true)
	evalBool(t, "let o = {}; let p = {}; o == p;", false)
}

func TestLogicalOperators(t *testing.T) {
	evalBool(t, "true && false;", false)
	evalBool(t, "!0;", true)
	evalBool(t, "!'x';", false)
	evalNumber(t, "1 && 2;", 2)
	evalNumber(t, "0 || 3;", 3)
	// The untaken side is recognized but never evaluated, so an unbound
	// name there is not an error.
	evalBool(t, "false && missing();", false)
	evalBool(t, "true || missing();", true)
}

func TestVariables(t *testing.T) {
	evalNumber(t, "let x = 10; let y = 20; x * y;", 200)
	evalNumber(t, "let x = 1; x = x + 1; x;", 2)
	evalNumber(t, "let a = 1, b = 2; a + b;", 3)
	evalNumber(t, "const k = 5; k * 2;", 10)
	evalNumber(t, "let u; u == undefined && 1 || 0;", 1)
}

func TestScoping(t *testing.T) {
	evalNumber(t, "let x = 1; { let x = 2; } x;", 1)
	evalNumber(t, "let x = 1; { x = 2; } x;", 2)
	evalNumber(t, "{ var v = 3; } v;", 3)
	evalError(t, "{ let b = 1; } b;", value.ErrReference)
}

func TestConstSemantics(t *testing.T) {
	evalError(t, "const c = 1; c = 2;", value.ErrType)
	evalError(t, "const c;", value.ErrSyntax)
}

func TestReferenceErrors(t *testing.T) {
	evalError(t, "missing;", value.ErrReference)
	evalError(t, "x = 5;", value.ErrReference)
}

func TestTypeErrors(t *testing.T) {
	evalError(t, "let x = 1; x();", value.ErrType)
	evalError(t, "1 + {};", value.ErrType)
	evalError(t, "'a' + 1;", value.ErrType)
	evalError(t, "null < 1;", value.ErrType)
	evalError(t, "let n = null; n.field;", value.ErrType)
	evalError(t, "-'abc';", value.ErrType)
}

func TestSyntaxErrors(t *testing.T) {
	evalError(t, "let = 5;", value.ErrSyntax)
	evalError(t, "(1 + 2;", value.ErrSyntax)
	evalError(t, "'unterminated;", value.ErrSyntax)
	evalError(t, "break;", value.ErrSyntax)
	evalError(t, "return 1;", value.ErrSyntax)
	evalError(t, "1 +;", value.ErrSyntax)
	evalError(t, "{ let a = 1;", value.ErrSyntax)
}

func TestStrings(t *testing.T) {
	evalString(t, "'hello';", "hello")
	evalString(t, "'foo' + 'bar';", "foobar")
	evalString(t, "let s = 'a'; s = s + 'b'; s + 'c';", "abc")
	evalString(t, "'a string well beyond the inline limit' + '!';",
		"a string well beyond the inline limit!")
	evalBool(t, "'' && true || false;", false)
}

func TestObjects(t *testing.T) {
	evalNumber(t, "let o = {a: 1}; o.a;", 1)
	evalNumber(t, "let o = {a: 1, b: 2}; o.a + o.b;", 3)
	evalNumber(t, "let o = {}; o.x = 7; o.x;", 7)
	evalNumber(t, "let o = {}; o['key'] = 9; o.key;", 9)
	evalNumber(t, "let o = {a: 1}; o['a'];", 1)
	evalNumber(t, "let o = {}; o[1] = 2; o[1];", 2)
	evalNumber(t, "let o = {inner: {deep: 5}}; o.inner.deep;", 5)
	evalNumber(t, "let o = {a: 1}; o.a = o.a + 1; o.a;", 2)
	evalString(t, "let o = {'quoted key': 'v'}; o['quoted key'];", "v")

	e := newTestInterp(t)
	v := e.Eval("let o = {a: 1}; o.missing;")
	if v.Tag() != value.TagUndefined {
		t.Fatalf("absent key = %s, want undefined", v.TypeName())
	}
}

func TestIfElse(t *testing.T) {
	evalNumber(t, "let r = 0; if (1 < 2) { r = 1; } r;", 1)
	evalNumber(t, "let r = 0; if (1 > 2) { r = 1; } else { r = 2; } r;", 2)
	evalNumber(t, "let r = 0; if (false) r = 1; else if (true) r = 2; else r = 3; r;", 2)
	evalNumber(t, "let r = 5; if (0) { r = 1; } r;", 5)
}

func TestWhileLoop(t *testing.T) {
	evalNumber(t, "let i = 0; while (i < 10) { i = i + 1; } i;", 10)
	evalNumber(t, "let s = 0; let i = 1; while (i <= 4) { s = s + i; i = i + 1; } s;", 10)
	evalNumber(t, "let i = 0; while (true) { i = i + 1; if (i == 5) { break; } } i;", 5)
	evalNumber(t, "let i = 0; while (false) { i = 99; } i;", 0)
}

func TestForLoop(t *testing.T) {
	evalNumber(t, "let s = 0; for (let i = 0; i < 5; i = i + 1) { s = s + i; } s;", 10)
	evalNumber(t, "let s = 0; for (let i = 0; i < 10; i = i + 1) { if (i == 3) { break; } s = s + 1; } s;", 3)
	evalNumber(t, "let i = 0; for (; i < 3;) { i = i + 1; } i;", 3)
	evalNumber(t, "let f = 1; for (let n = 1; n <= 5; n = n + 1) { f = f * n; } f;", 120)
	// The loop variable is scoped to the loop.
	evalError(t, "for (let i = 0; i < 1; i = i + 1) {} i;", value.ErrReference)
}

func TestNestedLoops(t *testing.T) {
	evalNumber(t, `
let total = 0;
for (let i = 0; i < 3; i = i + 1) {
	for (let j = 0; j < 3; j = j + 1) {
		total = total + i * j;
	}
}
total;`, 9)
	// break only exits the innermost loop.
	evalNumber(t, `
let count = 0;
for (let i = 0; i < 3; i = i + 1) {
	while (true) {
		count = count + 1;
		break;
	}
}
count;`, 3)
}

func TestFunctions(t *testing.T) {
	evalNumber(t, "function f(a, b) { return a + b; } f(2, 3);", 5)
	evalNumber(t, "function f() { return 7; } f();", 7)
	evalNumber(t, "function f(x) { return x * x; } f(f(2));", 16)
	evalNumber(t, "let g = function(n) { return n + 1; }; g(41);", 42)
	evalNumber(t, "function f(a, b) { return a; } f(1);", 1)

	// Missing arguments are undefined; extras are ignored.
	e := newTestInterp(t)
	v := e.Eval("function f(a, b) { return b; } f(1);")
	if v.Tag() != value.TagUndefined {
		t.Fatalf("missing argument = %s, want undefined", v.TypeName())
	}
	evalNumber(t, "function f(a) { return a; } f(1, 2, 3);", 1)

	// Fall-off-the-end returns undefined.
	v = newTestInterp(t).Eval("function f() { let x = 1; } f();")
	if v.Tag() != value.TagUndefined {
		t.Fatalf("fall-off return = %s, want undefined", v.TypeName())
	}
}

func TestRecursion(t *testing.T) {
	evalNumber(t, `
function fib(n) {
	if (n < 2) { return n; }
	return fib(n - 1) + fib(n - 2);
}
fib(10);`, 55)
	evalNumber(t, `
function fact(n) {
	if (n <= 1) { return 1; }
	return n * fact(n - 1);
}
fact(6);`, 720)
}

func TestUnboundedRecursionIsRangeError(t *testing.T) {
	evalError(t, "function f() { return f(); } f();", value.ErrRange)
}

func TestClosures(t *testing.T) {
	evalNumber(t, `
function counter() {
	let n = 0;
	return function() { n = n + 1; return n; };
}
let c = counter();
c(); c(); c();`, 3)

	// Two closures from separate calls do not share state.
	evalNumber(t, `
function counter() {
	let n = 0;
	return function() { n = n + 1; return n; };
}
let a = counter();
let b = counter();
a(); a();
b();
a() * 10 + b();`, 32)

	evalNumber(t, `
function adder(x) {
	return function(y) { return x + y; };
}
let add5 = adder(5);
add5(37);`, 42)
}

func TestLexicalNotDynamicScope(t *testing.T) {
	// The body sees its defining scope, never the caller's.
	evalNumber(t, `
let x = 1;
function f() { return x; }
function g() { let x = 99; return f(); }
g();`, 1)
}

func TestVarHoistsToFunctionFrame(t *testing.T) {
	evalNumber(t, `
function f() {
	{ var inner = 5; }
	return inner;
}
f();`, 5)
	evalError(t, `
function f() {
	{ let inner = 5; }
	return inner;
}
f();`, value.ErrReference)
}

func TestReturnStopsExecution(t *testing.T) {
	evalNumber(t, `
function f() {
	return 1;
	return 2;
}
f();`, 1)
	evalNumber(t, `
function f(n) {
	while (true) {
		if (n > 3) { return n; }
		n = n + 1;
	}
}
f(0);`, 4)
}

func TestTypeof(t *testing.T) {
	evalString(t, "typeof 1;", "number")
	evalString(t, "typeof 'x';", "string")
	evalString(t, "typeof true;", "boolean")
	evalString(t, "typeof undefined;", "undefined")
	evalString(t, "typeof null;", "object")
	evalString(t, "typeof {};", "object")
	evalString(t, "function f() { return 0; } typeof f;", "function")
	evalString(t, "typeof neverDeclared;", "undefined")
}

func TestErrorPropagation(t *testing.T) {
	// An error operand short-circuits every enclosing construct.
	evalError(t, "1 + missing;", value.ErrReference)
	evalError(t, "let x = missing + 1; x;", value.ErrReference)
	evalError(t, "function f(v) { return v; } f(missing);", value.ErrReference)
	evalError(t, "if (missing) { 1; }", value.ErrReference)
	evalError(t, "while (missing) { 1; }", value.ErrReference)
}

func TestStatePersistsAcrossEval(t *testing.T) {
	e := newTestInterp(t)
	if v := e.Eval("let a = 1;"); v.IsError() {
		t.Fatalf("first eval: %s", e.ErrorMessage(v))
	}
	v := e.Eval("a + 1;")
	if v.IsError() {
		t.Fatalf("second eval: %s", e.ErrorMessage(v))
	}
	if v.Float() != 2 {
		t.Fatalf("a + 1 = %v", v.Float())
	}
}

func TestEmptyProgram(t *testing.T) {
	e := newTestInterp(t)
	if v := e.Eval(""); v.Tag() != value.TagUndefined {
		t.Fatalf("empty program = %s", v.TypeName())
	}
	if v := e.Eval(";;;"); v.Tag() != value.TagUndefined {
		t.Fatalf("empty statements = %s", v.TypeName())
	}
}

func TestComments(t *testing.T) {
	evalNumber(t, "// leading\nlet x = 1; /* mid */ x + 1;", 2)
}

func TestToStringRendering(t *testing.T) {
	e := newTestInterp(t)
	cases := []struct {
		src, want string
	}{
		{"1 / 0;", "Infinity"},
		{"-1 / 0;", "-Infinity"},
		{"0 / 0;", "NaN"},
		{"1.5;", "1.5"},
		{"true;", "true"},
		{"null;", "null"},
		{"undefined;", "undefined"},
		{"({});", "[object Object]"},
	}
	for _, tc := range cases {
		v := e.Eval(tc.src)
		if got := e.ToString(v); got != tc.want {
			t.Errorf("%q rendered %q, want %q", tc.src, got, tc.want)
		}
	}
}

func TestGCDuringExecution(t *testing.T) {
	e := newTestInterp(t)
	v := e.Eval(`
let s = '';
for (let i = 0; i < 300; i = i + 1) {
	s = s + 'xxxxxxxxxxxxxxxx';
}
s == s + '';`)
	if v.IsError() {
		t.Fatalf("churn loop failed: %s", e.ErrorMessage(v))
	}
	if v.Tag() != value.TagBoolean || !v.Bool() {
		t.Fatalf("churn result corrupted")
	}
	if e.Stats().GCCycles == 0 {
		t.Errorf("string churn in a 16 KiB arena never triggered a collection")
	}
}

func TestOutOfMemory(t *testing.T) {
	e, err := New(make([]byte, 1024))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v := e.Eval(`
let s = 'xxxxxxxxxxxxxxxx';
while (true) { s = s + s; }`)
	if !v.IsError() {
		t.Fatalf("doubling loop in 1 KiB arena did not fail")
	}
	if v.ErrorKind() != value.ErrOOM {
		t.Fatalf("error kind %d (%s), want out-of-memory", v.ErrorKind(), e.ErrorMessage(v))
	}
}

func TestImmediateCallSurvivesCollection(t *testing.T) {
	// The closure of an immediately-invoked function expression is
	// reachable through nothing but the call in flight; with the
	// threshold at 1 every allocation collects, so an unrooted callee
	// would be swept while its arguments are evaluated.
	e := newTestInterp(t)
	e.SetGCThreshold(1)
	v := e.Eval("(function(x) { return x; })('aaaaaaaaaaaaaaaa');")
	if v.IsError() {
		t.Fatalf("immediate call under collection pressure: %s", e.ErrorMessage(v))
	}
	if got := e.ToString(v); got != "aaaaaaaaaaaaaaaa" {
		t.Fatalf("result = %q", got)
	}

	e2 := newTestInterp(t)
	e2.SetGCThreshold(1)
	v = e2.Eval("(function(a, b) { return a + b; })('heap string one ', 'heap string two');")
	if v.IsError() {
		t.Fatalf("two-argument immediate call: %s", e2.ErrorMessage(v))
	}
	if got := e2.ToString(v); got != "heap string one heap string two" {
		t.Fatalf("result = %q", got)
	}
}

func TestEvalDropsPriorReturnValue(t *testing.T) {
	// The return value of one script must not stay rooted into the
	// next; an abandoned returned object is garbage once eval finishes.
	e := newTestInterp(t)
	v := e.Eval("function f() { return {big: 'a payload string kept alive by nothing'}; } f();")
	if v.IsError() {
		t.Fatalf("setup: %s", e.ErrorMessage(v))
	}
	e.Collect()
	usedWithReturn := e.Stats().UsedBytes

	if v := e.Eval("0;"); v.IsError() {
		t.Fatalf("second eval: %s", e.ErrorMessage(v))
	}
	e.Collect()
	if used := e.Stats().UsedBytes; used >= usedWithReturn {
		t.Fatalf("abandoned return value still rooted: %d -> %d bytes", usedWithReturn, used)
	}
}

func TestCollectPreservesLiveState(t *testing.T) {
	e := newTestInterp(t)
	if v := e.Eval("let keep = {tag: 'survivor object value'};"); v.IsError() {
		t.Fatalf("setup: %s", e.ErrorMessage(v))
	}
	for i := 0; i < 3; i++ {
		e.Collect()
	}
	v := e.Eval("keep.tag;")
	if v.IsError() {
		t.Fatalf("after collect: %s", e.ErrorMessage(v))
	}
	if got := e.ToString(v); got != "survivor object value" {
		t.Fatalf("live object damaged by collection: %q", got)
	}
}

func TestNativeFunctions(t *testing.T) {
	e := newTestInterp(t)
	var received []value.Value
	fn := e.RegisterNative(func(it *Interp, args []value.Value) value.Value {
		received = append(received[:0], args...)
		sum := 0.0
		for _, a := range args {
			sum += a.Float()
		}
		return value.Number(sum)
	})
	if res := e.SetProperty(e.Global(), "sum", fn); res.IsError() {
		t.Fatalf("bind: %s", e.ErrorMessage(res))
	}

	v := e.Eval("sum(1, 2, 3);")
	if v.IsError() {
		t.Fatalf("call: %s", e.ErrorMessage(v))
	}
	if v.Float() != 6 {
		t.Fatalf("sum = %v", v.Float())
	}
	if len(received) != 3 {
		t.Fatalf("native saw %d args", len(received))
	}
}

func TestNativeErrorsPropagate(t *testing.T) {
	e := newTestInterp(t)
	fn := e.RegisterNative(func(it *Interp, args []value.Value) value.Value {
		return it.NewError(value.ErrRange, "argument out of range")
	})
	e.SetProperty(e.Global(), "explode", fn)
	v := e.Eval("let r = explode() + 1; r;")
	if !v.IsError() || v.ErrorKind() != value.ErrRange {
		t.Fatalf("got %s", e.ToString(v))
	}
}

func TestStatsCounters(t *testing.T) {
	e := newTestInterp(t)
	before := e.Stats()
	if v := e.Eval("let o = {a: 1, b: 2};"); v.IsError() {
		t.Fatalf("eval: %s", e.ErrorMessage(v))
	}
	after := e.Stats()
	if after.UsedBytes <= before.UsedBytes {
		t.Errorf("UsedBytes did not grow: %d -> %d", before.UsedBytes, after.UsedBytes)
	}
	if after.AllocationCount <= before.AllocationCount {
		t.Errorf("AllocationCount did not grow")
	}
}
