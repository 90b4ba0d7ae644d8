package arena

import (
	"testing"

	"github.com/TangJia025/simplejs/internal/value"
)

func TestCollectReclaimsGarbage(t *testing.T) {
	a := newTestArena(t, 4096)
	obj, err := a.CreateObject()
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}
	liveUsed := a.Used()

	for i := 0; i < 20; i++ {
		if _, err := a.NewHeapString("unreachable string data"); err != nil {
			t.Fatalf("NewHeapString: %v", err)
		}
	}
	if a.Used() <= liveUsed {
		t.Fatalf("garbage not accounted")
	}

	a.Collect([]value.Value{obj})
	if a.Used() != liveUsed {
		t.Errorf("Used = %d after collect, want %d", a.Used(), liveUsed)
	}
	if a.Cycles() != 1 {
		t.Errorf("Cycles = %d, want 1", a.Cycles())
	}
}

func TestCollectKeepsReachableGraph(t *testing.T) {
	a := newTestArena(t, 4096)
	obj, _ := a.CreateObject()
	key, _ := a.NewHeapString("name")
	str, err := a.NewString("a reachable heap string")
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	if _, err := a.AddProp(obj.Ref(), key, str); err != nil {
		t.Fatalf("AddProp: %v", err)
	}

	a.Collect([]value.Value{obj})

	p, ok := a.FindProp(obj.Ref(), "name")
	if !ok {
		t.Fatalf("property lost after collection")
	}
	if got := a.StringValue(a.PropValue(p)); got != "a reachable heap string" {
		t.Errorf("string value = %q after collection", got)
	}
}

func TestCollectReclaimsCycles(t *testing.T) {
	a := newTestArena(t, 4096)
	x, _ := a.CreateObject()
	y, _ := a.CreateObject()
	kx, _ := a.NewHeapString("peer")
	ky, _ := a.NewHeapString("peer")
	if _, err := a.AddProp(x.Ref(), kx, y); err != nil {
		t.Fatalf("AddProp: %v", err)
	}
	if _, err := a.AddProp(y.Ref(), ky, x); err != nil {
		t.Fatalf("AddProp: %v", err)
	}

	// Rooted: the cycle survives.
	before := a.Used()
	a.Collect([]value.Value{x})
	if a.Used() != before {
		t.Fatalf("rooted cycle partially collected: %d -> %d", before, a.Used())
	}

	// Unrooted: the whole cycle goes.
	a.Collect(nil)
	if a.Used() != 0 {
		t.Errorf("Used = %d after collecting an unrooted cycle, want 0", a.Used())
	}
	if a.Allocations() != 0 {
		t.Errorf("Allocations = %d, want 0", a.Allocations())
	}
}

func TestCollectTracesScopeChain(t *testing.T) {
	a := newTestArena(t, 4096)
	global, _ := a.NewScope(0, true)
	gkey, _ := a.NewHeapString("bound in global")
	if _, err := a.AddProp(global.Ref(), gkey, value.Number(1)); err != nil {
		t.Fatalf("AddProp: %v", err)
	}
	inner, _ := a.NewScope(global.Ref(), false)

	// Rooting only the innermost frame must keep the parent chain and
	// its bindings alive.
	a.Collect([]value.Value{inner})
	if _, ok := a.FindProp(global.Ref(), "bound in global"); !ok {
		t.Errorf("global binding lost when only the inner frame was rooted")
	}
}

func TestCollectTracesClosure(t *testing.T) {
	a := newTestArena(t, 4096)
	scope, _ := a.NewScope(0, true)
	code, _ := a.NewHeapString("(a){return a;}")
	fn, err := a.NewClosure(scope.Ref(), code)
	if err != nil {
		t.Fatalf("NewClosure: %v", err)
	}

	a.Collect([]value.Value{fn})
	if string(a.StringBytes(a.ClosureCode(fn.Ref()))) != "(a){return a;}" {
		t.Errorf("code string collected out from under a live closure")
	}
	if a.ClosureScope(fn.Ref()) != scope.Ref() {
		t.Errorf("captured scope collected out from under a live closure")
	}
}

func TestCollectRetainsErrorMessage(t *testing.T) {
	a := newTestArena(t, 4096)
	msg, err := a.NewHeapString("something went wrong")
	if err != nil {
		t.Fatalf("NewHeapString: %v", err)
	}
	e := value.Error(value.ErrType, msg)

	a.Collect([]value.Value{e})
	if string(a.StringBytes(msg)) != "something went wrong" {
		t.Errorf("error message collected while the error value was rooted")
	}
}

func TestFreeListReuse(t *testing.T) {
	a := newTestArena(t, 4096)
	anchor, _ := a.CreateObject()
	for i := 0; i < 8; i++ {
		if _, err := a.NewHeapString("filler string to free"); err != nil {
			t.Fatalf("NewHeapString: %v", err)
		}
	}
	tail, _ := a.CreateObject()

	a.Collect([]value.Value{anchor, tail})
	brk := a.Mark()

	// New allocations must come from the freed gap, not the bump region.
	if _, err := a.NewHeapString("recycled"); err != nil {
		t.Fatalf("NewHeapString after collect: %v", err)
	}
	if a.Mark() != brk {
		t.Errorf("allocation bumped the break instead of reusing freed space")
	}
}

func TestRepeatedCollectIsStable(t *testing.T) {
	a := newTestArena(t, 4096)
	obj, _ := a.CreateObject()
	key, _ := a.NewHeapString("k")
	if _, err := a.AddProp(obj.Ref(), key, value.Number(7)); err != nil {
		t.Fatalf("AddProp: %v", err)
	}
	roots := []value.Value{obj}

	a.Collect(roots)
	used := a.Used()
	for i := 0; i < 5; i++ {
		a.Collect(roots)
		if a.Used() != used {
			t.Fatalf("cycle %d changed Used: %d -> %d", i, used, a.Used())
		}
	}
	if a.Cycles() != 6 {
		t.Errorf("Cycles = %d, want 6", a.Cycles())
	}
}
