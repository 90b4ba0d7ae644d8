package arena

import (
	"encoding/binary"

	"github.com/TangJia025/simplejs/internal/value"
)

// Collect runs one full stop-the-world mark-and-sweep cycle. The root
// set is supplied by the interpreter: the global object, the current
// scope frame (its parent chain is traced from there), every live slot
// on the evaluation stack, and any native-call argument buffer.
//
// Marking is reachability-based, so cyclic object graphs are reclaimed
// once no root reaches them; the per-record mark bit doubles as the
// revisit guard.
func (a *Arena) Collect(roots []value.Value) {
	for _, v := range roots {
		a.markValue(v)
	}
	a.sweep()
	a.cycles++
}

func (a *Arena) markValue(v value.Value) {
	switch v.Tag() {
	case value.TagObject, value.TagProperty, value.TagString, value.TagFunction:
		a.markRecord(v.Ref())
	case value.TagCodeRef:
		a.markRecord(v.Ref())
	case value.TagError:
		if off := v.ErrorMessageRef(); off != 0 {
			a.markRecord(off)
		}
	}
}

func (a *Arena) markRecord(off uint32) {
	if off < heapBase || off >= a.brk {
		return
	}
	h := a.header(off)
	if h&markBit != 0 {
		return
	}
	a.setHeader(off, h|markBit)

	switch recordKind((h & kindMask) >> kindShift) {
	case kindObject:
		a.markRecord(a.ObjectFirstProp(off))
		flags := a.ObjectFlags(off)
		if flags&FlagClosure != 0 {
			a.markRecord(a.ClosureScope(off))
			a.markRecord(a.ClosureCode(off))
		} else if flags&FlagScope != 0 {
			a.markRecord(a.ObjectParent(off))
		}
	case kindProp:
		// Walk the chain iteratively; chains can be long.
		p := off
		for {
			a.markRecord(a.PropKey(p))
			a.markValue(a.PropValue(p))
			p = a.PropNext(p)
			if p == 0 {
				return
			}
			h := a.header(p)
			if h&markBit != 0 {
				return
			}
			a.setHeader(p, h|markBit)
		}
	case kindStr, kindFree:
		// Leaves.
	}
}

// sweep walks every record in heap order, frees unmarked ones into the
// free list (coalescing adjacent free space), clears surviving mark
// bits, and gives trailing free space back to the bump region.
func (a *Arena) sweep() {
	a.freeHead = 0
	var freeTail uint32
	var runStart, runSize uint32

	flushRun := func() {
		if runSize == 0 {
			return
		}
		a.setHeader(runStart, runSize) // kindFree, no flags
		binary.LittleEndian.PutUint32(a.buf[runStart+headerSize:], 0)
		if freeTail == 0 {
			a.freeHead = runStart
		} else {
			binary.LittleEndian.PutUint32(a.buf[freeTail+headerSize:], runStart)
		}
		freeTail = runStart
		runSize = 0
	}

	for off := heapBase; uint32(off) < a.brk; {
		uoff := uint32(off)
		h := a.header(uoff)
		size := h & sizeMask
		if size == 0 {
			break // corrupted heap; stop rather than loop forever
		}
		kind := recordKind((h & kindMask) >> kindShift)

		if kind != kindFree && h&markBit != 0 {
			a.setHeader(uoff, h&^markBit)
			flushRun()
		} else {
			if kind != kindFree {
				a.used -= size
				a.allocCount--
			}
			if runSize != 0 && runSize+size > sizeMask {
				flushRun()
			}
			if runSize == 0 {
				runStart = uoff
			}
			runSize += size
		}
		off += int(size)
	}

	// Trailing free space rejoins the bump region instead of the list.
	if runSize != 0 && runStart+runSize == a.brk {
		a.brk = runStart
		runSize = 0
	}
	flushRun()
}
