// Package arena implements the engine's memory manager: a fixed-buffer
// allocator, the object/property/string store laid out inside it, and
// the mark-and-sweep collector that reclaims unreachable records.
//
// All cross-references are arena-relative uint32 offsets, never Go
// pointers. Offset 0 is the nil reference; the first record starts at
// heapBase. Each record is 8-byte aligned and carries a 4-byte header:
//
//	bits  0..23  total record size, header included
//	bits 24..26  record kind (free, object, property, string)
//	bit  30      readonly (const bindings, on property records)
//	bit  31      reachability mark
package arena

import (
	"encoding/binary"
	"errors"

	"github.com/TangJia025/simplejs/internal/config"
)

type recordKind uint32

const (
	kindFree recordKind = iota
	kindObject
	kindProp
	kindStr
)

const (
	heapBase   = 8
	headerSize = 4

	sizeMask     uint32 = 0x00FFFFFF
	kindShift           = 24
	kindMask     uint32 = 0x7 << kindShift
	readonlyBit  uint32 = 1 << 30
	markBit      uint32 = 1 << 31
	maxRecord           = int(sizeMask)
	minSplitSize        = 16
)

var (
	// ErrNoSpace means the buffer cannot satisfy the allocation. The
	// caller is expected to collect and retry before reporting
	// out-of-memory to the script.
	ErrNoSpace = errors.New("arena: out of space")

	// ErrTooLarge means the request exceeds the per-record size limit.
	ErrTooLarge = errors.New("arena: allocation too large")

	// ErrReadonly means a write hit a const binding.
	ErrReadonly = errors.New("arena: property is readonly")

	// ErrBufferTooSmall is returned by New for undersized buffers.
	ErrBufferTooSmall = errors.New("arena: buffer below minimum viable size")
)

// Arena owns one caller-supplied buffer. It never allocates outside it
// and never moves a live record except as part of a sweep (and the
// current sweep does not compact).
type Arena struct {
	buf       []byte
	brk       uint32 // end of the bumped heap region
	freeHead  uint32 // first-fit free list threaded through free records
	threshold uint32 // live bytes that trigger a collection

	used       uint32
	allocCount uint64
	cycles     uint64
}

// New initializes an arena over the exact caller-owned region.
func New(buf []byte) (*Arena, error) {
	if len(buf) < config.MinArenaSize {
		return nil, ErrBufferTooSmall
	}
	if int64(len(buf)) > int64(1)<<31 {
		return nil, ErrTooLarge
	}
	size := uint32(len(buf))
	return &Arena{
		buf:       buf,
		brk:       heapBase,
		threshold: size - size/4,
	}, nil
}

func align8(n uint32) uint32 {
	return (n + 7) &^ 7
}

func (a *Arena) header(off uint32) uint32 {
	return binary.LittleEndian.Uint32(a.buf[off:])
}

func (a *Arena) setHeader(off, h uint32) {
	binary.LittleEndian.PutUint32(a.buf[off:], h)
}

func (a *Arena) recordSize(off uint32) uint32 {
	return a.header(off) & sizeMask
}

func (a *Arena) recordKind(off uint32) recordKind {
	return recordKind((a.header(off) & kindMask) >> kindShift)
}

// body returns the record's payload bytes.
func (a *Arena) body(off uint32) []byte {
	size := a.recordSize(off)
	return a.buf[off+headerSize : off+size]
}

// alloc returns the offset of a zero-initialized record. It tries the
// free list first, then bumps the break. It never collects; callers
// decide when to run the collector.
func (a *Arena) alloc(kind recordKind, bodySize int) (uint32, error) {
	if bodySize < 0 || headerSize+bodySize > maxRecord {
		return 0, ErrTooLarge
	}
	total := align8(headerSize + uint32(bodySize))

	off := a.takeFree(total)
	if off == 0 {
		if a.brk+total > uint32(len(a.buf)) || a.brk+total < a.brk {
			return 0, ErrNoSpace
		}
		off = a.brk
		a.brk += total
		a.setHeader(off, total|uint32(kind)<<kindShift)
	} else {
		size := a.recordSize(off)
		a.setHeader(off, size|uint32(kind)<<kindShift)
	}
	clear(a.buf[off+headerSize : off+a.recordSize(off)])
	a.used += a.recordSize(off)
	a.allocCount++
	return off, nil
}

// takeFree pops a first-fit block from the free list, splitting off the
// tail when the remainder is big enough to stand alone.
func (a *Arena) takeFree(total uint32) uint32 {
	prev := uint32(0)
	off := a.freeHead
	for off != 0 {
		size := a.recordSize(off)
		next := binary.LittleEndian.Uint32(a.buf[off+headerSize:])
		if size >= total {
			if size-total >= minSplitSize {
				rem := off + total
				a.setHeader(rem, (size - total)) // kindFree
				binary.LittleEndian.PutUint32(a.buf[rem+headerSize:], next)
				a.setHeader(off, total)
				next = rem
			}
			if prev == 0 {
				a.freeHead = next
			} else {
				binary.LittleEndian.PutUint32(a.buf[prev+headerSize:], next)
			}
			return off
		}
		prev = off
		off = next
	}
	return 0
}

// NeedsGC reports whether allocating bodySize more bytes would push
// live usage past the configured threshold.
func (a *Arena) NeedsGC(bodySize int) bool {
	total := align8(headerSize + uint32(bodySize))
	return a.used+total > a.threshold
}

// SetThreshold configures the collection trigger in bytes.
func (a *Arena) SetThreshold(bytes int) {
	if bytes <= 0 || bytes > len(a.buf) {
		bytes = len(a.buf)
	}
	a.threshold = uint32(bytes)
}

// Mark returns a watermark for scratch allocations.
func (a *Arena) Mark() uint32 {
	return a.brk
}

// Rewind releases every record allocated after the watermark without
// running the collector. The caller guarantees nothing live points
// above the mark.
func (a *Arena) Rewind(mark uint32) {
	if mark < heapBase || mark > a.brk {
		return
	}
	for off := mark; off < a.brk; {
		size := a.recordSize(off)
		if size == 0 {
			break
		}
		if a.recordKind(off) != kindFree {
			a.used -= size
			a.allocCount--
		}
		off += size
	}
	a.dropFreeAbove(mark)
	a.brk = mark
}

func (a *Arena) dropFreeAbove(mark uint32) {
	prev := uint32(0)
	off := a.freeHead
	for off != 0 {
		next := binary.LittleEndian.Uint32(a.buf[off+headerSize:])
		if off >= mark {
			if prev == 0 {
				a.freeHead = next
			} else {
				binary.LittleEndian.PutUint32(a.buf[prev+headerSize:], next)
			}
		} else {
			prev = off
		}
		off = next
	}
}

// Used returns live bytes, record headers included.
func (a *Arena) Used() int { return int(a.used) }

// Capacity returns the size of the caller-supplied buffer.
func (a *Arena) Capacity() int { return len(a.buf) }

// Allocations returns the number of live records.
func (a *Arena) Allocations() uint64 { return a.allocCount }

// Cycles returns the number of completed collection cycles.
func (a *Arena) Cycles() uint64 { return a.cycles }
