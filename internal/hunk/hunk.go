// Package hunk implements the double-ended stack allocator described by
// the core memory-management subsystem: a single large region carrying
// two banks (low and high) that grow toward each other, each split
// between a LIFO-only temp cursor and a permanent cursor that only
// advances until ClearToMark or Clear rolls it back.
//
// As with internal/zone, all cursor arithmetic is plain uintptr offsets
// into one long-lived []byte the Hunk keeps alive for its entire
// lifetime — there is nothing here for the garbage collector to chase.
package hunk

import (
	"unsafe"

	"github.com/orizon-lang/memcore/internal/memsink"
	"github.com/orizon-lang/memcore/internal/sysmem"
)

// Preference steers which bank an Alloc lands in when no temp memory is
// outstanding (§4.2.1); it is advisory, not a guarantee, once a swap is
// already forced by outstanding temp allocations.
type Preference int

const (
	PreferDontCare Preference = iota
	PreferLow
	PreferHigh
)

// allocAlign is the cacheline rounding unit every permanent Alloc pads
// its request to (PAD(size, 64) in the teacher source).
const allocAlign = 64

// wordSize is the pointer-width rounding unit temp allocations use
// before their header (PAD(size, sizeof(intptr_t))).
const wordSize = unsafe.Sizeof(uintptr(0))

const (
	tempMagic     uint32 = 0x89537892
	tempFreeMagic uint32 = 0x89537893
)

// tempHeader precedes every temp allocation's payload. Pointer-free for
// the same reason blockHeader is in internal/zone.
type tempHeader struct {
	magic uint32
	size  uint32
}

var tempHeaderSize = unsafe.Sizeof(tempHeader{})

// Fallback is the allocator a Hunk delegates temp allocations to before
// Init has run — the asymmetric fallback the spec calls out in §4.2.2:
// AllocTemp falls back to a zero-filled general allocation, FreeTemp
// falls back to a plain free. *zone.Zone satisfies this directly.
type Fallback interface {
	AllocClear(size uintptr) unsafe.Pointer
	Free(ptr unsafe.Pointer)
}

// bank tracks one end of the hunk: a permanent cursor that grows until
// ClearToMark or Clear resets it, a temp cursor that may roll back, a mark for ClearToMark, and the
// highwater mark SwapBanks compares against.
type bank struct {
	mark          uintptr
	permanent     uintptr
	temp          uintptr
	tempHighwater uintptr
}

// Hunk is the process-wide double-ended stack allocator.
type Hunk struct {
	sink     memsink.Sink
	fallback Fallback

	region *sysmem.Region
	base   uintptr
	total  uintptr

	low, high bank
	permanent *bank
	temp      *bank
}

// New acquires a cacheline-aligned region of at least totalBytes and
// formats it as a freshly cleared hunk (Com_InitHunkMemory + Hunk_Clear).
func New(sink memsink.Sink, totalBytes uintptr, fallback Fallback) (*Hunk, error) {
	region, err := sysmem.Acquire(totalBytes, allocAlign)
	if err != nil {
		sink.Fatal(memsink.HunkRegionAllocFailed(totalBytes))

		return nil, err
	}

	h := &Hunk{
		sink:     sink,
		fallback: fallback,
		region:   region,
		base:     uintptr(unsafe.Pointer(unsafe.SliceData(region.Bytes()))), //nolint:govet
		total:    totalBytes,
	}

	h.Clear()

	return h, nil
}

// Clear implements Hunk_Clear: resets both banks to empty and restores
// the default assignment (low is permanent, high is temp).
func (h *Hunk) Clear() {
	h.low = bank{}
	h.high = bank{}
	h.permanent = &h.low
	h.temp = &h.high
}

// MemoryRemaining implements Hunk_MemoryRemaining.
func (h *Hunk) MemoryRemaining() uintptr {
	low := h.low.permanent
	if h.low.temp > low {
		low = h.low.temp
	}

	high := h.high.permanent
	if h.high.temp > high {
		high = h.high.temp
	}

	return h.total - (low + high)
}

// SetMark implements Hunk_SetMark.
func (h *Hunk) SetMark() {
	h.low.mark = h.low.permanent
	h.high.mark = h.high.permanent
}

// ClearToMark implements Hunk_ClearToMark: rolls both banks' permanent
// and temp cursors back to their last mark.
func (h *Hunk) ClearToMark() {
	h.low.permanent, h.low.temp = h.low.mark, h.low.mark
	h.high.permanent, h.high.temp = h.high.mark, h.high.mark
}

// CheckMark implements Hunk_CheckMark.
func (h *Hunk) CheckMark() bool {
	return h.low.mark != 0 || h.high.mark != 0
}

// swapBanks implements the static Hunk_SwapBanks heuristic: refuses to
// swap while the temp bank still has anything outstanding, and
// otherwise moves future permanent allocations to whichever side left
// more touched-but-unused (highwater) memory behind.
func (h *Hunk) swapBanks() {
	if h.temp.temp != h.temp.permanent {
		return
	}

	// Signed: a bank whose permanent cursor is past its highwater mark
	// has negative waste, not a huge unsigned one.
	tempWaste := int64(h.temp.tempHighwater) - int64(h.temp.permanent)
	permWaste := int64(h.permanent.tempHighwater) - int64(h.permanent.permanent)

	if tempWaste > permWaste {
		h.temp, h.permanent = h.permanent, h.temp
	}
}

func (h *Hunk) lowAddr(offset uintptr) unsafe.Pointer {
	return unsafe.Pointer(h.base + offset) //nolint:govet
}

func (h *Hunk) highAddr(offset uintptr) unsafe.Pointer {
	return unsafe.Pointer(h.base + h.total - offset) //nolint:govet
}

func alignTo(size, unit uintptr) uintptr {
	return (size + unit - 1) &^ (unit - 1)
}

// Alloc implements Hunk_Alloc: a permanent allocation from whichever
// bank preference and outstanding-temp state resolve to, zero-filled
// and cacheline-padded.
func (h *Hunk) Alloc(size uintptr, pref Preference) unsafe.Pointer {
	if h.region == nil {
		h.sink.Fatal(memsink.HunkUninitialized())

		return nil
	}

	if pref == PreferDontCare || h.temp.temp != h.temp.permanent {
		h.swapBanks()
	} else if pref == PreferLow && h.permanent != &h.low {
		h.swapBanks()
	} else if pref == PreferHigh && h.permanent != &h.high {
		h.swapBanks()
	}

	size = alignTo(size, allocAlign)

	if h.low.temp+h.high.temp+size > h.total {
		h.sink.Drop(memsink.HunkExhausted("hunk_alloc", size))

		return nil
	}

	var buf unsafe.Pointer

	if h.permanent == &h.low {
		buf = h.lowAddr(h.permanent.permanent)
		h.permanent.permanent += size
	} else {
		h.permanent.permanent += size
		buf = h.highAddr(h.permanent.permanent)
	}

	h.permanent.temp = h.permanent.permanent

	dst := unsafe.Slice((*byte)(buf), size)
	for i := range dst {
		dst[i] = 0
	}

	return buf
}
