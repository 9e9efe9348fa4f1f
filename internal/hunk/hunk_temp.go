package hunk

import (
	"unsafe"

	"github.com/orizon-lang/memcore/internal/memsink"
)

func headerAt(ptr unsafe.Pointer) *tempHeader {
	return (*tempHeader)(ptr) //nolint:govet
}

// AllocTemp implements Hunk_AllocateTempMemory: a temp-bank allocation
// meant to be freed LIFO by FreeTemp, or swept in bulk by
// ClearTempMemory. Before Init has formatted the region, this falls
// back to a zero-filled allocation from fallback instead — the file
// loading system depends on being able to call this before the hunk
// exists yet (§4.2.2).
func (h *Hunk) AllocTemp(size uintptr) unsafe.Pointer {
	if h.region == nil {
		return h.fallback.AllocClear(size)
	}

	h.swapBanks()

	total := alignTo(size, wordSize) + tempHeaderSize

	if h.temp.temp+h.permanent.permanent+total > h.total {
		h.sink.Drop(memsink.HunkExhausted("hunk_alloc_temp", total))

		return nil
	}

	var hdrPtr unsafe.Pointer

	if h.temp == &h.low {
		hdrPtr = h.lowAddr(h.temp.temp)
		h.temp.temp += total
	} else {
		h.temp.temp += total
		hdrPtr = h.highAddr(h.temp.temp)
	}

	if h.temp.temp > h.temp.tempHighwater {
		h.temp.tempHighwater = h.temp.temp
	}

	hdr := headerAt(hdrPtr)
	hdr.magic = tempMagic
	hdr.size = uint32(total)

	// Deliberately not zeroed: callers load a file directly over this
	// buffer, so clearing it first would be wasted work.
	return unsafe.Pointer(uintptr(hdrPtr) + tempHeaderSize) //nolint:govet
}

// FreeTemp implements Hunk_FreeTempMemory. Only releases the cursor back
// when buf is the most recent temp allocation on its bank (LIFO order);
// out-of-order frees just retag the header and wait for ClearTempMemory.
func (h *Hunk) FreeTemp(buf unsafe.Pointer) {
	if h.region == nil {
		h.fallback.Free(buf)

		return
	}

	hdrPtr := unsafe.Pointer(uintptr(buf) - tempHeaderSize) //nolint:govet
	hdr := headerAt(hdrPtr)

	if hdr.magic != tempMagic {
		h.sink.Fatal(memsink.BadHunkMagic(hdr.magic, tempMagic))

		return
	}

	hdr.magic = tempFreeMagic
	size := uintptr(hdr.size)

	if h.temp == &h.low {
		if hdrPtr == h.lowAddr(h.temp.temp-size) {
			h.temp.temp -= size
		}
	} else if hdrPtr == h.highAddr(h.temp.temp) {
		h.temp.temp -= size
	}
}

// ClearTempMemory implements Hunk_ClearTempMemory: drops every temp
// allocation on the current temp bank at once, regardless of free
// order.
func (h *Hunk) ClearTempMemory() {
	if h.region != nil {
		h.temp.temp = h.temp.permanent
	}
}
