package zone

import (
	"unsafe"

	"github.com/orizon-lang/memcore/internal/memdiag"
	"github.com/orizon-lang/memcore/internal/memsink"
)

// requiredBlockSize computes the total in-band block size for a payload
// request: at least enough to hold free-list links once the block is
// freed, plus the header, plus the trailing trash sentinel if enabled,
// rounded to word alignment.
func (z *Zone) requiredBlockSize(payloadSize uintptr) uintptr {
	if payloadSize < freeLinksSize {
		payloadSize = freeLinksSize
	}

	total := headerSize + payloadSize
	if z.cfg.EnableTrashSentinel {
		total += trashSentinelSize
	}

	return alignUp(total)
}

// step advances a free-list address one node in the configured search
// direction (§4.1.2): forward via next, backward via prev.
func (z *Zone) step(addr uintptr) uintptr {
	fb := freeLinksPtr(addr)
	if z.cfg.ForwardSearch {
		return fb.next
	}

	return fb.prev
}

// searchFree finds (or creates, by growing the zone) a free block of at
// least totalSize bytes, starting at the size class matching the
// request and widening to larger classes before growing — mirroring the
// teacher source's SearchFree loop exactly, including the "wrapped back
// to the large list's own sentinel" growth trigger.
func (z *Zone) searchFree(totalSize uintptr) (uintptr, error) {
	largeIdx := z.cfg.classCount() - 1
	cur := z.classFor(totalSize)
	addr := z.step(z.freeListHead(cur))

	for {
		if addr == z.freeListHead(largeIdx) {
			return z.growSegment(totalSize)
		}

		if addr == z.freeListHead(cur) {
			cur++
			addr = z.step(z.freeListHead(cur))

			continue
		}

		blockAddr := headerAddrFromPayload(addr)
		if headerAt(blockAddr).size >= totalSize {
			return blockAddr, nil
		}

		addr = z.step(addr)
	}
}

// Alloc implements zone_alloc: allocate size bytes tagged tag. The
// returned payload is NOT zero-filled; callers that need that call
// AllocClear instead (§4.1.1).
func (z *Zone) Alloc(size uintptr, tag Tag) unsafe.Pointer {
	if tag == TagFree {
		z.sink.Fatal(memsink.TagIsFree("zone_alloc:" + z.name))

		return nil
	}

	total := z.requiredBlockSize(size)

	blockAddr, err := z.searchFree(total)
	if err != nil {
		return nil
	}

	block := headerAt(blockAddr)
	z.removeFree(blockAddr)

	if remaining := block.size - total; remaining >= z.minFragment() {
		oldNext := block.next
		newAddr := blockAddr + total

		newBlock := headerAt(newAddr)
		newBlock.size = remaining
		newBlock.tag = TagFree
		newBlock.id = zoneID

		z.linkBlockBetween(blockAddr, newAddr, oldNext)
		block.size = total
		z.insertFree(newAddr)
	}

	block.tag = tag
	block.id = zoneID

	if z.cfg.EnableTrashSentinel {
		*(*int32)(unsafe.Pointer(trashAddr(blockAddr, block.size))) = zoneID //nolint:govet
	}

	z.used += block.size

	return unsafe.Pointer(payloadAddr(blockAddr)) //nolint:govet
}

// AllocDebug is Alloc plus a label, mirroring the teacher source's
// Z_TagMallocDebug: the label identifies a call site for diagnostics
// rather than changing allocation behavior. With no recorder attached
// via WithDiagnostics it behaves exactly like Alloc(size, tag).
func (z *Zone) AllocDebug(size uintptr, tag Tag, label string) unsafe.Pointer {
	ptr := z.Alloc(size, tag)

	if z.diag != nil {
		z.diag.Record(memdiag.Event{
			Level:    memdiag.LevelInfo,
			Category: memdiag.CategorySegmentGrowth,
			Message:  label,
			Zone:     z.name,
			Bytes:    size,
		})
	}

	return ptr
}

// AllocClear implements zone_alloc_clear: as Alloc, tagged GENERAL, with
// the payload zero-filled before it is returned.
func (z *Zone) AllocClear(size uintptr) unsafe.Pointer {
	ptr := z.Alloc(size, TagGeneral)
	if ptr == nil {
		return nil
	}

	payloadSize := z.payloadSizeOf(ptr)
	dst := unsafe.Slice((*byte)(ptr), payloadSize)

	for i := range dst {
		dst[i] = 0
	}

	return ptr
}

// payloadSizeOf returns the usable payload size (excluding header and
// trash sentinel) backing a live pointer.
func (z *Zone) payloadSizeOf(ptr unsafe.Pointer) uintptr {
	blockAddr := headerAddrFromPayload(uintptr(ptr))
	size := headerAt(blockAddr).size - headerSize

	if z.cfg.EnableTrashSentinel {
		size -= trashSentinelSize
	}

	return size
}

// Used returns the bytes currently allocated across all of the zone's
// segments, including headers and sentinels.
func (z *Zone) Used() uintptr {
	return z.used
}

// Size returns the zone's total backing bytes across all segments.
func (z *Zone) Size() uintptr {
	return z.size
}

// Available implements zone_available: with multi-segment growth
// enabled, zones report an "effectively unbounded" sentinel rather than
// a real figure, per spec §4.1.1 and the open question in §9 about
// clients misreading it as a hard remaining-bytes count.
func (z *Zone) Available() uintptr {
	if z.cfg.EnableMultiSegmentGrowth {
		return unboundedSentinel
	}

	return z.size - z.used
}
