package zone

import (
	"unsafe"

	"github.com/orizon-lang/memcore/internal/memsink"
)

// scribbleByte is written across a freed block's payload so use-after-free
// reads turn into visibly wrong data instead of silently stale data.
const scribbleByte = 0xaa

// mergeForward absorbs src (the block immediately following dst in the
// all-blocks list) into dst: dst grows by src's size and dst.next takes
// src's place — the teacher source's MergeBlock, written over uintptr
// links instead of retained pointers.
func (z *Zone) mergeForward(dstAddr, srcAddr uintptr) {
	dst := headerAt(dstAddr)
	src := headerAt(srcAddr)

	dst.size += src.size
	dst.next = src.next
	headerAt(dst.next).prev = dstAddr
}

// Free implements zone_free: validates the block's identity and trash
// sentinel, scribbles its payload, marks it FREE, and coalesces with
// either neighbor still on the all-blocks list that is also FREE. A
// neighbor that is a segment separator is never FREE (it stays GENERAL
// for its entire life), so the coalescer naturally never merges across
// a segment boundary without any separator-specific case.
func (z *Zone) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		z.sink.Drop(memsink.NullFree())

		return
	}

	blockAddr := headerAddrFromPayload(uintptr(ptr))
	block := headerAt(blockAddr)

	if block.id != zoneID {
		z.sink.Fatal(memsink.BadZoneID("zone_free:"+z.name, block.id, zoneID))

		return
	}

	if block.tag == TagFree {
		z.sink.Fatal(memsink.DoubleFree("zone_free:" + z.name))

		return
	}

	if z.cfg.EnableTrashSentinel {
		got := *(*int32)(unsafe.Pointer(trashAddr(blockAddr, block.size))) //nolint:govet
		if got != zoneID {
			z.sink.Fatal(memsink.TrashSentinelCorrupt("zone_free:"+z.name, int(block.size)))

			return
		}
	}

	if z.cfg.EnableStaticFastPath && block.tag == TagStatic {
		return
	}

	z.scribble(blockAddr, block)
	z.used -= block.size
	block.tag = TagFree

	if prevAddr := block.prev; prevAddr != z.blockListHead() && headerAt(prevAddr).tag == TagFree {
		z.removeFree(prevAddr)
		z.mergeForward(prevAddr, blockAddr)
		blockAddr = prevAddr
		block = headerAt(blockAddr)
	}

	if nextAddr := block.next; nextAddr != z.blockListHead() && headerAt(nextAddr).tag == TagFree {
		z.removeFree(nextAddr)
		z.mergeForward(blockAddr, nextAddr)
	}

	z.insertFree(blockAddr)
}

func (z *Zone) scribble(blockAddr uintptr, block *blockHeader) {
	payloadSize := block.size - headerSize
	if z.cfg.EnableTrashSentinel {
		payloadSize -= trashSentinelSize
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(payloadAddr(blockAddr))), payloadSize) //nolint:govet
	for i := range dst {
		dst[i] = scribbleByte
	}
}

// FreeTags implements zone_free_tags: releases every live block carrying
// tag, returning the count released. STATIC is never eligible — callers
// asking to sweep it get a fatal error instead of silently freeing
// interned strings out from under every holder of a pointer to one.
func (z *Zone) FreeTags(tag Tag) (int, error) {
	if tag == TagStatic {
		z.sink.Fatal(memsink.FreeTagsStatic())

		return 0, errZoneFatal
	}

	count := 0
	head := z.blockListHead()
	cur := headerAt(head).next

	for cur != head {
		block := headerAt(cur)
		anchor := cur

		if block.tag == tag && block.id == zoneID {
			prevAddr := block.prev

			z.Free(unsafe.Pointer(payloadAddr(cur))) //nolint:govet
			count++

			// The freed block may have merged backward into prevAddr; if
			// so cur's own header no longer describes a standalone
			// block, so resume the walk from prevAddr instead. Either
			// way, read next AFTER Free has finished any coalescing.
			if prevAddr != head && headerAt(prevAddr).tag == TagFree {
				anchor = prevAddr
			}
		}

		cur = headerAt(anchor).next
	}

	return count, nil
}
