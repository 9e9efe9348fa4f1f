package zone

import (
	"fmt"
	"unsafe"
)

// CheckReport summarizes one zone_check pass (§8): a debug-only
// consistency walk over the all-blocks list, independent of and
// redundant with the trash-sentinel/id checks Alloc/Free already run
// inline. It exists for tooling (cmd/memcore-inspect) and tests, not
// the allocation hot path.
type CheckReport struct {
	Blocks     int
	FreeBlocks int
	UsedBytes  uintptr
	FreeBytes  uintptr
	Violations []string
}

// OK reports whether the walk found no violations.
func (r *CheckReport) OK() bool {
	return len(r.Violations) == 0
}

// Check walks the zone's all-blocks list once, verifying:
//  1. the list is a well-formed circular doubly linked ring,
//  2. every block carries a valid id (real block or separator),
//  3. every block is contiguous with its next link unless that next
//     block is a separator (a separator itself is not checked), and no
//     two adjacent blocks are both FREE (Z_CheckHeap's two assertions;
//     either means a coalescing bug left mergeable neighbors unmerged),
//  4. every FREE block is linked into one of the free lists and no
//     in-use block is (which size class's list holds it is not checked),
//  5. the used bytes recovered from the walk match the zone's own
//     running used total.
func (z *Zone) Check() *CheckReport {
	r := &CheckReport{}

	head := z.blockListHead()
	cur := headerAt(head).next
	prevSeen := head

	freeSetBySize := z.freeAddressSet()

	for cur != head {
		block := headerAt(cur)

		if block.prev != prevSeen {
			r.Violations = append(r.Violations, fmt.Sprintf("block %#x: prev link does not match predecessor", cur))
		}

		isSeparator := block.size == 0 && block.id == -zoneID
		if !isSeparator && block.id != zoneID {
			r.Violations = append(r.Violations, fmt.Sprintf("block %#x: bad id %#x", cur, block.id))
		}

		if !isSeparator && block.next != head {
			nextIsSeparator := headerAt(block.next).size == 0 && headerAt(block.next).id == -zoneID
			if !nextIsSeparator && cur+block.size != block.next {
				r.Violations = append(r.Violations, fmt.Sprintf("block %#x: not contiguous with next block %#x", cur, block.next))
			}
		}

		if block.tag == TagFree && block.next != head && headerAt(block.next).tag == TagFree {
			r.Violations = append(r.Violations, fmt.Sprintf("block %#x: two consecutive free blocks did not coalesce", cur))
		}

		_, inFreeList := freeSetBySize[cur]

		switch {
		case isSeparator:
			// Separators are never free-list members, but growSegment
			// counts their header bytes as used, so the walk must too
			// to keep the used-byte cross-check meaningful.
			r.UsedBytes += headerSize
		case block.tag == TagFree:
			r.FreeBlocks++
			r.FreeBytes += block.size

			if !inFreeList {
				r.Violations = append(r.Violations, fmt.Sprintf("block %#x: tagged FREE but absent from its free list", cur))
			}

		default:
			r.Blocks++
			r.UsedBytes += block.size

			if inFreeList {
				r.Violations = append(r.Violations, fmt.Sprintf("block %#x: tagged %s but present in a free list", cur, block.tag))
			}

			if z.cfg.EnableTrashSentinel {
				got := *(*int32)(unsafe.Pointer(trashAddr(cur, block.size))) //nolint:govet
				if got != zoneID && !(z.cfg.EnableStaticFastPath && block.tag == TagStatic) {
					r.Violations = append(r.Violations, fmt.Sprintf("block %#x: trash sentinel corrupt", cur))
				}
			}
		}

		prevSeen = cur
		cur = block.next
	}

	if headerAt(head).prev != prevSeen {
		r.Violations = append(r.Violations, "block list: tail does not loop back to the sentinel's prev link")
	}

	if r.UsedBytes != z.used {
		r.Violations = append(r.Violations, fmt.Sprintf("used byte mismatch: walk saw %d, zone tracks %d", r.UsedBytes, z.used))
	}

	return r
}

// freeAddressSet collects every block-header address currently linked
// into any of the zone's free lists, for the membership cross-check in
// Check.
func (z *Zone) freeAddressSet() map[uintptr]struct{} {
	set := make(map[uintptr]struct{})

	for class := 0; class < z.cfg.classCount(); class++ {
		head := z.freeListHead(class)

		for addr := freeLinksPtr(head).next; addr != head; addr = freeLinksPtr(addr).next {
			set[headerAddrFromPayload(addr)] = struct{}{}
		}
	}

	return set
}
