//go:build unix

package sysmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// rawRegion keeps the exact mmap span so Release can hand it back with
// the matching length unix.Munmap requires.
type rawRegion struct {
	mapped []byte
}

func acquireRegion(size uintptr, alignment uintptr) (*Region, error) {
	// mmap already returns page-aligned memory (4 KiB or more on every
	// unix target we build for); over-map by one alignment unit only
	// when the caller asks for more than page alignment so the trimmed
	// slice can still be released as a whole mapping.
	mapLen := int(size)
	if alignment > 4096 {
		mapLen += int(alignment)
	}

	mapped, err := unix.Mmap(-1, 0, mapLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("sysmem: mmap %d bytes: %w", mapLen, err)
	}

	base := uintptr(unsafe.Pointer(unsafe.SliceData(mapped)))
	offset := AlignUp(base, alignment) - base

	return &Region{
		bytes: mapped[offset : offset+size : offset+size],
		raw:   rawRegion{mapped: mapped},
	}, nil
}

func releaseRegion(r *Region) error {
	return unix.Munmap(r.raw.mapped)
}
