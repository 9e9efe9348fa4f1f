//go:build windows

package sysmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// rawRegion keeps the VirtualAlloc base address; VirtualFree with
// MEM_RELEASE requires the exact base that VirtualAlloc returned.
type rawRegion struct {
	base uintptr
	size uintptr
}

func acquireRegion(size uintptr, alignment uintptr) (*Region, error) {
	reserveSize := size
	if alignment > 4096 {
		reserveSize += alignment
	}

	base, err := windows.VirtualAlloc(0, reserveSize, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("sysmem: VirtualAlloc %d bytes: %w", reserveSize, err)
	}

	offset := AlignUp(base, alignment) - base
	ptr := unsafe.Pointer(base + offset)
	bytes := unsafe.Slice((*byte)(ptr), size)

	return &Region{
		bytes: bytes,
		raw:   rawRegion{base: base, size: reserveSize},
	}, nil
}

func releaseRegion(r *Region) error {
	return windows.VirtualFree(r.raw.base, 0, windows.MEM_RELEASE)
}
