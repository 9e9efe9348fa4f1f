//go:build !unix && !windows

package sysmem

import "unsafe"

// rawRegion has nothing to release on platforms without a direct
// OS-mapping path; the Go GC owns the backing slice.
type rawRegion struct{}

// acquireRegion falls back to a plain heap allocation, over-sized by one
// alignment unit and trimmed to the aligned sub-slice — the same
// placeholder the teacher's RegionAllocator.allocateSystemMemory ships
// for the "would use mmap()/VirtualAlloc() in production" case.
func acquireRegion(size uintptr, alignment uintptr) (*Region, error) {
	buf := make([]byte, size+alignment)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	offset := AlignUp(base, alignment) - base

	return &Region{bytes: buf[offset : offset+size : offset+size]}, nil
}

func releaseRegion(*Region) error {
	return nil
}
