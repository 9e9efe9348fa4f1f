package zone

import "unsafe"

// staticDigits holds the ten single-character digit strings the spec
// calls out (§4.3) as the canonical interning set: allocations this small
// and this common are worth sharing rather than repeating through the
// zone on every call.
var staticDigits = [10]string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

// StaticStrings is a small pool of zone-backed, never-freed strings for
// the handful of values callers intern over and over: the empty string
// and the ten ASCII digits. Free on a block returned from here is a
// no-op when the zone's static fast path is enabled (§4.3); otherwise it
// frees the block like any other — callers are expected to never free
// these payloads.
type StaticStrings struct {
	empty  unsafe.Pointer
	digits [10]unsafe.Pointer
}

// NewStaticStrings formats the interned set inside z, tagging every
// block TagStatic.
func NewStaticStrings(z *Zone) *StaticStrings {
	s := &StaticStrings{}

	s.empty = z.internString("")
	for i, d := range staticDigits {
		s.digits[i] = z.internString(d)
	}

	return s
}

// Empty returns the interned empty string's backing bytes (a single NUL
// terminator, matching the C source's "" -> {0}).
func (s *StaticStrings) Empty() unsafe.Pointer {
	return s.empty
}

// Digit returns the interned single-character string for the given
// decimal digit, or nil if n is out of [0,9].
func (s *StaticStrings) Digit(n int) unsafe.Pointer {
	if n < 0 || n > 9 {
		return nil
	}

	return s.digits[n]
}

// internString allocates a NUL-terminated copy of v tagged TagStatic.
func (z *Zone) internString(v string) unsafe.Pointer {
	ptr := z.Alloc(uintptr(len(v))+1, TagStatic)
	if ptr == nil {
		return nil
	}

	dst := unsafe.Slice((*byte)(ptr), len(v)+1)
	copy(dst, v)
	dst[len(v)] = 0

	return ptr
}
