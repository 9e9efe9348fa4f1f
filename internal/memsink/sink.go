// Package memsink provides the error-reporting boundary the Zone and Hunk
// allocators call into. It does not decide what happens on error — that is
// the engine's job — it only standardizes the shape of what gets reported
// and the fatal/drop split the allocators rely on.
package memsink

import (
	"fmt"
	"runtime"
)

// Category groups related error codes the same way the teacher's
// errors.ErrorCategory does, narrowed to this module's domain.
type Category string

const (
	CategoryMemory     Category = "MEMORY"
	CategoryZone       Category = "ZONE"
	CategoryHunk       Category = "HUNK"
	CategoryBounds     Category = "BOUNDS"
	CategoryValidation Category = "VALIDATION"
)

// StandardError is a structured error carrying a category, a stable code,
// a human message, free-form context, and the caller that raised it.
type StandardError struct {
	Category Category
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

func newStandardError(category Category, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(2)

	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}

// Sink is the pair of callbacks an engine injects so the allocators stay
// independent of its error machinery (no single exception hierarchy).
//
// Fatal is expected to end the operation for good: the allocator has
// already left its invariants intact, and an engine's sink exits the
// process (or, in tests, panics). If a sink's Fatal does return, as the
// recording test doubles' does, the allocator call returns at once with
// a nil or zero result. Drop may return; the allocator call that
// raised it has already unwound to a safe state and the operation is
// simply aborted.
type Sink interface {
	Fatal(err *StandardError)
	Drop(err *StandardError)
}

// Fatal-error constructors. Every one of these corresponds to a §7 Fatal
// entry in the spec.

// BadZoneID reports that a block's sentinel id did not match ZONEID.
func BadZoneID(op string, got, want int32) *StandardError {
	return newStandardError(CategoryZone, "BAD_ZONE_ID",
		fmt.Sprintf("%s: block id %#x does not match expected %#x", op, got, want),
		map[string]interface{}{"op": op, "got": got, "want": want})
}

// DoubleFree reports a free of a block already tagged FREE.
func DoubleFree(op string) *StandardError {
	return newStandardError(CategoryZone, "DOUBLE_FREE",
		fmt.Sprintf("%s: freed a pointer that is already free", op),
		map[string]interface{}{"op": op})
}

// TrashSentinelCorrupt reports a write past the end of a block's payload.
func TrashSentinelCorrupt(op string, size int) *StandardError {
	return newStandardError(CategoryZone, "TRASH_SENTINEL",
		fmt.Sprintf("%s: block wrote past its end (size %d)", op, size),
		map[string]interface{}{"op": op, "size": size})
}

// FreeTagsStatic reports zone_free_tags(STATIC), which is always a bug.
func FreeTagsStatic() *StandardError {
	return newStandardError(CategoryZone, "FREE_TAGS_STATIC",
		"zone_free_tags called with TAG_STATIC", nil)
}

// TagIsFree reports an allocation request naming tag FREE.
func TagIsFree(op string) *StandardError {
	return newStandardError(CategoryZone, "TAG_IS_FREE",
		fmt.Sprintf("%s: tried to allocate with TAG_FREE", op),
		map[string]interface{}{"op": op})
}

// SegmentAllocFailed reports the OS refusing to back a new zone segment.
func SegmentAllocFailed(op string, bytes uintptr) *StandardError {
	return newStandardError(CategoryZone, "SEGMENT_ALLOC_FAILED",
		fmt.Sprintf("%s: failed to allocate %d bytes for a new zone segment", op, bytes),
		map[string]interface{}{"op": op, "bytes": bytes})
}

// BadHunkMagic reports a temp-frame header whose magic was not MAGIC.
func BadHunkMagic(got, want uint32) *StandardError {
	return newStandardError(CategoryHunk, "BAD_HUNK_MAGIC",
		fmt.Sprintf("hunk_free_temp: bad magic %#x (want %#x)", got, want),
		map[string]interface{}{"got": got, "want": want})
}

// HunkUninitialized reports hunk_alloc called before hunk_init.
func HunkUninitialized() *StandardError {
	return newStandardError(CategoryHunk, "HUNK_UNINITIALIZED",
		"hunk_alloc: hunk memory system not initialized", nil)
}

// HunkRegionAllocFailed reports the OS refusing to back the hunk region.
func HunkRegionAllocFailed(bytes uintptr) *StandardError {
	return newStandardError(CategoryHunk, "HUNK_REGION_ALLOC_FAILED",
		fmt.Sprintf("hunk_init: failed to allocate %d bytes for the hunk", bytes),
		map[string]interface{}{"bytes": bytes})
}

// Drop-error constructors. Every one of these corresponds to a §7 Drop entry.

// NullFree reports zone_free(nil).
func NullFree() *StandardError {
	return newStandardError(CategoryZone, "NULL_FREE", "zone_free: nil pointer", nil)
}

// HunkExhausted reports hunk_alloc/hunk_alloc_temp running past the region.
func HunkExhausted(op string, size uintptr) *StandardError {
	return newStandardError(CategoryHunk, "HUNK_EXHAUSTED",
		fmt.Sprintf("%s: failed on %d bytes, hunk exhausted", op, size),
		map[string]interface{}{"op": op, "size": size})
}
