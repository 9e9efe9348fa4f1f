package zone

import (
	"testing"
	"unsafe"

	"github.com/orizon-lang/memcore/internal/memdiag"
	"github.com/orizon-lang/memcore/internal/memsink"
)

// recordingSink never terminates the test process; it just remembers
// what it was told, so assertions can check whether an operation raised
// a Fatal/Drop without actually unwinding the goroutine.
type recordingSink struct {
	fatals []*memsink.StandardError
	drops  []*memsink.StandardError
}

func (s *recordingSink) Fatal(err *memsink.StandardError) { s.fatals = append(s.fatals, err) }
func (s *recordingSink) Drop(err *memsink.StandardError)  { s.drops = append(s.drops, err) }

func newTestZone(t *testing.T, bytes uintptr, opts ...Option) (*Zone, *recordingSink) {
	t.Helper()

	sink := &recordingSink{}

	z, err := New("test", sink, bytes, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return z, sink
}

func writePattern(ptr unsafe.Pointer, n int, b byte) {
	dst := unsafe.Slice((*byte)(ptr), n)
	for i := range dst {
		dst[i] = b
	}
}

func readByte(ptr unsafe.Pointer, i int) byte {
	return *(*byte)(unsafe.Pointer(uintptr(ptr) + uintptr(i))) //nolint:govet
}

// S1: a straightforward alloc/split, then free back to a single coalesced
// block covering the whole segment.
func TestZoneAllocFreeCoalesces(t *testing.T) {
	z, sink := newTestZone(t, 64*1024)

	a := z.Alloc(128, TagGeneral)
	if a == nil {
		t.Fatal("Alloc returned nil")
	}

	writePattern(a, 128, 0x42)

	b := z.Alloc(256, TagRenderer)
	if b == nil {
		t.Fatal("Alloc returned nil")
	}

	if readByte(a, 0) != 0x42 {
		t.Fatal("second alloc corrupted the first block's payload")
	}

	if report := z.Check(); !report.OK() {
		t.Fatalf("Check found violations after allocation: %v", report.Violations)
	}

	z.Free(a)
	z.Free(b)

	if len(sink.fatals) != 0 {
		t.Fatalf("unexpected fatal errors: %v", sink.fatals)
	}

	report := z.Check()
	if !report.OK() {
		t.Fatalf("Check found violations after freeing: %v", report.Violations)
	}

	if report.FreeBlocks != 1 {
		t.Fatalf("expected coalescing back to a single free block, got %d free blocks", report.FreeBlocks)
	}
}

// S2: FreeTags sweeps every block of one tag and leaves others alone.
func TestZoneFreeTagsSweepsOnlyMatchingTag(t *testing.T) {
	z, sink := newTestZone(t, 64*1024)

	var renderer []unsafe.Pointer
	for i := 0; i < 5; i++ {
		p := z.Alloc(64, TagRenderer)
		if p == nil {
			t.Fatalf("Alloc %d returned nil", i)
		}

		renderer = append(renderer, p)
	}

	keep := z.Alloc(64, TagGeneral)
	if keep == nil {
		t.Fatal("Alloc returned nil")
	}

	writePattern(keep, 64, 0x7)

	count, err := z.FreeTags(TagRenderer)
	if err != nil {
		t.Fatalf("FreeTags: %v", err)
	}

	if count != len(renderer) {
		t.Fatalf("FreeTags freed %d blocks, want %d", count, len(renderer))
	}

	if readByte(keep, 0) != 0x7 {
		t.Fatal("FreeTags disturbed a block with a different tag")
	}

	if len(sink.fatals) != 0 {
		t.Fatalf("unexpected fatal errors: %v", sink.fatals)
	}

	if report := z.Check(); !report.OK() {
		t.Fatalf("Check found violations after FreeTags: %v", report.Violations)
	}
}

// S3: static strings are allocated once and Free on them is a no-op.
func TestStaticStringsFreeIsNoOp(t *testing.T) {
	z, sink := newTestZone(t, 64*1024)

	statics := NewStaticStrings(z)

	digit3 := statics.Digit(3)
	if digit3 == nil {
		t.Fatal("Digit(3) returned nil")
	}

	if readByte(digit3, 0) != '3' {
		t.Fatalf("Digit(3) payload = %q, want '3'", readByte(digit3, 0))
	}

	z.Free(digit3)
	z.Free(digit3) // a second free must also be a harmless no-op

	if len(sink.fatals) != 0 {
		t.Fatalf("freeing a static string raised fatal errors: %v", sink.fatals)
	}

	if readByte(digit3, 0) != '3' {
		t.Fatal("freeing a static string corrupted its payload")
	}
}

func TestZoneAllocClearZeroesPayload(t *testing.T) {
	z, _ := newTestZone(t, 4096)

	p := z.Alloc(32, TagGeneral)
	writePattern(p, 32, 0xff)
	z.Free(p)

	cleared := z.AllocClear(32)
	if cleared == nil {
		t.Fatal("AllocClear returned nil")
	}

	dst := unsafe.Slice((*byte)(cleared), 32)
	for i, b := range dst {
		if b != 0 {
			t.Fatalf("byte %d = %#x, want 0", i, b)
		}
	}
}

func TestZoneFreeNilIsDropNotFatal(t *testing.T) {
	z, sink := newTestZone(t, 4096)

	z.Free(nil)

	if len(sink.drops) != 1 {
		t.Fatalf("expected one dropped error, got %d", len(sink.drops))
	}

	if len(sink.fatals) != 0 {
		t.Fatalf("nil free must not be fatal, got %v", sink.fatals)
	}
}

func TestZoneDoubleFreeIsFatal(t *testing.T) {
	z, sink := newTestZone(t, 4096)

	p := z.Alloc(16, TagGeneral)
	z.Free(p)
	z.Free(p)

	if len(sink.fatals) != 1 {
		t.Fatalf("expected one fatal error for a double free, got %d", len(sink.fatals))
	}
}

func TestZoneGrowsWhenSegmentExhausted(t *testing.T) {
	z, sink := newTestZone(t, 8192, WithMultiSegmentGrowth(true))

	var ptrs []unsafe.Pointer
	for i := 0; i < 64; i++ {
		p := z.Alloc(512, TagGeneral)
		if p == nil {
			t.Fatalf("Alloc %d returned nil; sink fatals: %v", i, sink.fatals)
		}

		ptrs = append(ptrs, p)
	}

	if len(z.segments) < 2 {
		t.Fatalf("expected zone to have grown beyond its initial segment, has %d", len(z.segments))
	}

	for _, p := range ptrs {
		z.Free(p)
	}

	if report := z.Check(); !report.OK() {
		t.Fatalf("Check found violations after filling and draining a multi-segment zone: %v", report.Violations)
	}
}

func TestZoneAllocWithTagFreeIsFatal(t *testing.T) {
	z, sink := newTestZone(t, 4096)

	if p := z.Alloc(16, TagFree); p != nil {
		t.Fatal("Alloc with TagFree should return nil")
	}

	if len(sink.fatals) != 1 {
		t.Fatalf("expected one fatal error, got %d", len(sink.fatals))
	}
}

func TestZoneBackwardSearchConfig(t *testing.T) {
	z, _ := newTestZone(t, 64*1024, WithBackwardSearch())

	if z.cfg.classCount() != 4 {
		t.Fatalf("backward search config should add the tiny class, got %d classes", z.cfg.classCount())
	}

	p := z.Alloc(16, TagGeneral)
	if p == nil {
		t.Fatal("Alloc returned nil under backward search config")
	}

	z.Free(p)

	if report := z.Check(); !report.OK() {
		t.Fatalf("Check found violations: %v", report.Violations)
	}
}

func TestZoneAllocDebugRecordsLabel(t *testing.T) {
	diag := memdiag.NewRecorder()
	sink := &recordingSink{}

	z, err := New("test", sink, 4096, WithDiagnostics(diag))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := z.AllocDebug(32, TagGeneral, "caller-label")
	if p == nil {
		t.Fatal("AllocDebug returned nil")
	}

	events := diag.ByCategory(memdiag.CategorySegmentGrowth)
	if len(events) != 1 {
		t.Fatalf("expected one recorded event, got %d", len(events))
	}

	if events[0].Message != "caller-label" {
		t.Fatalf("event message = %q, want %q", events[0].Message, "caller-label")
	}
}

func TestZoneAllocDebugWithoutRecorderBehavesLikeAlloc(t *testing.T) {
	z, _ := newTestZone(t, 4096)

	p := z.AllocDebug(32, TagGeneral, "unused-label")
	if p == nil {
		t.Fatal("AllocDebug returned nil")
	}

	if report := z.Check(); !report.OK() {
		t.Fatalf("Check found violations: %v", report.Violations)
	}
}
