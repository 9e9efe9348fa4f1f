package memdiag

import (
	"strings"
	"testing"

	"github.com/orizon-lang/memcore/internal/memsink"
)

func TestRecorderCountsAndSummary(t *testing.T) {
	r := NewRecorder()

	r.Record(Event{Level: LevelInfo, Category: CategorySegmentGrowth, Zone: "main", Bytes: 2 << 20})
	r.Record(Event{Level: LevelWarning, Category: CategoryTempMemory, Message: "temp memory churn"})
	r.Record(Event{Level: LevelError, Category: CategoryFatal, Message: "bad zone id"})

	if r.ErrorCount() != 1 {
		t.Fatalf("ErrorCount() = %d, want 1", r.ErrorCount())
	}

	if r.WarningCount() != 1 {
		t.Fatalf("WarningCount() = %d, want 1", r.WarningCount())
	}

	if len(r.ByCategory(CategoryTempMemory)) != 1 {
		t.Fatalf("ByCategory(CategoryTempMemory) returned %d events, want 1", len(r.ByCategory(CategoryTempMemory)))
	}

	summary := r.Summary()
	if !strings.Contains(summary, "1 error(s), 1 warning(s) across 3 event(s)") {
		t.Fatalf("Summary() = %q, missing expected totals", summary)
	}
}

func TestRecorderSummaryWhenEmpty(t *testing.T) {
	r := NewRecorder()

	if got := r.Summary(); got != "no memory diagnostics recorded." {
		t.Fatalf("Summary() on an empty recorder = %q", got)
	}
}

type stubSink struct {
	fatals, drops int
}

func (s *stubSink) Fatal(*memsink.StandardError) { s.fatals++ }
func (s *stubSink) Drop(*memsink.StandardError)  { s.drops++ }

func TestRecordingSinkForwardsAndRecords(t *testing.T) {
	inner := &stubSink{}
	rec := NewRecorder()
	sink := NewRecordingSink(inner, rec)

	sink.Fatal(memsink.BadZoneID("zone_free", 0, 0x1d4a11))
	sink.Drop(memsink.NullFree())

	if inner.fatals != 1 || inner.drops != 1 {
		t.Fatalf("expected the wrapped sink to see both calls, got fatals=%d drops=%d", inner.fatals, inner.drops)
	}

	if r := rec.ErrorCount(); r != 1 {
		t.Fatalf("ErrorCount() = %d, want 1", r)
	}

	if r := rec.WarningCount(); r != 1 {
		t.Fatalf("WarningCount() = %d, want 1", r)
	}
}

func TestFormatEvent(t *testing.T) {
	withZone := FormatEvent(Event{Level: LevelInfo, Category: CategorySegmentGrowth, Zone: "main", Message: "grew", Bytes: 4096})
	if !strings.Contains(withZone, "main") || !strings.Contains(withZone, "4096 bytes") {
		t.Fatalf("FormatEvent with a zone name = %q", withZone)
	}

	withoutZone := FormatEvent(Event{Level: LevelWarning, Category: CategoryDrop, Message: "dropped"})
	if strings.Contains(withoutZone, "bytes") {
		t.Fatalf("FormatEvent without a zone name should omit byte count: %q", withoutZone)
	}
}
