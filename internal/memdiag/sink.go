package memdiag

import "github.com/orizon-lang/memcore/internal/memsink"

// RecordingSink wraps another Sink and mirrors every Fatal/Drop call
// into a Recorder before forwarding it, so a diagnostics consumer (a
// live CLI, a test assertion) can observe allocator errors without
// having to be the thing that decides what happens next.
type RecordingSink struct {
	inner memsink.Sink
	rec   *Recorder
}

// NewRecordingSink wraps inner, recording into rec.
func NewRecordingSink(inner memsink.Sink, rec *Recorder) *RecordingSink {
	return &RecordingSink{inner: inner, rec: rec}
}

func (s *RecordingSink) Fatal(err *memsink.StandardError) {
	s.rec.Record(Event{Level: LevelError, Category: CategoryFatal, Message: err.Error()})
	s.inner.Fatal(err)
}

func (s *RecordingSink) Drop(err *memsink.StandardError) {
	s.rec.Record(Event{Level: LevelWarning, Category: CategoryDrop, Message: err.Error()})
	s.inner.Drop(err)
}
