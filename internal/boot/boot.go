// Package boot wires the process-wide memory singletons together the
// way Com_Init formats them in the teacher's original source: a small
// zone for short-lived allocations, a large main zone for everything
// else, and a hunk carved out last so its temp-memory fallback path can
// point at an already-initialized main zone.
package boot

import (
	"github.com/orizon-lang/memcore/internal/hunk"
	"github.com/orizon-lang/memcore/internal/memdiag"
	"github.com/orizon-lang/memcore/internal/memsink"
	"github.com/orizon-lang/memcore/internal/zone"
)

const (
	defaultSmallZoneBytes = 512 * 1024
	defaultMainZoneBytes  = 12 * 1024 * 1024
	defaultHunkBytes      = 56 * 1024 * 1024
)

// Config sizes the three singletons; zero fields fall back to the
// teacher's defaults (DEF_COMZONEMEGS/DEF_COMHUNKMEGS and the small
// zone's fixed 512 KiB).
type Config struct {
	SmallZoneBytes uintptr
	MainZoneBytes  uintptr
	HunkBytes      uintptr
}

func (c Config) withDefaults() Config {
	if c.SmallZoneBytes == 0 {
		c.SmallZoneBytes = defaultSmallZoneBytes
	}

	if c.MainZoneBytes == 0 {
		c.MainZoneBytes = defaultMainZoneBytes
	}

	if c.HunkBytes == 0 {
		c.HunkBytes = defaultHunkBytes
	}

	return c
}

// System is the set of singletons a single process needs: the two
// zones and the hunk, plus the diagnostics recorder every allocator's
// sink has been wired to report into.
type System struct {
	Small *zone.Zone
	Main  *zone.Zone
	Hunk  *hunk.Hunk
	Diag  *memdiag.Recorder
}

// Init formats the small zone, the main zone, and the hunk, in that
// order (Com_InitSmallZoneMemory, Com_InitZoneMemory,
// Com_InitHunkMemory), sharing one diagnostics-recording sink across
// all three and pointing the hunk's pre-Init temp-memory fallback at
// the main zone.
func Init(baseSink memsink.Sink, cfg Config) (*System, error) {
	cfg = cfg.withDefaults()

	diag := memdiag.NewRecorder()
	sink := memdiag.NewRecordingSink(baseSink, diag)

	small, err := zone.New("small", sink, cfg.SmallZoneBytes, zone.WithBackwardSearch(), zone.WithMultiSegmentGrowth(false))
	if err != nil {
		return nil, err
	}

	main, err := zone.New("main", sink, cfg.MainZoneBytes, zone.WithDiagnostics(diag))
	if err != nil {
		return nil, err
	}

	h, err := hunk.New(sink, cfg.HunkBytes, main)
	if err != nil {
		return nil, err
	}

	return &System{Small: small, Main: main, Hunk: h, Diag: diag}, nil
}
