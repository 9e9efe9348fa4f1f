package memsink

import (
	"testing"

	"go.uber.org/mock/gomock"
)

func TestStandardErrorFormatting(t *testing.T) {
	t.Run("IncludesCategoryCodeAndCaller", func(t *testing.T) {
		err := BadZoneID("zone_free", -1, 0x1d4a11)

		if err.Category != CategoryZone {
			t.Errorf("Category = %v, want %v", err.Category, CategoryZone)
		}

		if err.Code != "BAD_ZONE_ID" {
			t.Errorf("Code = %v, want BAD_ZONE_ID", err.Code)
		}

		if err.Caller == "" || err.Caller == "unknown" {
			t.Errorf("Caller not captured: %v", err.Caller)
		}

		want := "[ZONE:BAD_ZONE_ID] zone_free: block id -0x1 does not match expected 0x1d4a11 (caller: "
		if got := err.Error(); len(got) < len(want) || got[:len(want)] != want {
			t.Errorf("Error() = %q, want prefix %q", got, want)
		}
	})
}

func TestSinkDispatch(t *testing.T) {
	t.Run("FatalAndDropRouteIndependently", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		sink := NewMockSink(ctrl)

		fatalErr := BadHunkMagic(0xdead, 0x89537892)
		dropErr := NullFree()

		sink.EXPECT().Fatal(fatalErr)
		sink.EXPECT().Drop(dropErr)

		sink.Fatal(fatalErr)
		sink.Drop(dropErr)
	})
}
