package layout

import "testing"

// blockHeaderFields mirrors internal/zone's blockHeader: next, prev,
// size (all uintptr) followed by tag and id (int32 each).
func blockHeaderFields() []FieldInfo {
	return []FieldInfo{
		{Name: "next", Type: "uintptr", Size: 8, Alignment: 8},
		{Name: "prev", Type: "uintptr", Size: 8, Alignment: 8},
		{Name: "size", Type: "uintptr", Size: 8, Alignment: 8},
		{Name: "tag", Type: "int32", Size: 4, Alignment: 4},
		{Name: "id", Type: "int32", Size: 4, Alignment: 4},
	}
}

func TestCalculateStructLayoutBlockHeader(t *testing.T) {
	c := NewCalculator(8)

	l, err := c.CalculateStructLayout("blockHeader", blockHeaderFields())
	if err != nil {
		t.Fatalf("CalculateStructLayout: %v", err)
	}

	if l.TotalSize != 32 {
		t.Fatalf("TotalSize = %d, want 32 (no padding: three 8-byte fields then two 4-byte fields)", l.TotalSize)
	}

	if l.PaddingBytes() != 0 {
		t.Fatalf("PaddingBytes() = %d, want 0", l.PaddingBytes())
	}

	if off, ok := l.GetFieldOffset("id"); !ok || off != 28 {
		t.Fatalf("GetFieldOffset(id) = (%d, %v), want (28, true)", off, ok)
	}
}

// tempHeaderFields mirrors internal/hunk's tempHeader: magic and size,
// both uint32.
func tempHeaderFields() []FieldInfo {
	return []FieldInfo{
		{Name: "magic", Type: "uint32", Size: 4, Alignment: 4},
		{Name: "size", Type: "uint32", Size: 4, Alignment: 4},
	}
}

func TestCalculateStructLayoutTempHeader(t *testing.T) {
	c := NewCalculator(8)

	l, err := c.CalculateStructLayout("tempHeader", tempHeaderFields())
	if err != nil {
		t.Fatalf("CalculateStructLayout: %v", err)
	}

	if l.TotalSize != 8 {
		t.Fatalf("TotalSize = %d, want 8", l.TotalSize)
	}

	if l.Alignment != 4 {
		t.Fatalf("Alignment = %d, want 4", l.Alignment)
	}
}

func TestCalculateStructLayoutInsertsAlignmentPadding(t *testing.T) {
	c := NewCalculator(8)

	fields := []FieldInfo{
		{Name: "tag", Type: "int32", Size: 4, Alignment: 4},
		{Name: "next", Type: "uintptr", Size: 8, Alignment: 8},
	}

	l, err := c.CalculateStructLayout("misaligned", fields)
	if err != nil {
		t.Fatalf("CalculateStructLayout: %v", err)
	}

	if l.PaddingBytes() != 4 {
		t.Fatalf("PaddingBytes() = %d, want 4 (padding before the 8-byte field)", l.PaddingBytes())
	}

	if off, _ := l.GetFieldOffset("next"); off != 8 {
		t.Fatalf("next offset = %d, want 8", off)
	}

	if l.TotalSize != 16 {
		t.Fatalf("TotalSize = %d, want 16", l.TotalSize)
	}
}

func TestCalculateStructLayoutRejectsNonPositiveSize(t *testing.T) {
	c := NewCalculator(8)

	_, err := c.CalculateStructLayout("bad", []FieldInfo{{Name: "x", Size: 0, Alignment: 1}})
	if err == nil {
		t.Fatal("expected an error for a zero-size field")
	}
}

func TestEmptyStructLayout(t *testing.T) {
	c := NewCalculator(8)

	l, err := c.CalculateStructLayout("empty", nil)
	if err != nil {
		t.Fatalf("CalculateStructLayout: %v", err)
	}

	if l.TotalSize != 0 || l.Alignment != 1 {
		t.Fatalf("empty layout = %+v, want zero size and alignment 1", l)
	}
}

func TestEfficiencyRatio(t *testing.T) {
	c := NewCalculator(8)

	l, err := c.CalculateStructLayout("blockHeader", blockHeaderFields())
	if err != nil {
		t.Fatalf("CalculateStructLayout: %v", err)
	}

	if ratio := l.EfficiencyRatio(); ratio != 1.0 {
		t.Fatalf("EfficiencyRatio() = %f, want 1.0 (no padding)", ratio)
	}
}

func TestStructLayoutString(t *testing.T) {
	c := NewCalculator(8)

	l, err := c.CalculateStructLayout("blockHeader", blockHeaderFields())
	if err != nil {
		t.Fatalf("CalculateStructLayout: %v", err)
	}

	if got := l.String(); got == "" {
		t.Fatal("String() returned an empty string")
	}
}
