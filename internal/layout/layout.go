// Package layout computes and reports the memory layout of the
// allocators' own in-band control structures — block headers, free-list
// links, temp-memory headers — the same struct-layout arithmetic the
// teacher's compiler-facing layout package used for array/slice/struct
// codegen, narrowed here to describing what a Zone or Hunk actually
// carves out of its backing bytes. cmd/memcore-inspect uses this to
// answer "how much of a live block is overhead" without needing
// reflection over another package's unexported fields.
package layout

import "fmt"

// FieldInfo describes one field of a control structure: its name, a
// human type label, and its size/alignment in bytes.
type FieldInfo struct {
	Name      string
	Type      string
	Size      int64
	Alignment int64

	// Offset is filled in by CalculateStructLayout.
	Offset int64
}

// PaddingInfo records padding bytes the layout calculator inserted to
// satisfy a field's or the struct's own alignment.
type PaddingInfo struct {
	Offset int64
	Size   int64
	Reason string
}

// StructLayout is the computed layout of one control structure.
type StructLayout struct {
	Name       string
	Fields     []FieldInfo
	TotalSize  int64
	Alignment  int64
	PaddingMap []PaddingInfo
}

// Calculator computes struct layouts for a target pointer width.
type Calculator struct {
	TargetPointerSize int64
}

// NewCalculator returns a Calculator sized for the given pointer width
// (8 on every platform this module currently targets).
func NewCalculator(targetPointerSize int64) *Calculator {
	return &Calculator{TargetPointerSize: targetPointerSize}
}

// CalculateStructLayout lays fields out in declaration order, inserting
// padding exactly the way the Go compiler would for an equivalent
// struct: each field aligned to its own requirement, the struct's total
// size rounded up to its widest field's alignment.
func (c *Calculator) CalculateStructLayout(name string, fields []FieldInfo) (*StructLayout, error) {
	if len(fields) == 0 {
		return &StructLayout{Name: name, Alignment: 1}, nil
	}

	laidOut := make([]FieldInfo, 0, len(fields))

	var padding []PaddingInfo

	offset := int64(0)
	maxAlign := int64(1)

	for _, f := range fields {
		if f.Size <= 0 {
			return nil, fmt.Errorf("layout: field %s has non-positive size %d", f.Name, f.Size)
		}

		align := f.Alignment
		if align <= 0 {
			align = 1
		}

		if align > maxAlign {
			maxAlign = align
		}

		aligned := alignUp(offset, align)
		if aligned > offset {
			padding = append(padding, PaddingInfo{Offset: offset, Size: aligned - offset, Reason: "field alignment: " + f.Name})
		}

		f.Offset = aligned
		laidOut = append(laidOut, f)
		offset = aligned + f.Size
	}

	total := alignUp(offset, maxAlign)
	if total > offset {
		padding = append(padding, PaddingInfo{Offset: offset, Size: total - offset, Reason: "struct alignment"})
	}

	return &StructLayout{Name: name, Fields: laidOut, TotalSize: total, Alignment: maxAlign, PaddingMap: padding}, nil
}

func alignUp(value, alignment int64) int64 {
	if alignment <= 1 {
		return value
	}

	return (value + alignment - 1) &^ (alignment - 1)
}

// GetFieldOffset looks up a field's computed offset by name.
func (sl *StructLayout) GetFieldOffset(name string) (int64, bool) {
	for _, f := range sl.Fields {
		if f.Name == name {
			return f.Offset, true
		}
	}

	return 0, false
}

// PaddingBytes sums every inserted padding region.
func (sl *StructLayout) PaddingBytes() int64 {
	var total int64
	for _, p := range sl.PaddingMap {
		total += p.Size
	}

	return total
}

// EfficiencyRatio is the fraction of TotalSize that is field data rather
// than padding — useful as a quick "is this header layout wasteful"
// check when comparing search-direction configs.
func (sl *StructLayout) EfficiencyRatio() float64 {
	if sl.TotalSize == 0 {
		return 1.0
	}

	var useful int64
	for _, f := range sl.Fields {
		useful += f.Size
	}

	return float64(useful) / float64(sl.TotalSize)
}

func (sl *StructLayout) String() string {
	return fmt.Sprintf("%s (%d fields, %d bytes, %d padding, %.1f%% efficient)",
		sl.Name, len(sl.Fields), sl.TotalSize, sl.PaddingBytes(), sl.EfficiencyRatio()*100)
}
