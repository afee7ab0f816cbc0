package voxel

import (
	"errors"
	"math"
	"testing"
)

func TestResolveBounds_EmptySet(t *testing.T) {
	_, err := ResolveBounds(nil, nil, 1.0)
	if err == nil {
		t.Fatalf("expected error for empty point set")
	}
	var iie *InvalidInputError
	if !errors.As(err, &iie) {
		t.Fatalf("expected InvalidInputError, got %T: %v", err, err)
	}
}

func TestResolveBounds_NoFinitePoints(t *testing.T) {
	pts := []Point{{X: math.NaN(), Y: 0, Z: 0}, {X: math.Inf(1), Y: 1, Z: 1}}
	_, err := ResolveBounds(pts, nil, 1.0)
	var iie *InvalidInputError
	if !errors.As(err, &iie) {
		t.Fatalf("expected InvalidInputError for all-non-finite set, got %v", err)
	}
}

func TestResolveBounds_ComputedExtent(t *testing.T) {
	pts := []Point{
		{X: -1, Y: 2, Z: 3},
		{X: 4, Y: -5, Z: 6},
		{X: 0, Y: 0, Z: 0},
	}
	b, err := ResolveBounds(pts, nil, 0.5)
	if err != nil {
		t.Fatalf("ResolveBounds: %v", err)
	}
	want := Bounds{Min: [3]float64{-1, -5, 0}, Max: [3]float64{4, 2, 6}}
	if b != want {
		t.Fatalf("bounds = %+v, want %+v", b, want)
	}
}

// Non-finite points must not poison the computed extent.
func TestResolveBounds_SkipsNonFinite(t *testing.T) {
	pts := []Point{
		{X: 1, Y: 1, Z: 1},
		{X: math.Inf(1), Y: 0, Z: 0},
		{X: 2, Y: 2, Z: 2},
	}
	b, err := ResolveBounds(pts, nil, 1.0)
	if err != nil {
		t.Fatalf("ResolveBounds: %v", err)
	}
	if b.Max[0] != 2 || b.Min[0] != 1 {
		t.Fatalf("extent poisoned by non-finite point: %+v", b)
	}
}

func TestResolveBounds_DegenerateAxisExpanded(t *testing.T) {
	// all points coplanar in z
	pts := []Point{
		{X: 0, Y: 0, Z: 5},
		{X: 1, Y: 1, Z: 5},
	}
	b, err := ResolveBounds(pts, nil, 2.0)
	if err != nil {
		t.Fatalf("ResolveBounds: %v", err)
	}
	if b.Min[2] != 4 || b.Max[2] != 6 {
		t.Fatalf("z axis not expanded to one voxel span: min=%v max=%v", b.Min[2], b.Max[2])
	}
}

func TestResolveBounds_SinglePoint(t *testing.T) {
	b, err := ResolveBounds([]Point{{X: 1, Y: 2, Z: 3}}, nil, 1.0)
	if err != nil {
		t.Fatalf("ResolveBounds: %v", err)
	}
	for i := 0; i < 3; i++ {
		if !(b.Max[i] > b.Min[i]) {
			t.Fatalf("axis %d still degenerate: %+v", i, b)
		}
		if got := b.Max[i] - b.Min[i]; math.Abs(got-1.0) > 1e-12 {
			t.Fatalf("axis %d span = %v, want 1.0", i, got)
		}
	}
}

func TestResolveBounds_OverrideWins(t *testing.T) {
	pts := []Point{{X: 100, Y: 100, Z: 100}}
	override := &Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{10, 10, 10}}
	b, err := ResolveBounds(pts, override, 1.0)
	if err != nil {
		t.Fatalf("ResolveBounds: %v", err)
	}
	if b != *override {
		t.Fatalf("override not applied: %+v", b)
	}
}

func TestResolveBounds_InvalidOverride(t *testing.T) {
	// max < min cannot be fixed by degenerate expansion
	override := &Bounds{Min: [3]float64{5, 0, 0}, Max: [3]float64{1, 10, 10}}
	_, err := ResolveBounds(nil, override, 1.0)
	var iie *InvalidInputError
	if !errors.As(err, &iie) {
		t.Fatalf("expected InvalidInputError for inverted bounds, got %v", err)
	}
}

func TestResolveBounds_DegenerateOverrideExpanded(t *testing.T) {
	override := &Bounds{Min: [3]float64{0, 0, 7}, Max: [3]float64{10, 10, 7}}
	b, err := ResolveBounds(nil, override, 2.0)
	if err != nil {
		t.Fatalf("ResolveBounds: %v", err)
	}
	if b.Min[2] != 6 || b.Max[2] != 8 {
		t.Fatalf("degenerate override axis not expanded: %+v", b)
	}
}

func TestResolveBounds_BadVoxelSize(t *testing.T) {
	pts := []Point{{X: 0, Y: 0, Z: 0}}
	for _, vs := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := ResolveBounds(pts, nil, vs)
		var iie *InvalidInputError
		if !errors.As(err, &iie) {
			t.Fatalf("voxel size %v: expected InvalidInputError, got %v", vs, err)
		}
	}
}
