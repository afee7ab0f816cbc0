package voxel

import (
	"fmt"
	"math"
	"strings"
)

// Category labels a point (and, after aggregation, a cell) with one of a
// fixed set of classes. The numeric order doubles as the tie-break
// priority used during category aggregation: when two labels have equal
// counts in a cell the larger value wins, so the effective priority is
// building > road > water > vegetation > terrain > unknown.
type Category uint8

const (
	CategoryUnknown Category = iota
	CategoryTerrain
	CategoryVegetation
	CategoryWater
	CategoryRoad
	CategoryBuilding

	// numCategories sizes per-cell category count arrays.
	numCategories = int(CategoryBuilding) + 1
)

var categoryNames = [numCategories]string{
	"unknown",
	"terrain",
	"vegetation",
	"water",
	"road",
	"building",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// ParseCategory maps a label string (case-insensitive) to a Category.
// Unrecognised labels map to CategoryUnknown with ok=false; the core does
// not validate label semantics beyond the fixed set.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if s == name {
			return Category(i), true
		}
	}
	return CategoryUnknown, false
}

// Point is one immutable input sample: a coordinate, an optional category
// label, and an optional scalar intensity. The core never mutates the
// source point set.
type Point struct {
	X, Y, Z float64

	// Category is meaningful only when HasCategory is set; unlabelled
	// points contribute to counts but not to the category layer.
	Category    Category
	HasCategory bool

	// Intensity is carried through for callers (e.g. height or return
	// strength); aggregation itself works on counts.
	Intensity float64
}

// Finite reports whether all three coordinates are finite. Non-finite
// points are tallied as out-of-bounds during voxelization rather than
// propagating NaN into the grid.
func (p Point) Finite() bool {
	for _, c := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
