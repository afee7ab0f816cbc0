package voxel

import (
	"fmt"
	"math"
	"strings"
)

// Axis identifies one of the three grid axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// ParseAxis accepts "x", "y" or "z" in either case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis %q (want x, y or z)", s)
}

// GridSpec fixes the geometry of a voxel grid: the minimum corner of the
// bounding box, the uniform cell edge length, and the cell count per
// axis. It is computed once per voxelization request and never changes
// afterwards.
type GridSpec struct {
	Origin    [3]float64 `json:"origin"`
	VoxelSize float64    `json:"voxel_size"`
	Dims      [3]int     `json:"dims"`
}

// NewGridSpec computes grid dimensions for the box at the given voxel
// size: ceil(extent/size) per axis with a floor of one cell, so the box
// [Origin, Origin+Dims*VoxelSize] always covers the bounds.
func NewGridSpec(b Bounds, voxelSize float64) (GridSpec, error) {
	if !(voxelSize > 0) || math.IsInf(voxelSize, 0) {
		return GridSpec{}, invalidInputf("voxel size must be a positive finite number, got %v", voxelSize)
	}
	s := GridSpec{Origin: b.Min, VoxelSize: voxelSize}
	for i := 0; i < 3; i++ {
		extent := b.Max[i] - b.Min[i]
		if !(extent > 0) {
			return GridSpec{}, invalidInputf("non-positive extent %v on axis %s", extent, Axis(i))
		}
		n := int(math.Ceil(extent / voxelSize))
		if n < 1 {
			n = 1
		}
		s.Dims[i] = n
	}
	return s, nil
}

// CellCount returns nx*ny*nz.
func (s GridSpec) CellCount() int {
	return s.Dims[0] * s.Dims[1] * s.Dims[2]
}

// Idx flattens a cell coordinate. Layout is x-major with z fastest:
// idx = (ix*ny + iy)*nz + iz.
func (s GridSpec) Idx(ix, iy, iz int) int {
	return (ix*s.Dims[1]+iy)*s.Dims[2] + iz
}

// CellCenter returns the geometric centre of a cell in the original input
// coordinate space: origin + (index+0.5)*voxelSize per axis.
func (s GridSpec) CellCenter(ix, iy, iz int) [3]float64 {
	return [3]float64{
		s.Origin[0] + (float64(ix)+0.5)*s.VoxelSize,
		s.Origin[1] + (float64(iy)+0.5)*s.VoxelSize,
		s.Origin[2] + (float64(iz)+0.5)*s.VoxelSize,
	}
}

// MaxCorner returns origin + dims*voxelSize, the top corner of the cell
// coverage (which may exceed the resolved bounds by up to one cell).
func (s GridSpec) MaxCorner() [3]float64 {
	return [3]float64{
		s.Origin[0] + float64(s.Dims[0])*s.VoxelSize,
		s.Origin[1] + float64(s.Dims[1])*s.VoxelSize,
		s.Origin[2] + float64(s.Dims[2])*s.VoxelSize,
	}
}

// locate maps a point to its flattened cell index.
//
// Indices are clamped to the grid by at most one cell per axis. That
// keeps a point sitting exactly on the upper box face in the last cell
// and absorbs floating-point overshoot at either boundary. Anything
// farther out, and any non-finite coordinate, reports ok=false so the
// caller can tally it as out-of-bounds.
func (s GridSpec) locate(p Point) (int, bool) {
	if !p.Finite() {
		return 0, false
	}
	coords := [3]float64{p.X, p.Y, p.Z}
	var cell [3]int
	for i := 0; i < 3; i++ {
		f := math.Floor((coords[i] - s.Origin[i]) / s.VoxelSize)
		// compare in float to avoid int overflow on far-away points
		if f < -1 || f > float64(s.Dims[i]) {
			return 0, false
		}
		n := int(f)
		if n < 0 {
			n = 0
		}
		if n >= s.Dims[i] {
			n = s.Dims[i] - 1
		}
		cell[i] = n
	}
	return s.Idx(cell[0], cell[1], cell[2]), true
}

// VoxelGrid is a dense grid of per-cell values produced by Voxelize.
// Counts is always present (len == Spec.CellCount()); Categories is
// non-nil only when the input carried category labels, in which case each
// cell holds the winning label (CategoryUnknown for cells that saw no
// labelled points). The grid is immutable after voxelization completes.
type VoxelGrid struct {
	Spec       GridSpec
	Counts     []uint32
	Categories []Category
}

// Categorized reports whether the grid carries a category layer.
func (g *VoxelGrid) Categorized() bool {
	return g.Categories != nil
}
