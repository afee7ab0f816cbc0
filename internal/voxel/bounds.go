package voxel

import "math"

// Bounds is an axis-aligned bounding box given by its minimum and maximum
// corners.
type Bounds struct {
	Min [3]float64
	Max [3]float64
}

// Contains reports whether the coordinate lies inside the box, boundaries
// inclusive.
func (b Bounds) Contains(x, y, z float64) bool {
	c := [3]float64{x, y, z}
	for i := 0; i < 3; i++ {
		if c[i] < b.Min[i] || c[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// ResolveBounds derives the bounding box for a voxelization request.
//
// When override is nil the box is computed from the finite points in the
// set; an empty set, or one with no finite points, is an
// InvalidInputError. An explicit override replaces the computed extent
// entirely (it may be narrower than the cloud; points outside are tallied
// during voxelization, not rejected here).
//
// Axes with zero extent (single point, coplanar data) are expanded to one
// voxel span centred on the value so the grid never degenerates. After
// expansion every axis must satisfy Max > Min.
func ResolveBounds(points []Point, override *Bounds, voxelSize float64) (Bounds, error) {
	if !(voxelSize > 0) || math.IsInf(voxelSize, 0) {
		return Bounds{}, invalidInputf("voxel size must be a positive finite number, got %v", voxelSize)
	}

	var b Bounds
	if override != nil {
		b = *override
		for i := 0; i < 3; i++ {
			if math.IsNaN(b.Min[i]) || math.IsNaN(b.Max[i]) ||
				math.IsInf(b.Min[i], 0) || math.IsInf(b.Max[i], 0) {
				return Bounds{}, invalidInputf("explicit bounds must be finite on axis %s", Axis(i))
			}
		}
	} else {
		if len(points) == 0 {
			return Bounds{}, &InvalidInputError{Reason: "empty point set"}
		}
		found := false
		for _, p := range points {
			if !p.Finite() {
				continue
			}
			if !found {
				b.Min = [3]float64{p.X, p.Y, p.Z}
				b.Max = b.Min
				found = true
				continue
			}
			c := [3]float64{p.X, p.Y, p.Z}
			for i := 0; i < 3; i++ {
				if c[i] < b.Min[i] {
					b.Min[i] = c[i]
				}
				if c[i] > b.Max[i] {
					b.Max[i] = c[i]
				}
			}
		}
		if !found {
			return Bounds{}, invalidInputf("no finite points in set of %d", len(points))
		}
	}

	for i := 0; i < 3; i++ {
		if b.Max[i] == b.Min[i] {
			mid := b.Min[i]
			b.Min[i] = mid - voxelSize/2
			b.Max[i] = mid + voxelSize/2
		}
		if !(b.Max[i] > b.Min[i]) {
			return Bounds{}, invalidInputf("degenerate bounds on axis %s: min=%v max=%v", Axis(i), b.Min[i], b.Max[i])
		}
	}
	return b, nil
}
