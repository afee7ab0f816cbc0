package voxel

import "fmt"

// planeAxes returns the two axes retained by a slice or projection
// perpendicular to axis, in ascending axis order. The first is the row
// dimension of the returned 2D array, the second the column dimension:
//
//	axis X removed -> out[iy][iz]
//	axis Y removed -> out[ix][iz]
//	axis Z removed -> out[ix][iy]
func (s GridSpec) planeAxes(axis Axis) (Axis, Axis) {
	switch axis {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	default:
		return AxisX, AxisY
	}
}

func checkAxis(axis Axis) error {
	if axis < AxisX || axis > AxisZ {
		return fmt.Errorf("invalid axis %d", int(axis))
	}
	return nil
}

func (g *VoxelGrid) checkIndex(axis Axis, index int) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	max := g.Spec.Dims[axis] - 1
	if index < 0 || index > max {
		return &OutOfRangeError{Axis: axis, Index: index, Max: max}
	}
	return nil
}

// Slice returns the 2D cross-section of the count grid at the given index
// along axis, with the remaining axes ordered per planeAxes. The returned
// rows are fresh copies; mutating them does not touch the grid.
func (g *VoxelGrid) Slice(axis Axis, index int) ([][]uint32, error) {
	if err := g.checkIndex(axis, index); err != nil {
		return nil, err
	}
	a, b := g.Spec.planeAxes(axis)
	na, nb := g.Spec.Dims[a], g.Spec.Dims[b]
	out := make([][]uint32, na)
	var cell [3]int
	cell[axis] = index
	for i := 0; i < na; i++ {
		row := make([]uint32, nb)
		cell[a] = i
		for j := 0; j < nb; j++ {
			cell[b] = j
			row[j] = g.Counts[g.Spec.Idx(cell[0], cell[1], cell[2])]
		}
		out[i] = row
	}
	return out, nil
}

// CategorySlice is Slice over the category layer. It fails when the grid
// was built from unlabelled points.
func (g *VoxelGrid) CategorySlice(axis Axis, index int) ([][]Category, error) {
	if !g.Categorized() {
		return nil, fmt.Errorf("grid has no category layer")
	}
	if err := g.checkIndex(axis, index); err != nil {
		return nil, err
	}
	a, b := g.Spec.planeAxes(axis)
	na, nb := g.Spec.Dims[a], g.Spec.Dims[b]
	out := make([][]Category, na)
	var cell [3]int
	cell[axis] = index
	for i := 0; i < na; i++ {
		row := make([]Category, nb)
		cell[a] = i
		for j := 0; j < nb; j++ {
			cell[b] = j
			row[j] = g.Categories[g.Spec.Idx(cell[0], cell[1], cell[2])]
		}
		out[i] = row
	}
	return out, nil
}

// MaxIntensityProjection reduces the count grid along axis, keeping the
// maximum count found on each line. Max is commutative and associative,
// so the result is independent of iteration order.
func (g *VoxelGrid) MaxIntensityProjection(axis Axis) ([][]uint32, error) {
	if err := checkAxis(axis); err != nil {
		return nil, err
	}
	a, b := g.Spec.planeAxes(axis)
	na, nb, depth := g.Spec.Dims[a], g.Spec.Dims[b], g.Spec.Dims[axis]
	out := make([][]uint32, na)
	var cell [3]int
	for i := 0; i < na; i++ {
		row := make([]uint32, nb)
		cell[a] = i
		for j := 0; j < nb; j++ {
			cell[b] = j
			var max uint32
			for k := 0; k < depth; k++ {
				cell[axis] = k
				if v := g.Counts[g.Spec.Idx(cell[0], cell[1], cell[2])]; v > max {
					max = v
				}
			}
			row[j] = max
		}
		out[i] = row
	}
	return out, nil
}

// CategoryProjection reduces the category layer along axis, keeping the
// highest-priority label on each line (priority is the Category numeric
// order).
func (g *VoxelGrid) CategoryProjection(axis Axis) ([][]Category, error) {
	if !g.Categorized() {
		return nil, fmt.Errorf("grid has no category layer")
	}
	if err := checkAxis(axis); err != nil {
		return nil, err
	}
	a, b := g.Spec.planeAxes(axis)
	na, nb, depth := g.Spec.Dims[a], g.Spec.Dims[b], g.Spec.Dims[axis]
	out := make([][]Category, na)
	var cell [3]int
	for i := 0; i < na; i++ {
		row := make([]Category, nb)
		cell[a] = i
		for j := 0; j < nb; j++ {
			cell[b] = j
			var max Category
			for k := 0; k < depth; k++ {
				cell[axis] = k
				if v := g.Categories[g.Spec.Idx(cell[0], cell[1], cell[2])]; v > max {
					max = v
				}
			}
			row[j] = max
		}
		out[i] = row
	}
	return out, nil
}

// ThresholdedPoint pairs a qualifying cell's centre (in the original
// input coordinate space) with its value.
type ThresholdedPoint struct {
	Center   [3]float64 `json:"center"`
	Count    uint32     `json:"count"`
	Category Category   `json:"category,omitempty"` // CategoryUnknown when the grid has no category layer
}

// ThresholdedPoints returns the centres of cells whose count strictly
// exceeds threshold, ordered by ascending cell index along x, then y,
// then z, capped at max entries.
//
// When more cells qualify than the cap allows, the qualifying list is
// strided evenly: with n qualifiers and stride s = ceil(n/max) the
// ordinals 0, s, 2s, ... are kept. The subset is reproducible for the
// same grid/threshold/cap and spreads across the volume instead of
// biasing toward low indices. The comparison is strict: a threshold at or
// above the grid maximum returns only strictly greater cells (none, at
// the maximum itself).
func (g *VoxelGrid) ThresholdedPoints(threshold int64, max int) []ThresholdedPoint {
	if max <= 0 {
		return nil
	}
	n := 0
	for _, c := range g.Counts {
		if int64(c) > threshold {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	stride := 1
	if n > max {
		stride = (n + max - 1) / max
	}
	out := make([]ThresholdedPoint, 0, (n+stride-1)/stride)
	ord := 0
	for ix := 0; ix < g.Spec.Dims[0]; ix++ {
		for iy := 0; iy < g.Spec.Dims[1]; iy++ {
			for iz := 0; iz < g.Spec.Dims[2]; iz++ {
				idx := g.Spec.Idx(ix, iy, iz)
				c := g.Counts[idx]
				if int64(c) <= threshold {
					continue
				}
				if ord%stride == 0 {
					tp := ThresholdedPoint{Center: g.Spec.CellCenter(ix, iy, iz), Count: c}
					if g.Categories != nil {
						tp.Category = g.Categories[idx]
					}
					out = append(out, tp)
				}
				ord++
			}
		}
	}
	return out
}
