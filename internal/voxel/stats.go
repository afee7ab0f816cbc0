package voxel

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GridStats summarises the count distribution of a grid for status
// reporting and threshold tuning.
type GridStats struct {
	Cells        int     `json:"cells"`
	NonZeroCells int     `json:"nonzero_cells"`
	TotalPoints  uint64  `json:"total_points"`
	MaxCount     uint32  `json:"max_count"`
	MeanNonZero  float64 `json:"mean_nonzero"`
	P50NonZero   float64 `json:"p50_nonzero"`
	P95NonZero   float64 `json:"p95_nonzero"`
	Occupancy    float64 `json:"occupancy_percent"`
}

// Stats computes the count distribution over the grid's cells. Quantiles
// are over the non-zero cells only; a grid that is mostly air would
// otherwise report zeros for everything.
func (g *VoxelGrid) Stats() GridStats {
	s := GridStats{Cells: len(g.Counts)}
	nonzero := make([]float64, 0, 1024)
	for _, c := range g.Counts {
		if c == 0 {
			continue
		}
		s.NonZeroCells++
		s.TotalPoints += uint64(c)
		if c > s.MaxCount {
			s.MaxCount = c
		}
		nonzero = append(nonzero, float64(c))
	}
	if len(nonzero) > 0 {
		sort.Float64s(nonzero)
		s.MeanNonZero = stat.Mean(nonzero, nil)
		s.P50NonZero = stat.Quantile(0.5, stat.Empirical, nonzero, nil)
		s.P95NonZero = stat.Quantile(0.95, stat.Empirical, nonzero, nil)
	}
	if s.Cells > 0 {
		s.Occupancy = float64(s.NonZeroCells) / float64(s.Cells) * 100.0
	}
	return s
}
