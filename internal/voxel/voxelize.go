package voxel

import (
	"context"
	"runtime"
	"sync"
)

// VoxelizeResult bundles a finished grid with the coverage tallies a
// caller needs to validate it: TotalPoints is the number of input samples
// and OutOfBounds counts the samples that were dropped (non-finite
// coordinates, or more than one cell outside the box). The conservation
// law sum(Counts) + OutOfBounds == TotalPoints always holds.
type VoxelizeResult struct {
	Grid        *VoxelGrid
	OutOfBounds int
	TotalPoints int
}

// VoxelizePoints resolves bounds, builds the grid spec, and voxelizes in
// one call. bounds may be nil to derive the box from the points; workers
// <= 0 picks a default based on the point count.
func VoxelizePoints(ctx context.Context, points []Point, voxelSize float64, bounds *Bounds, workers int) (*VoxelizeResult, error) {
	b, err := ResolveBounds(points, bounds, voxelSize)
	if err != nil {
		return nil, err
	}
	spec, err := NewGridSpec(b, voxelSize)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = defaultWorkers(len(points))
	}
	return VoxelizeConcurrent(ctx, points, spec, workers)
}

// Voxelize maps every point into the grid described by spec in a single
// sequential pass. Out-of-bounds and non-finite points are tallied, never
// fatal.
func Voxelize(points []Point, spec GridSpec) (*VoxelizeResult, error) {
	return VoxelizeConcurrent(context.Background(), points, spec, 1)
}

// defaultWorkers sizes the worker pool: sequential below a point count
// where goroutine overhead dominates, otherwise one worker per CPU.
func defaultWorkers(n int) int {
	if n < 50_000 {
		return 1
	}
	return runtime.NumCPU()
}

// partialGrid is one worker's scatter output before merging.
type partialGrid struct {
	counts    []uint32
	catCounts []uint32 // len == cells*numCategories, nil when uncategorized
	oob       int
}

// VoxelizeConcurrent runs the scatter across the given number of worker
// goroutines. Each worker aggregates one chunk of the input into a
// partial grid; partials merge by addition, so the result is identical to
// the sequential pass regardless of chunking or scheduling (summation is
// commutative). ctx cancels a voxelization midway; a cancelled call
// returns ctx.Err() and no grid.
func VoxelizeConcurrent(ctx context.Context, points []Point, spec GridSpec, workers int) (*VoxelizeResult, error) {
	if !(spec.VoxelSize > 0) {
		return nil, invalidInputf("voxel size must be positive, got %v", spec.VoxelSize)
	}
	for i := 0; i < 3; i++ {
		if spec.Dims[i] < 1 {
			return nil, invalidInputf("grid dims must be >= 1 on axis %s, got %d", Axis(i), spec.Dims[i])
		}
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(points) {
		workers = 1
	}

	categorized := false
	for i := range points {
		if points[i].HasCategory {
			categorized = true
			break
		}
	}
	cells := spec.CellCount()

	scatter := func(start, end int) *partialGrid {
		pg := &partialGrid{counts: make([]uint32, cells)}
		if categorized {
			pg.catCounts = make([]uint32, cells*numCategories)
		}
		for i := start; i < end; i++ {
			if i&0x0fff == 0 && ctx.Err() != nil {
				return nil
			}
			p := &points[i]
			idx, ok := spec.locate(*p)
			if !ok {
				pg.oob++
				continue
			}
			pg.counts[idx]++
			if categorized && p.HasCategory {
				pg.catCounts[idx*numCategories+int(p.Category)]++
			}
		}
		return pg
	}

	partials := make([]*partialGrid, workers)
	if workers == 1 {
		partials[0] = scatter(0, len(points))
	} else {
		chunk := (len(points) + workers - 1) / workers
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			start := w * chunk
			end := start + chunk
			if end > len(points) {
				end = len(points)
			}
			wg.Add(1)
			go func(w, start, end int) {
				defer wg.Done()
				partials[w] = scatter(start, end)
			}(w, start, end)
		}
		wg.Wait()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := partials[0]
	for _, pg := range partials[1:] {
		if pg == nil {
			continue
		}
		for i, c := range pg.counts {
			merged.counts[i] += c
		}
		if categorized {
			for i, c := range pg.catCounts {
				merged.catCounts[i] += c
			}
		}
		merged.oob += pg.oob
	}

	grid := &VoxelGrid{Spec: spec, Counts: merged.counts}
	if categorized {
		grid.Categories = finalizeCategories(merged.catCounts, cells)
	}
	return &VoxelizeResult{
		Grid:        grid,
		OutOfBounds: merged.oob,
		TotalPoints: len(points),
	}, nil
}

// finalizeCategories picks each cell's winning label from its per-category
// counts: highest count wins, exact ties go to the higher-priority label
// (the larger Category value). Cells with no labelled points stay
// CategoryUnknown.
func finalizeCategories(catCounts []uint32, cells int) []Category {
	out := make([]Category, cells)
	for c := 0; c < cells; c++ {
		base := c * numCategories
		var best Category
		var bestCount uint32
		for k := 0; k < numCategories; k++ {
			n := catCounts[base+k]
			if n == 0 {
				continue
			}
			if n > bestCount || (n == bestCount && Category(k) > best) {
				best, bestCount = Category(k), n
			}
		}
		out[c] = best
	}
	return out
}
