package voxel

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sumCounts(g *VoxelGrid) int {
	total := 0
	for _, c := range g.Counts {
		total += int(c)
	}
	return total
}

// Eight points at the corners of the unit cube with voxel size 1.0 land
// in a single cell: the derived box is [0,1]^3, dims (1,1,1), and the
// upper-face corners clamp into cell 0.
func TestVoxelize_UnitCubeCorners(t *testing.T) {
	var pts []Point
	for _, x := range []float64{0, 1} {
		for _, y := range []float64{0, 1} {
			for _, z := range []float64{0, 1} {
				pts = append(pts, Point{X: x, Y: y, Z: z})
			}
		}
	}
	res, err := VoxelizePoints(context.Background(), pts, 1.0, nil, 1)
	if err != nil {
		t.Fatalf("VoxelizePoints: %v", err)
	}
	if res.Grid.Spec.Dims != [3]int{1, 1, 1} {
		t.Fatalf("dims = %v, want (1,1,1)", res.Grid.Spec.Dims)
	}
	if res.Grid.Counts[0] != 8 {
		t.Fatalf("cell count = %d, want 8", res.Grid.Counts[0])
	}
	if res.OutOfBounds != 0 {
		t.Fatalf("out of bounds = %d, want 0", res.OutOfBounds)
	}
}

func TestVoxelize_UniformCloud(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pts := make([]Point, 1000)
	for i := range pts {
		pts[i] = Point{X: rng.Float64() * 10, Y: rng.Float64() * 10, Z: rng.Float64() * 10}
	}
	bounds := &Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{10, 10, 10}}
	res, err := VoxelizePoints(context.Background(), pts, 1.0, bounds, 1)
	if err != nil {
		t.Fatalf("VoxelizePoints: %v", err)
	}
	if res.Grid.Spec.Dims != [3]int{10, 10, 10} {
		t.Fatalf("dims = %v, want (10,10,10)", res.Grid.Spec.Dims)
	}
	if res.OutOfBounds != 0 {
		t.Fatalf("out of bounds = %d, want 0", res.OutOfBounds)
	}
	if got := sumCounts(res.Grid); got != 1000 {
		t.Fatalf("sum of counts = %d, want 1000", got)
	}
}

// Conservation law: sum(counts) + outOfBounds == totalPoints, including
// with a bounds override narrower than the cloud.
func TestVoxelize_ConservationWithNarrowBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pts := make([]Point, 500)
	for i := range pts {
		pts[i] = Point{X: rng.Float64() * 10, Y: rng.Float64() * 10, Z: rng.Float64() * 10}
	}
	bounds := &Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{5, 5, 5}}
	res, err := VoxelizePoints(context.Background(), pts, 1.0, bounds, 1)
	if err != nil {
		t.Fatalf("VoxelizePoints: %v", err)
	}
	if res.OutOfBounds == 0 {
		t.Fatalf("expected some points outside the narrowed bounds")
	}
	if got := sumCounts(res.Grid) + res.OutOfBounds; got != res.TotalPoints {
		t.Fatalf("conservation violated: sum+oob = %d, total = %d", got, res.TotalPoints)
	}
}

func TestVoxelize_NonFiniteTallied(t *testing.T) {
	pts := []Point{
		{X: 0.5, Y: 0.5, Z: 0.5},
		{X: math.NaN(), Y: 0.5, Z: 0.5},
		{X: 0.5, Y: math.Inf(-1), Z: 0.5},
	}
	bounds := &Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{1, 1, 1}}
	res, err := VoxelizePoints(context.Background(), pts, 1.0, bounds, 1)
	if err != nil {
		t.Fatalf("VoxelizePoints: %v", err)
	}
	if res.OutOfBounds != 2 {
		t.Fatalf("out of bounds = %d, want 2 (the non-finite points)", res.OutOfBounds)
	}
	if res.Grid.Counts[0] != 1 {
		t.Fatalf("cell count = %d, want 1", res.Grid.Counts[0])
	}
}

// Points within one cell outside the box clamp to the boundary; farther
// points are dropped.
func TestVoxelize_ClampTolerance(t *testing.T) {
	bounds := &Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{10, 10, 10}}
	spec, err := NewGridSpec(*bounds, 1.0)
	if err != nil {
		t.Fatalf("NewGridSpec: %v", err)
	}
	pts := []Point{
		{X: 10.0, Y: 5, Z: 5},  // exactly on the upper face: last cell
		{X: 10.5, Y: 5, Z: 5},  // within one cell above: clamps
		{X: -0.5, Y: 5, Z: 5},  // within one cell below: clamps
		{X: 11.5, Y: 5, Z: 5},  // more than one cell out: dropped
		{X: -1.5, Y: 5, Z: 5},  // more than one cell out: dropped
		{X: 1e300, Y: 5, Z: 5}, // absurdly far: dropped, no overflow
	}
	res, err := Voxelize(pts, spec)
	if err != nil {
		t.Fatalf("Voxelize: %v", err)
	}
	if res.OutOfBounds != 3 {
		t.Fatalf("out of bounds = %d, want 3", res.OutOfBounds)
	}
	if got := res.Grid.Counts[spec.Idx(9, 5, 5)]; got != 2 {
		t.Fatalf("last-cell count = %d, want 2 (face point + overshoot)", got)
	}
	if got := res.Grid.Counts[spec.Idx(0, 5, 5)]; got != 1 {
		t.Fatalf("first-cell count = %d, want 1 (undershoot)", got)
	}
}

func TestVoxelize_CategoryMajorityAndTieBreak(t *testing.T) {
	bounds := &Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{2, 1, 1}}
	cat := func(x float64, c Category) Point {
		return Point{X: x, Y: 0.5, Z: 0.5, Category: c, HasCategory: true}
	}
	pts := []Point{
		// cell 0: terrain majority beats building
		cat(0.5, CategoryTerrain), cat(0.5, CategoryTerrain), cat(0.5, CategoryTerrain),
		cat(0.5, CategoryBuilding),
		// cell 1: exact tie, building wins on priority
		cat(1.5, CategoryTerrain), cat(1.5, CategoryTerrain),
		cat(1.5, CategoryBuilding), cat(1.5, CategoryBuilding),
	}
	res, err := VoxelizePoints(context.Background(), pts, 1.0, bounds, 1)
	if err != nil {
		t.Fatalf("VoxelizePoints: %v", err)
	}
	g := res.Grid
	if !g.Categorized() {
		t.Fatalf("expected a category layer")
	}
	if got := g.Categories[g.Spec.Idx(0, 0, 0)]; got != CategoryTerrain {
		t.Fatalf("cell 0 category = %s, want terrain (majority)", got)
	}
	if got := g.Categories[g.Spec.Idx(1, 0, 0)]; got != CategoryBuilding {
		t.Fatalf("cell 1 category = %s, want building (priority tie-break)", got)
	}
}

func TestVoxelize_UnlabelledCloudHasNoCategoryLayer(t *testing.T) {
	pts := []Point{{X: 0.5, Y: 0.5, Z: 0.5}}
	bounds := &Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{1, 1, 1}}
	res, err := VoxelizePoints(context.Background(), pts, 1.0, bounds, 1)
	if err != nil {
		t.Fatalf("VoxelizePoints: %v", err)
	}
	if res.Grid.Categorized() {
		t.Fatalf("unlabelled cloud should not produce a category layer")
	}
}

// The chunked concurrent scatter must produce exactly the sequential
// result: partials merge by addition and category tie-breaks are fixed.
func TestVoxelizeConcurrent_MatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	pts := make([]Point, 20_000)
	for i := range pts {
		pts[i] = Point{
			X: rng.Float64() * 20, Y: rng.Float64() * 20, Z: rng.Float64() * 20,
			Category: Category(rng.Intn(numCategories)), HasCategory: rng.Intn(2) == 0,
		}
	}
	bounds := Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{20, 20, 20}}
	spec, err := NewGridSpec(bounds, 2.0)
	if err != nil {
		t.Fatalf("NewGridSpec: %v", err)
	}

	seq, err := VoxelizeConcurrent(context.Background(), pts, spec, 1)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := VoxelizeConcurrent(context.Background(), pts, spec, 8)
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}

	if diff := cmp.Diff(seq.Grid.Counts, par.Grid.Counts); diff != "" {
		t.Fatalf("counts differ (-seq +par):\n%s", diff)
	}
	if diff := cmp.Diff(seq.Grid.Categories, par.Grid.Categories); diff != "" {
		t.Fatalf("categories differ (-seq +par):\n%s", diff)
	}
	if seq.OutOfBounds != par.OutOfBounds {
		t.Fatalf("oob differs: seq=%d par=%d", seq.OutOfBounds, par.OutOfBounds)
	}
}

func TestVoxelizeConcurrent_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pts := make([]Point, 100)
	for i := range pts {
		pts[i] = Point{X: float64(i), Y: 0, Z: 0}
	}
	spec, err := NewGridSpec(Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{100, 1, 1}}, 1.0)
	if err != nil {
		t.Fatalf("NewGridSpec: %v", err)
	}
	_, err = VoxelizeConcurrent(ctx, pts, spec, 4)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
