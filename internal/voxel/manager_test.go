package voxel

import (
	"context"
	"errors"
	"math/rand"
	"testing"
)

func testCloud(n int, seed int64) []Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{X: rng.Float64() * 10, Y: rng.Float64() * 10, Z: rng.Float64() * 10}
	}
	return pts
}

func TestGridManager_RebuildInstalls(t *testing.T) {
	m := NewGridManager("test", 4)
	if m.Current() != nil {
		t.Fatalf("fresh manager should have no grid")
	}
	res, err := m.Rebuild(context.Background(), VoxelizeRequest{
		Points: testCloud(200, 1), VoxelSize: 1.0, Workers: 1,
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if m.Current() != res {
		t.Fatalf("installed result is not the returned one")
	}
	if m.LastRebuildID() == "" {
		t.Fatalf("rebuild id not recorded")
	}
}

// A rebuild whose generation is stale by the time it finishes must be
// dropped. Driven through install directly so the interleaving is exact.
func TestGridManager_SupersededRebuildDiscarded(t *testing.T) {
	m := NewGridManager("test", 4)
	first, err := m.Rebuild(context.Background(), VoxelizeRequest{
		Points: testCloud(100, 2), VoxelSize: 1.0, Workers: 1,
	})
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	gen := m.generation.Add(1) // slow rebuild claims its slot
	m.generation.Add(1)        // newer request arrives while it computes

	stale, err := VoxelizePoints(context.Background(), testCloud(100, 3), 2.0, nil, 1)
	if err != nil {
		t.Fatalf("VoxelizePoints: %v", err)
	}
	if _, err := m.install(gen, "stale-rebuild", "", stale); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if m.Current() != first {
		t.Fatalf("superseded result must not replace the current grid")
	}
}

// An identical request must come back from the cache as the same result
// pointer, not a recomputed grid.
func TestGridManager_CacheHit(t *testing.T) {
	m := NewGridManager("test", 4)
	req := VoxelizeRequest{Points: testCloud(300, 4), VoxelSize: 0.5, Workers: 1}

	a, err := m.Rebuild(context.Background(), req)
	if err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}
	b, err := m.Rebuild(context.Background(), req)
	if err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}
	if a != b {
		t.Fatalf("identical request did not hit the cache")
	}
}

func TestRequestKey_SensitiveToParameters(t *testing.T) {
	pts := testCloud(50, 5)
	base := VoxelizeRequest{Points: pts, VoxelSize: 1.0}
	if requestKey(base) != requestKey(base) {
		t.Fatalf("key not deterministic")
	}
	coarser := base
	coarser.VoxelSize = 2.0
	if requestKey(base) == requestKey(coarser) {
		t.Fatalf("voxel size change must change the key")
	}
	bounded := base
	bounded.Bounds = &Bounds{Min: [3]float64{0, 0, 0}, Max: [3]float64{5, 5, 5}}
	if requestKey(base) == requestKey(bounded) {
		t.Fatalf("bounds change must change the key")
	}
	relabelled := base
	relabelled.Points = append([]Point(nil), pts...)
	relabelled.Points[0].Category = CategoryWater
	relabelled.Points[0].HasCategory = true
	if requestKey(base) == requestKey(relabelled) {
		t.Fatalf("label change must change the key")
	}
}

func TestGridManager_SetCurrentSupersedesInFlight(t *testing.T) {
	m := NewGridManager("test", 4)
	gen := m.generation.Add(1)

	restored, err := VoxelizePoints(context.Background(), testCloud(80, 6), 1.0, nil, 1)
	if err != nil {
		t.Fatalf("VoxelizePoints: %v", err)
	}
	m.SetCurrent(restored)

	late, err := VoxelizePoints(context.Background(), testCloud(80, 7), 1.0, nil, 1)
	if err != nil {
		t.Fatalf("VoxelizePoints: %v", err)
	}
	if _, err := m.install(gen, "late-rebuild", "", late); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("rebuild in flight during SetCurrent must be superseded, got %v", err)
	}
	if m.Current() != restored {
		t.Fatalf("restored grid was replaced by a stale rebuild")
	}
}

func TestGridManagerRegistry(t *testing.T) {
	if got := GetGridManager("no-such-dataset"); got != nil {
		t.Fatalf("unknown dataset should resolve to nil, got %v", got)
	}
	m := NewGridManager("registry-test", 2)
	RegisterGridManager("registry-test", m)
	if got := GetGridManager("registry-test"); got != m {
		t.Fatalf("registry returned a different manager")
	}
}

func TestGridManager_RebuildPropagatesInputErrors(t *testing.T) {
	m := NewGridManager("test", 4)
	_, err := m.Rebuild(context.Background(), VoxelizeRequest{VoxelSize: 1.0})
	var iie *InvalidInputError
	if !errors.As(err, &iie) {
		t.Fatalf("expected InvalidInputError for empty cloud, got %v", err)
	}
	if m.Current() != nil {
		t.Fatalf("failed rebuild must not install a grid")
	}
}
