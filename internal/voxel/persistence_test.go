package voxel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	inserted []*GridSnapshot
	nextID   int64
	failWith error
}

func (f *fakeStore) InsertGridSnapshot(s *GridSnapshot) (int64, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	f.nextID++
	f.inserted = append(f.inserted, s)
	return f.nextID, nil
}

func buildResult(t *testing.T, categorized bool) *VoxelizeResult {
	t.Helper()
	pts := testCloud(400, 11)
	if categorized {
		for i := range pts {
			pts[i].Category = Category(i % numCategories)
			pts[i].HasCategory = true
		}
	}
	res, err := VoxelizePoints(context.Background(), pts, 1.0, nil, 1)
	require.NoError(t, err)
	return res
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	res := buildResult(t, true)

	snap, err := Snapshot("roundtrip", "manual", res)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", snap.DatasetID)
	assert.Equal(t, "manual", snap.SnapshotReason)
	assert.Equal(t, res.Grid.Spec.Dims[0], snap.Nx)
	assert.NotEmpty(t, snap.CountsBlob)
	assert.NotEmpty(t, snap.CategoriesBlob)

	back, err := Restore(snap)
	require.NoError(t, err)
	assert.Equal(t, res.Grid.Spec, back.Grid.Spec)
	assert.Equal(t, res.Grid.Counts, back.Grid.Counts)
	assert.Equal(t, res.Grid.Categories, back.Grid.Categories)
	assert.Equal(t, res.OutOfBounds, back.OutOfBounds)
	assert.Equal(t, res.TotalPoints, back.TotalPoints)
}

func TestSnapshotRestore_UncategorizedOmitsBlob(t *testing.T) {
	res := buildResult(t, false)

	snap, err := Snapshot("plain", "rebuild", res)
	require.NoError(t, err)
	assert.Nil(t, snap.CategoriesBlob)

	back, err := Restore(snap)
	require.NoError(t, err)
	assert.False(t, back.Grid.Categorized())
}

func TestRestore_RejectsCorruptSnapshots(t *testing.T) {
	res := buildResult(t, false)
	good, err := Snapshot("corrupt", "manual", res)
	require.NoError(t, err)

	_, err = Restore(nil)
	assert.Error(t, err)

	bad := *good
	bad.Nx = 0
	_, err = Restore(&bad)
	assert.Error(t, err, "zero dims must be rejected")

	bad = *good
	bad.VoxelSize = -1
	_, err = Restore(&bad)
	assert.Error(t, err, "negative voxel size must be rejected")

	bad = *good
	bad.OriginJSON = "not json"
	_, err = Restore(&bad)
	assert.Error(t, err, "unparseable origin must be rejected")

	bad = *good
	bad.CountsBlob = []byte("garbage, not gzip")
	_, err = Restore(&bad)
	assert.Error(t, err, "undecodable counts blob must be rejected")

	bad = *good
	bad.Nx++ // declared dims no longer match the stored cell count
	_, err = Restore(&bad)
	assert.Error(t, err, "dims/blob mismatch must be rejected")
}

func TestGridManager_Persist(t *testing.T) {
	m := NewGridManager("persist-test", 4)
	store := &fakeStore{}

	err := m.Persist(store, "manual")
	assert.Error(t, err, "persisting before any rebuild must fail")

	_, err = m.Rebuild(context.Background(), VoxelizeRequest{
		Points: testCloud(150, 12), VoxelSize: 1.0, Workers: 1,
	})
	require.NoError(t, err)

	require.NoError(t, m.Persist(store, "shutdown"))
	require.Len(t, store.inserted, 1)
	snap := store.inserted[0]
	assert.Equal(t, "persist-test", snap.DatasetID)
	assert.Equal(t, "shutdown", snap.SnapshotReason)
	assert.Equal(t, 150, snap.TotalPoints)
	assert.NotZero(t, snap.TakenUnixNanos)
}
