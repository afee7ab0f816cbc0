package voxel

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// GridSnapshot matches the vox_grid_snapshot table structure. It holds a
// compressed copy of a finished grid so a viewing session can be restored
// without re-voxelizing.
type GridSnapshot struct {
	SnapshotID       *int64 // set by the database after insert
	DatasetID        string
	TakenUnixNanos   int64
	Nx, Ny, Nz       int
	VoxelSize        float64
	OriginJSON       string // JSON [3]float64
	CountsBlob       []byte // gzip-compressed gob of []uint32
	CategoriesBlob   []byte // gzip-compressed gob of []Category; nil when no category layer
	OutOfBoundsCount int
	TotalPoints      int
	SnapshotReason   string // 'manual', 'rebuild', 'shutdown'
}

// VoxStore is the interface required to persist GridSnapshot records.
// Implemented by voxeldb.VoxDB.
type VoxStore interface {
	InsertGridSnapshot(s *GridSnapshot) (int64, error)
}

func serializeBlob(v any) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(v); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func deserializeBlob(b []byte, v any) error {
	gz, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer gz.Close()
	return gob.NewDecoder(gz).Decode(v)
}

// Snapshot converts a finished result into a storable snapshot.
func Snapshot(datasetID, reason string, res *VoxelizeResult) (*GridSnapshot, error) {
	if res == nil || res.Grid == nil {
		return nil, fmt.Errorf("no grid to snapshot")
	}
	g := res.Grid
	counts, err := serializeBlob(g.Counts)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize counts: %w", err)
	}
	origin, err := json.Marshal(g.Spec.Origin)
	if err != nil {
		return nil, err
	}
	snap := &GridSnapshot{
		DatasetID:        datasetID,
		TakenUnixNanos:   time.Now().UnixNano(),
		Nx:               g.Spec.Dims[0],
		Ny:               g.Spec.Dims[1],
		Nz:               g.Spec.Dims[2],
		VoxelSize:        g.Spec.VoxelSize,
		OriginJSON:       string(origin),
		CountsBlob:       counts,
		OutOfBoundsCount: res.OutOfBounds,
		TotalPoints:      res.TotalPoints,
		SnapshotReason:   reason,
	}
	if g.Categorized() {
		cats, err := serializeBlob(g.Categories)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize categories: %w", err)
		}
		snap.CategoriesBlob = cats
	}
	return snap, nil
}

// Restore rebuilds an immutable result from a stored snapshot.
func Restore(s *GridSnapshot) (*VoxelizeResult, error) {
	if s == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	if s.Nx < 1 || s.Ny < 1 || s.Nz < 1 {
		return nil, fmt.Errorf("snapshot has invalid dims (%d,%d,%d)", s.Nx, s.Ny, s.Nz)
	}
	if !(s.VoxelSize > 0) {
		return nil, fmt.Errorf("snapshot has invalid voxel size %v", s.VoxelSize)
	}
	var origin [3]float64
	if err := json.Unmarshal([]byte(s.OriginJSON), &origin); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot origin: %w", err)
	}
	spec := GridSpec{
		Origin:    origin,
		VoxelSize: s.VoxelSize,
		Dims:      [3]int{s.Nx, s.Ny, s.Nz},
	}
	var counts []uint32
	if err := deserializeBlob(s.CountsBlob, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode counts blob: %w", err)
	}
	if len(counts) != spec.CellCount() {
		return nil, fmt.Errorf("counts blob has %d cells, want %d", len(counts), spec.CellCount())
	}
	grid := &VoxelGrid{Spec: spec, Counts: counts}
	if len(s.CategoriesBlob) > 0 {
		var cats []Category
		if err := deserializeBlob(s.CategoriesBlob, &cats); err != nil {
			return nil, fmt.Errorf("failed to decode categories blob: %w", err)
		}
		if len(cats) != spec.CellCount() {
			return nil, fmt.Errorf("categories blob has %d cells, want %d", len(cats), spec.CellCount())
		}
		grid.Categories = cats
	}
	return &VoxelizeResult{
		Grid:        grid,
		OutOfBounds: s.OutOfBoundsCount,
		TotalPoints: s.TotalPoints,
	}, nil
}

// Persist snapshots the manager's current grid through store. The copy is
// taken from the immutable result, so no locking against readers is
// needed beyond fetching the current pointer.
func (m *GridManager) Persist(store VoxStore, reason string) error {
	if store == nil {
		return fmt.Errorf("nil store")
	}
	res := m.Current()
	if res == nil {
		return fmt.Errorf("dataset %s has no grid to persist", m.DatasetID)
	}
	snap, err := Snapshot(m.DatasetID, reason, res)
	if err != nil {
		return err
	}
	id, err := store.InsertGridSnapshot(snap)
	if err != nil {
		return err
	}
	log.Printf("[GridManager] persisted snapshot id=%d dataset=%s reason=%s dims=(%d,%d,%d) blob_size=%d bytes",
		id, m.DatasetID, reason, snap.Nx, snap.Ny, snap.Nz, len(snap.CountsBlob))
	return nil
}
