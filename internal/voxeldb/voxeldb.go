// Package voxeldb stores voxel grid snapshots in sqlite. It implements
// voxel.VoxStore; the voxel package itself never sees SQL.
package voxeldb

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/voxgrid/internal/voxel"
)

type VoxDB struct {
	*sql.DB
	path string
}

// schema.sql creates the snapshot table for fresh databases. Existing
// databases are upgraded through the migrations directory instead.
//
//go:embed schema.sql
var schemaSQL string

func New(path string) (*VoxDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err = db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Println("initialized voxel snapshot database schema")

	return &VoxDB{DB: db, path: path}, nil
}

// Path returns the sqlite file path the database was opened with.
func (vdb *VoxDB) Path() string { return vdb.path }

// InsertGridSnapshot stores a snapshot and returns its row id.
func (vdb *VoxDB) InsertGridSnapshot(s *voxel.GridSnapshot) (int64, error) {
	query := `
		INSERT INTO vox_grid_snapshot (
			dataset_id, taken_unix_nanos, nx, ny, nz, voxel_size_meters,
			origin_json, counts_blob, categories_blob,
			out_of_bounds_count, total_points, snapshot_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := vdb.Exec(query,
		s.DatasetID, s.TakenUnixNanos, s.Nx, s.Ny, s.Nz, s.VoxelSize,
		s.OriginJSON, s.CountsBlob, s.CategoriesBlob,
		s.OutOfBoundsCount, s.TotalPoints, s.SnapshotReason)
	if err != nil {
		return 0, fmt.Errorf("failed to insert grid snapshot: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot ID: %v", err)
	}
	s.SnapshotID = &id

	return id, nil
}

// SnapshotMeta is a snapshot listing row without the blobs, for browsing
// what is available to restore.
type SnapshotMeta struct {
	SnapshotID       int64   `json:"snapshot_id"`
	DatasetID        string  `json:"dataset_id"`
	TakenUnixNanos   int64   `json:"taken_unix_nanos"`
	Nx               int     `json:"nx"`
	Ny               int     `json:"ny"`
	Nz               int     `json:"nz"`
	VoxelSize        float64 `json:"voxel_size_meters"`
	OutOfBoundsCount int     `json:"out_of_bounds_count"`
	TotalPoints      int     `json:"total_points"`
	SnapshotReason   string  `json:"snapshot_reason"`
	CountsBlobBytes  int     `json:"counts_blob_bytes"`
	Categorized      bool    `json:"categorized"`
}

// ListGridSnapshots returns snapshot metadata for a dataset, newest
// first. A limit <= 0 defaults to 50.
func (vdb *VoxDB) ListGridSnapshots(datasetID string, limit int) ([]SnapshotMeta, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT snapshot_id, dataset_id, taken_unix_nanos, nx, ny, nz,
		       voxel_size_meters, out_of_bounds_count, total_points,
		       snapshot_reason, LENGTH(counts_blob),
		       categories_blob IS NOT NULL
		FROM vox_grid_snapshot
		WHERE dataset_id = ?
		ORDER BY taken_unix_nanos DESC
		LIMIT ?
	`

	rows, err := vdb.Query(query, datasetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %v", err)
	}
	defer rows.Close()

	var metas []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		if err := rows.Scan(&m.SnapshotID, &m.DatasetID, &m.TakenUnixNanos,
			&m.Nx, &m.Ny, &m.Nz, &m.VoxelSize, &m.OutOfBoundsCount,
			&m.TotalPoints, &m.SnapshotReason, &m.CountsBlobBytes,
			&m.Categorized); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %v", err)
		}
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metas, nil
}

// GetGridSnapshot loads a full snapshot, blobs included.
func (vdb *VoxDB) GetGridSnapshot(snapshotID int64) (*voxel.GridSnapshot, error) {
	query := `
		SELECT snapshot_id, dataset_id, taken_unix_nanos, nx, ny, nz,
		       voxel_size_meters, origin_json, counts_blob, categories_blob,
		       out_of_bounds_count, total_points, snapshot_reason
		FROM vox_grid_snapshot
		WHERE snapshot_id = ?
	`
	return vdb.scanSnapshot(vdb.QueryRow(query, snapshotID))
}

// LatestGridSnapshot loads the newest snapshot for a dataset, or
// (nil, nil) when the dataset has none.
func (vdb *VoxDB) LatestGridSnapshot(datasetID string) (*voxel.GridSnapshot, error) {
	query := `
		SELECT snapshot_id, dataset_id, taken_unix_nanos, nx, ny, nz,
		       voxel_size_meters, origin_json, counts_blob, categories_blob,
		       out_of_bounds_count, total_points, snapshot_reason
		FROM vox_grid_snapshot
		WHERE dataset_id = ?
		ORDER BY taken_unix_nanos DESC
		LIMIT 1
	`
	s, err := vdb.scanSnapshot(vdb.QueryRow(query, datasetID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (vdb *VoxDB) scanSnapshot(row *sql.Row) (*voxel.GridSnapshot, error) {
	var s voxel.GridSnapshot
	var id int64
	err := row.Scan(&id, &s.DatasetID, &s.TakenUnixNanos, &s.Nx, &s.Ny,
		&s.Nz, &s.VoxelSize, &s.OriginJSON, &s.CountsBlob,
		&s.CategoriesBlob, &s.OutOfBoundsCount, &s.TotalPoints,
		&s.SnapshotReason)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan snapshot: %v", err)
	}
	s.SnapshotID = &id
	return &s, nil
}

// DeleteGridSnapshot removes a stored snapshot.
func (vdb *VoxDB) DeleteGridSnapshot(snapshotID int64) error {
	result, err := vdb.Exec("DELETE FROM vox_grid_snapshot WHERE snapshot_id = ?", snapshotID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %v", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("snapshot %d not found", snapshotID)
	}
	return nil
}
