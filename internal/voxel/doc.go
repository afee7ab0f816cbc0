// Package voxel owns the voxelization core: mapping unordered 3D point
// samples into a dense regular grid and answering slice, projection, and
// thresholded-point queries over it.
//
// A VoxelGrid is immutable once Voxelize returns; every query is a pure
// read, so a finished grid can be shared across goroutines without locks.
// GridManager coordinates rebuilds, result caching, and snapshot
// persistence for a dataset.
//
// No SQL/database code is allowed in this package; persistence goes
// through the VoxStore interface (implemented by voxeldb).
package voxel
