package voxel

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"sync"
	"sync/atomic"

	"github.com/golang/groupcache/lru"
	"github.com/google/uuid"
)

// ErrSuperseded is returned by Rebuild when a newer rebuild was issued
// while this one was computing. The stale result is discarded, never
// installed, so the current grid always reflects the newest parameters.
var ErrSuperseded = errors.New("voxelize request superseded by a newer one")

// VoxelizeRequest describes one rebuild of a dataset's grid.
type VoxelizeRequest struct {
	Points    []Point
	VoxelSize float64
	Bounds    *Bounds // nil derives the box from the points
	Workers   int     // <= 0 picks a default
}

// GridManager owns the current voxel grid for one dataset. Rebuilds may
// run on any goroutine; only the newest request's result is installed.
// Finished grids are immutable, so readers share the result by reference
// and never need locks of their own.
type GridManager struct {
	DatasetID string

	mu            sync.RWMutex
	current       *VoxelizeResult
	currentKey    string
	lastRebuildID string

	// generation orders rebuilds; a rebuild only installs if no newer
	// generation was issued while it computed.
	generation atomic.Uint64

	// cache retains recent results keyed by (point-set hash, voxel size,
	// bounds). Entries are immutable; the mutex only guards the LRU
	// bookkeeping.
	cacheMu sync.Mutex
	cache   *lru.Cache
}

// NewGridManager creates a manager for the dataset. cacheSize is the
// number of retained results; the expected working set is a handful of
// recent parameter combinations.
func NewGridManager(datasetID string, cacheSize int) *GridManager {
	if cacheSize <= 0 {
		cacheSize = 8
	}
	return &GridManager{
		DatasetID: datasetID,
		cache:     lru.New(cacheSize),
	}
}

// gridManagers stores per-dataset managers.
var (
	gmMu       sync.RWMutex
	gmRegistry = make(map[string]*GridManager)
)

// RegisterGridManager registers a manager for a dataset ID.
func RegisterGridManager(datasetID string, m *GridManager) {
	gmMu.Lock()
	defer gmMu.Unlock()
	gmRegistry[datasetID] = m
}

// GetGridManager retrieves the manager for a dataset ID, or nil.
func GetGridManager(datasetID string) *GridManager {
	gmMu.RLock()
	defer gmMu.RUnlock()
	return gmRegistry[datasetID]
}

// Rebuild voxelizes req and installs the result as the dataset's current
// grid. If another Rebuild is issued while this one is computing, the
// stale result is dropped and ErrSuperseded returned; the caller should
// simply not apply it. Identical requests hit the result cache and skip
// the scatter entirely.
func (m *GridManager) Rebuild(ctx context.Context, req VoxelizeRequest) (*VoxelizeResult, error) {
	gen := m.generation.Add(1)
	rebuildID := uuid.New().String()
	key := requestKey(req)

	if res, ok := m.cacheGet(key); ok {
		return m.install(gen, rebuildID, key, res)
	}

	res, err := VoxelizePoints(ctx, req.Points, req.VoxelSize, req.Bounds, req.Workers)
	if err != nil {
		return nil, err
	}
	m.cacheAdd(key, res)
	return m.install(gen, rebuildID, key, res)
}

func (m *GridManager) install(gen uint64, rebuildID, key string, res *VoxelizeResult) (*VoxelizeResult, error) {
	if m.generation.Load() != gen {
		log.Printf("[GridManager] dataset=%s rebuild=%s superseded, discarding result", m.DatasetID, rebuildID)
		return nil, ErrSuperseded
	}
	m.mu.Lock()
	m.current = res
	m.currentKey = key
	m.lastRebuildID = rebuildID
	m.mu.Unlock()
	log.Printf("[GridManager] dataset=%s rebuild=%s installed grid dims=%v total=%d oob=%d",
		m.DatasetID, rebuildID, res.Grid.Spec.Dims, res.TotalPoints, res.OutOfBounds)
	return res, nil
}

// Current returns the dataset's grid result, or nil before the first
// rebuild. The result is shared by reference; it is never mutated.
func (m *GridManager) Current() *VoxelizeResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SetCurrent installs a result directly, e.g. one restored from a
// persisted snapshot. It supersedes any rebuild still in flight.
func (m *GridManager) SetCurrent(res *VoxelizeResult) {
	m.generation.Add(1)
	m.mu.Lock()
	m.current = res
	m.currentKey = ""
	m.mu.Unlock()
}

// LastRebuildID returns the uuid of the most recently installed rebuild.
func (m *GridManager) LastRebuildID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRebuildID
}

func (m *GridManager) cacheGet(key string) (*VoxelizeResult, bool) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*VoxelizeResult), true
}

func (m *GridManager) cacheAdd(key string, res *VoxelizeResult) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	m.cache.Add(key, res)
}

// requestKey hashes the request parameters, including the point set
// itself (coordinates and labels), so re-voxelizing identical data at the
// same voxel size and bounds is a cache hit.
func requestKey(req VoxelizeRequest) string {
	h := fnv.New64a()
	var buf [8]byte
	writeF := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	for i := range req.Points {
		p := &req.Points[i]
		writeF(p.X)
		writeF(p.Y)
		writeF(p.Z)
		if p.HasCategory {
			h.Write([]byte{1, byte(p.Category)})
		} else {
			h.Write([]byte{0, 0})
		}
	}
	writeF(req.VoxelSize)
	if req.Bounds != nil {
		for i := 0; i < 3; i++ {
			writeF(req.Bounds.Min[i])
		}
		for i := 0; i < 3; i++ {
			writeF(req.Bounds.Max[i])
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
