package monitor

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/voxgrid/internal/pointcloud"
	"github.com/banshee-data/voxgrid/internal/voxel"
)

// manager resolves the grid manager for the request's dataset (query
// param "dataset", defaulting to the server's configured dataset).
func (ws *WebServer) manager(r *http.Request) (*voxel.GridManager, string) {
	datasetID := r.URL.Query().Get("dataset")
	if datasetID == "" {
		datasetID = ws.datasetID
	}
	return voxel.GetGridManager(datasetID), datasetID
}

func parseBoundsParam(s string) (*voxel.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 6 {
		return nil, fmt.Errorf("bounds must be 'minx,miny,minz,maxx,maxy,maxz', got %d values", len(parts))
	}
	var vals [6]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bounds value %q: %v", p, err)
		}
		vals[i] = v
	}
	return &voxel.Bounds{
		Min: [3]float64{vals[0], vals[1], vals[2]},
		Max: [3]float64{vals[3], vals[4], vals[5]},
	}, nil
}

// loadRequestPoints produces the point set for a voxelize request: a
// named synthetic cloud when ?synthetic= is set, otherwise the CSV body.
func (ws *WebServer) loadRequestPoints(r *http.Request) ([]voxel.Point, error) {
	synthetic := r.URL.Query().Get("synthetic")
	if synthetic == "" {
		body := http.MaxBytesReader(nil, r.Body, ws.maxUploadBytes)
		res, err := pointcloud.ReadXYZ(body)
		if err != nil {
			return nil, err
		}
		return res.Points, nil
	}

	n := 100_000
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 10_000_000 {
			return nil, fmt.Errorf("invalid 'n' parameter %q", v)
		}
		n = parsed
	}
	var seed int64 = 42
	if v := r.URL.Query().Get("seed"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid 'seed' parameter %q", v)
		}
		seed = parsed
	}

	switch synthetic {
	case "sphere":
		return pointcloud.SphereShell(n, 50.0, 0.1, seed), nil
	case "box":
		return pointcloud.UniformBox(n, 0, 100, seed), nil
	case "city":
		return pointcloud.CityBlocks(pointcloud.DefaultCityConfig(), seed), nil
	default:
		return nil, fmt.Errorf("unknown synthetic cloud %q (want sphere, box or city)", synthetic)
	}
}

// handleVoxelize rebuilds the dataset's grid from uploaded or synthetic
// points.
// Query params:
//
//	voxel_size (required, meters)
//	bounds (optional, 'minx,miny,minz,maxx,maxy,maxz')
//	synthetic (optional, sphere|box|city; otherwise the body is CSV x,y,z[,category[,intensity]])
//	n, seed (optional, synthetic cloud size and seed)
func (ws *WebServer) handleVoxelize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	m, datasetID := ws.manager(r)
	if m == nil {
		ws.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no grid manager for dataset %q", datasetID))
		return
	}

	voxelSize, err := strconv.ParseFloat(r.URL.Query().Get("voxel_size"), 64)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, "missing or invalid 'voxel_size' parameter")
		return
	}

	var bounds *voxel.Bounds
	if b := r.URL.Query().Get("bounds"); b != "" {
		bounds, err = parseBoundsParam(b)
		if err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	points, err := ws.loadRequestPoints(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := m.Rebuild(r.Context(), voxel.VoxelizeRequest{
		Points:    points,
		VoxelSize: voxelSize,
		Bounds:    bounds,
		Workers:   ws.workers,
	})
	if err != nil {
		var iie *voxel.InvalidInputError
		switch {
		case errors.As(err, &iie):
			ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, voxel.ErrSuperseded):
			ws.writeJSONError(w, http.StatusConflict, err.Error())
		default:
			ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("voxelize: %v", err))
		}
		return
	}

	ws.writeJSON(w, map[string]any{
		"dataset_id":    datasetID,
		"rebuild_id":    m.LastRebuildID(),
		"dims":          res.Grid.Spec.Dims,
		"origin":        res.Grid.Spec.Origin,
		"voxel_size":    res.Grid.Spec.VoxelSize,
		"total_points":  res.TotalPoints,
		"out_of_bounds": res.OutOfBounds,
		"categorized":   res.Grid.Categorized(),
	})
}

// handleGridStatus reports the current grid's spec plus count
// distribution statistics.
func (ws *WebServer) handleGridStatus(w http.ResponseWriter, r *http.Request) {
	m, datasetID := ws.manager(r)
	if m == nil {
		ws.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no grid manager for dataset %q", datasetID))
		return
	}
	res := m.Current()
	if res == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no grid built yet; POST /api/voxelize first")
		return
	}
	ws.writeJSON(w, map[string]any{
		"dataset_id":    datasetID,
		"rebuild_id":    m.LastRebuildID(),
		"spec":          res.Grid.Spec,
		"total_points":  res.TotalPoints,
		"out_of_bounds": res.OutOfBounds,
		"categorized":   res.Grid.Categorized(),
		"stats":         res.Grid.Stats(),
	})
}

// currentGrid fetches the dataset's grid or writes the appropriate error.
func (ws *WebServer) currentGrid(w http.ResponseWriter, r *http.Request) *voxel.VoxelGrid {
	m, datasetID := ws.manager(r)
	if m == nil {
		ws.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no grid manager for dataset %q", datasetID))
		return nil
	}
	res := m.Current()
	if res == nil {
		ws.writeJSONError(w, http.StatusNotFound, "no grid built yet; POST /api/voxelize first")
		return nil
	}
	return res.Grid
}

func parseAxisParam(r *http.Request) (voxel.Axis, error) {
	s := r.URL.Query().Get("axis")
	if s == "" {
		return voxel.AxisZ, nil
	}
	return voxel.ParseAxis(s)
}

// handleGridSlice returns one 2D cross-section of the grid.
// Query params:
//
//	axis (optional, x|y|z, default z)
//	index (required, 0-based along axis)
//	flavor (optional, 'category' for the label layer instead of counts)
func (ws *WebServer) handleGridSlice(w http.ResponseWriter, r *http.Request) {
	g := ws.currentGrid(w, r)
	if g == nil {
		return
	}
	axis, err := parseAxisParam(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, "missing or invalid 'index' parameter")
		return
	}

	if r.URL.Query().Get("flavor") == "category" {
		cats, err := g.CategorySlice(axis, index)
		if err != nil {
			ws.writeQueryError(w, err)
			return
		}
		ws.writeJSON(w, map[string]any{"axis": axis.String(), "index": index, "categories": cats})
		return
	}

	counts, err := g.Slice(axis, index)
	if err != nil {
		ws.writeQueryError(w, err)
		return
	}
	ws.writeJSON(w, map[string]any{"axis": axis.String(), "index": index, "counts": counts})
}

// handleGridMIP returns the maximum intensity projection along an axis.
func (ws *WebServer) handleGridMIP(w http.ResponseWriter, r *http.Request) {
	g := ws.currentGrid(w, r)
	if g == nil {
		return
	}
	axis, err := parseAxisParam(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if r.URL.Query().Get("flavor") == "category" {
		cats, err := g.CategoryProjection(axis)
		if err != nil {
			ws.writeQueryError(w, err)
			return
		}
		ws.writeJSON(w, map[string]any{"axis": axis.String(), "categories": cats})
		return
	}

	counts, err := g.MaxIntensityProjection(axis)
	if err != nil {
		ws.writeQueryError(w, err)
		return
	}
	ws.writeJSON(w, map[string]any{"axis": axis.String(), "counts": counts})
}

// handleGridPoints returns thresholded cell centres for 3D previews.
// Query params:
//
//	threshold (optional, default 0; strictly-greater comparison)
//	max_points (optional, default 10000)
func (ws *WebServer) handleGridPoints(w http.ResponseWriter, r *http.Request) {
	g := ws.currentGrid(w, r)
	if g == nil {
		return
	}
	var threshold int64
	if v := r.URL.Query().Get("threshold"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, "invalid 'threshold' parameter")
			return
		}
		threshold = parsed
	}
	maxPoints := 10_000
	if v := r.URL.Query().Get("max_points"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > 1_000_000 {
			ws.writeJSONError(w, http.StatusBadRequest, "invalid 'max_points' parameter")
			return
		}
		maxPoints = parsed
	}

	pts := g.ThresholdedPoints(threshold, maxPoints)
	ws.writeJSON(w, map[string]any{
		"threshold": threshold,
		"returned":  len(pts),
		"points":    pts,
	})
}

func (ws *WebServer) writeQueryError(w http.ResponseWriter, err error) {
	var oor *voxel.OutOfRangeError
	if errors.As(err, &oor) {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
}

// handleGridPersist snapshots the current grid to the database.
// Query params:
//
//	reason (optional, default 'manual')
func (ws *WebServer) handleGridPersist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "no database configured for persistence")
		return
	}
	m, datasetID := ws.manager(r)
	if m == nil {
		ws.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no grid manager for dataset %q", datasetID))
		return
	}
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "manual"
	}
	if err := m.Persist(ws.db, reason); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("persist: %v", err))
		return
	}
	ws.writeJSON(w, map[string]string{"status": "persisted", "dataset_id": datasetID, "reason": reason})
}

// handleGridSnapshots lists stored snapshots for a dataset, newest
// first.
// Query params:
//
//	limit (optional, default 50)
func (ws *WebServer) handleGridSnapshots(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "no database configured for snapshot lookup")
		return
	}
	datasetID := r.URL.Query().Get("dataset")
	if datasetID == "" {
		datasetID = ws.datasetID
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
		if limit < 0 || limit > 500 {
			limit = 0
		}
	}
	metas, err := ws.db.ListGridSnapshots(datasetID, limit)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list snapshots: %v", err))
		return
	}
	ws.writeJSON(w, map[string]any{"dataset_id": datasetID, "snapshots": metas})
}

// handleGridRestore installs a stored snapshot as the current grid,
// superseding any rebuild still in flight.
// Query params:
//
//	snapshot_id (required)
func (ws *WebServer) handleGridRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ws.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusInternalServerError, "no database configured for restore")
		return
	}
	m, datasetID := ws.manager(r)
	if m == nil {
		ws.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no grid manager for dataset %q", datasetID))
		return
	}
	snapshotID, err := strconv.ParseInt(r.URL.Query().Get("snapshot_id"), 10, 64)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, "missing or invalid 'snapshot_id' parameter")
		return
	}
	snap, err := ws.db.GetGridSnapshot(snapshotID)
	if err != nil {
		ws.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("snapshot %d: %v", snapshotID, err))
		return
	}
	res, err := voxel.Restore(snap)
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("restore: %v", err))
		return
	}
	m.SetCurrent(res)
	ws.writeJSON(w, map[string]any{
		"status":       "restored",
		"dataset_id":   datasetID,
		"snapshot_id":  snapshotID,
		"dims":         res.Grid.Spec.Dims,
		"total_points": res.TotalPoints,
	})
}
