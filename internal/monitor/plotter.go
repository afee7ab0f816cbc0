package monitor

import (
	"fmt"
	"net/http"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// planeGrid adapts a 2D cell-value plane to plotter.GridXYZ. Rows of the
// plane map to the x axis so the PNG matches the JSON orientation, with
// cell centres at (i+0.5)*voxelSize.
type planeGrid struct {
	cells     [][]uint32
	voxelSize float64
}

func (p planeGrid) Dims() (c, r int) {
	if len(p.cells) == 0 {
		return 0, 0
	}
	return len(p.cells), len(p.cells[0])
}

func (p planeGrid) Z(c, r int) float64 { return float64(p.cells[c][r]) }
func (p planeGrid) X(c int) float64    { return (float64(c) + 0.5) * p.voxelSize }
func (p planeGrid) Y(r int) float64    { return (float64(r) + 0.5) * p.voxelSize }

// handleSlicePlot renders one grid cross-section as a PNG heatmap using
// gonum/plot, for embedding in reports or quick terminal previews via
// curl.
// Query params:
//
//	axis (optional, default z)
//	index (optional, default the middle of the axis)
func (ws *WebServer) handleSlicePlot(w http.ResponseWriter, r *http.Request) {
	g := ws.currentGrid(w, r)
	if g == nil {
		return
	}
	axis, err := parseAxisParam(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	index := g.Spec.Dims[axis] / 2
	if v := r.URL.Query().Get("index"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			ws.writeJSONError(w, http.StatusBadRequest, "invalid 'index' parameter")
			return
		}
		index = parsed
	}

	plane, err := g.Slice(axis, index)
	if err != nil {
		ws.writeQueryError(w, err)
		return
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Slice %s=%d (dataset %s)", axis, index, ws.datasetID)
	p.X.Label.Text = "meters"
	p.Y.Label.Text = "meters"

	hm := plotter.NewHeatMap(planeGrid{cells: plane, voxelSize: g.Spec.VoxelSize}, palette.Heat(12, 1))
	p.Add(hm)

	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := wt.WriteTo(w); err != nil {
		// client went away mid-write; nothing useful to do
		return
	}
}
