package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// viridisColors is the palette used by the debug charts' visual maps.
var viridisColors = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// renderPlaneScatter renders a 2D cell-value plane as a coloured scatter
// chart. Cells with zero value are omitted to keep payloads small.
func (ws *WebServer) renderPlaneScatter(w http.ResponseWriter, title, subtitle string, plane [][]uint32) {
	data := make([]opts.ScatterData, 0, 1024)
	maxVal := float64(0)
	for i := range plane {
		for j, v := range plane[i] {
			if v == 0 {
				continue
			}
			if float64(v) > maxVal {
				maxVal = float64(v)
			}
			data = append(data, opts.ScatterData{Value: []interface{}{i, j, v}})
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxVal),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries("cells", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleSliceChart renders one grid cross-section as an HTML scatter
// chart. This is a debugging-only endpoint (no auth) to eyeball grids
// without a frontend.
// Query params:
//
//	axis (optional, default z)
//	index (optional, default the middle of the axis)
func (ws *WebServer) handleSliceChart(w http.ResponseWriter, r *http.Request) {
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

	subtitle := fmt.Sprintf("dataset=%s axis=%s index=%d dims=%v voxel=%gm",
		ws.datasetID, axis, index, g.Spec.Dims, g.Spec.VoxelSize)
	ws.renderPlaneScatter(w, "Voxel Grid Slice", subtitle, plane)
}

// handleMIPChart renders the maximum intensity projection as an HTML
// scatter chart.
// Query params:
//
//	axis (optional, default z)
func (ws *WebServer) handleMIPChart(w http.ResponseWriter, r *http.Request) {
	g := ws.currentGrid(w, r)
	if g == nil {
		return
	}
	axis, err := parseAxisParam(r)
	if err != nil {
		ws.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	plane, err := g.MaxIntensityProjection(axis)
	if err != nil {
		ws.writeQueryError(w, err)
		return
	}

	subtitle := fmt.Sprintf("dataset=%s axis=%s dims=%v voxel=%gm",
		ws.datasetID, axis, g.Spec.Dims, g.Spec.VoxelSize)
	ws.renderPlaneScatter(w, "Voxel Grid MIP", subtitle, plane)
}
