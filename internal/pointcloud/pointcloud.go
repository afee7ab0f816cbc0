// Package pointcloud loads point sets for voxelization: CSV/XYZ parsing
// for uploads and files, plus synthetic generators for demos and tests.
package pointcloud

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/banshee-data/voxgrid/internal/voxel"
)

// ReadResult is a parsed point set plus ingestion bookkeeping.
type ReadResult struct {
	Points []voxel.Point

	// Categories is the set of distinct labels seen across the input,
	// useful for reporting what a dataset contains before voxelizing.
	Categories mapset.Set[voxel.Category]

	// SkippedRows counts input rows dropped for having too few columns or
	// unparsable coordinates. Parsing is tolerant: bad rows are skipped,
	// not fatal, matching how field-collected XYZ files tend to look.
	SkippedRows int
}

// ReadXYZ parses comma- or tab-separated point data from r. Expected
// columns are x,y,z with an optional category label in column 4 and an
// optional intensity in column 5. A leading header row is detected by a
// non-numeric first field and skipped; lines starting with '#' are
// comments. An input with no valid rows at all is an error.
func ReadXYZ(r io.Reader) (*ReadResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	res := &ReadResult{Categories: mapset.NewSet[voxel.Category]()}
	first := true
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read point data: %w", err)
		}
		// tab-separated files arrive as one field per line
		if len(record) == 1 && strings.ContainsRune(record[0], '\t') {
			record = strings.Split(record[0], "\t")
		}
		if first {
			first = false
			if isHeaderRow(record) {
				continue
			}
		}
		if len(record) < 3 {
			res.SkippedRows++
			continue
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		z, errZ := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if errX != nil || errY != nil || errZ != nil {
			res.SkippedRows++
			continue
		}
		p := voxel.Point{X: x, Y: y, Z: z}
		if len(record) > 3 {
			if c, ok := voxel.ParseCategory(record[3]); ok {
				p.Category = c
				p.HasCategory = true
				res.Categories.Add(c)
			}
		}
		if len(record) > 4 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64); err == nil {
				p.Intensity = v
			}
		}
		res.Points = append(res.Points, p)
	}
	if len(res.Points) == 0 {
		return nil, fmt.Errorf("point data contains no valid x,y,z rows (%d skipped)", res.SkippedRows)
	}
	return res, nil
}

func isHeaderRow(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
	return err != nil
}
