// Command gen-points generates sample point cloud CSV files for testing
// voxelization.
package main

import (
	"encoding/csv"
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/banshee-data/voxgrid/internal/pointcloud"
	"github.com/banshee-data/voxgrid/internal/voxel"
)

func main() {
	output := flag.String("o", "points.csv", "output path")
	n := flag.Int("n", 100_000, "number of points (sphere and box)")
	kind := flag.String("kind", "sphere", "cloud kind: sphere, box or city")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	var pts []voxel.Point
	switch *kind {
	case "sphere":
		pts = pointcloud.SphereShell(*n, 50.0, 0.1, *seed)
	case "box":
		pts = pointcloud.UniformBox(*n, 0, 100, *seed)
	case "city":
		pts = pointcloud.CityBlocks(pointcloud.DefaultCityConfig(), *seed)
	default:
		log.Fatalf("unknown kind %q (want sphere, box or city)", *kind)
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create output: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"x", "y", "z", "category"}); err != nil {
		log.Fatalf("failed to write header: %v", err)
	}
	for i, p := range pts {
		cat := ""
		if p.HasCategory {
			cat = p.Category.String()
		}
		row := []string{
			strconv.FormatFloat(p.X, 'f', 4, 64),
			strconv.FormatFloat(p.Y, 'f', 4, 64),
			strconv.FormatFloat(p.Z, 'f', 4, 64),
			cat,
		}
		if err := w.Write(row); err != nil {
			log.Fatalf("failed to write row: %v", err)
		}
		if (i+1)%100_000 == 0 {
			log.Printf("%d/%d points", i+1, len(pts))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("failed to flush output: %v", err)
	}
	log.Printf("✓ Created: %s (%d points)", *output, len(pts))
}
