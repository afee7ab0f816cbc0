package pointcloud

import (
	"math"
	"math/rand"

	"github.com/banshee-data/voxgrid/internal/voxel"
)

// UniformBox generates n points uniformly distributed in the axis-aligned
// box [min,max] on each axis.
func UniformBox(n int, min, max float64, seed int64) []voxel.Point {
	rng := rand.New(rand.NewSource(seed))
	span := max - min
	pts := make([]voxel.Point, n)
	for i := range pts {
		pts[i] = voxel.Point{
			X: min + rng.Float64()*span,
			Y: min + rng.Float64()*span,
			Z: min + rng.Float64()*span,
		}
	}
	return pts
}

// SphereShell generates n points on a hollow spherical shell centred at
// the origin. thickness is the relative shell depth: points lie at radii
// in [radius*(1-thickness), radius]. Sampling is uniform over the sphere
// (uniform azimuth, uniform cos of the polar angle).
func SphereShell(n int, radius, thickness float64, seed int64) []voxel.Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]voxel.Point, n)
	for i := range pts {
		phi := rng.Float64() * 2 * math.Pi
		costheta := rng.Float64()*2 - 1
		u := 1 - rng.Float64()*thickness
		sintheta := math.Sqrt(1 - costheta*costheta)
		r := u * radius
		pts[i] = voxel.Point{
			X: r * sintheta * math.Cos(phi),
			Y: r * sintheta * math.Sin(phi),
			Z: r * costheta,
		}
	}
	return pts
}

// CityConfig controls the CityBlocks generator.
type CityConfig struct {
	Blocks      int     // city blocks per side
	BlockSize   float64 // meters per block, including the street
	StreetWidth float64
	MaxHeight   float64
	PointsPerM2 float64
}

func DefaultCityConfig() CityConfig {
	return CityConfig{
		Blocks:      4,
		BlockSize:   30,
		StreetWidth: 8,
		MaxHeight:   40,
		PointsPerM2: 2,
	}
}

// CityBlocks generates a categorized toy city: a square of building
// blocks separated by streets, with ground-level terrain fill. Buildings
// get per-block random heights; streets are labelled road and building
// footprints building, so category aggregation has real structure to
// chew on.
func CityBlocks(cfg CityConfig, seed int64) []voxel.Point {
	rng := rand.New(rand.NewSource(seed))
	side := float64(cfg.Blocks) * cfg.BlockSize
	var pts []voxel.Point

	// ground plane: roads on the street grid, terrain elsewhere
	groundN := int(side * side * cfg.PointsPerM2)
	for i := 0; i < groundN; i++ {
		x := rng.Float64() * side
		y := rng.Float64() * side
		cat := voxel.CategoryTerrain
		if onStreet(x, cfg) || onStreet(y, cfg) {
			cat = voxel.CategoryRoad
		}
		pts = append(pts, voxel.Point{X: x, Y: y, Z: rng.Float64() * 0.3, Category: cat, HasCategory: true})
	}

	// building volumes, one per block interior
	for bx := 0; bx < cfg.Blocks; bx++ {
		for by := 0; by < cfg.Blocks; by++ {
			x0 := float64(bx)*cfg.BlockSize + cfg.StreetWidth/2
			y0 := float64(by)*cfg.BlockSize + cfg.StreetWidth/2
			w := cfg.BlockSize - cfg.StreetWidth
			h := (0.3 + 0.7*rng.Float64()) * cfg.MaxHeight
			n := int(w * w * cfg.PointsPerM2)
			for i := 0; i < n; i++ {
				pts = append(pts, voxel.Point{
					X:           x0 + rng.Float64()*w,
					Y:           y0 + rng.Float64()*w,
					Z:           rng.Float64() * h,
					Category:    voxel.CategoryBuilding,
					HasCategory: true,
					Intensity:   h,
				})
			}
		}
	}

	// scattered street trees
	treeN := groundN / 20
	for i := 0; i < treeN; i++ {
		pts = append(pts, voxel.Point{
			X:           rng.Float64() * side,
			Y:           rng.Float64() * side,
			Z:           1 + rng.Float64()*6,
			Category:    voxel.CategoryVegetation,
			HasCategory: true,
		})
	}
	return pts
}

// onStreet reports whether a coordinate falls inside the street band that
// runs along each block boundary.
func onStreet(c float64, cfg CityConfig) bool {
	m := math.Mod(c, cfg.BlockSize)
	return m < cfg.StreetWidth/2 || m > cfg.BlockSize-cfg.StreetWidth/2
}
