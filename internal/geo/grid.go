// Package geo generates deterministic geographic query points for
// radius-limited and result-capped locator providers.
package geo

import "math"

// GridPoint is one geographic query point.
type GridPoint struct {
	Lat   float64
	Lng   float64
	Label string // optional human label
}

// GridConfig describes a bounding box and step size for grid generation.
type GridConfig struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
	// StepDegrees is the lattice spacing. Sweep pacing and worst-case
	// runtime bounds are computed from the resulting point count, so the
	// generator must be deterministic and order-stable for a fixed config.
	StepDegrees float64
}

// ContiguousUS covers the lower 48 states. At the default 1.5 degree step
// this produces a sweep small enough to pace politely within one run.
var ContiguousUS = GridConfig{
	MinLat:      24.5,
	MaxLat:      49.5,
	MinLng:      -125.0,
	MaxLng:      -66.5,
	StepDegrees: 1.5,
}

// GenerateGrid lays out points on a regular lattice spanning the bounding
// box, in row-major order (south to north, west to east within each row).
// Identical input always yields the same count and ordering.
//
// Known trade-off: with radius-limited per-point search, diagonal "corner"
// dead zones exist between adjacent points whenever the diagonal spacing
// exceeds the provider's search radius. Acceptable for the target region's
// retail density; revisit StepDegrees for denser categories or other
// geographies rather than assuming the gap stays negligible.
func GenerateGrid(cfg GridConfig) []GridPoint {
	if cfg.StepDegrees <= 0 || cfg.MaxLat < cfg.MinLat || cfg.MaxLng < cfg.MinLng {
		return nil
	}

	// Index-based stepping avoids float accumulation drift, which would
	// make the point count sensitive to box size.
	rows := int(math.Floor((cfg.MaxLat-cfg.MinLat)/cfg.StepDegrees)) + 1
	cols := int(math.Floor((cfg.MaxLng-cfg.MinLng)/cfg.StepDegrees)) + 1

	points := make([]GridPoint, 0, rows*cols)
	for r := range rows {
		lat := cfg.MinLat + float64(r)*cfg.StepDegrees
		for c := range cols {
			points = append(points, GridPoint{
				Lat: lat,
				Lng: cfg.MinLng + float64(c)*cfg.StepDegrees,
			})
		}
	}
	return points
}
