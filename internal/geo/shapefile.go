package geo

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
)

// BoundsFromShapefile derives a GridConfig bounding box from a region
// shapefile (e.g., a Census CBSA or state boundary export), so sweeps can
// target a sales territory instead of the whole country.
func BoundsFromShapefile(path string, stepDegrees float64) (GridConfig, error) {
	r, err := shp.Open(path)
	if err != nil {
		return GridConfig{}, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer r.Close() //nolint:errcheck

	cfg := GridConfig{StepDegrees: stepDegrees}
	first := true
	count := 0
	for r.Next() {
		_, shape := r.Shape()
		box := shape.BBox()
		if first {
			cfg.MinLng, cfg.MinLat = box.MinX, box.MinY
			cfg.MaxLng, cfg.MaxLat = box.MaxX, box.MaxY
			first = false
		} else {
			cfg.MinLng = min(cfg.MinLng, box.MinX)
			cfg.MinLat = min(cfg.MinLat, box.MinY)
			cfg.MaxLng = max(cfg.MaxLng, box.MaxX)
			cfg.MaxLat = max(cfg.MaxLat, box.MaxY)
		}
		count++
	}
	if first {
		return GridConfig{}, eris.Errorf("geo: shapefile %s has no shapes", path)
	}

	zap.L().Debug("derived bounds from shapefile",
		zap.String("path", path),
		zap.Int("shapes", count),
	)
	return cfg, nil
}

// RegionPolygons loads shapefile polygons as go-geom rings for
// point-in-polygon filtering. Only exterior rings are kept; locator
// sweeps don't care about holes.
func RegionPolygons(path string) ([]*geom.Polygon, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer r.Close() //nolint:errcheck

	var polys []*geom.Polygon
	for r.Next() {
		_, shape := r.Shape()
		p, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		for part := range p.Parts {
			start := int(p.Parts[part])
			end := len(p.Points)
			if part+1 < len(p.Parts) {
				end = int(p.Parts[part+1])
			}
			ring := make([]geom.Coord, 0, end-start)
			for _, pt := range p.Points[start:end] {
				ring = append(ring, geom.Coord{pt.X, pt.Y})
			}
			if len(ring) < 4 {
				continue
			}
			poly := geom.NewPolygon(geom.XY)
			if _, err := poly.SetCoords([][]geom.Coord{ring}); err != nil {
				return nil, eris.Wrap(err, "geo: build polygon")
			}
			polys = append(polys, poly)
		}
	}
	return polys, nil
}

// FilterToRegion drops grid points outside every polygon, so sweeps don't
// burn paced calls on open water or out-of-territory cells. Preserves the
// input ordering.
func FilterToRegion(points []GridPoint, polys []*geom.Polygon) []GridPoint {
	if len(polys) == 0 {
		return points
	}
	var kept []GridPoint
	for _, pt := range points {
		coord := geom.Coord{pt.Lng, pt.Lat}
		for _, poly := range polys {
			if xy.IsPointInRing(geom.XY, coord, poly.LinearRing(0).FlatCoords()) {
				kept = append(kept, pt)
				break
			}
		}
	}
	return kept
}
