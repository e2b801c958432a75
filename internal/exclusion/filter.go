package exclusion

import (
	"github.com/twpayne/go-geom"

	"github.com/sells-group/solar-scout/internal/model"
)

// Filter answers point-in-zone queries over a fetched zone set. A nil or
// empty filter excludes nothing.
type Filter struct {
	zones []Zone
}

// NewFilter wraps a zone set for membership testing.
func NewFilter(zones []Zone) *Filter {
	return &Filter{zones: zones}
}

// Len returns the number of zones in the filter.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.zones)
}

// Excluded reports whether the point falls inside any zone.
func (f *Filter) Excluded(loc model.Coordinate) bool {
	if f == nil {
		return false
	}
	for _, z := range f.zones {
		if geometryContains(z.Geometry, loc) {
			return true
		}
	}
	return false
}

// Apply returns the candidates that survive the mask, preserving order.
func (f *Filter) Apply(candidates []model.Candidate) []model.Candidate {
	if f.Len() == 0 {
		return candidates
	}
	kept := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !f.Excluded(c.Loc) {
			kept = append(kept, c)
		}
	}
	return kept
}

// geometryContains tests membership for the geometry kinds providers emit.
// A point inside any constituent polygon of a multipolygon is inside; a
// point inside an interior ring (hole) is outside.
func geometryContains(g geom.T, loc model.Coordinate) bool {
	switch gg := g.(type) {
	case *geom.Polygon:
		return polygonContains(gg, loc)
	case *geom.MultiPolygon:
		for i := 0; i < gg.NumPolygons(); i++ {
			if polygonContains(gg.Polygon(i), loc) {
				return true
			}
		}
	}
	return false
}

func polygonContains(p *geom.Polygon, loc model.Coordinate) bool {
	rings := p.Coords()
	if len(rings) == 0 || !pointInRing(loc, rings[0]) {
		return false
	}
	// Interior rings are holes.
	for _, hole := range rings[1:] {
		if pointInRing(loc, hole) {
			return false
		}
	}
	return true
}

// pointInRing ray-casts in the (lng, lat) plane. Coordinates follow the
// GeoJSON axis order: c[0] = lng, c[1] = lat.
func pointInRing(loc model.Coordinate, ring []geom.Coord) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		yi, yj := ring[i][1], ring[j][1]
		xi, xj := ring[i][0], ring[j][0]
		if (yi > loc.Lat) != (yj > loc.Lat) &&
			loc.Lng < (xj-xi)*(loc.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}
