// Package exclusion masks candidate points that fall inside zones fetched
// from a polygon provider (residential areas, water, protected land).
// Providers own buffering (via BufferZone); the Filter only tests membership.
package exclusion

import (
	"context"
	"math"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/solar-scout/internal/geomath"
	"github.com/sells-group/solar-scout/internal/model"
)

// ZoneType classifies an exclusion polygon.
type ZoneType string

const (
	ZoneResidential ZoneType = "residential"
	ZoneWater       ZoneType = "water"
	ZoneSensitive   ZoneType = "sensitive"
	ZoneCommercial  ZoneType = "commercial"
)

// Zone is one exclusion polygon: a go-geom Polygon or MultiPolygon in
// (lng, lat) order, optionally already buffered by the provider.
type Zone struct {
	Type     ZoneType
	Geometry geom.T
	BufferM  int
}

// Options controls which zone classes a provider fetches and how much
// outward buffer it applies before returning them.
type Options struct {
	IncludeWater     bool
	IncludeSensitive bool
	BufferM          int
}

// Provider fetches exclusion zones around a center. Implementations return
// an empty slice (never a partial set) on failure so callers can fail open.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, center model.Coordinate, radiusKM float64, opts Options) ([]Zone, error)
}

// BufferZone expands every ring of a zone's geometry outward from its ring
// centroid by bufferM meters, using the local planar projection. It is an
// approximation good enough for the few-hundred-meter buffers providers
// apply; holes are shrunk by the same construction, which is the safe
// direction for an exclusion mask.
func BufferZone(z Zone, bufferM int) Zone {
	if bufferM <= 0 {
		return z
	}
	bufferKM := float64(bufferM) / 1000

	switch g := z.Geometry.(type) {
	case *geom.Polygon:
		z.Geometry = bufferPolygon(g, bufferKM)
	case *geom.MultiPolygon:
		out := geom.NewMultiPolygon(geom.XY)
		for i := 0; i < g.NumPolygons(); i++ {
			_ = out.Push(bufferPolygon(g.Polygon(i), bufferKM))
		}
		z.Geometry = out
	}
	z.BufferM = bufferM
	return z
}

func bufferPolygon(p *geom.Polygon, bufferKM float64) *geom.Polygon {
	out := geom.NewPolygon(geom.XY)
	for _, ring := range p.Coords() {
		cLng, cLat := ringCentroid(ring)
		anchor := model.Coordinate{Lat: cLat, Lng: cLng}

		buffered := make([]geom.Coord, 0, len(ring))
		for _, c := range ring {
			x, y := geomath.Project(anchor, model.Coordinate{Lat: c[1], Lng: c[0]})
			d := math.Hypot(x, y)
			if d > 0 {
				scale := (d + bufferKM) / d
				x *= scale
				y *= scale
			}
			moved := geomath.Offset(anchor, x, y)
			buffered = append(buffered, geom.Coord{moved.Lng, moved.Lat})
		}
		_ = out.Push(geom.NewLinearRing(geom.XY).MustSetCoords(buffered))
	}
	return out
}

func ringCentroid(ring []geom.Coord) (lng, lat float64) {
	if len(ring) == 0 {
		return 0, 0
	}
	for _, c := range ring {
		lng += c[0]
		lat += c[1]
	}
	n := float64(len(ring))
	return lng / n, lat / n
}
