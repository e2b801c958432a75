package exclusion

import (
	"context"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/solar-scout/internal/geomath"
	"github.com/sells-group/solar-scout/internal/model"
)

// ShapefileProvider serves exclusion zones from a local shapefile, for
// offline runs and tests. The zone class is read from a DBF attribute
// (default "type"); unknown classes default to residential.
type ShapefileProvider struct {
	path      string
	typeField string
}

// ShapefileOption configures a ShapefileProvider.
type ShapefileOption func(*ShapefileProvider)

// WithTypeField overrides the DBF field holding the zone class.
func WithTypeField(field string) ShapefileOption {
	return func(p *ShapefileProvider) { p.typeField = field }
}

// NewShapefileProvider creates a provider reading from the given .shp path.
func NewShapefileProvider(path string, opts ...ShapefileOption) *ShapefileProvider {
	p := &ShapefileProvider{path: path, typeField: "type"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *ShapefileProvider) Name() string { return "shapefile" }

// Fetch implements Provider. Zones whose bounding box lies entirely outside
// the request disk are dropped; requested buffering is applied before
// returning.
func (p *ShapefileProvider) Fetch(_ context.Context, center model.Coordinate, radiusKM float64, opts Options) ([]Zone, error) {
	reader, err := shp.Open(p.path)
	if err != nil {
		return nil, eris.Wrapf(err, "exclusion: open shapefile %s", p.path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	typeIdx := -1
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, p.typeField) {
			typeIdx = i
		}
	}

	var zones []Zone
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}

		zt := ZoneResidential
		if typeIdx >= 0 {
			zt = parseZoneType(strings.TrimSpace(strings.TrimRight(reader.Attribute(typeIdx), "\x00")))
		}
		if zt == ZoneWater && !opts.IncludeWater {
			continue
		}
		if zt == ZoneSensitive && !opts.IncludeSensitive {
			continue
		}

		g := shpPolygonToGeom(poly)
		if g == nil {
			skipped++
			continue
		}
		if !nearDisk(g, center, radiusKM) {
			continue
		}

		zones = append(zones, BufferZone(Zone{Type: zt, Geometry: g}, opts.BufferM))
	}

	if skipped > 0 {
		zap.L().Debug("exclusion: skipped shapefile records",
			zap.String("path", p.path),
			zap.Int("skipped", skipped),
		)
	}

	return zones, nil
}

func parseZoneType(s string) ZoneType {
	switch strings.ToLower(s) {
	case "water":
		return ZoneWater
	case "sensitive", "protected", "nature_reserve":
		return ZoneSensitive
	case "commercial":
		return ZoneCommercial
	default:
		return ZoneResidential
	}
}

// shpPolygonToGeom converts a shapefile polygon into a go-geom MultiPolygon.
// Shapefile ring winding marks holes (clockwise = outer, counterclockwise =
// hole); holes attach to the most recent outer ring.
func shpPolygonToGeom(p *shp.Polygon) geom.T {
	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		coords := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			coords = append(coords, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}
		if len(coords) < 3 {
			continue
		}

		ring := geom.NewLinearRing(geom.XY).MustSetCoords(coords)
		if signedArea(coords) < 0 || current == nil {
			// Clockwise (negative area in lng/lat order): a new outer ring.
			if current != nil {
				_ = mp.Push(current)
			}
			current = geom.NewPolygon(geom.XY)
			_ = current.Push(ring)
		} else {
			_ = current.Push(ring)
		}
	}
	if current != nil {
		_ = mp.Push(current)
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func signedArea(ring []geom.Coord) float64 {
	var area float64
	n := len(ring)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return area / 2
}

// nearDisk keeps zones whose bounding box touches the request disk (with a
// small slack so boundary zones are never dropped).
func nearDisk(g geom.T, center model.Coordinate, radiusKM float64) bool {
	b := g.Bounds()
	closest := model.Coordinate{
		Lat: clampF(center.Lat, b.Min(1), b.Max(1)),
		Lng: clampF(center.Lng, b.Min(0), b.Max(0)),
	}
	return geomath.Haversine(center, closest) <= radiusKM*1.1
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
