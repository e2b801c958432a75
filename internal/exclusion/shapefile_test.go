package exclusion

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/solar-scout/internal/model"
)

// writeFixture creates a shapefile with two rectangular zones near lower
// Manhattan: a residential block and a water body.
func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zones.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("TYPE", 25)}))

	// Shapefile outer rings are clockwise in (x=lng, y=lat).
	residential := polygonShape([]shp.Point{
		{X: -74.10, Y: 40.70}, {X: -74.10, Y: 40.80}, {X: -74.00, Y: 40.80}, {X: -74.00, Y: 40.70}, {X: -74.10, Y: 40.70},
	})
	idx := w.Write(residential)
	w.WriteAttribute(int(idx), 0, "residential")

	water := polygonShape([]shp.Point{
		{X: -74.20, Y: 40.60}, {X: -74.20, Y: 40.65}, {X: -74.15, Y: 40.65}, {X: -74.15, Y: 40.60}, {X: -74.20, Y: 40.60},
	})
	idx = w.Write(water)
	w.WriteAttribute(int(idx), 0, "water")

	w.Close()
	return path
}

func polygonShape(pts []shp.Point) *shp.Polygon {
	box := shp.Box{MinX: pts[0].X, MinY: pts[0].Y, MaxX: pts[0].X, MaxY: pts[0].Y}
	for _, p := range pts[1:] {
		if p.X < box.MinX {
			box.MinX = p.X
		}
		if p.Y < box.MinY {
			box.MinY = p.Y
		}
		if p.X > box.MaxX {
			box.MaxX = p.X
		}
		if p.Y > box.MaxY {
			box.MaxY = p.Y
		}
	}
	return &shp.Polygon{
		Box:       box,
		NumParts:  1,
		NumPoints: int32(len(pts)),
		Parts:     []int32{0},
		Points:    pts,
	}
}

func TestShapefileProvider_Fetch(t *testing.T) {
	p := NewShapefileProvider(writeFixture(t))
	center := model.Coordinate{Lat: 40.75, Lng: -74.05}

	zones, err := p.Fetch(context.Background(), center, 10, Options{})
	require.NoError(t, err)

	// Water is filtered out unless requested.
	require.Len(t, zones, 1)
	assert.Equal(t, ZoneResidential, zones[0].Type)

	f := NewFilter(zones)
	assert.True(t, f.Excluded(model.Coordinate{Lat: 40.75, Lng: -74.05}))
	assert.False(t, f.Excluded(model.Coordinate{Lat: 40.62, Lng: -74.17}))
}

func TestShapefileProvider_IncludeWater(t *testing.T) {
	p := NewShapefileProvider(writeFixture(t))
	center := model.Coordinate{Lat: 40.70, Lng: -74.10}

	zones, err := p.Fetch(context.Background(), center, 20, Options{IncludeWater: true})
	require.NoError(t, err)
	require.Len(t, zones, 2)

	f := NewFilter(zones)
	assert.True(t, f.Excluded(model.Coordinate{Lat: 40.62, Lng: -74.17}))
}

func TestShapefileProvider_DistanceFilter(t *testing.T) {
	p := NewShapefileProvider(writeFixture(t))

	// A request disk far from both zones fetches nothing.
	zones, err := p.Fetch(context.Background(), model.Coordinate{Lat: 45, Lng: -80}, 2, Options{IncludeWater: true})
	require.NoError(t, err)
	assert.Empty(t, zones)
}

func TestShapefileProvider_MissingFile(t *testing.T) {
	p := NewShapefileProvider(filepath.Join(t.TempDir(), "missing.shp"))
	_, err := p.Fetch(context.Background(), model.Coordinate{Lat: 40, Lng: -74}, 2, Options{})
	assert.Error(t, err)
}
