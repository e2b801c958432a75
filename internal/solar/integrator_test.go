package solar

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/solar-scout/internal/model"
)

func TestIntegrate_PositiveAtMidLatitude(t *testing.T) {
	in := &Integrator{Year: 2025}
	raw, violations := in.Integrate(model.Coordinate{Lat: 30.2672, Lng: -97.7431})

	assert.Greater(t, raw, 0.0)
	assert.Zero(t, violations)
	assert.False(t, math.IsNaN(raw))
	assert.False(t, math.IsInf(raw, 0))
}

func TestIntegrate_Deterministic(t *testing.T) {
	in := &Integrator{Year: 2025}
	loc := model.Coordinate{Lat: 40, Lng: -74}

	a, _ := in.Integrate(loc)
	b, _ := in.Integrate(loc)
	assert.Equal(t, a, b)
}

func TestIntegrate_UrbanPenaltyReduces(t *testing.T) {
	loc := model.Coordinate{Lat: 48, Lng: 11}

	plain, _ := (&Integrator{Year: 2025}).Integrate(loc)
	penalised, _ := (&Integrator{Year: 2025, UrbanPenalty: true}).Integrate(loc)

	assert.Less(t, penalised, plain)
	// The penalty is bounded below by 0.7.
	assert.GreaterOrEqual(t, penalised, plain*0.7-1e-9)
}

func TestIntegrate_PolarNightIsZero(t *testing.T) {
	// June 21 at 85°S: the sun never rises; the integral collapses cleanly
	// to zero, no error paths.
	in := &Integrator{Year: 2025}
	raw, violations := in.Integrate(model.Coordinate{Lat: -85, Lng: 0})

	assert.Zero(t, raw)
	assert.Zero(t, violations)
}

func TestPanelFor(t *testing.T) {
	tilt, az := PanelFor(40)
	assert.InDelta(t, 30.4, tilt, 1e-9)
	assert.Equal(t, 180.0, az)

	tilt, az = PanelFor(-33)
	assert.InDelta(t, 25.08, tilt, 1e-9)
	assert.Equal(t, 0.0, az)
}

// The daily total as a function of longitude at fixed
// latitude must be smooth: no local spike above 50 W/m² between 1°-spaced
// neighbours.
func TestIntegrate_LongitudeSmoothness(t *testing.T) {
	in := &Integrator{Year: 2025}

	var prev float64
	first := true
	for lng := -10.0; lng <= 10; lng++ {
		raw, _ := in.Integrate(model.Coordinate{Lat: 35, Lng: lng})
		if !first {
			require.Less(t, math.Abs(raw-prev), 50.0, "spike at lng=%.0f", lng)
		}
		prev = raw
		first = false
	}
}

// The instantaneous solar-noon POA must also vary smoothly with longitude.
func TestNoonPOA_LongitudeSmoothness(t *testing.T) {
	day := 172
	tiltDeg, surfAzDeg := PanelFor(35)

	var prev float64
	first := true
	for lng := -10.0; lng <= 10; lng++ {
		pos := PositionAt(35, lng, day, SolarNoonUTC(lng, day))
		total := POA(ClearSky(pos.Elevation), pos, tiltDeg, surfAzDeg).Total
		if !first {
			require.Less(t, math.Abs(total-prev), 50.0, "noon POA spike at lng=%.0f", lng)
		}
		prev = total
		first = false
	}
}

func TestKWHPerDay(t *testing.T) {
	// 288 steps of 1000 W/m² is a full day at 1 kW/m²: 24 kWh/m².
	assert.InDelta(t, 24.0, KWHPerDay(288*1000), 1e-9)
}
