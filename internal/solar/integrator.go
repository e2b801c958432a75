package solar

import (
	"math"
	"time"

	"github.com/sells-group/solar-scout/internal/model"
)

// Daily integration grid: 24 h at 5-minute steps.
const (
	StepsPerDay = 288
	stepHours   = 24.0 / StepsPerDay
)

// TiltFactor converts absolute latitude to the default panel tilt in
// degrees.
const TiltFactor = 0.76

// Integrator sums plane-of-array irradiance over the representative day.
// The representative date is June 21 (summer solstice) of Year; the grid is
// 288 five-minute steps across the UTC day, with longitude folded in through
// apparent solar time.
type Integrator struct {
	Year         int
	UrbanPenalty bool
}

// NewIntegrator returns an Integrator pinned to the current year.
func NewIntegrator(urbanPenalty bool) *Integrator {
	return &Integrator{Year: time.Now().UTC().Year(), UrbanPenalty: urbanPenalty}
}

// PanelFor returns the default panel geometry at a latitude: tilt |lat|·0.76
// degrees, facing the equator (180° in the Northern Hemisphere, 0° in the
// Southern).
func PanelFor(latDeg float64) (tiltDeg, surfaceAzDeg float64) {
	tiltDeg = math.Abs(latDeg) * TiltFactor
	if latDeg >= 0 {
		surfaceAzDeg = 180
	}
	return tiltDeg, surfaceAzDeg
}

// Integrate sums POA over the daily grid for a location and returns the raw
// unnormalised daily integral (W/m² summed over steps) along with the count
// of GHI closure self-check violations observed (zero for a correct model).
//
// Temperature derating deliberately does not happen here: the bias corrector
// owns it, so it is applied exactly once.
func (in *Integrator) Integrate(loc model.Coordinate) (rawPOA float64, violations int) {
	day := time.Date(in.Year, time.June, 21, 0, 0, 0, 0, time.UTC).YearDay()
	tiltDeg, surfAzDeg := PanelFor(loc.Lat)

	var sum float64
	for step := 0; step < StepsPerDay; step++ {
		utcHour := float64(step) * stepHours

		pos := PositionAt(loc.Lat, loc.Lng, day, utcHour)
		if pos.Night() {
			continue
		}

		tr := ClearSky(pos.Elevation)
		if !tr.Consistent(pos.Elevation) {
			violations++
		}

		sum += POA(tr, pos, tiltDeg, surfAzDeg).Total
	}

	if in.UrbanPenalty {
		sum *= math.Max(0.7, 1-math.Abs(loc.Lat)/90*0.3)
	}
	// Latitude-based sky-view factor applies to every site.
	sum *= math.Max(0.8, 1-math.Abs(loc.Lat)/90*0.2)

	return sum, violations
}

// KWHPerDay converts a raw daily POA integral (W/m² summed over 5-minute
// steps) to kWh per m² per day.
func KWHPerDay(rawPOA float64) float64 {
	return rawPOA * stepHours / 1000
}
