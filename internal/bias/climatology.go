// Package bias normalises the raw irradiance model against a climatology
// baseline so rankings reflect local quality instead of absolute latitude
// advantage.
package bias

import (
	"math"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/solar-scout/internal/model"
	"github.com/sells-group/solar-scout/internal/solar"
)

// Climatology holds the month-indexed tables the baseline applies on top of
// the clear-sky model: broadband attenuation and ambient temperature.
type Climatology struct {
	// Attenuation has one entry per month, each in [0.55, 0.72].
	Attenuation [12]float64 `yaml:"attenuation"`

	// AmbientC is the mean ambient temperature per month in °C.
	AmbientC [12]float64 `yaml:"ambient_c"`
}

// DefaultClimatology returns the built-in mid-latitude tables.
func DefaultClimatology() Climatology {
	return Climatology{
		Attenuation: [12]float64{
			0.60, 0.62, 0.65, 0.67, 0.69, 0.72,
			0.71, 0.70, 0.68, 0.65, 0.61, 0.58,
		},
		AmbientC: [12]float64{
			5, 7, 11, 16, 21, 26,
			29, 28, 24, 18, 11, 6,
		},
	}
}

// Validate checks the attenuation table stays inside its contract range.
func (c Climatology) Validate() error {
	for i, a := range c.Attenuation {
		if a < 0.55 || a > 0.72 {
			return eris.Errorf("bias: attenuation[%d] = %.3f outside [0.55, 0.72]", i, a)
		}
	}
	return nil
}

// LoadClimatologyFile reads month tables from a YAML file, falling back to
// defaults for sections the file omits.
func LoadClimatologyFile(path string) (Climatology, error) {
	c := DefaultClimatology()

	data, err := os.ReadFile(path)
	if err != nil {
		return c, eris.Wrapf(err, "bias: read climatology %s", path)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, eris.Wrapf(err, "bias: parse climatology %s", path)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// TemperatureDerate returns the multiplicative derate for a month's ambient
// temperature: max(0.5, 1 - 0.004·(T - 25)). This is the single place
// temperature touches the pipeline.
func (c Climatology) TemperatureDerate(month time.Month) float64 {
	return math.Max(0.5, 1-0.004*(c.AmbientC[month-1]-25))
}

// Baseline evaluates the climatology baseline POA for a location, day of
// year, and panel geometry: the solar-noon clear-sky POA scaled by the
// month's attenuation and temperature derate.
func (c Climatology) Baseline(loc model.Coordinate, year, dayOfYear int, tiltDeg, surfaceAzDeg float64) float64 {
	noon := solar.SolarNoonUTC(loc.Lng, dayOfYear)
	pos := solar.PositionAt(loc.Lat, loc.Lng, dayOfYear, noon)
	if pos.Night() {
		return 0
	}

	poa := solar.POA(solar.ClearSky(pos.Elevation), pos, tiltDeg, surfaceAzDeg).Total

	month := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, dayOfYear-1).Month()

	return poa * c.Attenuation[month-1] * c.TemperatureDerate(month)
}
