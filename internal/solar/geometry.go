// Package solar implements first-principles clear-sky solar modelling: sun
// position, clear-sky irradiance, plane-of-array decomposition, and the
// daily integral the ranking pipeline consumes.
//
// Convention, project-wide: azimuth 0 = North, increasing clockwise, wrapped
// to (-π, π]. Latitude and longitude cross the package boundary in degrees
// and are converted to radians exactly once per computation.
package solar

import "math"

// Position is the sun's location in the sky for one (place, time) pair.
// Elevation is in [-π/2, π/2] radians; Azimuth in (-π, π] radians.
type Position struct {
	Elevation float64
	Azimuth   float64
}

// Night reports whether the sun is at or below the horizon.
func (p Position) Night() bool { return p.Elevation <= 0 }

// Declination returns the solar declination in radians for a day of year
// (1-366), using the Cooper approximation.
func Declination(dayOfYear int) float64 {
	return degToRad(23.45 * math.Sin(degToRad(360.0/365.0*float64(284+dayOfYear))))
}

// EquationOfTime returns the offset between apparent and mean solar time in
// minutes for a day of year.
func EquationOfTime(dayOfYear int) float64 {
	b := degToRad(360.0 / 365.0 * float64(dayOfYear-81))
	return 9.87*math.Sin(2*b) - 7.53*math.Cos(b) - 1.5*math.Sin(b)
}

// ApparentSolarTime converts a UTC hour to local apparent solar time in
// hours at the given longitude (degrees east positive).
func ApparentSolarTime(utcHour, lngDeg float64, dayOfYear int) float64 {
	return utcHour + lngDeg/15 + EquationOfTime(dayOfYear)/60
}

// HourAngle returns the solar hour angle in radians for a local apparent
// solar time in hours. Zero at solar noon, negative in the morning.
func HourAngle(solarTime float64) float64 {
	return degToRad((solarTime - 12) * 15)
}

// PositionAt computes the sun's elevation and azimuth for a place, day of
// year, and UTC hour.
func PositionAt(latDeg, lngDeg float64, dayOfYear int, utcHour float64) Position {
	decl := Declination(dayOfYear)
	lat := degToRad(latDeg)
	h := HourAngle(ApparentSolarTime(utcHour, lngDeg, dayOfYear))

	sinElev := math.Sin(decl)*math.Sin(lat) + math.Cos(decl)*math.Cos(lat)*math.Cos(h)
	elev := math.Asin(clamp(sinElev, -1, 1))

	az := math.Atan2(math.Sin(h), math.Cos(h)*math.Sin(lat)-math.Tan(decl)*math.Cos(lat))

	return Position{Elevation: elev, Azimuth: wrapAzimuth(az)}
}

// SolarNoonUTC returns the UTC hour of solar noon at the given longitude and
// day of year.
func SolarNoonUTC(lngDeg float64, dayOfYear int) float64 {
	return 12 - lngDeg/15 - EquationOfTime(dayOfYear)/60
}

// wrapAzimuth normalises an angle to (-π, π].
func wrapAzimuth(az float64) float64 {
	for az <= -math.Pi {
		az += 2 * math.Pi
	}
	for az > math.Pi {
		az -= 2 * math.Pi
	}
	return az
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
