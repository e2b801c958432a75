package solar

import "math"

// Clear-sky model constants.
const (
	// SolarConstant is the extraterrestrial irradiance in W/m².
	SolarConstant = 1367.0

	// ClearSkyAttenuation is the broadband clear-sky factor applied to the
	// transmitted beam.
	ClearSkyAttenuation = 0.75

	// DiffuseFraction scales the horizontal beam into an isotropic diffuse
	// component.
	DiffuseFraction = 0.15

	// GroundAlbedo is the reflectance used for the ground-reflected POA term.
	GroundAlbedo = 0.2

	// ghiToleranceWM2 is the self-check budget for the GHI closure identity.
	ghiToleranceWM2 = 10.0
)

// Triple is the clear-sky irradiance decomposition for one sun position, all
// in W/m². DNI is beam-normal: it never includes a panel incidence cosine.
type Triple struct {
	DNI float64
	DHI float64
	GHI float64
}

// POABreakdown is the plane-of-array decomposition for a tilted panel.
// Total = Beam + Diffuse + Ground.
type POABreakdown struct {
	Beam    float64
	Diffuse float64
	Ground  float64
	Total   float64
}

// AirMass returns the Kasten-Young relative optical air mass for a solar
// elevation in radians. Callers must ensure elevation > 0.
func AirMass(elevation float64) float64 {
	elevDeg := radToDeg(elevation)
	return 1 / (math.Sin(elevation) + 0.50572*math.Pow(elevDeg+6.07995, -1.6364))
}

// ClearSky computes DNI, DHI and GHI for a solar elevation in radians. All
// components are zero at or below the horizon.
func ClearSky(elevation float64) Triple {
	if elevation <= 0 {
		return Triple{}
	}

	m := AirMass(elevation)
	tau := math.Pow(0.7, math.Pow(m, 0.678))

	dni := SolarConstant * tau * ClearSkyAttenuation
	dhi := dni * math.Sin(elevation) * DiffuseFraction
	ghi := dni*math.Sin(elevation) + dhi

	return Triple{DNI: dni, DHI: dhi, GHI: ghi}
}

// Consistent reports whether the GHI closure identity holds within the
// 10 W/m² self-check budget. It holds by construction; a violation signals
// an internal invariant break, not bad input.
func (t Triple) Consistent(elevation float64) bool {
	return math.Abs(t.GHI-(t.DNI*math.Sin(elevation)+t.DHI)) < ghiToleranceWM2
}

// CosAOI returns the cosine of the angle of incidence between the sun ray
// and a panel with tilt tiltDeg (degrees from horizontal) and surface
// azimuth surfaceAzDeg (same 0=North clockwise convention as sun azimuth).
func CosAOI(pos Position, tiltDeg, surfaceAzDeg float64) float64 {
	tilt := degToRad(tiltDeg)
	surfAz := degToRad(surfaceAzDeg)

	return math.Sin(pos.Elevation)*math.Cos(tilt) +
		math.Cos(pos.Elevation)*math.Sin(tilt)*math.Cos(pos.Azimuth-surfAz)
}

// POA decomposes irradiance onto a tilted panel: beam via max(0, cos AOI),
// isotropic sky diffuse, and ground reflection. The incidence cosine appears
// here and nowhere else.
func POA(t Triple, pos Position, tiltDeg, surfaceAzDeg float64) POABreakdown {
	tilt := degToRad(tiltDeg)

	beam := t.DNI * math.Max(0, CosAOI(pos, tiltDeg, surfaceAzDeg))
	diffuse := t.DHI * (1 + math.Cos(tilt)) / 2
	ground := t.GHI * GroundAlbedo * (1 - math.Cos(tilt)) / 2

	return POABreakdown{
		Beam:    beam,
		Diffuse: diffuse,
		Ground:  ground,
		Total:   beam + diffuse + ground,
	}
}
