// Package geomath provides the small set of WGS-84 helpers the pipeline
// needs: great-circle distance and a local equirectangular projection used
// for sampling and spacing. Astronomy never goes through the projection.
package geomath

import (
	"math"

	"github.com/sells-group/solar-scout/internal/model"
)

const (
	// EarthRadiusKM is the mean Earth radius used by the haversine formula.
	EarthRadiusKM = 6371.0

	// KMPerDegree approximates kilometers per degree of latitude at
	// mid-latitudes.
	KMPerDegree = 111.0
)

// Haversine returns the great-circle distance in kilometers between two
// WGS-84 coordinates. The result is non-negative and symmetric.
func Haversine(a, b model.Coordinate) float64 {
	lat1 := degToRad(a.Lat)
	lat2 := degToRad(b.Lat)
	dLat := degToRad(b.Lat - a.Lat)
	dLng := degToRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKM * c
}

// Project maps a coordinate to planar (x, y) kilometers relative to an
// anchor using an equirectangular approximation. Valid only near the anchor.
func Project(anchor, p model.Coordinate) (xKM, yKM float64) {
	xKM = (p.Lng - anchor.Lng) * KMPerDegree * math.Cos(degToRad(anchor.Lat))
	yKM = (p.Lat - anchor.Lat) * KMPerDegree
	return xKM, yKM
}

// Offset returns the coordinate displaced from anchor by (xKM, yKM) in the
// same local projection Project uses.
func Offset(anchor model.Coordinate, xKM, yKM float64) model.Coordinate {
	cosLat := math.Cos(degToRad(anchor.Lat))
	if cosLat == 0 {
		// At the poles the projection degenerates; longitude offset is
		// meaningless there.
		cosLat = 1e-12
	}
	return model.Coordinate{
		Lat: anchor.Lat + yKM/KMPerDegree,
		Lng: anchor.Lng + xKM/(KMPerDegree*cosLat),
	}
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
