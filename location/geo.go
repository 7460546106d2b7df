package location

import "math"

// EarthRadius is the mean earth radius in meters used by the distance approximation.
const EarthRadius = 6378100.0

// Coordinate is a point on the earth's surface in degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// GeoCircle is a circular area around Center with Radius in meters.
type GeoCircle struct {
	Center Coordinate
	Radius float64
}

// SquaredDistance returns the squared distance between a and b in square meters.
//
// It uses the equirectangular approximation, which is accurate enough for
// distances of a few kilometers and avoids the square root entirely.
func SquaredDistance(a, b Coordinate) float64 {
	phi1 := radians(a.Latitude)
	phi2 := radians(b.Latitude)
	dPhi := phi2 - phi1
	dLambda := radians(b.Longitude - a.Longitude)

	x := math.Cos((phi1+phi2)/2) * dLambda
	return EarthRadius * EarthRadius * (dPhi*dPhi + x*x)
}

// IsInside reports whether p lies strictly inside the circle. A point exactly
// on the boundary is outside.
func (c GeoCircle) IsInside(p Coordinate) bool {
	return c.Radius*c.Radius > SquaredDistance(c.Center, p)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
