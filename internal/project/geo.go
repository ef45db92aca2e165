package project

import "math"

const earthRadiusMeters = 6371000

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the point was never set.
func (c Coordinates) IsZero() bool { return c.Lat == 0 && c.Lng == 0 }

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b Coordinates) float64 {
	rad := math.Pi / 180
	phi1, phi2 := a.Lat*rad, b.Lat*rad
	dPhi := (b.Lat - a.Lat) * rad
	dLambda := (b.Lng - a.Lng) * rad
	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) + math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
