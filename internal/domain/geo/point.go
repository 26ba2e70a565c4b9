package geo

import (
	"errors"
	"math"
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Latitude  float64
	Longitude float64
}

var (
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
)

// NewPoint validates the coordinate ranges and returns a Point.
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if err := point.Validate(); err != nil {
		return Point{}, err
	}
	return point, nil
}

// Validate checks the coordinate ranges.
func (point Point) Validate() error {
	if point.Latitude < -90 || point.Latitude > 90 || math.IsNaN(point.Latitude) {
		return ErrInvalidLatitude
	}
	if point.Longitude < -180 || point.Longitude > 180 || math.IsNaN(point.Longitude) {
		return ErrInvalidLongitude
	}
	return nil
}

// DistanceKM returns the great-circle distance to other in kilometers.
func (point Point) DistanceKM(other Point) float64 {
	return HaversineKM(point.Latitude, point.Longitude, other.Latitude, other.Longitude)
}

// HaversineKM computes the great-circle distance between two coordinate pairs in kilometers.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0

	a1 := lat1 * math.Pi / 180
	a2 := lat2 * math.Pi / 180
	da := (lat2 - lat1) * math.Pi / 180
	db := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(da/2)*math.Sin(da/2) +
		math.Cos(a1)*math.Cos(a2)*math.Sin(db/2)*math.Sin(db/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}
