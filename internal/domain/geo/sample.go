package geo

import (
	"errors"
	"strings"
	"time"
)

// LocationSample is a single driver position report tied to an active ride.
// The relay keeps only the latest sample per (driver, ride) pair.
type LocationSample struct {
	DriverID       string
	RideID         string
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
	Timestamp      time.Time
}

var (
	ErrEmptyDriverID    = errors.New("driver id cannot be empty")
	ErrEmptyRideID      = errors.New("ride id cannot be empty")
	ErrNegativeAccuracy = errors.New("accuracy_meters cannot be negative")
)

// NewLocationSample validates and constructs a LocationSample. A zero timestamp
// is stamped with the current time.
func NewLocationSample(driverID, rideID string, latitude, longitude, accuracyMeters float64, at time.Time) (*LocationSample, error) {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return nil, ErrEmptyDriverID
	}
	if rideID = strings.TrimSpace(rideID); rideID == "" {
		return nil, ErrEmptyRideID
	}
	if _, err := NewPoint(latitude, longitude); err != nil {
		return nil, err
	}
	if accuracyMeters < 0 {
		return nil, ErrNegativeAccuracy
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	return &LocationSample{
		DriverID:       driverID,
		RideID:         rideID,
		Latitude:       latitude,
		Longitude:      longitude,
		AccuracyMeters: accuracyMeters,
		Timestamp:      at.UTC(),
	}, nil
}

// Point returns the sample's coordinate pair.
func (sample *LocationSample) Point() Point {
	return Point{Latitude: sample.Latitude, Longitude: sample.Longitude}
}
