package geo

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewPointValidation(t *testing.T) {
	if _, err := NewPoint(90.001, 0); !errors.Is(err, ErrInvalidLatitude) {
		t.Fatalf("expected ErrInvalidLatitude, got %v", err)
	}
	if _, err := NewPoint(-90.001, 0); !errors.Is(err, ErrInvalidLatitude) {
		t.Fatalf("expected ErrInvalidLatitude, got %v", err)
	}
	if _, err := NewPoint(0, 180.001); !errors.Is(err, ErrInvalidLongitude) {
		t.Fatalf("expected ErrInvalidLongitude, got %v", err)
	}
	if _, err := NewPoint(math.NaN(), 0); !errors.Is(err, ErrInvalidLatitude) {
		t.Fatalf("NaN latitude should be rejected, got %v", err)
	}
	if _, err := NewPoint(90, -180); err != nil {
		t.Fatalf("boundary coordinates should be valid: %v", err)
	}
}

func TestHaversineKM(t *testing.T) {
	// Paris <-> London is roughly 344 km great-circle
	paris := Point{Latitude: 48.8566, Longitude: 2.3522}
	london := Point{Latitude: 51.5074, Longitude: -0.1278}

	d := paris.DistanceKM(london)
	if d < 330 || d > 355 {
		t.Fatalf("Paris-London distance out of range: %v km", d)
	}
	if got := paris.DistanceKM(paris); got != 0 {
		t.Fatalf("distance to self should be 0, got %v", got)
	}
	if d2 := london.DistanceKM(paris); math.Abs(d-d2) > 1e-9 {
		t.Fatalf("distance is not symmetric: %v vs %v", d, d2)
	}
}

func TestNewLocationSample(t *testing.T) {
	if _, err := NewLocationSample("", "ride-1", 0, 0, 0, time.Time{}); !errors.Is(err, ErrEmptyDriverID) {
		t.Fatalf("expected ErrEmptyDriverID, got %v", err)
	}
	if _, err := NewLocationSample("driver-1", "", 0, 0, 0, time.Time{}); !errors.Is(err, ErrEmptyRideID) {
		t.Fatalf("expected ErrEmptyRideID, got %v", err)
	}
	if _, err := NewLocationSample("driver-1", "ride-1", 0, 0, -1, time.Time{}); !errors.Is(err, ErrNegativeAccuracy) {
		t.Fatalf("expected ErrNegativeAccuracy, got %v", err)
	}
	if _, err := NewLocationSample("driver-1", "ride-1", 95, 0, 0, time.Time{}); !errors.Is(err, ErrInvalidLatitude) {
		t.Fatalf("expected ErrInvalidLatitude, got %v", err)
	}

	sample, err := NewLocationSample("driver-1", "ride-1", 48.85, 2.35, 12.5, time.Time{})
	if err != nil {
		t.Fatalf("NewLocationSample: %v", err)
	}
	if sample.Timestamp.IsZero() {
		t.Fatal("zero timestamp should be stamped with now")
	}
	if p := sample.Point(); p.Latitude != 48.85 || p.Longitude != 2.35 {
		t.Fatalf("unexpected point: %+v", p)
	}
}
