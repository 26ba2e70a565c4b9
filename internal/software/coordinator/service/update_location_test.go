package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ride-coord/internal/domain/ride"
	"ride-coord/internal/ports"
)

func TestReportLocationThrottle(t *testing.T) {
	svc, _ := newTestService(t, Options{LocationMinInterval: 80 * time.Millisecond})
	ctx := context.Background()

	created, token := acceptedRide(t, svc, "d1", "p1")

	report := func(lat float64) (ports.ReportLocationResult, error) {
		return svc.ReportLocation(ctx, ports.ReportLocationInput{
			DriverID: "d1", SessionToken: token, RideID: created.RideID,
			Latitude: lat, Longitude: 2.3522,
		})
	}

	first, err := report(48.8566)
	if err != nil {
		t.Fatalf("first report: %v", err)
	}
	if !first.Accepted || first.Timestamp.IsZero() {
		t.Fatalf("first sample must be accepted: %+v", first)
	}

	// inside the window: dropped silently, no error
	second, err := report(48.8570)
	if err != nil {
		t.Fatalf("throttled report must not error: %v", err)
	}
	if second.Accepted {
		t.Fatal("sample inside the minimum interval must be dropped")
	}

	time.Sleep(100 * time.Millisecond)
	third, err := report(48.8575)
	if err != nil {
		t.Fatalf("third report: %v", err)
	}
	if !third.Accepted {
		t.Fatal("sample after the interval must be accepted")
	}

	// the accepted sample became the driver's last known position
	entry, err := svc.driverByID("d1")
	if err != nil {
		t.Fatalf("driverByID: %v", err)
	}
	entry.mu.Lock()
	lat := entry.d.LastLocation.Latitude
	entry.mu.Unlock()
	if lat != 48.8575 {
		t.Fatalf("last location not updated, got lat %v", lat)
	}
}

func TestReportLocationSilentlyDropsRacyPublishes(t *testing.T) {
	svc, _ := newTestService(t, Options{LocationMinInterval: time.Millisecond})
	ctx := context.Background()

	created, token := acceptedRide(t, svc, "d1", "p1")
	otherToken := onlineDriver(t, svc, "d2", 48.8566, 2.3522)

	// a different driver's report is dropped, not failed
	out, err := svc.ReportLocation(ctx, ports.ReportLocationInput{
		DriverID: "d2", SessionToken: otherToken, RideID: created.RideID,
		Latitude: 48.8566, Longitude: 2.3522,
	})
	if err != nil || out.Accepted {
		t.Fatalf("unassigned driver's report must be a silent drop: %+v %v", out, err)
	}

	// a PENDING ride has no relay channel yet
	pending := requestRide(t, svc, "p2", 48.8566, 2.3522)
	out, err = svc.ReportLocation(ctx, ports.ReportLocationInput{
		DriverID: "d2", SessionToken: otherToken, RideID: pending.RideID,
		Latitude: 48.8566, Longitude: 2.3522,
	})
	if err != nil || out.Accepted {
		t.Fatalf("report against a pending ride must be a silent drop: %+v %v", out, err)
	}

	// a report racing the completion keeps the publisher alive
	if _, err := svc.StartRide(ctx, ports.StartRideInput{
		RideID: created.RideID, DriverID: "d1", SessionToken: token, SecurityCode: created.SecurityCode,
	}); err != nil {
		t.Fatalf("StartRide: %v", err)
	}
	if _, err := svc.CompleteRide(ctx, ports.CompleteRideInput{
		RideID: created.RideID, DriverID: "d1", SessionToken: token,
	}); err != nil {
		t.Fatalf("CompleteRide: %v", err)
	}
	out, err = svc.ReportLocation(ctx, ports.ReportLocationInput{
		DriverID: "d1", SessionToken: token, RideID: created.RideID,
		Latitude: 48.8566, Longitude: 2.3522,
	})
	if err != nil || out.Accepted {
		t.Fatalf("report after completion must be a silent drop: %+v %v", out, err)
	}

	// an unknown ride id is still a hard error
	if _, err := svc.ReportLocation(ctx, ports.ReportLocationInput{
		DriverID: "d1", SessionToken: token, RideID: "ghost",
		Latitude: 48.8566, Longitude: 2.3522,
	}); !errors.Is(err, ride.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubscribeRideLocationStreamsAcceptedSamples(t *testing.T) {
	svc, _ := newTestService(t, Options{LocationMinInterval: 200 * time.Millisecond})
	ctx := context.Background()

	created, token := acceptedRide(t, svc, "d1", "p1")

	if _, err := svc.SubscribeRideLocation(ctx, created.RideID, "stranger"); !errors.Is(err, ride.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := svc.SubscribeRideLocation(ctx, "ghost", "p1"); !errors.Is(err, ride.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	sub, err := svc.SubscribeRideLocation(ctx, created.RideID, "p1")
	if err != nil {
		t.Fatalf("SubscribeRideLocation: %v", err)
	}
	defer sub.Close()

	// no replay: nothing is delivered until the next accepted report
	select {
	case frame := <-sub.C():
		t.Fatalf("unexpected frame before any report: %+v", frame)
	default:
	}

	out, err := svc.ReportLocation(ctx, ports.ReportLocationInput{
		DriverID: "d1", SessionToken: token, RideID: created.RideID,
		Latitude: 48.8566, Longitude: 2.3522,
	})
	if err != nil || !out.Accepted {
		t.Fatalf("report not accepted: %+v %v", out, err)
	}

	frame := recv(t, sub.C())
	if frame.Type != "driver_location_update" || frame.RideID != created.RideID {
		t.Fatalf("unexpected frame: %+v", frame)
	}
	if frame.Location.Lat != 48.8566 || frame.Location.Lng != 2.3522 {
		t.Fatalf("frame carries the wrong position: %+v", frame.Location)
	}

	// a throttled report never reaches the watchers
	out, err = svc.ReportLocation(ctx, ports.ReportLocationInput{
		DriverID: "d1", SessionToken: token, RideID: created.RideID,
		Latitude: 48.9000, Longitude: 2.4000,
	})
	if err != nil || out.Accepted {
		t.Fatalf("second report should have been throttled: %+v %v", out, err)
	}
	select {
	case frame := <-sub.C():
		t.Fatalf("throttled sample must not be delivered: %+v", frame)
	default:
	}
}

func TestReportLocationValidation(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	created, token := acceptedRide(t, svc, "d1", "p1")

	if _, err := svc.ReportLocation(ctx, ports.ReportLocationInput{
		DriverID: "d1", SessionToken: token, RideID: created.RideID,
		Latitude: 123, Longitude: 0,
	}); err == nil {
		t.Fatal("out-of-range latitude must be rejected")
	}

	if _, err := svc.ReportLocation(ctx, ports.ReportLocationInput{
		DriverID: "d1", SessionToken: "stale", RideID: created.RideID,
		Latitude: 48.8566, Longitude: 2.3522,
	}); err == nil {
		t.Fatal("a dead session token must be rejected")
	}
}
