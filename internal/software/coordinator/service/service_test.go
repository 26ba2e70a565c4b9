package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ride-coord/internal/general/contracts"
	"ride-coord/internal/general/logger"
	"ride-coord/internal/ports"
)

// captureSink records every emitted event for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []contracts.CoreEvent
}

func (sink *captureSink) Publish(ctx context.Context, event contracts.CoreEvent) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.events = append(sink.events, event)
	return nil
}

func (sink *captureSink) byKind(kind contracts.EventKind) []contracts.CoreEvent {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	var out []contracts.CoreEvent
	for _, e := range sink.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func newTestService(t *testing.T, opts Options) (*coordinatorService, *captureSink) {
	t.Helper()
	svc := NewCoordinatorService(logger.New("coordinator-test"), opts, nil, nil, nil)
	sink := &captureSink{}
	svc.RegisterSink(sink)
	return svc, sink
}

// onlineDriver registers an approved driver, brings them online at the given
// position (0,0 skips the seed) and returns the live session token.
func onlineDriver(t *testing.T, svc *coordinatorService, id string, lat, lng float64) string {
	t.Helper()
	ctx := context.Background()

	if _, err := svc.RegisterDriver(ctx, ports.RegisterDriverInput{DriverID: id, Name: "Driver " + id, Approved: true}); err != nil {
		t.Fatalf("RegisterDriver(%s): %v", id, err)
	}
	res, err := svc.GoOnline(ctx, ports.GoOnlineInput{DriverID: id, Latitude: lat, Longitude: lng})
	if err != nil {
		t.Fatalf("GoOnline(%s): %v", id, err)
	}
	return res.SessionToken
}

// requestRide creates a PENDING ride at the given pickup point.
func requestRide(t *testing.T, svc *coordinatorService, passengerID string, lat, lng float64) ports.CreateRideResult {
	t.Helper()
	res, err := svc.CreateRide(context.Background(), ports.CreateRideInput{
		PassengerID:          passengerID,
		PickupLatitude:       lat,
		PickupLongitude:      lng,
		PickupAddress:        "pickup",
		DestinationLatitude:  48.8606,
		DestinationLongitude: 2.3376,
		DestinationAddress:   "dropoff",
		PriceCents:           2500,
		ServiceType:          "STANDARD",
	})
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}
	return res
}

// acceptedRide sets up one online driver holding an ACCEPTED ride and returns
// the ride result and the driver's session token.
func acceptedRide(t *testing.T, svc *coordinatorService, driverID, passengerID string) (ports.CreateRideResult, string) {
	t.Helper()
	token := onlineDriver(t, svc, driverID, 48.8566, 2.3522)
	created := requestRide(t, svc, passengerID, 48.8566, 2.3522)

	if _, err := svc.AcceptRide(context.Background(), ports.AcceptRideInput{
		RideID: created.RideID, DriverID: driverID, SessionToken: token,
	}); err != nil {
		t.Fatalf("AcceptRide: %v", err)
	}
	return created, token
}

// recv reads one snapshot with a timeout so a broken stream fails fast.
func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
		panic("unreachable")
	}
}
