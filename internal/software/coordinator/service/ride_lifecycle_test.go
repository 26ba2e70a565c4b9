package service

import (
	"context"
	"errors"
	"testing"

	"ride-coord/internal/domain/ride"
	"ride-coord/internal/general/contracts"
	"ride-coord/internal/ports"
)

func TestStartRideSecurityCodeGate(t *testing.T) {
	svc, sink := newTestService(t, Options{})
	ctx := context.Background()

	created, token := acceptedRide(t, svc, "d1", "p1")

	// wrong code: rejected, nothing changes, retry allowed
	_, err := svc.StartRide(ctx, ports.StartRideInput{
		RideID: created.RideID, DriverID: "d1", SessionToken: token, SecurityCode: "XXXX",
	})
	if !errors.Is(err, ride.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
	if got := sink.byKind(contracts.EventRideStarted); len(got) != 0 {
		t.Fatalf("rejected start must not emit, got %d events", len(got))
	}

	res, err := svc.StartRide(ctx, ports.StartRideInput{
		RideID: created.RideID, DriverID: "d1", SessionToken: token, SecurityCode: created.SecurityCode,
	})
	if err != nil {
		t.Fatalf("retry with the passenger's code: %v", err)
	}
	if res.Status != "IN_PROGRESS" || res.StartedAt.IsZero() {
		t.Fatalf("unexpected start result: %+v", res)
	}
	if got := sink.byKind(contracts.EventRideStarted); len(got) != 1 {
		t.Fatalf("expected one ride_started event, got %d", len(got))
	}

	// a second start is an invalid transition
	_, err = svc.StartRide(ctx, ports.StartRideInput{
		RideID: created.RideID, DriverID: "d1", SessionToken: token, SecurityCode: created.SecurityCode,
	})
	if !errors.Is(err, ride.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCompleteRideCreditsFare(t *testing.T) {
	svc, sink := newTestService(t, Options{})
	ctx := context.Background()

	created, token := acceptedRide(t, svc, "d1", "p1")
	if _, err := svc.StartRide(ctx, ports.StartRideInput{
		RideID: created.RideID, DriverID: "d1", SessionToken: token, SecurityCode: created.SecurityCode,
	}); err != nil {
		t.Fatalf("StartRide: %v", err)
	}

	res, err := svc.CompleteRide(ctx, ports.CompleteRideInput{
		RideID: created.RideID, DriverID: "d1", SessionToken: token,
	})
	if err != nil {
		t.Fatalf("CompleteRide: %v", err)
	}
	if res.Status != "COMPLETED" || res.EarningsCents != created.PriceCents {
		t.Fatalf("unexpected completion: %+v", res)
	}
	if got := sink.byKind(contracts.EventRideCompleted); len(got) != 1 {
		t.Fatalf("expected one ride_completed event, got %d", len(got))
	}

	// completing twice is an invalid transition
	_, err = svc.CompleteRide(ctx, ports.CompleteRideInput{
		RideID: created.RideID, DriverID: "d1", SessionToken: token,
	})
	if !errors.Is(err, ride.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelAcceptedRideNotifiesDriver(t *testing.T) {
	svc, sink := newTestService(t, Options{})
	ctx := context.Background()

	created, _ := acceptedRide(t, svc, "d1", "p1")

	res, err := svc.CancelRide(ctx, ports.CancelRideInput{RideID: created.RideID, ActorID: "p1"})
	if err != nil {
		t.Fatalf("CancelRide: %v", err)
	}
	if res.Status != "CANCELLED" || res.CancelledBy != "p1" {
		t.Fatalf("unexpected cancel result: %+v", res)
	}

	cancelled := sink.byKind(contracts.EventRideCancelled)
	if len(cancelled) != 1 {
		t.Fatalf("expected one ride_cancelled event, got %d", len(cancelled))
	}
	if cancelled[0].DriverID != "d1" {
		t.Fatalf("the assigned driver must be addressed, got %q", cancelled[0].DriverID)
	}
	payload, ok := cancelled[0].Payload.(contracts.RideStatusMessage)
	if !ok || payload.CancelledBy != "p1" {
		t.Fatalf("payload must record the cancelling actor: %+v", cancelled[0].Payload)
	}
}

func TestCancelRideParticipantsOnly(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	created, token := acceptedRide(t, svc, "d1", "p1")

	if _, err := svc.CancelRide(ctx, ports.CancelRideInput{RideID: created.RideID, ActorID: "stranger"}); !errors.Is(err, ride.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}

	// once in progress the cancel window is closed
	if _, err := svc.StartRide(ctx, ports.StartRideInput{
		RideID: created.RideID, DriverID: "d1", SessionToken: token, SecurityCode: created.SecurityCode,
	}); err != nil {
		t.Fatalf("StartRide: %v", err)
	}
	if _, err := svc.CancelRide(ctx, ports.CancelRideInput{RideID: created.RideID, ActorID: "p1"}); !errors.Is(err, ride.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestHistoryUnavailableWithoutArchive(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	if _, err := svc.History(ctx, "p1", 10); !errors.Is(err, ports.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := svc.Earnings(ctx, ports.EarningsInput{DriverID: "d1"}); !errors.Is(err, ports.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
