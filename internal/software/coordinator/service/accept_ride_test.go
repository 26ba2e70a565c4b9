package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"ride-coord/internal/domain/driver"
	"ride-coord/internal/domain/ride"
	"ride-coord/internal/general/contracts"
	"ride-coord/internal/ports"
)

func TestAcceptRideExactlyOneWinner(t *testing.T) {
	svc, sink := newTestService(t, Options{})
	ctx := context.Background()

	const racers = 16
	tokens := make(map[string]string, racers)
	for i := 0; i < racers; i++ {
		id := fmt.Sprintf("d%02d", i)
		tokens[id] = onlineDriver(t, svc, id, 48.8566, 2.3522)
	}
	created := requestRide(t, svc, "p1", 48.8566, 2.3522)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners []string
	var losers int

	for id, token := range tokens {
		wg.Add(1)
		go func(id, token string) {
			defer wg.Done()
			_, err := svc.AcceptRide(ctx, ports.AcceptRideInput{
				RideID: created.RideID, DriverID: id, SessionToken: token,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, id)
			case errors.Is(err, ride.ErrAlreadyTaken):
				losers++
			default:
				t.Errorf("unexpected claim error for %s: %v", id, err)
			}
		}(id, token)
	}
	wg.Wait()

	if len(winners) != 1 {
		t.Fatalf("expected exactly one winner, got %d (%v)", len(winners), winners)
	}
	if losers != racers-1 {
		t.Fatalf("expected %d losers with ErrAlreadyTaken, got %d", racers-1, losers)
	}

	// the passenger is told about exactly one acceptance
	accepted := sink.byKind(contracts.EventRideAccepted)
	if len(accepted) != 1 {
		t.Fatalf("expected exactly one ride_accepted event, got %d", len(accepted))
	}
	if accepted[0].DriverID != winners[0] {
		t.Fatalf("event names driver %s, winner was %s", accepted[0].DriverID, winners[0])
	}
	payload, ok := accepted[0].Payload.(contracts.RideStatusMessage)
	if !ok {
		t.Fatalf("unexpected payload type %T", accepted[0].Payload)
	}
	if payload.DriverInfo == nil || payload.DriverInfo.DriverID != winners[0] {
		t.Fatal("acceptance payload must carry the winner's profile")
	}
}

func TestAcceptRideRequiresLiveSession(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	stale := onlineDriver(t, svc, "d1", 48.8566, 2.3522)
	if _, err := svc.GoOnline(ctx, ports.GoOnlineInput{DriverID: "d1"}); err != nil {
		t.Fatalf("GoOnline: %v", err)
	}
	created := requestRide(t, svc, "p1", 48.8566, 2.3522)

	_, err := svc.AcceptRide(ctx, ports.AcceptRideInput{
		RideID: created.RideID, DriverID: "d1", SessionToken: stale,
	})
	if !errors.Is(err, driver.ErrSessionSuperseded) {
		t.Fatalf("stale token must be rejected with ErrSessionSuperseded, got %v", err)
	}
}

func TestAcceptRideUnknownRide(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	token := onlineDriver(t, svc, "d1", 0, 0)

	_, err := svc.AcceptRide(context.Background(), ports.AcceptRideInput{
		RideID: "nope", DriverID: "d1", SessionToken: token,
	})
	if !errors.Is(err, ride.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
