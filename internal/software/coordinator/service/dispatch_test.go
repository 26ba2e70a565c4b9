package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ride-coord/internal/domain/driver"
	"ride-coord/internal/ports"
)

func TestSubscribePendingRidesSeedsCurrentSet(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	token := onlineDriver(t, svc, "d1", 48.8566, 2.3522)
	created := requestRide(t, svc, "p1", 48.8600, 2.3500) // well inside 5 km

	sub, err := svc.SubscribePendingRides(ctx, "d1", token, 0)
	if err != nil {
		t.Fatalf("SubscribePendingRides: %v", err)
	}
	defer sub.Close()

	snapshot := recv(t, sub.C())
	if snapshot.Type != "pending_rides" || len(snapshot.Rides) != 1 {
		t.Fatalf("seed snapshot wrong: %+v", snapshot)
	}
	if snapshot.Rides[0].RideID != created.RideID {
		t.Fatalf("unexpected ride in seed: %s", snapshot.Rides[0].RideID)
	}
	if snapshot.Rides[0].DistanceKM <= 0 || snapshot.Rides[0].DistanceKM > 5 {
		t.Fatalf("distance not computed: %v", snapshot.Rides[0].DistanceKM)
	}
}

func TestDispatchSnapshotOldestFirst(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	token := onlineDriver(t, svc, "d1", 48.8566, 2.3522)

	// enough rides that map iteration order would betray a missing sort
	for i := 0; i < 10; i++ {
		requestRide(t, svc, fmt.Sprintf("p%d", i), 48.8600, 2.3500)
	}

	sub, err := svc.SubscribePendingRides(ctx, "d1", token, 10)
	if err != nil {
		t.Fatalf("SubscribePendingRides: %v", err)
	}
	defer sub.Close()

	snapshot := recv(t, sub.C())
	if len(snapshot.Rides) != 10 {
		t.Fatalf("expected 10 rides, got %d", len(snapshot.Rides))
	}
	for i := 1; i < len(snapshot.Rides); i++ {
		prev, cur := snapshot.Rides[i-1], snapshot.Rides[i]
		if cur.CreatedAt.Before(prev.CreatedAt) {
			t.Fatalf("snapshot not oldest-first at %d: %v then %v", i, prev.CreatedAt, cur.CreatedAt)
		}
		if cur.CreatedAt.Equal(prev.CreatedAt) && cur.RideID < prev.RideID {
			t.Fatalf("tie at %d not broken by ride id: %s then %s", i, prev.RideID, cur.RideID)
		}
	}
}

func TestDispatchRadiusFilter(t *testing.T) {
	svc, _ := newTestService(t, Options{DefaultRadiusKM: 5})
	ctx := context.Background()

	token := onlineDriver(t, svc, "d1", 48.8566, 2.3522)

	requestRide(t, svc, "p1", 48.8600, 2.3500) // ~0.4 km away
	requestRide(t, svc, "p2", 48.8566, 3.0000) // ~47 km away

	sub, err := svc.SubscribePendingRides(ctx, "d1", token, 5)
	if err != nil {
		t.Fatalf("SubscribePendingRides: %v", err)
	}
	defer sub.Close()

	snapshot := recv(t, sub.C())
	if len(snapshot.Rides) != 1 {
		t.Fatalf("radius filter failed, got %d rides", len(snapshot.Rides))
	}

	// a wider radius admits both
	wide, err := svc.SubscribePendingRides(ctx, "d1", token, 100)
	if err != nil {
		t.Fatalf("SubscribePendingRides(wide): %v", err)
	}
	defer wide.Close()
	if snapshot := recv(t, wide.C()); len(snapshot.Rides) != 2 {
		t.Fatalf("wide radius should see both rides, got %d", len(snapshot.Rides))
	}
}

func TestDispatchDriverWithoutPositionSeesAll(t *testing.T) {
	svc, _ := newTestService(t, Options{DefaultRadiusKM: 5})
	ctx := context.Background()

	token := onlineDriver(t, svc, "d1", 0, 0) // no position seeded

	requestRide(t, svc, "p1", 48.8600, 2.3500)
	requestRide(t, svc, "p2", 48.8566, 3.0000)

	sub, err := svc.SubscribePendingRides(ctx, "d1", token, 5)
	if err != nil {
		t.Fatalf("SubscribePendingRides: %v", err)
	}
	defer sub.Close()

	snapshot := recv(t, sub.C())
	if len(snapshot.Rides) != 2 {
		t.Fatalf("a driver with no known position should see the full set, got %d", len(snapshot.Rides))
	}
}

func TestDispatchRefreshOnPendingSetChange(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	token := onlineDriver(t, svc, "d1", 48.8566, 2.3522)

	sub, err := svc.SubscribePendingRides(ctx, "d1", token, 10)
	if err != nil {
		t.Fatalf("SubscribePendingRides: %v", err)
	}
	defer sub.Close()

	if seed := recv(t, sub.C()); len(seed.Rides) != 0 {
		t.Fatalf("seed should be empty, got %d rides", len(seed.Rides))
	}

	created := requestRide(t, svc, "p1", 48.8600, 2.3500)
	snapshot := recv(t, sub.C())
	if len(snapshot.Rides) != 1 || snapshot.Rides[0].RideID != created.RideID {
		t.Fatalf("create did not refresh the stream: %+v", snapshot)
	}

	// a claim removes the ride from every pending stream
	claimerToken := onlineDriver(t, svc, "d2", 48.8566, 2.3522)
	if _, err := svc.AcceptRide(ctx, ports.AcceptRideInput{
		RideID: created.RideID, DriverID: "d2", SessionToken: claimerToken,
	}); err != nil {
		t.Fatalf("AcceptRide: %v", err)
	}

	snapshot = recv(t, sub.C())
	for len(snapshot.Rides) != 0 {
		snapshot = recv(t, sub.C())
	}
}

func TestDispatchLatestSnapshotWins(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	token := onlineDriver(t, svc, "d1", 48.8566, 2.3522)
	sub, err := svc.SubscribePendingRides(ctx, "d1", token, 10)
	if err != nil {
		t.Fatalf("SubscribePendingRides: %v", err)
	}
	defer sub.Close()

	// three creates without a single read: the slow consumer must still
	// converge on the newest snapshot
	requestRide(t, svc, "p1", 48.8600, 2.3500)
	requestRide(t, svc, "p2", 48.8601, 2.3501)
	requestRide(t, svc, "p3", 48.8602, 2.3502)

	snapshot := recv(t, sub.C())
	if len(snapshot.Rides) != 3 {
		t.Fatalf("expected the final 3-ride snapshot, got %d rides", len(snapshot.Rides))
	}
}

func TestRejectRideIsLocalFiltering(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	tokenD1 := onlineDriver(t, svc, "d1", 48.8566, 2.3522)
	tokenD2 := onlineDriver(t, svc, "d2", 48.8566, 2.3522)
	first := requestRide(t, svc, "p1", 48.8600, 2.3500)

	subD1, err := svc.SubscribePendingRides(ctx, "d1", tokenD1, 10)
	if err != nil {
		t.Fatalf("SubscribePendingRides(d1): %v", err)
	}
	defer subD1.Close()
	subD2, err := svc.SubscribePendingRides(ctx, "d2", tokenD2, 10)
	if err != nil {
		t.Fatalf("SubscribePendingRides(d2): %v", err)
	}
	defer subD2.Close()

	if err := svc.RejectRide(ctx, "d1", tokenD1, first.RideID); err != nil {
		t.Fatalf("RejectRide: %v", err)
	}

	// a later create refreshes both streams; only d1's hides the dismissed ride
	second := requestRide(t, svc, "p2", 48.8601, 2.3501)

	snapD1 := recv(t, subD1.C())
	if len(snapD1.Rides) != 1 || snapD1.Rides[0].RideID != second.RideID {
		t.Fatalf("dismissed ride leaked back into d1's stream: %+v", snapD1)
	}
	snapD2 := recv(t, subD2.C())
	if len(snapD2.Rides) != 2 {
		t.Fatalf("d2's stream must be untouched by d1's dismissal, got %d rides", len(snapD2.Rides))
	}

	// dismissal is display-only: the ride stays claimable, even by d1
	if _, err := svc.AcceptRide(ctx, ports.AcceptRideInput{
		RideID: first.RideID, DriverID: "d1", SessionToken: tokenD1,
	}); err != nil {
		t.Fatalf("a dismissed ride must remain claimable: %v", err)
	}
}

func TestRejectRideRequiresSession(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	onlineDriver(t, svc, "d1", 48.8566, 2.3522)
	created := requestRide(t, svc, "p1", 48.8600, 2.3500)

	if err := svc.RejectRide(ctx, "d1", "stale", created.RideID); !errors.Is(err, driver.ErrSessionSuperseded) {
		t.Fatalf("expected ErrSessionSuperseded, got %v", err)
	}
}

func TestSubscribePendingRidesRequiresSession(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	onlineDriver(t, svc, "d1", 0, 0)
	if _, err := svc.SubscribePendingRides(ctx, "d1", "bogus", 5); !errors.Is(err, driver.ErrSessionSuperseded) {
		t.Fatalf("expected ErrSessionSuperseded, got %v", err)
	}
	if _, err := svc.SubscribePendingRides(ctx, "ghost", "tok", 5); !errors.Is(err, driver.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
