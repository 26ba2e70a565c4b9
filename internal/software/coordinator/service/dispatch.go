package service

import (
	"context"
	"sort"

	"ride-coord/internal/domain/geo"
	"ride-coord/internal/domain/ride"
	"ride-coord/internal/general/contracts"
	"ride-coord/internal/ports"
)

// SubscribePendingRides opens a dispatch snapshot stream for one driver.
// The stream is seeded with the current pending set immediately and refreshed
// on every change to it; radiusKM <= 0 falls back to the configured default.
// Requires a live session token.
func (service *coordinatorService) SubscribePendingRides(ctx context.Context, driverID, token string, radiusKM float64) (ports.PendingRidesSubscription, error) {
	if _, err := service.requireSession(driverID, token); err != nil {
		return nil, err
	}

	if radiusKM <= 0 {
		radiusKM = service.opts.DefaultRadiusKM
	}
	filter := dispatchFilter{driverID: driverID, radiusKM: radiusKM, excluded: make(map[string]struct{})}
	seed := filter.clone()

	var sub *subscription[dispatchSnapshot]
	sub = newSubscription[dispatchSnapshot](service.opts.SubscriptionBuffer, func() {
		service.subsMu.Lock()
		delete(service.dispatchSubs, sub)
		service.subsMu.Unlock()
	})

	service.subsMu.Lock()
	service.dispatchSubs[sub] = filter
	service.subsMu.Unlock()

	// seed with the current pending set
	sub.push(service.dispatchSnapshotFor(seed, generateCorrelationID()))

	service.logger.Info(ctx, "dispatch_subscribed", "Driver subscribed to pending rides", map[string]any{
		"driver_id": driverID,
		"radius_km": radiusKM,
	})

	return sub, nil
}

// refreshDispatch recomputes and pushes a fresh snapshot to every dispatch
// subscriber. Called whenever the pending set changes.
func (service *coordinatorService) refreshDispatch(corrID string) {
	service.subsMu.Lock()
	targets := make(map[*subscription[dispatchSnapshot]]dispatchFilter, len(service.dispatchSubs))
	for sub, filter := range service.dispatchSubs {
		targets[sub] = filter.clone()
	}
	service.subsMu.Unlock()

	if len(targets) == 0 {
		return
	}

	pending := service.pendingRides()
	for sub, filter := range targets {
		sub.push(service.filterSnapshot(pending, filter, corrID))
	}
}

// RejectRide dismisses one pending ride from this driver's dispatch streams.
// The dismissal is local filtering only: the ride stays pending and claimable
// by anyone, this driver included. Requires a live session token.
func (service *coordinatorService) RejectRide(ctx context.Context, driverID, token, rideID string) error {
	if _, err := service.requireSession(driverID, token); err != nil {
		return err
	}

	service.subsMu.Lock()
	targets := make(map[*subscription[dispatchSnapshot]]dispatchFilter)
	for sub, filter := range service.dispatchSubs {
		if filter.driverID != driverID {
			continue
		}
		filter.excluded[rideID] = struct{}{}
		targets[sub] = filter.clone()
	}
	service.subsMu.Unlock()

	if len(targets) == 0 {
		return nil
	}

	// re-emit only this driver's snapshots
	corrID := generateCorrelationID()
	pending := service.pendingRides()
	for sub, filter := range targets {
		sub.push(service.filterSnapshot(pending, filter, corrID))
	}

	service.logger.Info(ctx, "ride_rejected", "Driver dismissed a pending ride", map[string]any{
		"driver_id": driverID,
		"ride_id":   rideID,
	})
	return nil
}

// pendingRides clones every PENDING ride out of the registry, oldest first.
// The registry map iterates in random order, so snapshots sort here once and
// every subscriber sees the same sequence.
func (service *coordinatorService) pendingRides() []*ride.RideRequest {
	service.stateMu.RLock()
	entries := make([]*rideEntry, 0, len(service.rides))
	for _, entry := range service.rides {
		entries = append(entries, entry)
	}
	service.stateMu.RUnlock()

	var out []*ride.RideRequest
	for _, entry := range entries {
		entry.mu.Lock()
		if entry.r.Status == ride.StatusPending {
			out = append(out, entry.r.Clone())
		}
		entry.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// dispatchSnapshotFor computes one driver's radius-filtered snapshot.
func (service *coordinatorService) dispatchSnapshotFor(filter dispatchFilter, corrID string) dispatchSnapshot {
	return service.filterSnapshot(service.pendingRides(), filter, corrID)
}

// filterSnapshot keeps the pending rides whose pickup lies within the
// subscriber's radius of the driver's last known position. A driver with no
// known position sees the full pending set; a position is better than none
// but its absence must not blind dispatch entirely.
func (service *coordinatorService) filterSnapshot(pending []*ride.RideRequest, filter dispatchFilter, corrID string) dispatchSnapshot {
	var at *geo.Point
	if entry, err := service.driverByID(filter.driverID); err == nil {
		entry.mu.Lock()
		if entry.d.LastLocation != nil {
			p := entry.d.LastLocation.Point()
			at = &p
		}
		entry.mu.Unlock()
	}

	snapshot := dispatchSnapshot{
		Type:     "pending_rides",
		Rides:    []contracts.WSPendingRide{},
		Envelope: newEnvelope(corrID),
	}

	for _, r := range pending {
		if _, dismissed := filter.excluded[r.ID]; dismissed {
			continue
		}
		distance := 0.0
		if at != nil {
			distance = at.DistanceKM(r.Origin.Point)
			if distance > filter.radiusKM {
				continue
			}
		}
		snapshot.Rides = append(snapshot.Rides, contracts.WSPendingRide{
			RideID:      r.ID,
			Pickup:      wirePoint(r.Origin.Point, r.Origin.Address),
			Destination: wirePoint(r.Destination.Point, r.Destination.Address),
			ServiceType: r.ServiceType.String(),
			PriceCents:  r.PriceCents,
			DistanceKM:  distance,
			CreatedAt:   r.CreatedAt,
		})
	}

	return snapshot
}
