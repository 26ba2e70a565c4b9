package service

import (
	"context"
	"time"

	"ride-coord/internal/domain/geo"
	"ride-coord/internal/domain/ride"
	"ride-coord/internal/general/contracts"
	"ride-coord/internal/ports"
)

// ReportLocation runs one driver position report through the relay throttle.
// At most one sample per ride per configured interval is accepted; the rest
// are dropped silently with Accepted=false. Reports against a ride that is no
// longer active, or from a driver not assigned to it, are dropped the same
// way. A live session token and a known ride id are still required.
func (service *coordinatorService) ReportLocation(ctx context.Context, in ports.ReportLocationInput) (ports.ReportLocationResult, error) {
	driverEnt, err := service.requireSession(in.DriverID, in.SessionToken)
	if err != nil {
		return ports.ReportLocationResult{}, err
	}

	rideEnt, err := service.rideByID(in.RideID)
	if err != nil {
		return ports.ReportLocationResult{}, err
	}

	sample, err := geo.NewLocationSample(in.DriverID, in.RideID, in.Latitude, in.Longitude, in.AccuracyMeters, time.Now().UTC())
	if err != nil {
		return ports.ReportLocationResult{}, err
	}

	// a report racing a completion or cancellation is dropped, not failed:
	// the publisher keeps its cadence and learns nothing happened
	rideEnt.mu.Lock()
	if !rideEnt.r.Status.Active() || !rideEnt.r.AssignedTo(in.DriverID) {
		rideEnt.mu.Unlock()
		return ports.ReportLocationResult{Accepted: false}, nil
	}

	// throttle: drop anything inside the minimum interval since the last accept
	if !rideEnt.lastLocationAt.IsZero() && sample.Timestamp.Sub(rideEnt.lastLocationAt) < service.opts.LocationMinInterval {
		rideEnt.mu.Unlock()
		return ports.ReportLocationResult{Accepted: false}, nil
	}
	rideEnt.lastLocationAt = sample.Timestamp
	passengerID := rideEnt.r.PassengerID
	rideEnt.mu.Unlock()

	// accepted sample becomes the driver's last known position
	driverEnt.mu.Lock()
	driverEnt.d.RecordLocation(sample)
	driverEnt.mu.Unlock()

	corrID := generateCorrelationID()
	service.emit(ctx, contracts.CoreEvent{
		Kind:        contracts.EventLocationUpdated,
		RideID:      in.RideID,
		DriverID:    in.DriverID,
		PassengerID: passengerID,
		Payload: contracts.LocationUpdateMessage{
			DriverID:       in.DriverID,
			RideID:         in.RideID,
			Location:       contracts.GeoPoint{Lat: sample.Latitude, Lng: sample.Longitude},
			AccuracyMeters: sample.AccuracyMeters,
			Timestamp:      sample.Timestamp,
		},
		Envelope: newEnvelope(corrID),
	})

	// watchers get the accepted sample, never the throttled ones
	service.pushLocationUpdate(in.RideID, locationSnapshot{
		Type:           "driver_location_update",
		RideID:         in.RideID,
		Location:       contracts.GeoPoint{Lat: sample.Latitude, Lng: sample.Longitude},
		AccuracyMeters: sample.AccuracyMeters,
		Timestamp:      sample.Timestamp,
		Envelope:       newEnvelope(corrID),
	})

	// best-effort audit trail
	service.archiveLocation(ctx, sample)

	return ports.ReportLocationResult{Accepted: true, Timestamp: sample.Timestamp}, nil
}

// SubscribeRideLocation opens a latest-position stream for a ride participant.
// No replay: the first delivery happens on the next accepted report.
func (service *coordinatorService) SubscribeRideLocation(ctx context.Context, rideID, actorID string) (ports.LocationSubscription, error) {
	rideEnt, err := service.rideByID(rideID)
	if err != nil {
		return nil, err
	}

	rideEnt.mu.Lock()
	if actorID != rideEnt.r.PassengerID && !rideEnt.r.AssignedTo(actorID) {
		rideEnt.mu.Unlock()
		return nil, ride.ErrNotParticipant
	}
	rideEnt.mu.Unlock()

	var sub *subscription[locationSnapshot]
	sub = newSubscription[locationSnapshot](service.opts.SubscriptionBuffer, func() {
		service.subsMu.Lock()
		if set, ok := service.locationSubs[rideID]; ok {
			delete(set, sub)
			if len(set) == 0 {
				delete(service.locationSubs, rideID)
			}
		}
		service.subsMu.Unlock()
	})

	service.subsMu.Lock()
	if service.locationSubs[rideID] == nil {
		service.locationSubs[rideID] = make(map[*subscription[locationSnapshot]]struct{})
	}
	service.locationSubs[rideID][sub] = struct{}{}
	service.subsMu.Unlock()

	return sub, nil
}

// pushLocationUpdate fans one accepted sample out to a ride's watchers.
func (service *coordinatorService) pushLocationUpdate(rideID string, frame locationSnapshot) {
	service.subsMu.Lock()
	targets := make([]*subscription[locationSnapshot], 0, len(service.locationSubs[rideID]))
	for sub := range service.locationSubs[rideID] {
		targets = append(targets, sub)
	}
	service.subsMu.Unlock()

	for _, sub := range targets {
		sub.push(frame)
	}
}
