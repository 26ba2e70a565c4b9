package service

import (
	"context"
	"time"

	"ride-coord/internal/general/contracts"
	"ride-coord/internal/ports"
)

// StartRide moves ACCEPTED -> IN_PROGRESS once the assigned driver supplies
// the passenger's security code. A wrong code changes nothing and may be
// retried; a ride that is not ACCEPTED rejects the attempt outright.
func (service *coordinatorService) StartRide(ctx context.Context, in ports.StartRideInput) (ports.StartRideResult, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithRideID(ctx, in.RideID)
	ctx = service.logger.WithDriverID(ctx, in.DriverID)

	if _, err := service.requireSession(in.DriverID, in.SessionToken); err != nil {
		return ports.StartRideResult{}, err
	}

	rideEnt, err := service.rideByID(in.RideID)
	if err != nil {
		return ports.StartRideResult{}, err
	}

	rideEnt.mu.Lock()
	if err := rideEnt.r.Start(in.DriverID, in.SecurityCode); err != nil {
		rideEnt.mu.Unlock()
		service.logger.Info(ctx, "ride_start_rejected", "Start attempt rejected", map[string]any{
			"reason":     err.Error(),
			"request_id": corrID,
		})
		return ports.StartRideResult{}, err
	}
	started := rideEnt.r.Clone()
	rideEnt.mu.Unlock()

	service.emit(ctx, contracts.CoreEvent{
		Kind:        contracts.EventRideStarted,
		RideID:      started.ID,
		DriverID:    in.DriverID,
		PassengerID: started.PassengerID,
		Payload: contracts.RideStatusMessage{
			RideID:    started.ID,
			Status:    started.Status.String(),
			DriverID:  in.DriverID,
			Timestamp: time.Now().UTC(),
		},
		Envelope: newEnvelope(corrID),
	})

	service.logger.Info(ctx, "ride_started", "Ride is now in progress", map[string]any{
		"request_id": corrID,
	})

	return ports.StartRideResult{
		RideID:    started.ID,
		Status:    started.Status.String(),
		StartedAt: *started.StartedAt,
		Message:   "Ride started",
	}, nil
}
