package service

import (
	"context"
	"time"

	"ride-coord/internal/general/contracts"
	"ride-coord/internal/ports"
)

// AcceptRide is the atomic claim arbitration. All racing drivers serialize on
// the ride's lock; exactly one Claim lands, everyone else gets ErrAlreadyTaken.
// The claim requires a live session token.
func (service *coordinatorService) AcceptRide(ctx context.Context, in ports.AcceptRideInput) (ports.AcceptRideResult, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithRideID(ctx, in.RideID)
	ctx = service.logger.WithDriverID(ctx, in.DriverID)

	driverEnt, err := service.requireSession(in.DriverID, in.SessionToken)
	if err != nil {
		return ports.AcceptRideResult{}, err
	}

	rideEnt, err := service.rideByID(in.RideID)
	if err != nil {
		return ports.AcceptRideResult{}, err
	}

	rideEnt.mu.Lock()
	if err := rideEnt.r.Claim(in.DriverID); err != nil {
		rideEnt.mu.Unlock()
		service.logger.Info(ctx, "ride_claim_lost", "Claim rejected", map[string]any{
			"reason":     err.Error(),
			"request_id": corrID,
		})
		return ports.AcceptRideResult{}, err
	}
	claimed := rideEnt.r.Clone()
	rideEnt.mu.Unlock()

	// attach the winner's display profile to the passenger notification
	driverEnt.mu.Lock()
	brief := contracts.DriverBrief{
		DriverID: driverEnt.d.ID,
		Name:     driverEnt.d.Name,
		Rating:   driverEnt.d.Rating,
	}
	driverEnt.mu.Unlock()

	service.emit(ctx, contracts.CoreEvent{
		Kind:        contracts.EventRideAccepted,
		RideID:      claimed.ID,
		DriverID:    in.DriverID,
		PassengerID: claimed.PassengerID,
		Payload: contracts.RideStatusMessage{
			RideID:     claimed.ID,
			Status:     claimed.Status.String(),
			DriverID:   in.DriverID,
			DriverInfo: &brief,
			Timestamp:  time.Now().UTC(),
		},
		Envelope: newEnvelope(corrID),
	})

	// the ride left the pending set: refresh every dispatch stream
	service.refreshDispatch(corrID)

	service.logger.Info(ctx, "ride_claimed", "Driver won the claim", map[string]any{
		"request_id": corrID,
	})

	return ports.AcceptRideResult{
		RideID:      claimed.ID,
		Status:      claimed.Status.String(),
		PassengerID: claimed.PassengerID,
		Pickup:      wirePoint(claimed.Origin.Point, claimed.Origin.Address),
		Destination: wirePoint(claimed.Destination.Point, claimed.Destination.Address),
		Message:     "Ride is yours, head to the pickup point",
	}, nil
}
