package service

import (
	"context"
	"time"

	"ride-coord/internal/general/contracts"
	"ride-coord/internal/ports"
)

// CompleteRide moves IN_PROGRESS -> COMPLETED, credits the fare to the driver
// and hands the terminal ride to the background archiver.
func (service *coordinatorService) CompleteRide(ctx context.Context, in ports.CompleteRideInput) (ports.CompleteRideResult, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithRideID(ctx, in.RideID)
	ctx = service.logger.WithDriverID(ctx, in.DriverID)

	if _, err := service.requireSession(in.DriverID, in.SessionToken); err != nil {
		return ports.CompleteRideResult{}, err
	}

	rideEnt, err := service.rideByID(in.RideID)
	if err != nil {
		return ports.CompleteRideResult{}, err
	}

	rideEnt.mu.Lock()
	if err := rideEnt.r.Complete(in.DriverID); err != nil {
		rideEnt.mu.Unlock()
		return ports.CompleteRideResult{}, err
	}
	completed := rideEnt.r.Clone()
	transcript := cloneTranscript(rideEnt.messages)
	rideEnt.mu.Unlock()

	service.emit(ctx, contracts.CoreEvent{
		Kind:        contracts.EventRideCompleted,
		RideID:      completed.ID,
		DriverID:    in.DriverID,
		PassengerID: completed.PassengerID,
		Payload: contracts.RideStatusMessage{
			RideID:    completed.ID,
			Status:    completed.Status.String(),
			DriverID:  in.DriverID,
			Timestamp: time.Now().UTC(),
		},
		Envelope: newEnvelope(corrID),
	})

	// fire-and-forget archive of the terminal ride plus transcript
	service.archiveTerminal(ctx, completed, transcript)

	service.logger.Info(ctx, "ride_completed", "Ride completed", map[string]any{
		"earnings_cents": completed.PriceCents,
		"request_id":     corrID,
	})

	return ports.CompleteRideResult{
		RideID:        completed.ID,
		Status:        completed.Status.String(),
		CompletedAt:   *completed.CompletedAt,
		EarningsCents: completed.PriceCents,
		Message:       "Ride completed, fare credited",
	}, nil
}
