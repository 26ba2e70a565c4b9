package service

import (
	"context"
	"time"

	"ride-coord/internal/domain/ride"
	"ride-coord/internal/general/contracts"
	"ride-coord/internal/ports"
)

// CancelRide moves PENDING or ACCEPTED -> CANCELLED. Only the passenger or
// the assigned driver may cancel. Cancelling an ACCEPTED ride notifies the
// assigned driver; cancelling a PENDING ride refreshes dispatch streams so
// the ride disappears before anyone claims it.
func (service *coordinatorService) CancelRide(ctx context.Context, in ports.CancelRideInput) (ports.CancelRideResult, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithRideID(ctx, in.RideID)

	rideEnt, err := service.rideByID(in.RideID)
	if err != nil {
		return ports.CancelRideResult{}, err
	}

	rideEnt.mu.Lock()
	if in.ActorID != rideEnt.r.PassengerID && !rideEnt.r.AssignedTo(in.ActorID) {
		rideEnt.mu.Unlock()
		return ports.CancelRideResult{}, ride.ErrNotParticipant
	}

	wasPending := rideEnt.r.Status == ride.StatusPending
	if err := rideEnt.r.Cancel(in.ActorID); err != nil {
		rideEnt.mu.Unlock()
		service.logger.Info(ctx, "ride_cancel_rejected", "Cancel attempt rejected", map[string]any{
			"reason":     err.Error(),
			"request_id": corrID,
		})
		return ports.CancelRideResult{}, err
	}
	cancelled := rideEnt.r.Clone()
	transcript := cloneTranscript(rideEnt.messages)
	rideEnt.mu.Unlock()

	assignedDriver := ""
	if cancelled.DriverID != nil {
		assignedDriver = *cancelled.DriverID
	}

	// the assigned driver (if any) must hear about this
	service.emit(ctx, contracts.CoreEvent{
		Kind:        contracts.EventRideCancelled,
		RideID:      cancelled.ID,
		DriverID:    assignedDriver,
		PassengerID: cancelled.PassengerID,
		Payload: contracts.RideStatusMessage{
			RideID:      cancelled.ID,
			Status:      cancelled.Status.String(),
			DriverID:    assignedDriver,
			CancelledBy: in.ActorID,
			Timestamp:   time.Now().UTC(),
		},
		Envelope: newEnvelope(corrID),
	})

	if wasPending {
		service.refreshDispatch(corrID)
	}

	// terminal state: archive the ride and whatever was said
	service.archiveTerminal(ctx, cancelled, transcript)

	service.logger.Info(ctx, "ride_cancelled", "Ride cancelled", map[string]any{
		"cancelled_by": in.ActorID,
		"was_pending":  wasPending,
		"request_id":   corrID,
	})

	return ports.CancelRideResult{
		RideID:      cancelled.ID,
		Status:      cancelled.Status.String(),
		CancelledAt: *cancelled.CancelledAt,
		CancelledBy: in.ActorID,
		Message:     "Ride cancelled",
	}, nil
}
