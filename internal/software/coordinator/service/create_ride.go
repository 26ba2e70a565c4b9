package service

import (
	"context"

	"ride-coord/internal/domain/ride"
	"ride-coord/internal/general/contracts"
	"ride-coord/internal/ports"

	"github.com/google/uuid"
)

// CreateRide registers a new PENDING ride and announces it to online drivers.
// The security code is returned only to the requesting passenger.
func (service *coordinatorService) CreateRide(ctx context.Context, in ports.CreateRideInput) (ports.CreateRideResult, error) {
	corrID := generateCorrelationID()

	origin := ride.Stop{
		Address: in.PickupAddress,
		Point:   geoPoint(in.PickupLatitude, in.PickupLongitude),
	}
	destination := ride.Stop{
		Address: in.DestinationAddress,
		Point:   geoPoint(in.DestinationLatitude, in.DestinationLongitude),
	}

	request, err := ride.NewRideRequest(uuid.NewString(), in.PassengerID, origin, destination, in.PriceCents, in.ServiceType)
	if err != nil {
		service.logger.Error(ctx, "ride_create_failed", "Failed to create ride", err, map[string]any{
			"passenger_id": in.PassengerID,
			"request_id":   corrID,
		})
		return ports.CreateRideResult{}, err
	}

	service.stateMu.Lock()
	service.rides[request.ID] = &rideEntry{r: request}
	service.stateMu.Unlock()

	ctx = service.logger.WithRideID(ctx, request.ID)

	// announce the new claimable ride
	service.emit(ctx, contracts.CoreEvent{
		Kind:        contracts.EventRidePending,
		RideID:      request.ID,
		PassengerID: request.PassengerID,
		Payload: contracts.RidePendingMessage{
			RideID:      request.ID,
			Pickup:      wirePoint(request.Origin.Point, request.Origin.Address),
			Destination: wirePoint(request.Destination.Point, request.Destination.Address),
			ServiceType: request.ServiceType.String(),
			PriceCents:  request.PriceCents,
			CreatedAt:   request.CreatedAt,
		},
		Envelope: newEnvelope(corrID),
	})

	// the pending set grew: refresh every dispatch stream
	service.refreshDispatch(corrID)

	service.logger.Info(ctx, "ride_created", "Ride created and announced to drivers", map[string]any{
		"passenger_id": request.PassengerID,
		"service_type": request.ServiceType.String(),
		"price_cents":  request.PriceCents,
		"request_id":   corrID,
	})

	return ports.CreateRideResult{
		RideID:       request.ID,
		Status:       request.Status.String(),
		SecurityCode: request.SecurityCode,
		PriceCents:   request.PriceCents,
		Message:      "Ride requested, waiting for a driver",
	}, nil
}
