package service

import (
	"context"
	"time"

	"ride-coord/internal/domain/driver"
	"ride-coord/internal/domain/geo"
	"ride-coord/internal/general/contracts"
	"ride-coord/internal/ports"
)

// GoOnline starts a fresh session for the driver and flips them ONLINE.
// If a session already exists it is displaced: the old token turns invalid
// immediately and the superseded holder is told exactly once. The new session
// always wins; going online never fails because of an existing session.
func (service *coordinatorService) GoOnline(ctx context.Context, in ports.GoOnlineInput) (ports.GoOnlineResult, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithDriverID(ctx, in.DriverID)

	entry, err := service.driverByID(in.DriverID)
	if err != nil {
		return ports.GoOnlineResult{}, err
	}

	session, err := driver.NewSession(in.DriverID)
	if err != nil {
		return ports.GoOnlineResult{}, err
	}

	entry.mu.Lock()
	superseded, err := entry.d.BeginSession(session.Token)
	if err != nil {
		entry.mu.Unlock()
		service.logger.Error(ctx, "driver_go_online_failed", "Failed to bring driver online", err, map[string]any{
			"request_id": corrID,
		})
		return ports.GoOnlineResult{}, err
	}

	// seed the dispatch position when the client sent one; not tied to a ride,
	// so it bypasses the ride-scoped sample constructor
	if in.Latitude != 0 || in.Longitude != 0 {
		if _, serr := geo.NewPoint(in.Latitude, in.Longitude); serr == nil {
			entry.d.RecordLocation(&geo.LocationSample{
				DriverID:  in.DriverID,
				Latitude:  in.Latitude,
				Longitude: in.Longitude,
				Timestamp: time.Now().UTC(),
			})
		}
	}
	entry.mu.Unlock()

	// tell the displaced holder exactly once
	if superseded != "" {
		service.emit(ctx, contracts.CoreEvent{
			Kind:     contracts.EventSessionKicked,
			DriverID: in.DriverID,
			Payload: contracts.SessionKickedMessage{
				DriverID: in.DriverID,
				Reason:   "superseded",
				KickedAt: time.Now().UTC(),
			},
			Envelope: newEnvelope(corrID),
		})
	}

	service.logger.Info(ctx, "driver_online", "Driver successfully went online", map[string]any{
		"superseded": superseded != "",
		"request_id": corrID,
	})

	return ports.GoOnlineResult{
		Status:       driver.StatusOnline.String(),
		SessionToken: session.Token,
		Superseded:   superseded != "",
		Message:      "You are now online and ready to accept rides",
	}, nil
}
