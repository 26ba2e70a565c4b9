package service

import (
	"context"

	"ride-coord/internal/domain/driver"
	"ride-coord/internal/ports"
)

// GoOffline ends the driver's session. Idempotent: a driver with no live
// session is already offline and the call is a successful no-op. While a
// session is live, only its token may end it; a superseded token gets
// ErrSessionSuperseded instead of touching the newer session. Going offline
// does not touch rides the driver already accepted.
func (service *coordinatorService) GoOffline(ctx context.Context, in ports.GoOfflineInput) (ports.GoOfflineResult, error) {
	corrID := generateCorrelationID()
	ctx = service.logger.WithDriverID(ctx, in.DriverID)

	entry, err := service.driverByID(in.DriverID)
	if err != nil {
		return ports.GoOfflineResult{}, err
	}

	entry.mu.Lock()
	if !entry.d.Online() {
		entry.mu.Unlock()
		return ports.GoOfflineResult{
			Status:  driver.StatusOffline.String(),
			Message: "You are already offline",
		}, nil
	}
	if !entry.d.HoldsToken(in.SessionToken) {
		entry.mu.Unlock()
		return ports.GoOfflineResult{}, driver.ErrSessionSuperseded
	}
	entry.d.EndSession()
	entry.mu.Unlock()

	service.logger.Info(ctx, "driver_offline", "Driver went offline", map[string]any{
		"request_id": corrID,
	})

	return ports.GoOfflineResult{
		Status:  driver.StatusOffline.String(),
		Message: "You are now offline",
	}, nil
}

// ValidateSession is the pure comparison probe clients poll while online:
// true only while the presented token is the driver's single live session.
func (service *coordinatorService) ValidateSession(ctx context.Context, driverID, token string) (ports.SessionCheckResult, error) {
	entry, err := service.driverByID(driverID)
	if err != nil {
		return ports.SessionCheckResult{}, err
	}

	entry.mu.Lock()
	valid := entry.d.HoldsToken(token)
	entry.mu.Unlock()

	return ports.SessionCheckResult{DriverID: driverID, Valid: valid}, nil
}
