package service

import (
	"context"

	"ride-coord/internal/domain/driver"
	"ride-coord/internal/ports"
)

// RegisterDriver adds a driver to the presence store. New drivers start
// OFFLINE; the Approved shortcut marks them verified immediately.
func (service *coordinatorService) RegisterDriver(ctx context.Context, in ports.RegisterDriverInput) (ports.RegisterDriverResult, error) {
	d, err := driver.NewDriver(in.DriverID, in.Name)
	if err != nil {
		return ports.RegisterDriverResult{}, err
	}
	if in.Approved {
		if err := d.SetVerification(driver.VerificationApproved); err != nil {
			return ports.RegisterDriverResult{}, err
		}
	}

	service.stateMu.Lock()
	if _, exists := service.drivers[d.ID]; exists {
		service.stateMu.Unlock()
		return ports.RegisterDriverResult{}, driver.ErrAlreadyRegistered
	}
	service.drivers[d.ID] = &driverEntry{d: d}
	service.stateMu.Unlock()

	service.logger.Info(ctx, "driver_registered", "Driver registered", map[string]any{
		"driver_id":    d.ID,
		"verification": d.Verification.String(),
	})

	return ports.RegisterDriverResult{
		DriverID:     d.ID,
		Verification: d.Verification.String(),
		Message:      "Driver registered",
	}, nil
}
