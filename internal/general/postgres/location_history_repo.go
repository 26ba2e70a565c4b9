package postgres

import (
	"context"

	"ride-coord/internal/domain/geo"
	"ride-coord/internal/ports"
)

// LocationHistoryRepo persists accepted location samples using pgx and plain SQL.
type LocationHistoryRepo struct{}

// NewLocationHistoryRepo constructs a new LocationHistoryRepo.
func NewLocationHistoryRepo() ports.LocationHistoryRepository {
	return &LocationHistoryRepo{}
}

// Archive inserts a single location_history record.
func (repo *LocationHistoryRepo) Archive(ctx context.Context, sample *geo.LocationSample) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO location_history (
			driver_id, ride_id, latitude, longitude, accuracy_meters, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		sample.DriverID,
		sample.RideID,
		sample.Latitude,
		sample.Longitude,
		sample.AccuracyMeters,
		sample.Timestamp,
	)
	return err
}
