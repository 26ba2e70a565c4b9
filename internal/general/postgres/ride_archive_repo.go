package postgres

import (
	"context"
	"fmt"
	"time"

	"ride-coord/internal/domain/chat"
	"ride-coord/internal/domain/ride"
	"ride-coord/internal/ports"
)

// RideArchiveRepo persists terminal rides and transcripts using pgx and plain SQL.
type RideArchiveRepo struct{}

// NewRideArchiveRepo constructs a new RideArchiveRepo.
func NewRideArchiveRepo() ports.RideArchive {
	return &RideArchiveRepo{}
}

// ArchiveRide upserts one terminal ride row. The core archives each ride at
// most once, but the upsert keeps retries after a transient failure safe.
func (repo *RideArchiveRepo) ArchiveRide(ctx context.Context, r *ride.RideRequest) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO archived_rides (
			id, passenger_id, driver_id, status, service_type, price_cents,
			pickup_address, pickup_lat, pickup_lng,
			dropoff_address, dropoff_lat, dropoff_lng,
			requested_at, accepted_at, started_at, completed_at, cancelled_at, cancelled_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			cancelled_at = EXCLUDED.cancelled_at,
			cancelled_by = EXCLUDED.cancelled_by
	`,
		r.ID,
		r.PassengerID,
		r.DriverID,
		r.Status.String(),
		r.ServiceType.String(),
		r.PriceCents,
		r.Origin.Address,
		r.Origin.Point.Latitude,
		r.Origin.Point.Longitude,
		r.Destination.Address,
		r.Destination.Point.Latitude,
		r.Destination.Point.Longitude,
		r.CreatedAt,
		r.AcceptedAt,
		r.StartedAt,
		r.CompletedAt,
		r.CancelledAt,
		r.CancelledBy,
	)
	if err != nil {
		return fmt.Errorf("archive ride: %w", err)
	}

	return nil
}

// ArchiveMessages inserts the full transcript for one archived ride.
func (repo *RideArchiveRepo) ArchiveMessages(ctx context.Context, rideID string, msgs []*chat.Message) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	for _, m := range msgs {
		_, err := tx.Exec(ctx, `
			INSERT INTO archived_messages (id, ride_id, sender_id, body, seq, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`, m.ID, rideID, m.SenderID, m.Text, m.Seq, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("archive message %s: %w", m.ID, err)
		}
	}

	return nil
}

// HistoryForActor returns archived rides where the actor was the passenger or
// the assigned driver, newest first.
func (repo *RideArchiveRepo) HistoryForActor(ctx context.Context, actorID string, limit int) ([]ports.HistoryRow, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT r.id, r.passenger_id, COALESCE(r.driver_id, ''), r.status, r.service_type,
		       r.price_cents, r.pickup_address, r.dropoff_address,
		       r.requested_at, r.completed_at, r.cancelled_at, COALESCE(r.cancelled_by, ''),
		       (SELECT count(*) FROM archived_messages m WHERE m.ride_id = r.id)
		FROM archived_rides r
		WHERE r.passenger_id = $1 OR r.driver_id = $1
		ORDER BY r.requested_at DESC
		LIMIT $2
	`, actorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ride history: %w", err)
	}
	defer rows.Close()

	var out []ports.HistoryRow
	for rows.Next() {
		var row ports.HistoryRow
		err := rows.Scan(
			&row.RideID, &row.PassengerID, &row.DriverID, &row.Status, &row.ServiceType,
			&row.PriceCents, &row.PickupAddr, &row.DropoffAddr,
			&row.RequestedAt, &row.CompletedAt, &row.CancelledAt, &row.CancelledBy,
			&row.MessageCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return out, nil
}

// EarningsForDriver aggregates completed rides for a driver inside [from, to).
func (repo *RideArchiveRepo) EarningsForDriver(ctx context.Context, driverID string, from, to time.Time) (ports.EarningsRow, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return ports.EarningsRow{}, err
	}

	row := ports.EarningsRow{DriverID: driverID}
	err = tx.QueryRow(ctx, `
		SELECT count(*), COALESCE(sum(price_cents), 0)
		FROM archived_rides
		WHERE driver_id = $1
		  AND status = 'COMPLETED'
		  AND completed_at >= $2 AND completed_at < $3
	`, driverID, from, to).Scan(&row.RidesCompleted, &row.TotalCents)
	if err != nil {
		return ports.EarningsRow{}, fmt.Errorf("query earnings: %w", err)
	}

	return row, nil
}
