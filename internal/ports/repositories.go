package ports

import (
	"context"
	"errors"
	"time"

	"ride-coord/internal/domain/chat"
	"ride-coord/internal/domain/geo"
	"ride-coord/internal/domain/ride"
)

// ErrUnavailable signals the archive backend is unreachable. Callers on the
// coordination path treat it as a logged degradation, never as a failure of
// the transition that produced the write.
var ErrUnavailable = errors.New("archive backend unavailable")

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// HistoryRow is one archived ride as seen by the history read model.
type HistoryRow struct {
	RideID       string     `json:"ride_id"`
	PassengerID  string     `json:"passenger_id"`
	DriverID     string     `json:"driver_id,omitempty"`
	Status       string     `json:"status"`
	ServiceType  string     `json:"service_type"`
	PriceCents   int64      `json:"price_cents"`
	PickupAddr   string     `json:"pickup_address,omitempty"`
	DropoffAddr  string     `json:"dropoff_address,omitempty"`
	RequestedAt  time.Time  `json:"requested_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy  string     `json:"cancelled_by,omitempty"`
	MessageCount int        `json:"message_count"`
}

// EarningsRow aggregates a driver's completed rides inside a window.
type EarningsRow struct {
	DriverID       string `json:"driver_id"`
	RidesCompleted int    `json:"rides_completed"`
	TotalCents     int64  `json:"total_cents"`
}

// RideArchive persists terminal rides and their transcripts, and serves the
// history and earnings queries from what has been archived so far.
type RideArchive interface {
	ArchiveRide(ctx context.Context, r *ride.RideRequest) error
	ArchiveMessages(ctx context.Context, rideID string, msgs []*chat.Message) error
	HistoryForActor(ctx context.Context, actorID string, limit int) ([]HistoryRow, error)
	EarningsForDriver(ctx context.Context, driverID string, from, to time.Time) (EarningsRow, error)
}

// LocationHistoryRepository archives accepted location samples for later audit.
type LocationHistoryRepository interface {
	Archive(ctx context.Context, sample *geo.LocationSample) error
}
