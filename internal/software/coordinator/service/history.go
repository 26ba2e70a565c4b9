package service

import (
	"context"
	"time"

	"ride-coord/internal/domain/chat"
	"ride-coord/internal/domain/geo"
	"ride-coord/internal/domain/ride"
	"ride-coord/internal/ports"
)

// History lists the actor's archived rides, newest first. Coordination state
// is authoritative in memory; history only knows what reached the archive.
func (service *coordinatorService) History(ctx context.Context, actorID string, limit int) (ports.HistoryResult, error) {
	if service.archive == nil || service.uow == nil {
		return ports.HistoryResult{}, ports.ErrUnavailable
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var rows []ports.HistoryRow
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rows, err = service.archive.HistoryForActor(ctx, actorID, limit)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "history_query_failed", "Failed to query ride history", err, map[string]any{
			"actor_id": actorID,
		})
		return ports.HistoryResult{}, err
	}

	return ports.HistoryResult{Rides: rows, Total: len(rows)}, nil
}

// Earnings aggregates a driver's completed rides inside the given window.
func (service *coordinatorService) Earnings(ctx context.Context, in ports.EarningsInput) (ports.EarningsResult, error) {
	if service.archive == nil || service.uow == nil {
		return ports.EarningsResult{}, ports.ErrUnavailable
	}

	from, to := in.From, in.To
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}

	var row ports.EarningsRow
	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		row, err = service.archive.EarningsForDriver(ctx, in.DriverID, from, to)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "earnings_query_failed", "Failed to query driver earnings", err, map[string]any{
			"driver_id": in.DriverID,
		})
		return ports.EarningsResult{}, err
	}

	return ports.EarningsResult{
		DriverID:       in.DriverID,
		RidesCompleted: row.RidesCompleted,
		TotalCents:     row.TotalCents,
		From:           from,
		To:             to,
	}, nil
}

// archiveTerminal writes a terminal ride and its transcript to the archive in
// the background. Archive failures are logged, never surfaced: the in-memory
// transition already committed and must not be rolled back.
func (service *coordinatorService) archiveTerminal(ctx context.Context, r *ride.RideRequest, transcript []*chat.Message) {
	if service.archive == nil || service.uow == nil {
		return
	}

	bgCtx := context.WithoutCancel(ctx)
	go func() {
		archCtx, cancel := context.WithTimeout(bgCtx, 10*time.Second)
		defer cancel()

		err := service.uow.WithinTx(archCtx, func(ctx context.Context) error {
			if err := service.archive.ArchiveRide(ctx, r); err != nil {
				return err
			}
			return service.archive.ArchiveMessages(ctx, r.ID, transcript)
		})
		if err != nil {
			service.logger.Error(bgCtx, "ride_archive_failed", "Failed to archive terminal ride", err, map[string]any{
				"ride_id": r.ID,
				"status":  r.Status.String(),
			})
			return
		}

		service.logger.Debug(bgCtx, "ride_archived", "Terminal ride archived", map[string]any{
			"ride_id":  r.ID,
			"messages": len(transcript),
		})
	}()
}

// archiveLocation appends one accepted sample to the audit trail, best-effort.
func (service *coordinatorService) archiveLocation(ctx context.Context, sample *geo.LocationSample) {
	if service.locations == nil || service.uow == nil {
		return
	}

	bgCtx := context.WithoutCancel(ctx)
	go func() {
		archCtx, cancel := context.WithTimeout(bgCtx, 5*time.Second)
		defer cancel()

		err := service.uow.WithinTx(archCtx, func(ctx context.Context) error {
			return service.locations.Archive(ctx, sample)
		})
		if err != nil {
			service.logger.Error(bgCtx, "location_archive_failed", "Failed to archive location sample", err, map[string]any{
				"driver_id": sample.DriverID,
				"ride_id":   sample.RideID,
			})
		}
	}()
}
