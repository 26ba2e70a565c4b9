package service

import (
	"context"
	"time"

	"ride-coord/internal/domain/driver"
	"ride-coord/internal/general/logger"
)

// ProbeFunc asks the coordinator whether a session token is still live.
// Transport failures are returned as errors; a definitive answer returns
// (valid, nil).
type ProbeFunc func(ctx context.Context, driverID, token string) (bool, error)

// SessionMonitor is the client-side companion of the session guard: while a
// driver is online it probes session validity on a fixed cadence. Transient
// probe failures are tolerated up to a limit; one definitive "invalid" answer
// is terminal, because a displaced session can never come back.
type SessionMonitor struct {
	DriverID  string
	Token     string
	Probe     ProbeFunc
	Interval  time.Duration // probe cadence; defaults to 10s
	Tolerance int           // consecutive transient failures allowed; defaults to 2

	// OnTerminated fires exactly once when the session is definitively dead
	// (superseded) or the failure tolerance is exhausted.
	OnTerminated func(reason error)

	Logger *logger.Logger
}

// Run probes until the session dies or ctx is cancelled. Blocking; callers
// run it in its own goroutine.
func (monitor *SessionMonitor) Run(ctx context.Context) {
	interval := monitor.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	tolerance := monitor.Tolerance
	if tolerance <= 0 {
		tolerance = 2
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		valid, err := monitor.Probe(ctx, monitor.DriverID, monitor.Token)
		switch {
		case err != nil:
			// transient: count it, keep the session alive below the limit
			failures++
			if monitor.Logger != nil {
				monitor.Logger.Error(ctx, "session_probe_failed", "Session probe failed", err, map[string]any{
					"driver_id": monitor.DriverID,
					"failures":  failures,
					"tolerance": tolerance,
				})
			}
			if failures > tolerance {
				monitor.terminate(err)
				return
			}

		case !valid:
			// definitive mismatch: a newer session took over, no recovery
			monitor.terminate(driver.ErrSessionSuperseded)
			return

		default:
			failures = 0
		}
	}
}

func (monitor *SessionMonitor) terminate(reason error) {
	if monitor.Logger != nil {
		monitor.Logger.Info(context.Background(), "session_terminated", "Session monitor stopped", map[string]any{
			"driver_id": monitor.DriverID,
			"reason":    reason.Error(),
		})
	}
	if monitor.OnTerminated != nil {
		monitor.OnTerminated(reason)
	}
}
