package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"ride-coord/internal/domain/driver"
)

func TestSessionMonitorSupersededIsTerminal(t *testing.T) {
	terminated := make(chan error, 1)

	monitor := &SessionMonitor{
		DriverID: "d1",
		Token:    "tok",
		Interval: 5 * time.Millisecond,
		Probe: func(ctx context.Context, driverID, token string) (bool, error) {
			return false, nil // definitive: a newer session took over
		},
		OnTerminated: func(reason error) { terminated <- reason },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go monitor.Run(ctx)

	select {
	case reason := <-terminated:
		if !errors.Is(reason, driver.ErrSessionSuperseded) {
			t.Fatalf("expected ErrSessionSuperseded, got %v", reason)
		}
	case <-ctx.Done():
		t.Fatal("monitor never terminated on a definitive invalid answer")
	}
}

func TestSessionMonitorToleratesTransientFailures(t *testing.T) {
	probeErr := errors.New("probe transport down")
	var calls atomic.Int32
	terminated := make(chan error, 1)

	monitor := &SessionMonitor{
		DriverID:  "d1",
		Token:     "tok",
		Interval:  5 * time.Millisecond,
		Tolerance: 2,
		Probe: func(ctx context.Context, driverID, token string) (bool, error) {
			// fail twice, recover, then fail past the tolerance
			switch n := calls.Add(1); {
			case n <= 2:
				return false, probeErr
			case n == 3:
				return true, nil
			default:
				return false, probeErr
			}
		},
		OnTerminated: func(reason error) { terminated <- reason },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go monitor.Run(ctx)

	select {
	case reason := <-terminated:
		if !errors.Is(reason, probeErr) {
			t.Fatalf("expected the probe error, got %v", reason)
		}
		// two failures, a recovery that reset the counter, then three more
		if n := calls.Load(); n != 6 {
			t.Fatalf("expected 6 probes before termination, got %d", n)
		}
	case <-ctx.Done():
		t.Fatal("monitor never exhausted its tolerance")
	}
}

func TestSessionMonitorStopsOnContextCancel(t *testing.T) {
	terminated := make(chan error, 1)
	done := make(chan struct{})

	monitor := &SessionMonitor{
		DriverID: "d1",
		Token:    "tok",
		Interval: 5 * time.Millisecond,
		Probe: func(ctx context.Context, driverID, token string) (bool, error) {
			return true, nil
		},
		OnTerminated: func(reason error) { terminated <- reason },
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		monitor.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on cancel")
	}
	select {
	case reason := <-terminated:
		t.Fatalf("cancel is not a termination, got %v", reason)
	default:
	}
}
