package service

import (
	"sync"

	"ride-coord/internal/general/contracts"
)

// Snapshot aliases keep the subscription registries readable.
type (
	dispatchSnapshot = contracts.WSPendingRides
	chatSnapshot     = contracts.WSChatSnapshot
	locationSnapshot = contracts.WSLocationUpdate
)

// dispatchFilter scopes one dispatch stream to a driver, a radius, and the
// rides that driver has dismissed. excluded is only touched under subsMu.
type dispatchFilter struct {
	driverID string
	radiusKM float64
	excluded map[string]struct{}
}

// clone copies the filter so snapshots can be computed outside subsMu.
func (f dispatchFilter) clone() dispatchFilter {
	out := dispatchFilter{driverID: f.driverID, radiusKM: f.radiusKM, excluded: make(map[string]struct{}, len(f.excluded))}
	for id := range f.excluded {
		out.excluded[id] = struct{}{}
	}
	return out
}

// subscription is a latest-wins snapshot stream. Each push replaces any
// undelivered snapshot, so a slow consumer skips intermediates but always
// converges on the newest one. Close is idempotent and closes C.
type subscription[T any] struct {
	ch      chan T
	mu      sync.Mutex
	closed  bool
	once    sync.Once
	onClose func()
}

func newSubscription[T any](buffer int, onClose func()) *subscription[T] {
	if buffer <= 0 {
		buffer = 1
	}
	return &subscription[T]{
		ch:      make(chan T, buffer),
		onClose: onClose,
	}
}

// C returns the receive side of the stream.
func (sub *subscription[T]) C() <-chan T {
	return sub.ch
}

// push delivers a snapshot, displacing the oldest undelivered one when the
// buffer is full. Safe to call concurrently with Close.
func (sub *subscription[T]) push(v T) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}

	for {
		select {
		case sub.ch <- v:
			return
		default:
		}
		// buffer full: drop the stale snapshot and retry
		select {
		case <-sub.ch:
		default:
		}
	}
}

// Close stops delivery and closes the stream channel. Idempotent.
func (sub *subscription[T]) Close() {
	sub.once.Do(func() {
		sub.mu.Lock()
		sub.closed = true
		close(sub.ch)
		sub.mu.Unlock()

		if sub.onClose != nil {
			sub.onClose()
		}
	})
}
