package service

import (
	"context"
	"sync"
	"time"

	"ride-coord/internal/domain/chat"
	"ride-coord/internal/domain/driver"
	"ride-coord/internal/domain/ride"
	"ride-coord/internal/general/logger"
	"ride-coord/internal/ports"
)

// Options tunes the coordination core.
type Options struct {
	DefaultRadiusKM     float64       // dispatch snapshot radius when the subscriber gives none
	LocationMinInterval time.Duration // minimum spacing between accepted location samples per ride
	SubscriptionBuffer  int           // channel depth of snapshot streams (latest-wins)
}

// driverEntry pairs one driver with the mutex that serializes all of their
// presence and session mutations.
type driverEntry struct {
	mu sync.Mutex
	d  *driver.Driver
}

// rideEntry pairs one ride with the mutex that serializes its lifecycle,
// transcript, and relay throttle. The accept race is decided under this lock.
type rideEntry struct {
	mu sync.Mutex
	r  *ride.RideRequest

	// chat channel state
	messages   []*chat.Message
	chatSeq    uint64
	lastChatAt time.Time

	// location relay throttle state
	lastLocationAt time.Time
}

// coordinatorService is the in-memory authoritative core. Postgres only
// archives terminal rides; RabbitMQ and the socket gateway only mirror events.
type coordinatorService struct {
	logger    *logger.Logger
	opts      Options
	uow       ports.UnitOfWork                // nil when archiving is disabled
	archive   ports.RideArchive               // nil when archiving is disabled
	locations ports.LocationHistoryRepository // nil when archiving is disabled

	stateMu sync.RWMutex
	drivers map[string]*driverEntry
	rides   map[string]*rideEntry

	sinksMu sync.RWMutex
	sinks   []ports.EventSink

	subsMu       sync.Mutex
	dispatchSubs map[*subscription[dispatchSnapshot]]dispatchFilter
	chatSubs     map[string]map[*subscription[chatSnapshot]]struct{}
	locationSubs map[string]map[*subscription[locationSnapshot]]struct{}
}

// NewCoordinatorService creates the coordination core. The archive trio may
// be nil together, in which case history and earnings queries degrade.
func NewCoordinatorService(
	logger *logger.Logger,
	opts Options,
	uow ports.UnitOfWork,
	archive ports.RideArchive,
	locations ports.LocationHistoryRepository,
) *coordinatorService {
	if opts.DefaultRadiusKM <= 0 {
		opts.DefaultRadiusKM = 5.0
	}
	if opts.LocationMinInterval <= 0 {
		opts.LocationMinInterval = 3 * time.Second
	}
	if opts.SubscriptionBuffer <= 0 {
		opts.SubscriptionBuffer = 1
	}

	return &coordinatorService{
		logger:       logger,
		opts:         opts,
		uow:          uow,
		archive:      archive,
		locations:    locations,
		drivers:      make(map[string]*driverEntry),
		rides:        make(map[string]*rideEntry),
		dispatchSubs: make(map[*subscription[dispatchSnapshot]]dispatchFilter),
		chatSubs:     make(map[string]map[*subscription[chatSnapshot]]struct{}),
		locationSubs: make(map[string]map[*subscription[locationSnapshot]]struct{}),
	}
}

// ensure the full boundary is implemented
var _ ports.CoordinatorService = (*coordinatorService)(nil)

// RegisterSink attaches a notification sink. Sinks registered after startup
// only see events emitted from that point on.
func (service *coordinatorService) RegisterSink(sink ports.EventSink) {
	service.sinksMu.Lock()
	defer service.sinksMu.Unlock()
	service.sinks = append(service.sinks, sink)
}

// Health reports coordinator liveness counters.
func (service *coordinatorService) Health(ctx context.Context) ports.HealthResult {
	service.stateMu.RLock()
	defer service.stateMu.RUnlock()

	out := ports.HealthResult{Status: "ok"}
	for _, entry := range service.drivers {
		entry.mu.Lock()
		if entry.d.Online() {
			out.OnlineDrivers++
		}
		entry.mu.Unlock()
	}
	for _, entry := range service.rides {
		entry.mu.Lock()
		switch {
		case entry.r.Status == ride.StatusPending:
			out.PendingRides++
		case entry.r.Status.Active():
			out.ActiveRides++
		}
		entry.mu.Unlock()
	}
	return out
}

// driverByID returns the entry for a driver or driver.ErrNotFound.
func (service *coordinatorService) driverByID(id string) (*driverEntry, error) {
	service.stateMu.RLock()
	defer service.stateMu.RUnlock()
	entry, ok := service.drivers[id]
	if !ok {
		return nil, driver.ErrNotFound
	}
	return entry, nil
}

// rideByID returns the entry for a ride or ride.ErrNotFound.
func (service *coordinatorService) rideByID(id string) (*rideEntry, error) {
	service.stateMu.RLock()
	defer service.stateMu.RUnlock()
	entry, ok := service.rides[id]
	if !ok {
		return nil, ride.ErrNotFound
	}
	return entry, nil
}
