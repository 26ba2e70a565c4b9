package ports

import (
	"context"
	"time"

	"ride-coord/internal/domain/chat"
	"ride-coord/internal/domain/ride"
	"ride-coord/internal/general/contracts"
)

// ----- DTOs for driver presence & sessions -----

// RegisterDriverInput is the validated input for POST /drivers.
type RegisterDriverInput struct {
	DriverID string // from body
	Name     string // from body
	Approved bool   // admin pre-approval shortcut
}

// RegisterDriverResult matches the API response for driver registration.
type RegisterDriverResult struct {
	DriverID     string `json:"driver_id"`
	Verification string `json:"verification"`
	Message      string `json:"message"`
}

// GoOnlineInput is the validated input for POST /drivers/{driver_id}/online.
type GoOnlineInput struct {
	DriverID  string  // from path
	Latitude  float64 // from body
	Longitude float64 // from body
}

// GoOnlineResult matches the API response for going online. SessionToken is
// the opaque credential every subsequent authority-bearing call must present.
type GoOnlineResult struct {
	Status       string `json:"status"` // "ONLINE"
	SessionToken string `json:"session_token"`
	Superseded   bool   `json:"superseded"` // true when a prior session was displaced
	Message      string `json:"message"`
}

// GoOfflineInput is the validated input for POST /drivers/{driver_id}/offline.
type GoOfflineInput struct {
	DriverID     string // from path
	SessionToken string // from header
}

// GoOfflineResult matches the API response for going offline.
type GoOfflineResult struct {
	Status  string `json:"status"` // "OFFLINE"
	Message string `json:"message"`
}

// SessionCheckResult matches the API response for a session validity probe.
type SessionCheckResult struct {
	DriverID string `json:"driver_id"`
	Valid    bool   `json:"valid"`
}

// ----- DTOs for the ride lifecycle -----

// CreateRideInput is the validated input required to create a ride.
type CreateRideInput struct {
	PassengerID          string
	PickupLatitude       float64
	PickupLongitude      float64
	PickupAddress        string
	DestinationLatitude  float64
	DestinationLongitude float64
	DestinationAddress   string
	PriceCents           int64
	ServiceType          ride.ServiceType
}

// CreateRideResult is returned by CoordinatorService.CreateRide().
type CreateRideResult struct {
	RideID       string `json:"ride_id"`
	Status       string `json:"status"` // "PENDING"
	SecurityCode string `json:"security_code"`
	PriceCents   int64  `json:"price_cents"`
	Message      string `json:"message"`
}

// AcceptRideInput is the validated input for POST /rides/{ride_id}/accept.
type AcceptRideInput struct {
	RideID       string // from path
	DriverID     string // from token claims
	SessionToken string // from header
}

// AcceptRideResult matches the API response for a won claim.
type AcceptRideResult struct {
	RideID      string             `json:"ride_id"`
	Status      string             `json:"status"` // "ACCEPTED"
	PassengerID string             `json:"passenger_id"`
	Pickup      contracts.GeoPoint `json:"pickup_location"`
	Destination contracts.GeoPoint `json:"destination_location"`
	Message     string             `json:"message"`
}

// StartRideInput is the validated input for POST /rides/{ride_id}/start.
type StartRideInput struct {
	RideID       string // from path
	DriverID     string // from token claims
	SessionToken string // from header
	SecurityCode string // from body, passenger-relayed
}

// StartRideResult matches the API response for a started ride.
type StartRideResult struct {
	RideID    string    `json:"ride_id"`
	Status    string    `json:"status"` // "IN_PROGRESS"
	StartedAt time.Time `json:"started_at"`
	Message   string    `json:"message"`
}

// CompleteRideInput is the validated input for POST /rides/{ride_id}/complete.
type CompleteRideInput struct {
	RideID       string // from path
	DriverID     string // from token claims
	SessionToken string // from header
}

// CompleteRideResult matches the API response for a completed ride.
type CompleteRideResult struct {
	RideID        string    `json:"ride_id"`
	Status        string    `json:"status"` // "COMPLETED"
	CompletedAt   time.Time `json:"completed_at"`
	EarningsCents int64     `json:"earnings_cents"`
	Message       string    `json:"message"`
}

// CancelRideInput is the validated input for POST /rides/{ride_id}/cancel.
type CancelRideInput struct {
	RideID  string // from path
	ActorID string // from token claims; passenger or assigned driver
}

// CancelRideResult matches the API response for a cancelled ride.
type CancelRideResult struct {
	RideID      string    `json:"ride_id"`
	Status      string    `json:"status"` // "CANCELLED"
	CancelledAt time.Time `json:"cancelled_at"`
	CancelledBy string    `json:"cancelled_by"`
	Message     string    `json:"message"`
}

// ----- DTOs for location & chat -----

// ReportLocationInput is one driver position report.
type ReportLocationInput struct {
	DriverID       string  // from token claims
	SessionToken   string  // from header or socket auth
	RideID         string  // active ride the report belongs to
	Latitude       float64 // from body
	Longitude      float64 // from body
	AccuracyMeters float64 // optional, 0 when absent
}

// ReportLocationResult says whether the throttle accepted the sample.
type ReportLocationResult struct {
	Accepted  bool      `json:"accepted"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// SendMessageInput is one chat append.
type SendMessageInput struct {
	RideID   string // from path or socket frame
	SenderID string // from token claims
	Text     string // from body
}

// SendMessageResult matches the API response for an appended message.
type SendMessageResult struct {
	MessageID string    `json:"message_id"`
	RideID    string    `json:"ride_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ----- DTOs for read models -----

// HistoryResult wraps the archived rides visible to one actor.
type HistoryResult struct {
	Rides []HistoryRow `json:"rides"`
	Total int          `json:"total"`
}

// EarningsInput scopes an earnings query to a driver and window.
type EarningsInput struct {
	DriverID string
	From     time.Time
	To       time.Time
}

// EarningsResult matches the API response for driver earnings.
type EarningsResult struct {
	DriverID       string    `json:"driver_id"`
	RidesCompleted int       `json:"rides_completed"`
	TotalCents     int64     `json:"total_cents"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
}

// HealthResult is the coordinator liveness snapshot.
type HealthResult struct {
	Status        string `json:"status"`
	OnlineDrivers int    `json:"online_drivers"`
	PendingRides  int    `json:"pending_rides"`
	ActiveRides   int    `json:"active_rides"`
}

// ----- Subscriptions -----

// Subscription is a live snapshot stream. Each receive from C carries a fresh,
// complete snapshot; intermediate snapshots may be skipped when the consumer
// lags, but the latest one is always delivered. Close is idempotent and stops
// delivery promptly.
type Subscription[T any] interface {
	C() <-chan T
	Close()
}

// PendingRidesSubscription streams dispatch snapshots to one driver.
type PendingRidesSubscription = Subscription[contracts.WSPendingRides]

// ChatSubscription streams full ordered transcripts for one ride.
type ChatSubscription = Subscription[contracts.WSChatSnapshot]

// LocationSubscription streams the latest accepted driver position for one
// ride. There is no replay: delivery starts with the next accepted report.
type LocationSubscription = Subscription[contracts.WSLocationUpdate]

// ----- Coordinator Service Interface -----

// CoordinatorService exposes the boundary of the ride coordination core.
type CoordinatorService interface {
	// Driver presence & sessions
	RegisterDriver(ctx context.Context, in RegisterDriverInput) (RegisterDriverResult, error)
	GoOnline(ctx context.Context, in GoOnlineInput) (GoOnlineResult, error)
	GoOffline(ctx context.Context, in GoOfflineInput) (GoOfflineResult, error)
	ValidateSession(ctx context.Context, driverID, token string) (SessionCheckResult, error)

	// Ride lifecycle
	CreateRide(ctx context.Context, in CreateRideInput) (CreateRideResult, error)
	AcceptRide(ctx context.Context, in AcceptRideInput) (AcceptRideResult, error)
	StartRide(ctx context.Context, in StartRideInput) (StartRideResult, error)
	CompleteRide(ctx context.Context, in CompleteRideInput) (CompleteRideResult, error)
	CancelRide(ctx context.Context, in CancelRideInput) (CancelRideResult, error)

	// Location relay & chat
	ReportLocation(ctx context.Context, in ReportLocationInput) (ReportLocationResult, error)
	SendMessage(ctx context.Context, in SendMessageInput) (SendMessageResult, error)
	Transcript(ctx context.Context, rideID string) ([]*chat.Message, error)

	// Dispatch, location & chat streams
	SubscribePendingRides(ctx context.Context, driverID, token string, radiusKM float64) (PendingRidesSubscription, error)
	RejectRide(ctx context.Context, driverID, token, rideID string) error
	SubscribeRideLocation(ctx context.Context, rideID, actorID string) (LocationSubscription, error)
	SubscribeChat(ctx context.Context, rideID, actorID string) (ChatSubscription, error)

	// Read models
	History(ctx context.Context, actorID string, limit int) (HistoryResult, error)
	Earnings(ctx context.Context, in EarningsInput) (EarningsResult, error)
	Health(ctx context.Context) HealthResult
}
