package ride

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"ride-coord/internal/domain/geo"
)

// Stop is one endpoint of a ride: a street address plus its coordinates.
type Stop struct {
	Address string
	Point   geo.Point
}

// RideRequest is the registry's record for one ride. The registry serializes
// every mutation per ride id; the entity only enforces the state machine.
type RideRequest struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Actors
	PassengerID string
	DriverID    *string // nil until claimed

	// Core state
	Origin      Stop
	Destination Stop
	PriceCents  int64
	ServiceType ServiceType
	Status      Status

	// Passenger-held code the driver must supply before the ride may start.
	SecurityCode string

	// Lifecycle timestamps
	AcceptedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	// Who triggered the cancellation (passenger id or system actor).
	CancelledBy *string
}

var (
	ErrPassengerRequired = errors.New("passenger id is required")
	ErrDriverRequired    = errors.New("driver id is required")
	ErrNegativePrice     = errors.New("price cannot be negative")

	// ErrAlreadyTaken is the accept-race loser outcome: the ride left PENDING
	// before this caller's claim landed. Non-fatal, never retryable.
	ErrAlreadyTaken = errors.New("ride already taken")

	// ErrInvalidTransition covers every transition attempt from a state that
	// does not permit it, including "already in target state".
	ErrInvalidTransition = errors.New("invalid ride status transition")

	// ErrInvalidCode rejects a start attempt with the wrong security code.
	// State is left unchanged and the caller may retry immediately.
	ErrInvalidCode = errors.New("invalid security code")

	// ErrNotAssignedDriver rejects driver-scoped operations from a driver
	// other than the one bound to the ride.
	ErrNotAssignedDriver = errors.New("driver is not assigned to this ride")

	// ErrNotParticipant rejects lifecycle or chat actions from an actor who is
	// neither the passenger nor the assigned driver.
	ErrNotParticipant = errors.New("actor is not a ride participant")

	// ErrNotFound indicates the ride id is unknown to the registry.
	ErrNotFound = errors.New("ride not found")
)

// NewRideRequest creates a ride in PENDING state with a fresh security code.
func NewRideRequest(id, passengerID string, origin, destination Stop, priceCents int64, serviceType ServiceType) (*RideRequest, error) {
	if passengerID = strings.TrimSpace(passengerID); passengerID == "" {
		return nil, ErrPassengerRequired
	}
	if err := origin.Point.Validate(); err != nil {
		return nil, err
	}
	if err := destination.Point.Validate(); err != nil {
		return nil, err
	}
	if priceCents < 0 {
		return nil, ErrNegativePrice
	}
	if !serviceType.Valid() {
		return nil, ErrInvalidServiceType
	}

	now := time.Now().UTC()
	return &RideRequest{
		ID:           id,
		CreatedAt:    now,
		UpdatedAt:    now,
		PassengerID:  passengerID,
		Origin:       origin,
		Destination:  destination,
		PriceCents:   priceCents,
		ServiceType:  serviceType,
		Status:       StatusPending,
		SecurityCode: GenerateSecurityCode(),
	}, nil
}

// Claim binds a driver and moves PENDING -> ACCEPTED. This is the only path
// into ACCEPTED; a ride that already left PENDING yields ErrAlreadyTaken so
// race losers get a distinguishable, non-fatal failure.
func (request *RideRequest) Claim(driverID string) error {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return ErrDriverRequired
	}
	if request.Status != StatusPending {
		return ErrAlreadyTaken
	}

	now := time.Now().UTC()
	request.DriverID = &driverID
	request.AcceptedAt = &now
	request.setStatus(StatusAccepted)
	return nil
}

// Start moves ACCEPTED -> IN_PROGRESS after an exact security code match.
func (request *RideRequest) Start(driverID, suppliedCode string) error {
	if request.Status != StatusAccepted {
		return ErrInvalidTransition
	}
	if request.DriverID == nil || *request.DriverID != driverID {
		return ErrNotAssignedDriver
	}
	if request.SecurityCode != "" && suppliedCode != request.SecurityCode {
		return ErrInvalidCode
	}

	now := time.Now().UTC()
	request.StartedAt = &now
	request.setStatus(StatusInProgress)
	return nil
}

// Complete moves IN_PROGRESS -> COMPLETED.
func (request *RideRequest) Complete(driverID string) error {
	if request.Status != StatusInProgress {
		return ErrInvalidTransition
	}
	if request.DriverID == nil || *request.DriverID != driverID {
		return ErrNotAssignedDriver
	}

	now := time.Now().UTC()
	request.CompletedAt = &now
	request.setStatus(StatusCompleted)
	return nil
}

// Cancel moves PENDING or ACCEPTED -> CANCELLED and records the actor.
func (request *RideRequest) Cancel(actor string) error {
	if request.Status != StatusPending && request.Status != StatusAccepted {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	request.CancelledAt = &now
	if actor = strings.TrimSpace(actor); actor != "" {
		request.CancelledBy = &actor
	}
	request.setStatus(StatusCancelled)
	return nil
}

// AssignedTo reports whether driverID is the driver bound to this ride.
func (request *RideRequest) AssignedTo(driverID string) bool {
	return request.DriverID != nil && *request.DriverID == driverID
}

// Clone returns a shallow copy safe to hand to subscribers and responses.
// Pointer fields are re-pointed so callers cannot reach registry state.
func (request *RideRequest) Clone() *RideRequest {
	out := *request
	if request.DriverID != nil {
		v := *request.DriverID
		out.DriverID = &v
	}
	out.AcceptedAt = cloneTime(request.AcceptedAt)
	out.StartedAt = cloneTime(request.StartedAt)
	out.CompletedAt = cloneTime(request.CompletedAt)
	out.CancelledAt = cloneTime(request.CancelledAt)
	if request.CancelledBy != nil {
		v := *request.CancelledBy
		out.CancelledBy = &v
	}
	return &out
}

// GenerateSecurityCode returns a uniformly random 4-digit code ("0000".."9999").
func GenerateSecurityCode() string {
	var b [2]byte
	_, _ = rand.Read(b[:])
	n := int(b[0])<<8 | int(b[1])
	return fmt.Sprintf("%04d", n%10000)
}

// ----- internal helpers -----

func (request *RideRequest) setStatus(status Status) {
	request.Status = status
	request.UpdatedAt = time.Now().UTC()
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
