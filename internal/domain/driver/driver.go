package driver

import (
	"errors"
	"strings"
	"time"

	"ride-coord/internal/domain/geo"
)

// Driver is the presence store's record for one driver. Status and the
// session token are mutated only by the session guard; LastLocation only by
// the location relay.
type Driver struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Display profile
	Name   string
	Rating float64

	// Operational state
	Status       Status
	Verification Verification

	// Latest known position (nil until the first report).
	LastLocation *geo.LocationSample

	// Opaque credential of the single live session; empty when offline.
	SessionToken string
}

var (
	ErrDriverIDRequired = errors.New("driver id is required")
	ErrNameRequired     = errors.New("driver name is required")
	ErrInvalidRating    = errors.New("rating must be between 1.0 and 5.0")

	// ErrNotVerified rejects a go-online attempt by an unapproved driver.
	ErrNotVerified = errors.New("driver is not verified")

	// ErrNotFound indicates the driver id is unknown to the presence store.
	ErrNotFound = errors.New("driver not found")

	// ErrAlreadyRegistered rejects a duplicate driver registration.
	ErrAlreadyRegistered = errors.New("driver already registered")
)

// NewDriver creates a new Driver entity with sane defaults: offline, pending
// verification, maximum rating.
func NewDriver(id, name string) (*Driver, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, ErrDriverIDRequired
	}
	if name = strings.TrimSpace(name); name == "" {
		return nil, ErrNameRequired
	}

	now := time.Now().UTC()
	return &Driver{
		ID:           id,
		CreatedAt:    now,
		UpdatedAt:    now,
		Name:         name,
		Rating:       5.0,
		Status:       StatusOffline,
		Verification: VerificationPending,
	}, nil
}

// SetVerification records the identity collaborator's verdict.
func (driver *Driver) SetVerification(verification Verification) error {
	if !verification.Valid() {
		return ErrInvalidVerification
	}
	driver.Verification = verification
	driver.touch()
	return nil
}

// SetRating updates the display rating with range checks.
func (driver *Driver) SetRating(rating float64) error {
	if rating < 1.0 || rating > 5.0 {
		return ErrInvalidRating
	}
	driver.Rating = rating
	driver.touch()
	return nil
}

// BeginSession installs a fresh token and flips the driver ONLINE.
// The previous token (if any) is returned so the guard can signal the
// superseded holder. Fails with ErrNotVerified unless APPROVED.
func (driver *Driver) BeginSession(token string) (superseded string, err error) {
	if !driver.Verification.Approved() {
		return "", ErrNotVerified
	}

	superseded = driver.SessionToken
	driver.SessionToken = token
	driver.Status = StatusOnline
	driver.touch()
	return superseded, nil
}

// EndSession clears the token and flips the driver OFFLINE. Idempotent.
func (driver *Driver) EndSession() {
	driver.SessionToken = ""
	driver.Status = StatusOffline
	driver.touch()
}

// HoldsToken is the pure validation comparison: true only while token is the
// current live session token.
func (driver *Driver) HoldsToken(token string) bool {
	return token != "" && driver.SessionToken == token
}

// RecordLocation stores the latest known position.
func (driver *Driver) RecordLocation(sample *geo.LocationSample) {
	driver.LastLocation = sample
	driver.touch()
}

// Online reports whether the driver currently holds a live session.
func (driver *Driver) Online() bool {
	return driver.Status == StatusOnline && driver.SessionToken != ""
}

// touch sets UpdatedAt to now (UTC).
func (driver *Driver) touch() {
	driver.UpdatedAt = time.Now().UTC()
}
