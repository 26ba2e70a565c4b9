package ride

import (
	"errors"
	"testing"

	"ride-coord/internal/domain/geo"
)

func testRide(t *testing.T) *RideRequest {
	t.Helper()
	origin := Stop{Address: "1 Pickup St", Point: geo.Point{Latitude: 48.8566, Longitude: 2.3522}}
	destination := Stop{Address: "2 Dropoff Ave", Point: geo.Point{Latitude: 48.8606, Longitude: 2.3376}}
	r, err := NewRideRequest("ride-1", "passenger-1", origin, destination, 1500, ServiceStandard)
	if err != nil {
		t.Fatalf("NewRideRequest: %v", err)
	}
	return r
}

func TestNewRideRequestValidation(t *testing.T) {
	origin := Stop{Point: geo.Point{Latitude: 48.8566, Longitude: 2.3522}}
	destination := Stop{Point: geo.Point{Latitude: 48.8606, Longitude: 2.3376}}

	if _, err := NewRideRequest("r", "", origin, destination, 100, ServiceStandard); !errors.Is(err, ErrPassengerRequired) {
		t.Fatalf("expected ErrPassengerRequired, got %v", err)
	}
	if _, err := NewRideRequest("r", "p", origin, destination, -1, ServiceStandard); !errors.Is(err, ErrNegativePrice) {
		t.Fatalf("expected ErrNegativePrice, got %v", err)
	}
	if _, err := NewRideRequest("r", "p", origin, destination, 100, ServiceType("HELICOPTER")); !errors.Is(err, ErrInvalidServiceType) {
		t.Fatalf("expected ErrInvalidServiceType, got %v", err)
	}
	bad := Stop{Point: geo.Point{Latitude: 91, Longitude: 0}}
	if _, err := NewRideRequest("r", "p", bad, destination, 100, ServiceStandard); !errors.Is(err, geo.ErrInvalidLatitude) {
		t.Fatalf("expected ErrInvalidLatitude, got %v", err)
	}

	r := testRide(t)
	if r.Status != StatusPending {
		t.Fatalf("new ride should be PENDING, got %s", r.Status)
	}
	if len(r.SecurityCode) != 4 {
		t.Fatalf("security code should be 4 digits, got %q", r.SecurityCode)
	}
	for _, c := range r.SecurityCode {
		if c < '0' || c > '9' {
			t.Fatalf("security code should be numeric, got %q", r.SecurityCode)
		}
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	r := testRide(t)

	if err := r.Claim("driver-1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if r.Status != StatusAccepted || r.DriverID == nil || *r.DriverID != "driver-1" {
		t.Fatalf("claim did not bind driver: status=%s driver=%v", r.Status, r.DriverID)
	}
	if r.AcceptedAt == nil {
		t.Fatal("AcceptedAt not set")
	}

	if err := r.Start("driver-1", r.SecurityCode); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.Status != StatusInProgress || r.StartedAt == nil {
		t.Fatalf("start did not transition: status=%s", r.Status)
	}

	if err := r.Complete("driver-1"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if r.Status != StatusCompleted || r.CompletedAt == nil {
		t.Fatalf("complete did not transition: status=%s", r.Status)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	r := testRide(t)
	if err := r.Claim("driver-1"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := r.Claim("driver-2"); !errors.Is(err, ErrAlreadyTaken) {
		t.Fatalf("second claim should lose with ErrAlreadyTaken, got %v", err)
	}
	if *r.DriverID != "driver-1" {
		t.Fatalf("losing claim must not rebind the driver, got %s", *r.DriverID)
	}

	if err := r.Claim(""); !errors.Is(err, ErrDriverRequired) {
		t.Fatalf("expected ErrDriverRequired, got %v", err)
	}
}

func TestStartSecurityCodeGate(t *testing.T) {
	r := testRide(t)
	if err := r.Claim("driver-1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	if err := r.Start("driver-1", "XXXX"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("wrong code should fail with ErrInvalidCode, got %v", err)
	}
	if r.Status != StatusAccepted || r.StartedAt != nil {
		t.Fatalf("rejected start must leave state untouched: status=%s", r.Status)
	}

	// a rejected attempt is retryable immediately
	if err := r.Start("driver-1", r.SecurityCode); err != nil {
		t.Fatalf("retry with correct code: %v", err)
	}
	if r.Status != StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", r.Status)
	}
}

func TestStartRequiresAssignedDriver(t *testing.T) {
	r := testRide(t)

	if err := r.Start("driver-1", "0000"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("start from PENDING should fail with ErrInvalidTransition, got %v", err)
	}
	if err := r.Claim("driver-1"); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := r.Start("driver-2", r.SecurityCode); !errors.Is(err, ErrNotAssignedDriver) {
		t.Fatalf("expected ErrNotAssignedDriver, got %v", err)
	}
	if err := r.Complete("driver-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("complete from ACCEPTED should fail, got %v", err)
	}
}

func TestCancelWindow(t *testing.T) {
	// from PENDING
	r := testRide(t)
	if err := r.Cancel("passenger-1"); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if r.Status != StatusCancelled || r.CancelledBy == nil || *r.CancelledBy != "passenger-1" {
		t.Fatalf("cancel did not record actor: status=%s by=%v", r.Status, r.CancelledBy)
	}
	if err := r.Cancel("passenger-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double cancel should fail, got %v", err)
	}

	// from ACCEPTED
	r = testRide(t)
	_ = r.Claim("driver-1")
	if err := r.Cancel("driver-1"); err != nil {
		t.Fatalf("cancel accepted: %v", err)
	}

	// not from IN_PROGRESS
	r = testRide(t)
	_ = r.Claim("driver-1")
	_ = r.Start("driver-1", r.SecurityCode)
	if err := r.Cancel("passenger-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel in progress should fail, got %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:    {StatusAccepted, StatusCancelled},
		StatusAccepted:   {StatusInProgress, StatusCancelled},
		StatusInProgress: {StatusCompleted},
		StatusCompleted:  {},
		StatusCancelled:  {},
	}
	all := []Status{StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled}

	for from, nexts := range allowed {
		ok := map[Status]bool{}
		for _, n := range nexts {
			ok[n] = true
		}
		for _, to := range all {
			if got := from.CanTransitionTo(to); got != ok[to] {
				t.Fatalf("%s -> %s: got %v, want %v", from, to, got, ok[to])
			}
		}
	}

	if !StatusCompleted.Terminal() || !StatusCancelled.Terminal() || StatusAccepted.Terminal() {
		t.Fatal("terminal classification is wrong")
	}
	if !StatusAccepted.Active() || !StatusInProgress.Active() || StatusPending.Active() {
		t.Fatal("active classification is wrong")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := testRide(t)
	_ = r.Claim("driver-1")

	c := r.Clone()
	*c.DriverID = "tampered"
	*c.AcceptedAt = c.AcceptedAt.AddDate(1, 0, 0)

	if *r.DriverID != "driver-1" {
		t.Fatalf("clone shares DriverID with the original: %s", *r.DriverID)
	}
	if r.AcceptedAt.Equal(*c.AcceptedAt) {
		t.Fatal("clone shares AcceptedAt with the original")
	}
}

func TestGenerateSecurityCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := GenerateSecurityCode()
		if len(code) != 4 {
			t.Fatalf("code %q is not 4 chars", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q is not numeric", code)
			}
		}
	}
}
