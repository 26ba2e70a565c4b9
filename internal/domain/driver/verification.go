package driver

import (
	"errors"
	"strings"
)

// Verification is the driver's document verification status, supplied by the
// external identity collaborator. Only APPROVED drivers may go online.
type Verification string

const (
	VerificationPending  Verification = "PENDING"
	VerificationApproved Verification = "APPROVED"
	VerificationRejected Verification = "REJECTED"
)

var ErrInvalidVerification = errors.New("invalid verification status")

// ParseVerification normalizes (uppercases+trims) and validates a verification string.
func ParseVerification(in string) (Verification, error) {
	verification := Verification(strings.ToUpper(strings.TrimSpace(in)))
	if verification.Valid() {
		return verification, nil
	}
	return "", ErrInvalidVerification
}

// Valid reports whether the verification is one of the allowed constants.
func (verification Verification) Valid() bool {
	switch verification {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Verification.
func (verification Verification) String() string {
	return string(verification)
}

// Approved reports whether the driver cleared verification.
func (verification Verification) Approved() bool {
	return verification == VerificationApproved
}
