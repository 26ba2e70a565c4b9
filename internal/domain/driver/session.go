package driver

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// Session pairs a driver with its single live token. Issuing a new session
// for the same driver supersedes the previous one immediately.
type Session struct {
	DriverID string
	Token    string
	IssuedAt time.Time
}

var (
	// ErrSessionSuperseded is returned to a holder of a replaced token: a
	// newer login took over and this session is terminally invalid.
	ErrSessionSuperseded = errors.New("session superseded by a newer login")

	// ErrNoActiveSession indicates the driver holds no live session at all.
	ErrNoActiveSession = errors.New("driver has no active session")
)

// NewSession issues a session with a fresh opaque token.
func NewSession(driverID string) (*Session, error) {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return nil, ErrDriverIDRequired
	}

	return &Session{
		DriverID: driverID,
		Token:    newToken(),
		IssuedAt: time.Now().UTC(),
	}, nil
}

// newToken returns an opaque 32-hex-char credential.
func newToken() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
