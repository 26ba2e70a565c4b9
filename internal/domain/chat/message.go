package chat

import (
	"errors"
	"strings"
	"time"
)

// Message is one entry of a per-ride append-only chat log. Messages are
// immutable once created; ordering is by CreatedAt with Seq as tiebreak.
type Message struct {
	ID        string
	RideID    string
	SenderID  string
	Text      string
	CreatedAt time.Time

	// Seq is the server-side insertion counter for the ride, used to break
	// CreatedAt ties deterministically.
	Seq uint64
}

var (
	ErrRideIDRequired   = errors.New("ride id is required")
	ErrSenderIDRequired = errors.New("sender id is required")

	// ErrEmptyMessage rejects blank or whitespace-only text.
	ErrEmptyMessage = errors.New("message text cannot be empty")
)

// NewMessage validates inputs and constructs a Message. The channel assigns
// ID, CreatedAt and Seq at append time.
func NewMessage(rideID, senderID, text string) (*Message, error) {
	if rideID = strings.TrimSpace(rideID); rideID == "" {
		return nil, ErrRideIDRequired
	}
	if senderID = strings.TrimSpace(senderID); senderID == "" {
		return nil, ErrSenderIDRequired
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	return &Message{
		RideID:   rideID,
		SenderID: senderID,
		Text:     text,
	}, nil
}

// Before reports whether message orders strictly before other in the
// transcript's total order.
func (message *Message) Before(other *Message) bool {
	if message.CreatedAt.Equal(other.CreatedAt) {
		return message.Seq < other.Seq
	}
	return message.CreatedAt.Before(other.CreatedAt)
}
