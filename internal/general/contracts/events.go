package contracts

import "time"

// EventKind enumerates the typed events the coordination core emits at its
// notification seam. Sinks (RabbitMQ, WebSocket gateway) subscribe to these;
// delivery failure never rolls back the core transition that produced one.
type EventKind string

const (
	EventRidePending     EventKind = "RIDE_PENDING"
	EventRideAccepted    EventKind = "RIDE_ACCEPTED"
	EventRideStarted     EventKind = "RIDE_STARTED"
	EventRideCompleted   EventKind = "RIDE_COMPLETED"
	EventRideCancelled   EventKind = "RIDE_CANCELLED"
	EventChatMessage     EventKind = "CHAT_MESSAGE"
	EventSessionKicked   EventKind = "SESSION_KICKED"
	EventLocationUpdated EventKind = "LOCATION_UPDATED"
)

// String returns the string representation of the EventKind.
func (kind EventKind) String() string {
	return string(kind)
}

// CoreEvent is the envelope handed to every event sink.
type CoreEvent struct {
	Kind        EventKind `json:"kind"`
	RideID      string    `json:"ride_id,omitempty"`
	DriverID    string    `json:"driver_id,omitempty"`
	PassengerID string    `json:"passenger_id,omitempty"`
	Payload     any       `json:"payload,omitempty"`
	Envelope
}

// RideStatusMessage is the payload for ride lifecycle events.
// Routing key: "ride.status.{status}" on ExchangeRideTopic.
type RideStatusMessage struct {
	RideID      string       `json:"ride_id"`
	Status      string       `json:"status"` // PENDING|ACCEPTED|IN_PROGRESS|COMPLETED|CANCELLED
	DriverID    string       `json:"driver_id,omitempty"`
	DriverInfo  *DriverBrief `json:"driver_info,omitempty"`
	CancelledBy string       `json:"cancelled_by,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// RidePendingMessage announces a new claimable ride to online drivers.
// Routing key: "ride.pending.{ride_id}" on ExchangeRideTopic.
type RidePendingMessage struct {
	RideID      string    `json:"ride_id"`
	Pickup      GeoPoint  `json:"pickup_location"`
	Destination GeoPoint  `json:"destination_location"`
	ServiceType string    `json:"service_type"`
	PriceCents  int64     `json:"price_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatMessagePayload mirrors one appended chat message.
// Routing key: "chat.message.{ride_id}" on ExchangeChatTopic.
type ChatMessagePayload struct {
	MessageID string    `json:"message_id"`
	RideID    string    `json:"ride_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionKickedMessage tells a superseded session holder it is terminally out.
// Routing key: "driver.session.{driver_id}" on ExchangeDriverTopic.
type SessionKickedMessage struct {
	DriverID string    `json:"driver_id"`
	Reason   string    `json:"reason"` // e.g. "superseded"
	KickedAt time.Time `json:"kicked_at"`
}

// LocationUpdateMessage is the payload for accepted location publishes.
type LocationUpdateMessage struct {
	DriverID       string    `json:"driver_id"`
	RideID         string    `json:"ride_id"`
	Location       GeoPoint  `json:"location"`
	AccuracyMeters float64   `json:"accuracy_meters,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
