package contracts

import "time"

// WSPendingRides is the full dispatch snapshot streamed to a subscribed driver.
type WSPendingRides struct {
	Type  string          `json:"type"` // "pending_rides"
	Rides []WSPendingRide `json:"rides"`
	Envelope
}

// WSPendingRide is one claimable ride inside a WSPendingRides snapshot.
type WSPendingRide struct {
	RideID      string    `json:"ride_id"`
	Pickup      GeoPoint  `json:"pickup_location"`
	Destination GeoPoint  `json:"destination_location"`
	ServiceType string    `json:"service_type"`
	PriceCents  int64     `json:"price_cents"`
	DistanceKM  float64   `json:"distance_km"`
	CreatedAt   time.Time `json:"created_at"`
}

// WSRideStatus mirrors ride lifecycle updates pushed over a socket.
type WSRideStatus struct {
	Type       string       `json:"type"` // "ride_status_update"
	RideID     string       `json:"ride_id"`
	Status     string       `json:"status"`
	DriverInfo *DriverBrief `json:"driver_info,omitempty"`
	Envelope
}

// WSChatSnapshot is the full ordered transcript streamed on every append.
type WSChatSnapshot struct {
	Type     string               `json:"type"` // "chat_snapshot"
	RideID   string               `json:"ride_id"`
	Messages []ChatMessagePayload `json:"messages"`
	Envelope
}

// WSLocationUpdate mirrors the latest accepted driver position.
type WSLocationUpdate struct {
	Type           string    `json:"type"` // "driver_location_update"
	RideID         string    `json:"ride_id"`
	Location       GeoPoint  `json:"location"`
	AccuracyMeters float64   `json:"accuracy_meters,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Envelope
}

// WSSessionKicked is the unmissable terminal push to a superseded connection.
type WSSessionKicked struct {
	Type     string    `json:"type"` // "session_kicked"
	DriverID string    `json:"driver_id"`
	Reason   string    `json:"reason"`
	KickedAt time.Time `json:"kicked_at"`
	Envelope
}
