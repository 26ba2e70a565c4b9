package websocket

import (
	"context"

	"ride-coord/internal/general/contracts"

	"github.com/gorilla/websocket"
)

// Publish mirrors core events to the affected live connections. A missing or
// broken connection is not an error: sockets are a best-effort mirror of
// coordination state, clients resynchronize on reconnect.
func (gw *Gateway) Publish(ctx context.Context, event contracts.CoreEvent) error {
	switch event.Kind {
	case contracts.EventRideAccepted, contracts.EventRideStarted, contracts.EventRideCompleted:
		gw.pushStatus(event, event.PassengerID)

	case contracts.EventRideCancelled:
		// both sides must hear a cancellation; the assigned driver especially
		gw.pushStatus(event, event.PassengerID)
		if event.DriverID != "" {
			gw.pushStatusToDriver(event, event.DriverID)
		}

	case contracts.EventSessionKicked:
		gw.pushSessionKicked(event)
	}

	// chat and location events reach sockets through subscriptions
	return nil
}

// pushStatus sends a ride status frame to a passenger connection.
func (gw *Gateway) pushStatus(event contracts.CoreEvent, passengerID string) {
	conn, ok := gw.passengerConn(passengerID)
	if !ok {
		return
	}

	frame := contracts.WSRideStatus{
		Type:     "ride_status_update",
		RideID:   event.RideID,
		Envelope: event.Envelope,
	}
	if payload, ok := event.Payload.(contracts.RideStatusMessage); ok {
		frame.Status = payload.Status
		frame.DriverInfo = payload.DriverInfo
	}
	_ = gw.writeJSON(conn, frame)
}

// pushStatusToDriver sends a ride status frame to a driver connection.
func (gw *Gateway) pushStatusToDriver(event contracts.CoreEvent, driverID string) {
	conn, ok := gw.driverConn(driverID)
	if !ok {
		return
	}

	frame := contracts.WSRideStatus{
		Type:     "ride_status_update",
		RideID:   event.RideID,
		Envelope: event.Envelope,
	}
	if payload, ok := event.Payload.(contracts.RideStatusMessage); ok {
		frame.Status = payload.Status
	}
	_ = gw.writeJSON(conn, frame)
}

// pushSessionKicked tells a superseded driver connection it is terminally out.
func (gw *Gateway) pushSessionKicked(event contracts.CoreEvent) {
	conn, ok := gw.driverConn(event.DriverID)
	if !ok {
		return
	}

	frame := contracts.WSSessionKicked{
		Type:     "session_kicked",
		DriverID: event.DriverID,
		Reason:   "superseded",
		Envelope: event.Envelope,
	}
	if payload, ok := event.Payload.(contracts.SessionKickedMessage); ok {
		frame.Reason = payload.Reason
		frame.KickedAt = payload.KickedAt
	}
	_ = gw.writeJSON(conn, frame)
}

// driverConn looks up a live driver connection.
func (gw *Gateway) driverConn(driverID string) (*websocket.Conn, bool) {
	v, ok := gw.drivers.Load(driverID)
	if !ok {
		return nil, false
	}
	conn, ok := v.(*websocket.Conn)
	return conn, ok && conn != nil
}

// passengerConn looks up a live passenger connection.
func (gw *Gateway) passengerConn(passengerID string) (*websocket.Conn, bool) {
	v, ok := gw.passengers.Load(passengerID)
	if !ok {
		return nil, false
	}
	conn, ok := v.(*websocket.Conn)
	return conn, ok && conn != nil
}
