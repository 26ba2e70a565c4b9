package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"ride-coord/internal/domain/ride"
	"ride-coord/internal/domain/user"
	"ride-coord/internal/ports"

	"github.com/gorilla/websocket"
)

// passenger -> server frames

type rideRequestFrame struct {
	PickupLatitude       float64 `json:"pickup_latitude"`
	PickupLongitude      float64 `json:"pickup_longitude"`
	PickupAddress        string  `json:"pickup_address"`
	DestinationLatitude  float64 `json:"destination_latitude"`
	DestinationLongitude float64 `json:"destination_longitude"`
	DestinationAddress   string  `json:"destination_address"`
	PriceCents           int64   `json:"price_cents"`
	ServiceType          string  `json:"service_type"`
}

type rideCancelFrame struct {
	RideID string `json:"ride_id"`
}

type locationSubscribeFrame struct {
	RideID string `json:"ride_id"`
}

// ConnectPassenger handles WebSocket connections from passengers with JWT auth.
func (gw *Gateway) ConnectPassenger(w http.ResponseWriter, r *http.Request) {
	// 1) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		gw.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	defer conn.Close()
	defer gw.writeLocks.Delete(conn)

	// 2) Authenticate on the first frame
	claims, ok := gw.authenticate(r, conn, user.RolePassenger, "passenger_id")
	if !ok {
		return
	}
	passengerID := claims.Subject

	if err := gw.sendAuthSuccess(conn, "passenger_id", passengerID); err != nil {
		gw.logger.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		return
	}

	gw.logger.Info(r.Context(), "ws_connected", "Passenger WebSocket connected",
		map[string]any{"passenger_id": passengerID})

	// 3) Reset read deadline after auth
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	// 4) Ping loop
	stop := make(chan struct{})
	defer close(stop)
	go gw.pingLoop(conn, stop)

	// 5) Register for outbound notifications
	gw.passengers.Store(passengerID, conn)
	defer gw.passengers.Delete(passengerID)

	var subs []interface{ Close() }
	defer func() {
		for _, s := range subs {
			s.Close()
		}
	}()

	// 6) Read loop
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				gw.logger.Error(r.Context(), "ws_unexpected_close", "Passenger connection closed unexpectedly", err, map[string]any{
					"passenger_id": passengerID,
				})
				gw.wsWriteClose(conn, websocket.CloseInternalServerErr, "internal error")
			} else {
				gw.logger.Info(r.Context(), "ws_connection_closed", "Passenger connection closed normally", map[string]any{
					"passenger_id": passengerID,
				})
				gw.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
			}
			break
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			gw.writeError(conn, "bad json")
			continue
		}

		switch msg.Type {
		case "ride_request":
			var frame rideRequestFrame
			if err := json.Unmarshal(msg.Data, &frame); err != nil {
				gw.writeError(conn, "bad ride_request frame")
				continue
			}
			serviceType, err := ride.ParseServiceType(frame.ServiceType)
			if err != nil {
				gw.writeError(conn, err.Error())
				continue
			}
			out, err := gw.svc.CreateRide(r.Context(), ports.CreateRideInput{
				PassengerID:          passengerID,
				PickupLatitude:       frame.PickupLatitude,
				PickupLongitude:      frame.PickupLongitude,
				PickupAddress:        frame.PickupAddress,
				DestinationLatitude:  frame.DestinationLatitude,
				DestinationLongitude: frame.DestinationLongitude,
				DestinationAddress:   frame.DestinationAddress,
				PriceCents:           frame.PriceCents,
				ServiceType:          serviceType,
			})
			if err != nil {
				gw.writeError(conn, err.Error())
				continue
			}
			_ = gw.writeJSON(conn, map[string]any{"type": "ride_created", "data": out})

		case "ride_cancel":
			var frame rideCancelFrame
			if err := json.Unmarshal(msg.Data, &frame); err != nil {
				gw.writeError(conn, "bad ride_cancel frame")
				continue
			}
			out, err := gw.svc.CancelRide(r.Context(), ports.CancelRideInput{
				RideID:  frame.RideID,
				ActorID: passengerID,
			})
			if err != nil {
				gw.writeError(conn, err.Error())
				continue
			}
			_ = gw.writeJSON(conn, map[string]any{"type": "ride_cancelled", "data": out})

		case "chat_message":
			var frame chatFrame
			if err := json.Unmarshal(msg.Data, &frame); err != nil {
				gw.writeError(conn, "bad chat_message frame")
				continue
			}
			if _, err := gw.svc.SendMessage(r.Context(), ports.SendMessageInput{
				RideID:   frame.RideID,
				SenderID: passengerID,
				Text:     frame.Text,
			}); err != nil {
				gw.writeError(conn, err.Error())
			}

		case "chat_subscribe":
			var frame chatSubscribeFrame
			if err := json.Unmarshal(msg.Data, &frame); err != nil {
				gw.writeError(conn, "bad chat_subscribe frame")
				continue
			}
			sub, err := gw.svc.SubscribeChat(r.Context(), frame.RideID, passengerID)
			if err != nil {
				gw.writeError(conn, err.Error())
				continue
			}
			subs = append(subs, sub)
			go gw.pumpChat(conn, sub)

		case "location_subscribe":
			var frame locationSubscribeFrame
			if err := json.Unmarshal(msg.Data, &frame); err != nil {
				gw.writeError(conn, "bad location_subscribe frame")
				continue
			}
			sub, err := gw.svc.SubscribeRideLocation(r.Context(), frame.RideID, passengerID)
			if err != nil {
				gw.writeError(conn, err.Error())
				continue
			}
			subs = append(subs, sub)
			go gw.pumpLocation(conn, sub)

		default:
			gw.writeError(conn, "unknown message type")
		}
	}
}
