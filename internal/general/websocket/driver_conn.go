package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ride-coord/internal/domain/user"
	"ride-coord/internal/general/jwt"
	"ride-coord/internal/ports"

	"github.com/gorilla/websocket"
)

// driver -> server frames

type subscribeRidesFrame struct {
	SessionToken string  `json:"session_token"`
	RadiusKM     float64 `json:"radius_km"`
}

type locationFrame struct {
	SessionToken   string  `json:"session_token"`
	RideID         string  `json:"ride_id"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters"`
}

type rejectRideFrame struct {
	SessionToken string `json:"session_token"`
	RideID       string `json:"ride_id"`
}

type chatFrame struct {
	RideID string `json:"ride_id"`
	Text   string `json:"text"`
}

type chatSubscribeFrame struct {
	RideID string `json:"ride_id"`
}

// ConnectDriver handles WebSocket connections from drivers with JWT auth.
func (gw *Gateway) ConnectDriver(w http.ResponseWriter, r *http.Request) {
	// 1) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		gw.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	// Teardown order (LIFO on return)
	defer conn.Close()
	defer gw.writeLocks.Delete(conn)

	// 2) Authenticate on the first frame
	claims, ok := gw.authenticate(r, conn, user.RoleDriver, "driver_id")
	if !ok {
		return
	}
	driverID := claims.Subject

	if err := gw.sendAuthSuccess(conn, "driver_id", driverID); err != nil {
		gw.logger.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		return
	}

	gw.logger.Info(r.Context(), "ws_connected", "Driver WebSocket connected",
		map[string]any{"driver_id": driverID})

	// 3) Reset read deadline after auth, keep it fresh via pongs
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	// 4) Ping loop with the per-connection writer lock
	stop := make(chan struct{})
	defer close(stop)
	go gw.pingLoop(conn, stop)

	// 5) Register this driver for outbound pushes; unregister on exit
	gw.drivers.Store(driverID, conn)
	defer gw.drivers.Delete(driverID)

	// active streams for this connection, closed on exit
	var subs []interface{ Close() }
	defer func() {
		for _, s := range subs {
			s.Close()
		}
	}()

	// 6) Read loop: route messages
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				gw.logger.Error(r.Context(), "ws_unexpected_close", "Driver connection closed unexpectedly", err, map[string]any{
					"driver_id": driverID,
				})
				gw.wsWriteClose(conn, websocket.CloseInternalServerErr, "internal error")
			} else {
				gw.logger.Info(r.Context(), "ws_connection_closed", "Driver connection closed normally", map[string]any{
					"driver_id": driverID,
				})
				gw.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
			}
			break
		}

		// Minimal envelope
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			gw.writeError(conn, "bad json")
			continue
		}

		switch msg.Type {
		case "subscribe_rides":
			var frame subscribeRidesFrame
			if err := json.Unmarshal(msg.Data, &frame); err != nil {
				gw.writeError(conn, "bad subscribe_rides frame")
				continue
			}
			sub, err := gw.svc.SubscribePendingRides(r.Context(), driverID, frame.SessionToken, frame.RadiusKM)
			if err != nil {
				gw.writeError(conn, err.Error())
				continue
			}
			subs = append(subs, sub)
			go gw.pumpDispatch(conn, driverID, sub)

		case "reject_ride":
			var frame rejectRideFrame
			if err := json.Unmarshal(msg.Data, &frame); err != nil {
				gw.writeError(conn, "bad reject_ride frame")
				continue
			}
			if err := gw.svc.RejectRide(r.Context(), driverID, frame.SessionToken, frame.RideID); err != nil {
				gw.writeError(conn, err.Error())
				continue
			}
			_ = gw.writeJSON(conn, map[string]any{"type": "ride_rejected", "ride_id": frame.RideID})

		case "location_update":
			var frame locationFrame
			if err := json.Unmarshal(msg.Data, &frame); err != nil {
				gw.writeError(conn, "bad location_update frame")
				continue
			}
			out, err := gw.svc.ReportLocation(r.Context(), ports.ReportLocationInput{
				DriverID:       driverID,
				SessionToken:   frame.SessionToken,
				RideID:         frame.RideID,
				Latitude:       frame.Latitude,
				Longitude:      frame.Longitude,
				AccuracyMeters: frame.AccuracyMeters,
			})
			if err != nil {
				gw.writeError(conn, err.Error())
				continue
			}
			_ = gw.writeJSON(conn, map[string]any{"type": "location_ack", "accepted": out.Accepted})

		case "chat_message":
			var frame chatFrame
			if err := json.Unmarshal(msg.Data, &frame); err != nil {
				gw.writeError(conn, "bad chat_message frame")
				continue
			}
			if _, err := gw.svc.SendMessage(r.Context(), ports.SendMessageInput{
				RideID:   frame.RideID,
				SenderID: driverID,
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
			sub, err := gw.svc.SubscribeChat(r.Context(), frame.RideID, driverID)
			if err != nil {
				gw.writeError(conn, err.Error())
				continue
			}
			subs = append(subs, sub)
			go gw.pumpChat(conn, sub)

		default:
			gw.writeError(conn, "unknown message type")
		}
	}
}

// authenticate runs the first-frame JWT handshake and the path/subject check.
func (gw *Gateway) authenticate(r *http.Request, conn *websocket.Conn, role user.Role, pathParam string) (*jwt.Claims, bool) {
	conn.SetReadLimit(1 << 20) // 1 MiB
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		gw.logger.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		_ = gw.sendAuthError(conn, "internal server error")
		return nil, false
	}

	msgType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		gw.logger.Error(r.Context(), "ws_auth_read_failed", "Failed to read auth message", err, nil)
		_ = gw.sendAuthError(conn, "authentication timeout: please send auth message within 5 seconds")
		return nil, false
	}
	if msgType != websocket.TextMessage {
		gw.logger.Error(r.Context(), "ws_auth_invalid_format", "Auth message must be text format", nil, nil)
		_ = gw.sendAuthError(conn, "auth message must be in text format")
		return nil, false
	}

	res, err := jwt.ValidateWSAuth(firstFrame, gw.jwtMgr, role)
	if err != nil {
		gw.logger.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		_ = gw.sendAuthError(conn, "authentication failed: invalid token")
		return nil, false
	}

	// path param must match the subject in claims
	if pathID := r.PathValue(pathParam); pathID != "" && pathID != res.Claims.Subject {
		gw.logger.Error(r.Context(), "ws_auth_failed", "Subject mismatch", nil, map[string]any{
			"path_id":       pathID,
			"token_subject": res.Claims.Subject,
		})
		_ = gw.sendAuthError(conn, pathParam+" mismatch")
		return nil, false
	}

	return res.Claims, true
}

// pumpDispatch forwards dispatch snapshots until the stream closes.
func (gw *Gateway) pumpDispatch(conn *websocket.Conn, driverID string, sub ports.PendingRidesSubscription) {
	for snapshot := range sub.C() {
		if err := gw.writeJSON(conn, snapshot); err != nil {
			gw.logger.Error(context.Background(), "dispatch_push_failed", "Failed to push dispatch snapshot", err, map[string]any{
				"driver_id": driverID,
			})
			sub.Close()
			return
		}
	}
}

// pumpChat forwards transcript snapshots until the stream closes.
func (gw *Gateway) pumpChat(conn *websocket.Conn, sub ports.ChatSubscription) {
	for snapshot := range sub.C() {
		if err := gw.writeJSON(conn, snapshot); err != nil {
			sub.Close()
			return
		}
	}
}

// pumpLocation forwards position frames until the stream closes.
func (gw *Gateway) pumpLocation(conn *websocket.Conn, sub ports.LocationSubscription) {
	for frame := range sub.C() {
		if err := gw.writeJSON(conn, frame); err != nil {
			sub.Close()
			return
		}
	}
}
