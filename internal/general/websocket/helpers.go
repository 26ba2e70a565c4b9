package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// lockOf returns the writer mutex for a specific connection.
func (gw *Gateway) lockOf(conn *websocket.Conn) *sync.Mutex {
	if v, ok := gw.writeLocks.Load(conn); ok {
		if mu, ok := v.(*sync.Mutex); ok && mu != nil {
			return mu
		}
	}
	mu := &sync.Mutex{}
	actual, _ := gw.writeLocks.LoadOrStore(conn, mu)
	return actual.(*sync.Mutex)
}

// wsWriteMessage sets a short write deadline and writes a message.
func (gw *Gateway) wsWriteMessage(conn *websocket.Conn, mt int, payload []byte) error {
	mu := gw.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(mt, payload)
}

// writeJSON marshals v and writes a single TextMessage to the given connection.
func (gw *Gateway) writeJSON(conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return gw.wsWriteMessage(conn, websocket.TextMessage, payload)
}

// writeError sends a typed error frame; failures are ignored.
func (gw *Gateway) writeError(conn *websocket.Conn, message string) {
	_ = gw.writeJSON(conn, map[string]any{"type": "error", "error": message})
}

// wsWriteClose sends a close control frame with the given code and reason.
func (gw *Gateway) wsWriteClose(conn *websocket.Conn, code int, reason string) {
	mu := gw.lockOf(conn)
	mu.Lock()
	defer mu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsCloseAckWindow),
	)
	gw.writeLocks.Delete(conn)
}

// sendAuthError sends an authentication error message to the client.
func (gw *Gateway) sendAuthError(conn *websocket.Conn, message string) error {
	return gw.writeJSON(conn, map[string]any{
		"type":    "auth_error",
		"error":   message,
		"success": false,
	})
}

// sendAuthSuccess confirms authentication for the given subject.
func (gw *Gateway) sendAuthSuccess(conn *websocket.Conn, idField, id string) error {
	return gw.writeJSON(conn, map[string]any{
		"type":      "auth_success",
		"message":   "Authentication successful",
		"success":   true,
		idField:     id,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// pingLoop keeps the connection alive until a write fails or stop closes.
func (gw *Gateway) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		mu := gw.lockOf(conn)
		mu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
		mu.Unlock()
		if err != nil {
			// close socket to unblock the reader; goroutine exits
			_ = conn.Close()
			return
		}
	}
}
