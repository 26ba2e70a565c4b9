package websocket

import (
	"sync"
	"time"

	"ride-coord/internal/general/jwt"
	"ride-coord/internal/general/logger"
	"ride-coord/internal/ports"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
	readDeadline     = 60 * time.Second
	pingInterval     = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Gateway exposes the coordination core over WebSocket with JWT auth. It is
// also an event sink: core events are mirrored to the affected connections.
type Gateway struct {
	logger *logger.Logger
	jwtMgr *jwt.Manager
	svc    ports.CoordinatorService

	writeLocks sync.Map // key: *websocket.Conn -> *sync.Mutex
	drivers    sync.Map // key: driverID(string) -> *websocket.Conn
	passengers sync.Map // key: passengerID(string) -> *websocket.Conn
}

// NewGateway creates the socket boundary over the coordinator service.
func NewGateway(logger *logger.Logger, jwtMgr *jwt.Manager, svc ports.CoordinatorService) *Gateway {
	return &Gateway{
		logger: logger,
		jwtMgr: jwtMgr,
		svc:    svc,
	}
}

// ensure the gateway can be registered as a core event sink
var _ ports.EventSink = (*Gateway)(nil)
