package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"ride-coord/internal/domain/driver"
	"ride-coord/internal/domain/geo"
	"ride-coord/internal/general/contracts"
	"ride-coord/internal/ports"
)

const producerName = "ride-coordinator"

// generateCorrelationID creates a simple correlation ID for tracing requests.
func generateCorrelationID() string {
	var b [3]byte // 6 hex chars
	_, _ = rand.Read(b[:])
	ts := time.Now().UTC().Format("20060102T150405") // e.g., 20251028T184523
	return "req_" + ts + "_" + hex.EncodeToString(b[:])
}

// newEnvelope stamps the shared message headers.
func newEnvelope(corrID string) contracts.Envelope {
	return contracts.Envelope{
		CorrelationID: corrID,
		Producer:      producerName,
		SentAt:        time.Now().UTC(),
	}
}

// emit fans one event out to every registered sink. Sink failures are logged
// and swallowed: notification delivery never affects a committed transition.
func (service *coordinatorService) emit(ctx context.Context, event contracts.CoreEvent) {
	service.sinksMu.RLock()
	sinks := make([]ports.EventSink, len(service.sinks))
	copy(sinks, service.sinks)
	service.sinksMu.RUnlock()

	for _, s := range sinks {
		if err := s.Publish(ctx, event); err != nil {
			service.logger.Error(ctx, "event_sink_failed", "Event sink rejected core event", err, map[string]any{
				"kind":    event.Kind.String(),
				"ride_id": event.RideID,
			})
		}
	}
}

// requireSession checks that token is the driver's single live session.
// Returns driver.ErrSessionSuperseded on any mismatch; the caller treats that
// as a definitive, terminal rejection.
func (service *coordinatorService) requireSession(driverID, token string) (*driverEntry, error) {
	entry, err := service.driverByID(driverID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if !entry.d.HoldsToken(token) {
		return nil, driver.ErrSessionSuperseded
	}
	return entry, nil
}

// wirePoint converts a domain point and address to the wire form.
func wirePoint(p geo.Point, address string) contracts.GeoPoint {
	return contracts.GeoPoint{Lat: p.Latitude, Lng: p.Longitude, Address: address}
}

// geoPoint builds a raw coordinate pair; validation happens in the entity.
func geoPoint(lat, lng float64) geo.Point {
	return geo.Point{Latitude: lat, Longitude: lng}
}
