package rabbitmq

import (
	"context"
	"encoding/json"

	"ride-coord/internal/general/contracts"
	"ride-coord/internal/general/logger"
	"ride-coord/internal/ports"
)

// EventSink publishes core events to RabbitMQ. Publishing happens in the
// caller's goroutine but failures are swallowed after logging: the broker is
// a best-effort notification fan-out, never part of the coordination path.
type EventSink struct {
	publisher *MQPublisher
	logger    *logger.Logger
}

// NewEventSink constructs a broker-backed sink for the coordination core.
func NewEventSink(publisher *MQPublisher, logger *logger.Logger) ports.EventSink {
	return &EventSink{publisher: publisher, logger: logger}
}

// Publish maps one core event to its exchange and routing key and sends it.
func (sink *EventSink) Publish(ctx context.Context, event contracts.CoreEvent) error {
	exchange, routingKey, ok := routeFor(event)
	if !ok {
		// not every event crosses the broker boundary
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		sink.logger.Error(ctx, "event_marshal_failed", "Failed to encode core event", err, map[string]any{
			"kind": event.Kind.String(),
		})
		return err
	}

	if err := sink.publisher.Publish(exchange, routingKey, body); err != nil {
		sink.logger.Error(ctx, "event_publish_failed", "Failed to publish core event", err, map[string]any{
			"kind":        event.Kind.String(),
			"exchange":    exchange,
			"routing_key": routingKey,
		})
		return err
	}

	return nil
}

// routeFor picks the exchange and routing key for one event kind.
func routeFor(event contracts.CoreEvent) (exchange, routingKey string, ok bool) {
	switch event.Kind {
	case contracts.EventRidePending:
		return contracts.ExchangeRideTopic, contracts.RouteRidePendingPrefix + event.RideID, true
	case contracts.EventRideAccepted:
		return contracts.ExchangeRideTopic, contracts.RouteRideStatusPrefix + "accepted", true
	case contracts.EventRideStarted:
		return contracts.ExchangeRideTopic, contracts.RouteRideStatusPrefix + "in_progress", true
	case contracts.EventRideCompleted:
		return contracts.ExchangeRideTopic, contracts.RouteRideStatusPrefix + "completed", true
	case contracts.EventRideCancelled:
		return contracts.ExchangeRideTopic, contracts.RouteRideStatusPrefix + "cancelled", true
	case contracts.EventChatMessage:
		return contracts.ExchangeChatTopic, contracts.RouteChatMessagePrefix + event.RideID, true
	case contracts.EventSessionKicked:
		return contracts.ExchangeDriverTopic, contracts.RouteSessionKickedPrefix + event.DriverID, true
	case contracts.EventLocationUpdated:
		// location fan-out stays in-process; sockets mirror it directly
		return "", "", false
	default:
		return "", "", false
	}
}
