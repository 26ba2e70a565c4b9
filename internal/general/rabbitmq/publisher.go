package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// publisherAppID identifies the coordinator on every message it publishes.
const publisherAppID = "ride-coordinator"

// MQPublisher publishes coordinator events through the shared Client with
// persistence and per-message broker confirms.
type MQPublisher struct {
	client *Client
}

// NewMQPublisher constructs an MQPublisher using the provided RabbitMQ client.
func NewMQPublisher(client *Client) *MQPublisher {
	return &MQPublisher{client: client}
}

// Publish sends one JSON body to an exchange under a routing key and waits
// for the broker's confirm before returning.
func (publisher *MQPublisher) Publish(exchange, routingKey string, body []byte) error {
	client := publisher.client

	client.mu.RLock()
	ch := client.pubChan
	conn := client.conn
	client.mu.RUnlock()

	// quick fail if the connection is down; the watcher will bring it back
	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: publish channel is not open")
	}

	// publishes serialize so each confirm pairs with its own message
	client.pubMu.Lock()
	defer client.pubMu.Unlock()
	confirms := client.pubConfirms

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := ch.PublishWithContext(ctx, exchange, routingKey, true /* mandatory */, false, /* immediate */
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			AppId:        publisherAppID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return err
	}

	return awaitConfirm(ctx, confirms)
}

// awaitConfirm blocks for the broker's ack of the in-flight publish. On
// timeout it still tries to drain that one confirm so the stream stays
// aligned for later publishes.
func awaitConfirm(ctx context.Context, confirms chan amqp.Confirmation) error {
	select {
	case c := <-confirms:
		if !c.Ack {
			return fmt.Errorf("rabbitmq: publish not acknowledged")
		}
		return nil
	case <-ctx.Done():
		select {
		case c := <-confirms:
			if !c.Ack {
				return fmt.Errorf("rabbitmq: publish not acknowledged after timeout")
			}
		case <-time.After(2 * time.Second):
			// give up waiting; the reconnect path replaces the confirms channel
		}
		return ctx.Err()
	}
}
