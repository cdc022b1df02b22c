package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys for the lifecycle events this core emits. Consumers on the
// notifier side bind whatever subset they care about.
const (
	KeyRideCreated    = "ride.created"
	KeyRideCancelled  = "ride.cancelled"
	KeyRideStarted    = "ride.started"
	KeyRideCompleted  = "ride.completed"
	KeySeatRequested  = "ride.seat.requested"
	KeySeatDecided    = "ride.seat.decided"
	KeySeatCancelled  = "ride.seat.cancelled"
	KeySharingStarted = "ride.sharing.started"
	KeySharingStopped = "ride.sharing.stopped"
)

// Publisher sends lifecycle events to the events exchange with confirms.
type Publisher struct {
	client *Client
}

// NewPublisher constructs a Publisher using the provided client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish marshals payload and sends it under the routing key. Callers
// treat failures as non-fatal; the error is returned for logging only.
func (publisher *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return publisher.client.publishMessage(ctx, routingKey, body)
}

// publishMessage publishes a persistent JSON message and waits for the
// broker confirm.
func (client *Client) publishMessage(ctx context.Context, routingKey string, body []byte) error {
	client.mu.RLock()
	ch := client.pubChan
	conn := client.conn
	client.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return errors.New("rabbitmq: connection is not open")
	}
	if ch == nil || ch.IsClosed() {
		return errors.New("rabbitmq: publish channel is not open")
	}

	client.pubMu.Lock()
	defer client.pubMu.Unlock()
	confirms := client.pubConfirms

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ch.PublishWithContext(ctx, client.exchange, routingKey, false /* mandatory */, false, /* immediate */
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	); err != nil {
		return err
	}

	select {
	case c := <-confirms:
		if !c.Ack {
			return fmt.Errorf("rabbitmq: publish not acknowledged")
		}
	case <-ctx.Done():
		// keep the confirm stream aligned: consume the late confirm if it arrives
		select {
		case c := <-confirms:
			if !c.Ack {
				return fmt.Errorf("rabbitmq: publish not acknowledged after timeout")
			}
		case <-time.After(2 * time.Second):
		}
		return ctx.Err()
	}

	return nil
}

// NoopPublisher satisfies ports.EventPublisher when no broker is wired
// (tests and the --memory demo mode).
type NoopPublisher struct{}

// Publish discards the event.
func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
