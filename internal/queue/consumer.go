package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/tilawah-registration/internal/feed"
)

// Consumer receives change events published by other instances and
// re-publishes them onto the local bus, where the synchronizer and
// propagator react as if the change had been local. Each instance
// consumes from its own exclusive auto-delete queue bound to the
// fanout exchange, so every instance sees every event.
type Consumer struct {
	url    string
	origin string
	bus    *feed.Bus
}

// NewConsumer builds a Consumer. origin must match the instance's
// publisher so its own messages are dropped.
func NewConsumer(url, origin string, bus *feed.Bus) *Consumer {
	return &Consumer{url: url, origin: origin, bus: bus}
}

// Run consumes until ctx is cancelled. It keeps reconnecting with
// exponential backoff; an unreachable broker degrades the deployment
// to single-instance visibility rather than failing the service.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, ch, err := dialAndDeclare(c.url)
		if err != nil {
			log.Printf("feed-consumer: broker unavailable: %v; retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, ch)
		_ = ch.Close()
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("feed-consumer: consume loop ended: %v; reconnecting", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, ch *amqp.Channel) error {
	// Exclusive auto-delete queue: one per instance, broadcast via the
	// fanout exchange, gone when the instance disconnects.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", changesExchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				log.Printf("feed-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	var msg ChangeMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.Origin == c.origin {
		return nil // our own event, already applied locally
	}
	ev := msg.Event
	ev.Remote = true
	c.bus.Publish(ev)
	return nil
}
