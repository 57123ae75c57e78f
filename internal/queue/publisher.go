package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/tilawah-registration/internal/feed"
)

// Publisher forwards every event on the local bus to the changes
// exchange. It maintains one connection and reconnects with
// exponential backoff; events that occur while the broker is down are
// dropped, which peers tolerate through their periodic snapshot
// refresh.
type Publisher struct {
	url    string
	origin string
	bus    *feed.Bus
}

// NewPublisher builds a Publisher. origin identifies this instance so
// consumers can drop their own messages.
func NewPublisher(url, origin string, bus *feed.Bus) *Publisher {
	return &Publisher{url: url, origin: origin, bus: bus}
}

// Run forwards events until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	events, cancel := p.bus.Subscribe(128)
	defer cancel()

	backoff := time.Second
	for {
		conn, ch, err := dialAndDeclare(p.url)
		if err != nil {
			log.Printf("feed-publisher: broker unavailable: %v; retrying in %s", err, backoff)
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

		err = p.forwardLoop(ctx, ch, events)
		_ = ch.Close()
		_ = conn.Close()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("feed-publisher: forward loop ended: %v; reconnecting", err)
			continue
		}
		return nil
	}
}

func (p *Publisher) forwardLoop(ctx context.Context, ch *amqp.Channel, events <-chan feed.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Remote {
				// Arrived over the bridge already; forwarding it again
				// would bounce events between instances forever.
				continue
			}
			body, err := json.Marshal(ChangeMessage{Origin: p.origin, Event: ev})
			if err != nil {
				log.Printf("feed-publisher: marshal event failed: %v", err)
				continue
			}
			pub := amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Transient,
				Timestamp:    time.Now().UTC(),
				Body:         body,
			}
			if err := ch.PublishWithContext(ctx, changesExchange, "", false, false, pub); err != nil {
				return fmt.Errorf("publish: %w", err)
			}
		}
	}
}

// dialAndDeclare opens a connection plus channel and declares the
// fanout exchange. Idempotent on the broker side.
func dialAndDeclare(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	if err := ch.ExchangeDeclare(changesExchange, "fanout", false, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("exchange declare: %w", err)
	}
	return conn, ch, nil
}
