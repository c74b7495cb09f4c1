// Package events streams orchestrator progress over Redis Pub/Sub.
//
// Events are fire-and-forget: nothing is stored, and a subscriber only sees
// events published while it is connected.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/intendproject/ingraph/internal/logging"
	"github.com/intendproject/ingraph/internal/orchestrator"
	"github.com/redis/go-redis/v9"
)

const publishTimeout = 2 * time.Second

// Channel returns the Pub/Sub channel for a namespace.
// Pattern: ingraph:{namespace}:upload_events
func Channel(namespace string) string {
	return fmt.Sprintf("ingraph:%s:upload_events", namespace)
}

// Bus publishes and subscribes to upload events for one namespace.
// It is safe for concurrent use.
type Bus struct {
	rdb       *redis.Client
	namespace string
	logger    logging.Logger
}

// NewBus connects to Redis at redisURL (redis://host:port/db).
func NewBus(redisURL, namespace string, logger logging.Logger) (*Bus, error) {
	if namespace == "" {
		return nil, fmt.Errorf("event namespace cannot be empty")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid events redis URL: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Bus{rdb: redis.NewClient(opts), namespace: namespace, logger: logger}, nil
}

// Close closes the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}

// Ping verifies Redis connectivity.
func (b *Bus) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Publish sends one event.
func (b *Bus) Publish(ctx context.Context, e orchestrator.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.rdb.Publish(ctx, Channel(b.namespace), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Report implements orchestrator.Reporter. Publish failures are logged and
// never interrupt the run.
func (b *Bus) Report(e orchestrator.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := b.Publish(ctx, e); err != nil {
		b.logger.Warn("event not published", "step", e.Step, "err", err)
	}
}

// Subscription delivers events until closed or its context ends.
type Subscription struct {
	events <-chan orchestrator.Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the event channel. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan orchestrator.Event {
	return s.events
}

// Errors returns decode failures. Bad messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe listens on the namespace channel. It returns once Redis has
// confirmed the subscription, so events published afterwards are delivered.
func (b *Bus) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, Channel(b.namespace))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Channel(b.namespace), err)
	}

	eventsChan := make(chan orchestrator.Event, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var e orchestrator.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to decode event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- e:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{events: eventsChan, errors: errorsChan, cancel: cancel}, nil
}
