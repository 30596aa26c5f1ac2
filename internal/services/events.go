package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	EventUserRegistered = "user.registered"
	EventCartUpdated    = "cart.updated"
	EventProductCreated = "product.created"

	publishTimeout = 2 * time.Second
	eventQueueSize = 256
)

// Publisher is satisfied by *mq.MQ.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Event is the payload published after a state change has been persisted.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	UserID     string    `json:"user_id,omitempty"`
	ProductID  string    `json:"product_id,omitempty"`
	Action     string    `json:"action,omitempty"`
	Quantity   int       `json:"quantity,omitempty"`
}

// Events publishes domain events best-effort from a single background
// worker, so a slow broker never delays the request that caused the event.
// A nil *Events drops events.
type Events struct {
	publisher Publisher
	channel   string
	logger    zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

func NewEvents(publisher Publisher, channel string, logger zerolog.Logger) *Events {
	if publisher == nil || strings.TrimSpace(channel) == "" {
		return nil
	}
	e := &Events{
		publisher: publisher,
		channel:   channel,
		logger:    logger,
		queue:     make(chan Event, eventQueueSize),
		done:      make(chan struct{}),
	}
	go e.run()
	return e
}

// Emit queues ev for publishing and returns immediately. Events are dropped
// when the queue is full or after Close; the change they describe is
// already committed.
func (e *Events) Emit(ctx context.Context, ev Event) {
	if e == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.OccurredAt = time.Now().UTC()

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	select {
	case e.queue <- ev:
	default:
		e.logger.Warn().Str("event", ev.Type).Str("event_id", ev.ID).Msg("event queue full, dropping event")
	}
}

// Close stops accepting events and waits until the queued ones have been
// published or ctx is done.
func (e *Events) Close(ctx context.Context) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Events) run() {
	defer close(e.done)
	for ev := range e.queue {
		e.publish(ev)
	}
}

func (e *Events) publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		e.logger.Error().Err(err).Str("event", ev.Type).Msg("encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if _, err := e.publisher.Publish(ctx, e.channel, data, map[string]string{"type": ev.Type}); err != nil {
		e.logger.Warn().Err(err).Str("event", ev.Type).Str("event_id", ev.ID).Msg("publish event failed")
		return
	}
	e.logger.Debug().Str("event", ev.Type).Str("event_id", ev.ID).Msg("event published")
}
