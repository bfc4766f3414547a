package shopcart

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"goflare.io/shopcart/models"
)

const (
	// SubjectEventPrefix prefixes the NATS subject of every cart event.
	SubjectEventPrefix = "cart.event."
	subjectAllEvents   = SubjectEventPrefix + ">"
)

// EventHandler observes cart changes. Handlers run on the goroutine that applied
// the change and must not call back into cart operations synchronously.
type EventHandler func(context.Context, *models.CartEvent)

type subscriber struct {
	id      uint64
	handler EventHandler
}

// EventManager fans cart events out to local subscribers and, when a NATS
// connection is configured, to the event bus.
type EventManager struct {
	natsConn *nats.Conn
	logger   *zap.Logger

	mu          sync.RWMutex
	nextID      uint64
	subscribers []subscriber
}

func NewEventManager(natsConn *nats.Conn, logger *zap.Logger) *EventManager {
	return &EventManager{
		natsConn: natsConn,
		logger:   logger,
	}
}

// Subscribe registers handler and returns a function that removes it.
func (em *EventManager) Subscribe(handler EventHandler) func() {
	em.mu.Lock()
	em.nextID++
	id := em.nextID
	em.subscribers = append(em.subscribers, subscriber{id: id, handler: handler})
	em.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { em.unsubscribe(id) })
	}
}

func (em *EventManager) unsubscribe(id uint64) {
	em.mu.Lock()
	defer em.mu.Unlock()

	for i, sub := range em.subscribers {
		if sub.id == id {
			em.subscribers = append(em.subscribers[:i:i], em.subscribers[i+1:]...)
			return
		}
	}
}

// Publish delivers event to every local subscriber in registration order, then to NATS.
func (em *EventManager) Publish(ctx context.Context, event *models.CartEvent) {
	em.mu.RLock()
	subs := make([]subscriber, len(em.subscribers))
	copy(subs, em.subscribers)
	em.mu.RUnlock()

	for _, sub := range subs {
		em.deliver(ctx, sub, event)
	}

	if em.natsConn == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		em.logger.Error("Failed to marshal event", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	subject := EventSubject(event)
	if err = em.natsConn.Publish(subject, data); err != nil {
		em.logger.Error("Failed to publish event",
			zap.String("subject", subject),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

// deliver hands sub its own copy of the snapshot. A panicking subscriber is
// logged and skipped so the rest of the operation still runs.
func (em *EventManager) deliver(ctx context.Context, sub subscriber, event *models.CartEvent) {
	defer func() {
		if r := recover(); r != nil {
			em.logger.Error("Event subscriber panicked",
				zap.Uint64("subscriber", sub.id),
				zap.String("event_id", event.ID),
				zap.Any("panic", r))
		}
	}()

	ev := *event
	ev.Cart = event.Cart.Clone()
	sub.handler(ctx, &ev)
}

// SubscribeToEvents subscribes to cart events published on the bus, including
// those of other processes sharing the same storage.
func (em *EventManager) SubscribeToEvents(handler EventHandler) (*nats.Subscription, error) {
	if em.natsConn == nil {
		return nil, ErrNoEventBus
	}

	return em.natsConn.Subscribe(subjectAllEvents, func(msg *nats.Msg) {
		var event models.CartEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			em.logger.Error("Failed to unmarshal event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}

		handler(context.Background(), &event)
	})
}

// EventSubject returns the NATS subject for event, e.g. cart.event.product_added.
func EventSubject(event *models.CartEvent) string {
	return SubjectEventPrefix + strings.TrimPrefix(string(event.Type), "cart.")
}
