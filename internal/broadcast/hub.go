package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

// Topic names the piece of commerce state that changed.
type Topic string

const (
	TopicCart          Topic = "cart"
	TopicWishlist      Topic = "wishlist"
	TopicReviews       Topic = "reviews"
	TopicNotifications Topic = "notifications"

	// AllTopics subscribes a listener to every topic.
	AllTopics Topic = "*"
)

func (t Topic) IsValid() bool {
	switch t {
	case TopicCart, TopicWishlist, TopicReviews, TopicNotifications:
		return true
	}
	return false
}

// Signal tells listeners that state changed and should be re-fetched. An
// empty SessionID addresses every session.
type Signal struct {
	Topic     Topic     `json:"topic"`
	SessionID string    `json:"sessionId,omitempty"`
	At        time.Time `json:"at"`
	Origin    string    `json:"origin,omitempty"`
}

// For reports whether the signal addresses the given session.
func (s Signal) For(sessionID string) bool {
	return s.SessionID == "" || s.SessionID == sessionID
}

type Listener func(ctx context.Context, sig Signal)

// Relay forwards locally published signals to other gateway instances.
type Relay interface {
	Relay(ctx context.Context, sig Signal) error
}

// Hub is an in-process publish/subscribe channel. It is safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[Topic]map[uint64]Listener
	relay   Relay
	metrics *metrics.BroadcastMetrics
	logg    *logger.Logger
	now     func() time.Time
}

type HubOption func(*Hub)

func WithMetrics(m *metrics.BroadcastMetrics) HubOption {
	return func(h *Hub) {
		h.metrics = m
	}
}

func WithLogger(logg *logger.Logger) HubOption {
	return func(h *Hub) {
		h.logg = logg
	}
}

func WithClock(now func() time.Time) HubOption {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs: make(map[Topic]map[uint64]Listener),
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// SetRelay attaches the cross-instance relay.
func (h *Hub) SetRelay(relay Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = relay
}

// Subscribe registers fn for topic and returns the function that removes it.
// Calling the returned function more than once is harmless.
func (h *Hub) Subscribe(topic Topic, fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[uint64]Listener)
	}
	h.subs[topic][id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[topic], id)
			if len(h.subs[topic]) == 0 {
				delete(h.subs, topic)
			}
		})
	}
}

// Publish delivers sig to every local listener exactly once and hands it to
// the relay, if any. The number of local deliveries is returned.
func (h *Hub) Publish(ctx context.Context, sig Signal) (int, error) {
	if sig.At.IsZero() {
		sig.At = h.now()
	}
	h.metrics.IncPublished(string(sig.Topic))
	delivered := h.Deliver(ctx, sig)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay == nil {
		return delivered, nil
	}
	if err := relay.Relay(ctx, sig); err != nil {
		if h.logg != nil {
			logCtx := h.logg.WithField(ctx, "topic", string(sig.Topic))
			h.logg.Error(logCtx, "broadcast.relay_failed", err)
		}
		return delivered, err
	}
	return delivered, nil
}

// Deliver invokes local listeners only. Listeners run outside the lock so
// they may subscribe or unsubscribe.
func (h *Hub) Deliver(ctx context.Context, sig Signal) int {
	h.mu.RLock()
	listeners := make([]Listener, 0, len(h.subs[sig.Topic])+len(h.subs[AllTopics]))
	for _, fn := range h.subs[sig.Topic] {
		listeners = append(listeners, fn)
	}
	if sig.Topic != AllTopics {
		for _, fn := range h.subs[AllTopics] {
			listeners = append(listeners, fn)
		}
	}
	h.mu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, sig)
	}
	h.metrics.AddDeliveries(string(sig.Topic), len(listeners))
	return len(listeners)
}

// Subscribers returns the number of listeners registered for topic.
func (h *Hub) Subscribers(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
