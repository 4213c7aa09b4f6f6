package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInvokesEachListenerOnce(t *testing.T) {
	hub := NewHub()
	var badge, page, wishlist int
	hub.Subscribe(TopicCart, func(context.Context, Signal) { badge++ })
	hub.Subscribe(TopicCart, func(context.Context, Signal) { page++ })
	hub.Subscribe(TopicWishlist, func(context.Context, Signal) { wishlist++ })

	delivered, err := hub.Publish(context.Background(), Signal{Topic: TopicCart, SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, 2, delivered)
	assert.Equal(t, 1, badge)
	assert.Equal(t, 1, page)
	assert.Zero(t, wishlist)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	calls := 0
	unsubscribe := hub.Subscribe(TopicCart, func(context.Context, Signal) { calls++ })

	_, _ = hub.Publish(context.Background(), Signal{Topic: TopicCart})
	unsubscribe()
	unsubscribe()
	_, _ = hub.Publish(context.Background(), Signal{Topic: TopicCart})

	assert.Equal(t, 1, calls)
	assert.Zero(t, hub.Subscribers(TopicCart))
}

func TestWildcardListenerSeesEveryTopic(t *testing.T) {
	hub := NewHub()
	var seen []Topic
	hub.Subscribe(AllTopics, func(_ context.Context, sig Signal) { seen = append(seen, sig.Topic) })

	_, _ = hub.Publish(context.Background(), Signal{Topic: TopicCart})
	_, _ = hub.Publish(context.Background(), Signal{Topic: TopicReviews})

	assert.Equal(t, []Topic{TopicCart, TopicReviews}, seen)
}

func TestPublishStampsTime(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	hub := NewHub(WithClock(func() time.Time { return fixed }))
	var got Signal
	hub.Subscribe(TopicCart, func(_ context.Context, sig Signal) { got = sig })

	_, _ = hub.Publish(context.Background(), Signal{Topic: TopicCart})
	assert.Equal(t, fixed, got.At)
}

func TestListenerMayUnsubscribeDuringDelivery(t *testing.T) {
	hub := NewHub()
	var unsubscribe func()
	calls := 0
	unsubscribe = hub.Subscribe(TopicCart, func(context.Context, Signal) {
		calls++
		unsubscribe()
	})

	_, _ = hub.Publish(context.Background(), Signal{Topic: TopicCart})
	_, _ = hub.Publish(context.Background(), Signal{Topic: TopicCart})
	assert.Equal(t, 1, calls)
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	hub := NewHub()
	var total atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsubscribe := hub.Subscribe(TopicCart, func(context.Context, Signal) { total.Add(1) })
			defer unsubscribe()
		}()
		go func() {
			defer wg.Done()
			_, _ = hub.Publish(context.Background(), Signal{Topic: TopicCart})
		}()
	}
	wg.Wait()
	assert.Zero(t, hub.Subscribers(TopicCart))
}

type recordingRelay struct {
	signals []Signal
	err     error
}

func (r *recordingRelay) Relay(_ context.Context, sig Signal) error {
	r.signals = append(r.signals, sig)
	return r.err
}

func TestPublishHandsSignalToRelay(t *testing.T) {
	hub := NewHub()
	relay := &recordingRelay{err: errors.New("redis down")}
	hub.SetRelay(relay)
	calls := 0
	hub.Subscribe(TopicCart, func(context.Context, Signal) { calls++ })

	delivered, err := hub.Publish(context.Background(), Signal{Topic: TopicCart})
	require.Error(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, calls)
	require.Len(t, relay.signals, 1)
}

func TestSignalFor(t *testing.T) {
	assert.True(t, Signal{}.For("s1"))
	assert.True(t, Signal{SessionID: "s1"}.For("s1"))
	assert.False(t, Signal{SessionID: "s2"}.For("s1"))
}
