package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryTransport fans published payloads out to every listener of the
// channel, like a single redis server shared by several gateways.
type memoryTransport struct {
	mu        sync.Mutex
	listeners map[string][]func([]byte)
	ready     chan struct{}
}

func newMemoryTransport() *memoryTransport {
	return &memoryTransport{listeners: map[string][]func([]byte){}, ready: make(chan struct{}, 8)}
}

func (m *memoryTransport) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	listeners := append([]func([]byte){}, m.listeners[channel]...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(payload)
	}
	return nil
}

func (m *memoryTransport) Listen(ctx context.Context, channel string, fn func([]byte)) error {
	m.mu.Lock()
	m.listeners[channel] = append(m.listeners[channel], fn)
	m.mu.Unlock()
	m.ready <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestBridgeRelaysBetweenInstances(t *testing.T) {
	transport := newMemoryTransport()
	hubA, hubB := NewHub(), NewHub()
	bridgeA, err := NewRedisBridge(hubA, transport, "gw-a", nil)
	require.NoError(t, err)
	bridgeB, err := NewRedisBridge(hubB, transport, "gw-b", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 2)
	go func() { done <- bridgeA.Run(ctx) }()
	go func() { done <- bridgeB.Run(ctx) }()
	<-transport.ready
	<-transport.ready

	var mu sync.Mutex
	var onA, onB []Signal
	hubA.Subscribe(TopicCart, func(_ context.Context, sig Signal) { mu.Lock(); onA = append(onA, sig); mu.Unlock() })
	hubB.Subscribe(TopicCart, func(_ context.Context, sig Signal) { mu.Lock(); onB = append(onB, sig); mu.Unlock() })

	_, err = hubA.Publish(context.Background(), Signal{Topic: TopicCart, SessionID: "s1"})
	require.NoError(t, err)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, onA, 1, "origin instance must not receive its own echo")
	require.Len(t, onB, 1)
	assert.Equal(t, "s1", onB[0].SessionID)
	assert.Equal(t, "gw-a", onB[0].Origin)
}

func TestBridgeIgnoresGarbage(t *testing.T) {
	hub := NewHub()
	bridge, err := NewRedisBridge(hub, newMemoryTransport(), "gw-a", nil)
	require.NoError(t, err)
	calls := 0
	hub.Subscribe(AllTopics, func(context.Context, Signal) { calls++ })

	bridge.handle(context.Background(), []byte("not json"))
	unknown, _ := json.Marshal(Signal{Topic: "bogus", Origin: "gw-b"})
	bridge.handle(context.Background(), unknown)
	valid, _ := json.Marshal(Signal{Topic: TopicWishlist, Origin: "gw-b"})
	bridge.handle(context.Background(), valid)

	assert.Equal(t, 1, calls)
}

func TestNewRedisBridgeValidates(t *testing.T) {
	_, err := NewRedisBridge(nil, newMemoryTransport(), "gw", nil)
	assert.Error(t, err)
	_, err = NewRedisBridge(NewHub(), nil, "gw", nil)
	assert.Error(t, err)
	_, err = NewRedisBridge(NewHub(), newMemoryTransport(), "", nil)
	assert.Error(t, err)
}
