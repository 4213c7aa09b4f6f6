package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront/pkg/logger"
)

// DefaultChannel is the pub/sub channel shared by all gateway instances.
const DefaultChannel = "commerce"

// Transport is the pub/sub surface of the redis client.
type Transport interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Listen(ctx context.Context, channel string, fn func([]byte)) error
}

// RedisBridge relays hub signals between gateway instances. Signals that
// originate from this instance are ignored when they come back.
type RedisBridge struct {
	hub       *Hub
	transport Transport
	channel   string
	origin    string
	logg      *logger.Logger
}

// NewRedisBridge wires the bridge as the hub's relay.
func NewRedisBridge(hub *Hub, transport Transport, origin string, logg *logger.Logger) (*RedisBridge, error) {
	if hub == nil {
		return nil, errors.New("hub is required")
	}
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	if origin == "" {
		return nil, errors.New("origin is required")
	}
	b := &RedisBridge{
		hub:       hub,
		transport: transport,
		channel:   DefaultChannel,
		origin:    origin,
		logg:      logg,
	}
	hub.SetRelay(b)
	return b, nil
}

// Relay publishes a locally originated signal to the shared channel.
func (b *RedisBridge) Relay(ctx context.Context, sig Signal) error {
	sig.Origin = b.origin
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	return b.transport.Publish(ctx, b.channel, payload)
}

// Run delivers remote signals to the hub until ctx is canceled.
func (b *RedisBridge) Run(ctx context.Context) error {
	if b.logg != nil {
		b.logg.Info(b.logg.WithField(ctx, "channel", b.channel), "broadcast.bridge.start")
	}
	err := b.transport.Listen(ctx, b.channel, func(payload []byte) {
		b.handle(ctx, payload)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (b *RedisBridge) handle(ctx context.Context, payload []byte) {
	var sig Signal
	if err := json.Unmarshal(payload, &sig); err != nil {
		if b.logg != nil {
			b.logg.Warn(b.logg.WithField(ctx, "error", err.Error()), "broadcast.bridge.decode_failed")
		}
		return
	}
	if sig.Origin == b.origin || !sig.Topic.IsValid() {
		return
	}
	b.hub.Deliver(ctx, sig)
}
