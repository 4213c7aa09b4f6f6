package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/storefront/internal/broadcast"
	"github.com/angelmondragon/storefront/internal/notifications"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	defaultHeartbeat = 25 * time.Second
	eventBuffer      = 16
)

// Subscriber is the hub surface used by the event stream.
type Subscriber interface {
	Subscribe(topic broadcast.Topic, fn broadcast.Listener) func()
	Publish(ctx context.Context, sig broadcast.Signal) (int, error)
}

type unreadCounter interface {
	UnreadCount(ctx context.Context) (int, error)
}

// EventsParams configure the server-sent event stream.
type EventsParams struct {
	Hub          Subscriber
	Unread       unreadCounter
	PollInterval time.Duration
	Heartbeat    time.Duration
	Logger       *logger.Logger
}

// Events streams change signals for the caller's session. A signed-in
// session gets one unread-count poller shared by all of its open streams;
// a stream ends when the client goes away.
func Events(params EventsParams) http.HandlerFunc {
	heartbeat := params.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	logg := params.Logger
	var pollers *notifications.Pollers
	if params.Unread != nil {
		var err error
		pollers, err = notifications.NewPollers(notifications.PollerParams{
			Counter:   params.Unread,
			Publisher: params.Hub,
			Logger:    logg,
			Interval:  params.PollInterval,
		})
		if err != nil && logg != nil {
			logg.Error(context.Background(), "events.poller_init_failed", err)
		}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		state := session.FromContext(ctx)
		sid := state.ID()
		signals := make(chan broadcast.Signal, eventBuffer)
		unsubscribe := params.Hub.Subscribe(broadcast.AllTopics, func(_ context.Context, sig broadcast.Signal) {
			if !sig.For(sid) {
				return
			}
			select {
			case signals <- sig:
			default:
				// a full buffer already holds a pending refetch
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		if state.AccessToken() != "" && sid != "" && pollers != nil {
			defer pollers.Acquire(ctx, sid)()
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-signals:
				if err := writeEvent(w, sig); err != nil {
					if logg != nil {
						logg.Debug(logg.WithField(ctx, "error", err.Error()), "events.write_failed")
					}
					return
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, sig broadcast.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sig.Topic, payload)
	return err
}
