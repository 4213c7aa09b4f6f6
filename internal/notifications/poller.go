package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/broadcast"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const defaultPollInterval = 30 * time.Second

type counter interface {
	UnreadCount(ctx context.Context) (int, error)
}

type publisher interface {
	Publish(ctx context.Context, sig broadcast.Signal) (int, error)
}

// PollerParams configure the unread-count poller.
type PollerParams struct {
	Counter   counter
	Publisher publisher
	Logger    *logger.Logger
	Interval  time.Duration
}

// Poller checks the unread count on a fixed cadence, without jitter or
// backoff, and publishes a notifications signal whenever it changes.
type Poller struct {
	counter   counter
	publisher publisher
	logg      *logger.Logger
	interval  time.Duration
}

func NewPoller(params PollerParams) (*Poller, error) {
	if params.Counter == nil {
		return nil, fmt.Errorf("counter required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		counter:   params.Counter,
		publisher: params.Publisher,
		logg:      params.Logger,
		interval:  interval,
	}, nil
}

// Run polls for sessionID until ctx is canceled. The first successful poll
// sets the baseline and is reported through onBaseline when non-nil.
func (p *Poller) Run(ctx context.Context, sessionID string, onBaseline func(count int)) error {
	last := -1
	poll := func() {
		count, err := p.counter.UnreadCount(ctx)
		if err != nil {
			if ctx.Err() == nil && p.logg != nil {
				p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "notifications.poll_failed")
			}
			return
		}
		switch {
		case last < 0:
			if onBaseline != nil {
				onBaseline(count)
			}
		case count != last:
			if _, err := p.publisher.Publish(ctx, broadcast.Signal{Topic: broadcast.TopicNotifications, SessionID: sessionID}); err != nil && p.logg != nil {
				p.logg.Error(ctx, "notifications.publish_failed", err)
			}
		}
		last = count
	}

	poll()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			poll()
		}
	}
}

// Pollers shares one poller per session between every open event stream of
// that session, so N tabs poll once and publish once.
type Pollers struct {
	params PollerParams

	mu      sync.Mutex
	running map[string]*sharedPoller
}

type sharedPoller struct {
	refs   int
	cancel context.CancelFunc
}

func NewPollers(params PollerParams) (*Pollers, error) {
	if _, err := NewPoller(params); err != nil {
		return nil, err
	}
	return &Pollers{params: params, running: map[string]*sharedPoller{}}, nil
}

// Acquire starts the session's poller on first use and returns the release
// func for this stream. The poller keeps ctx's values (credentials, log
// fields) but not its cancellation; it stops when the last stream releases.
func (p *Pollers) Acquire(ctx context.Context, sessionID string) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	shared, ok := p.running[sessionID]
	if !ok {
		poller, _ := NewPoller(p.params)
		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		shared = &sharedPoller{cancel: cancel}
		p.running[sessionID] = shared
		go func() {
			_ = poller.Run(runCtx, sessionID, nil)
		}()
	}
	shared.refs++

	var once sync.Once
	return func() {
		once.Do(func() { p.release(sessionID, shared) })
	}
}

func (p *Pollers) release(sessionID string, shared *sharedPoller) {
	p.mu.Lock()
	defer p.mu.Unlock()
	shared.refs--
	if shared.refs > 0 {
		return
	}
	shared.cancel()
	if p.running[sessionID] == shared {
		delete(p.running, sessionID)
	}
}

// Active is the number of sessions with a running poller.
func (p *Pollers) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.running)
}
