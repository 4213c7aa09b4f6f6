package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	redisclient "github.com/angelmondragon/storefront/pkg/redis"
)

var ErrDraftNotFound = errors.New("wizard draft not found")

type draftStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type draftKeyer interface {
	WizardKey(wizardID string) string
}

// Store keeps wizard drafts in Redis so a reload or a second gateway
// instance resumes on the same step.
type Store struct {
	store draftStore
	keyer draftKeyer
	ttl   time.Duration
}

func NewStore(client *redisclient.Client, cfg config.WizardConfig) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.DraftTTL <= 0 {
		return nil, fmt.Errorf("wizard draft ttl must be positive")
	}
	return &Store{store: client, keyer: client, ttl: cfg.DraftTTL}, nil
}

func (s *Store) Save(ctx context.Context, w *Wizard) error {
	if w == nil || w.ID == "" {
		return fmt.Errorf("wizard id is required")
	}
	payload, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal wizard: %w", err)
	}
	return s.store.Set(ctx, s.keyer.WizardKey(w.ID), payload, s.ttl)
}

func (s *Store) Load(ctx context.Context, id string) (*Wizard, error) {
	if id == "" {
		return nil, ErrDraftNotFound
	}
	raw, err := s.store.Get(ctx, s.keyer.WizardKey(id))
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	var w Wizard
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, ErrDraftNotFound
	}
	if w.Data == nil {
		w.Data = map[string]string{}
	}
	return &w, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.store.Del(ctx, s.keyer.WizardKey(id))
}
