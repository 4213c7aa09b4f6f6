package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
	redisclient "github.com/angelmondragon/storefront/pkg/redis"
)

const sessionIDBytes = 32

var ErrNotFound = errors.New("session not found")

// Record is what the gateway remembers about a browser between requests.
type Record struct {
	AccessToken     string    `json:"accessToken,omitempty"`
	RefreshToken    string    `json:"refreshToken,omitempty"`
	RememberedEmail string    `json:"rememberedEmail,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type recordStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(sessionID string) string
}

// Store persists session records in Redis.
type Store struct {
	store recordStore
	keyer sessionKeyer
	ttl   time.Duration
}

// NewStore constructs a session store backed by Redis.
func NewStore(client *redisclient.Client, cfg config.SessionConfig) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Store{store: client, keyer: client, ttl: cfg.TTL}, nil
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create stores rec under a fresh session id and returns the id.
func (s *Store) Create(ctx context.Context, rec Record) (string, error) {
	id, err := NewID()
	if err != nil {
		return "", err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if err := s.Save(ctx, id, rec); err != nil {
		return "", err
	}
	return id, nil
}

// Save overwrites the record and renews its TTL.
func (s *Store) Save(ctx context.Context, sessionID string, rec Record) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.store.Set(ctx, s.keyer.SessionKey(sessionID), payload, s.ttl)
}

// Load returns ErrNotFound when the id is unknown or expired.
func (s *Store) Load(ctx context.Context, sessionID string) (Record, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Record{}, ErrNotFound
	}
	raw, err := s.store.Get(ctx, s.keyer.SessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return s.store.Del(ctx, s.keyer.SessionKey(sessionID))
}

// NewID returns a random url-safe session identifier.
func NewID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
