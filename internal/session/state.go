package session

import (
	"context"
	"sync"

	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/config"
)

// Identity is the read-only view of who is browsing.
type Identity struct {
	UserID          string    `json:"userId,omitempty"`
	Email           string    `json:"email,omitempty"`
	Name            string    `json:"name,omitempty"`
	Role            auth.Role `json:"role,omitempty"`
	IsAuthenticated bool      `json:"isAuthenticated"`
}

func (i Identity) HasRole(roles ...auth.Role) bool {
	if !i.IsAuthenticated {
		return false
	}
	for _, role := range roles {
		if i.Role == role {
			return true
		}
	}
	return false
}

// IdentityFromToken derives the identity carried by an access token. Invalid
// or expired tokens yield an anonymous identity.
func IdentityFromToken(cfg config.JWTConfig, token string) Identity {
	if token == "" {
		return Identity{}
	}
	claims, err := auth.ReadClaims(cfg, token)
	if err != nil || claims.Identifier() == "" {
		return Identity{}
	}
	role, _ := auth.ParseRole(string(claims.Role))
	return Identity{
		UserID:          claims.Identifier(),
		Email:           claims.Email,
		Name:            claims.Name,
		Role:            role,
		IsAuthenticated: true,
	}
}

// State is the per-request session. Handlers read it; only the auth layer
// rotates its tokens.
type State struct {
	mu       sync.RWMutex
	id       string
	record   Record
	identity Identity
	jwt      config.JWTConfig
}

func NewState(id string, rec Record, jwtCfg config.JWTConfig) *State {
	return &State{
		id:       id,
		record:   rec,
		identity: IdentityFromToken(jwtCfg, rec.AccessToken),
		jwt:      jwtCfg,
	}
}

func (s *State) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

func (s *State) Identity() Identity {
	if s == nil {
		return Identity{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *State) Record() Record {
	if s == nil {
		return Record{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

func (s *State) AccessToken() string {
	return s.Record().AccessToken
}

// Rotate swaps in a renewed token pair and recomputes the identity. An
// empty refresh token keeps the previous one.
func (s *State) Rotate(accessToken, refreshToken string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.AccessToken = accessToken
	if refreshToken != "" {
		s.record.RefreshToken = refreshToken
	}
	s.identity = IdentityFromToken(s.jwt, accessToken)
	return s.record
}

// ClearTokens forgets both tokens, leaving an anonymous session.
func (s *State) ClearTokens() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.AccessToken = ""
	s.record.RefreshToken = ""
	s.identity = Identity{}
	return s.record
}

type stateKey struct{}

func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateKey{}, state)
}

// FromContext returns the request session or nil for requests that did not
// pass the session middleware.
func FromContext(ctx context.Context) *State {
	if ctx == nil {
		return nil
	}
	state, _ := ctx.Value(stateKey{}).(*State)
	return state
}

// IdentityFromContext is a shortcut for FromContext(ctx).Identity().
func IdentityFromContext(ctx context.Context) Identity {
	return FromContext(ctx).Identity()
}
