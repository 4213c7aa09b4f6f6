package auth

import (
	"context"

	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/backend"
)

// sessionCredentials feeds the backend client from the request session.
type sessionCredentials struct {
	svc   *service
	state *session.State
}

func (s *service) Credentials(state *session.State) backend.Credentials {
	return &sessionCredentials{svc: s, state: state}
}

func (c *sessionCredentials) AccessToken(context.Context) string {
	return c.state.AccessToken()
}

func (c *sessionCredentials) Refresh(ctx context.Context) (bool, error) {
	return c.svc.Refresh(ctx, c.state)
}
