package backend

import "context"

// Credentials supplies the bearer token for a caller and can renew it.
type Credentials interface {
	AccessToken(ctx context.Context) string
	// Refresh renews the access token, reporting whether a new one is available.
	Refresh(ctx context.Context) (bool, error)
}

type credentialsKey struct{}

// WithCredentials binds the caller's credentials to ctx.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// CredentialsFromContext returns the bound credentials or nil.
func CredentialsFromContext(ctx context.Context) Credentials {
	if ctx == nil {
		return nil
	}
	creds, _ := ctx.Value(credentialsKey{}).(Credentials)
	return creds
}

// StaticToken is a fixed bearer token that cannot be refreshed.
type StaticToken string

func (s StaticToken) AccessToken(context.Context) string { return string(s) }

func (s StaticToken) Refresh(context.Context) (bool, error) { return false, nil }
