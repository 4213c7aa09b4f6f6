package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// AccessTokenCookie mirrors whether the session holds an access token so the
// route guard can decide without a Redis round trip.
const AccessTokenCookie = "accessToken"

type sessionLoader interface {
	Load(ctx context.Context, sessionID string) (session.Record, error)
}

type credentialSource interface {
	Credentials(state *session.State) backend.Credentials
}

// SessionParams bundles what the session middleware needs.
type SessionParams struct {
	Config      config.SessionConfig
	JWT         config.JWTConfig
	Store       sessionLoader
	Credentials credentialSource
	Logger      *logger.Logger
}

// Session resolves the session cookie into a request-scoped session.State and
// binds backend credentials to the request context. Unknown or missing
// cookies yield an anonymous state, never an error.
func Session(params SessionParams) func(http.Handler) http.Handler {
	logg := params.Logger
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sid := ""
			if cookie, err := r.Cookie(params.Config.CookieName); err == nil {
				sid = cookie.Value
			}

			var rec session.Record
			if sid != "" && params.Store != nil {
				loaded, err := params.Store.Load(ctx, sid)
				switch {
				case err == nil:
					rec = loaded
				case errors.Is(err, session.ErrNotFound):
					sid = ""
				default:
					if logg != nil {
						logg.Warn(logg.WithField(ctx, "error", err.Error()), "session.load_failed")
					}
					sid = ""
				}
			}

			state := session.NewState(sid, rec, params.JWT)
			ctx = session.WithState(ctx, state)
			if params.Credentials != nil {
				ctx = backend.WithCredentials(ctx, params.Credentials.Credentials(state))
			}
			if logg != nil {
				if sid != "" {
					ctx = logg.WithSessionID(ctx, sid)
				}
				if identity := state.Identity(); identity.IsAuthenticated {
					ctx = logg.WithUserID(ctx, identity.UserID)
					ctx = logg.WithRole(ctx, string(identity.Role))
				}
			}

			syncAccessCookie(w, r, params.Config, rec.AccessToken != "")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func syncAccessCookie(w http.ResponseWriter, r *http.Request, cfg config.SessionConfig, present bool) {
	_, err := r.Cookie(AccessTokenCookie)
	has := err == nil
	switch {
	case present && !has:
		http.SetCookie(w, AccessMarkerCookie(cfg, true))
	case !present && has:
		http.SetCookie(w, AccessMarkerCookie(cfg, false))
	}
}

// SessionCookie builds the session id cookie; an empty id expires it.
func SessionCookie(cfg config.SessionConfig, sessionID string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     cfg.CookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cfg.TTL.Seconds()),
	}
	if sessionID == "" {
		cookie.MaxAge = -1
	}
	return cookie
}

// AccessMarkerCookie sets or clears the accessToken marker. The value is a
// flag, never the token itself.
func AccessMarkerCookie(cfg config.SessionConfig, present bool) *http.Cookie {
	cookie := &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "1",
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cfg.TTL.Seconds()),
	}
	if !present {
		cookie.Value = ""
		cookie.MaxAge = -1
	}
	return cookie
}
