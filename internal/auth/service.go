package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/backend"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"golang.org/x/sync/singleflight"
)

const (
	pathLogin     = "auth/login"
	pathLogout    = "auth/logout"
	pathRefresh   = "auth/refresh-token"
	pathMe        = "auth/me"
	pathSendOTP   = "auth/send-otp"
	pathVerifyOTP = "auth/verify-otp"
	pathRegister  = "auth/register"

	refreshCookieName = "refreshToken"
)

// Service defines the behavior needed by the auth controllers.
type Service interface {
	Login(ctx context.Context, req LoginRequest, previous *session.State) (*LoginResult, error)
	Logout(ctx context.Context, state *session.State) error
	Refresh(ctx context.Context, state *session.State) (bool, error)
	Me(ctx context.Context) (*Profile, error)
	SendOTP(ctx context.Context, req SendOTPRequest) error
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) error
	Register(ctx context.Context, payload map[string]any) error
	Credentials(state *session.State) backend.Credentials
}

type backendCaller interface {
	Do(ctx context.Context, req backend.Request) ([]byte, error)
}

type sessionStore interface {
	Create(ctx context.Context, rec session.Record) (string, error)
	Save(ctx context.Context, sessionID string, rec session.Record) error
	Delete(ctx context.Context, sessionID string) error
}

type service struct {
	backend  backendCaller
	sessions sessionStore
	jwtCfg   config.JWTConfig
	logg     *logger.Logger
	refresh  singleflight.Group
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Backend   backendCaller
	Sessions  sessionStore
	JWTConfig config.JWTConfig
	Logger    *logger.Logger
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	return &service{
		backend:  params.Backend,
		sessions: params.Sessions,
		jwtCfg:   params.JWTConfig,
		logg:     params.Logger,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest, previous *session.State) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	body, err := s.backend.Do(ctx, backend.Request{
		Op:        "auth.login",
		Method:    http.MethodPost,
		Path:      pathLogin,
		Body:      map[string]string{"email": email, "password": req.Password},
		Anonymous: true,
	})
	if err != nil {
		return nil, err
	}

	var tokens tokenPair
	if err := backend.Decode(body, &tokens); err != nil {
		return nil, err
	}
	if tokens.access() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "login response missing access token")
	}

	rec := session.Record{
		AccessToken:  tokens.access(),
		RefreshToken: tokens.refresh(),
	}
	if req.RememberMe {
		rec.RememberedEmail = email
	}

	sid, err := s.sessions.Create(ctx, rec)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}
	if previous != nil && previous.ID() != "" {
		if err := s.sessions.Delete(ctx, previous.ID()); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auth.login.previous_session_not_deleted")
		}
	}

	state := session.NewState(sid, rec, s.jwtCfg)
	return &LoginResult{SessionID: sid, Record: rec, Identity: state.Identity()}, nil
}

// Logout tells the backend, then drops the tokens. A remembered email
// survives on the same session id.
func (s *service) Logout(ctx context.Context, state *session.State) error {
	if state == nil || state.ID() == "" {
		return nil
	}
	rec := state.Record()
	if rec.AccessToken != "" {
		_, err := s.backend.Do(backend.WithCredentials(ctx, backend.StaticToken(rec.AccessToken)), backend.Request{
			Op:     "auth.logout",
			Method: http.MethodPost,
			Path:   pathLogout,
			Header: refreshCookie(rec.RefreshToken),
		})
		if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auth.logout.backend_failed")
		}
	}

	if rec.RememberedEmail != "" {
		kept := session.Record{RememberedEmail: rec.RememberedEmail, CreatedAt: rec.CreatedAt}
		if err := s.sessions.Save(ctx, state.ID(), kept); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear session")
		}
		return nil
	}
	if err := s.sessions.Delete(ctx, state.ID()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete session")
	}
	return nil
}

// refreshOutcome is what one backend refresh yields for every request of
// the session waiting on it.
type refreshOutcome struct {
	accessToken  string
	refreshToken string
	revoked      bool
}

// Refresh exchanges the session's refresh token for a new access token.
// Concurrent refreshes of one session share a single backend call and each
// caller's state receives the rotated pair.
func (s *service) Refresh(ctx context.Context, state *session.State) (bool, error) {
	if state == nil || state.ID() == "" || state.Record().RefreshToken == "" {
		return false, nil
	}
	result, err, _ := s.refresh.Do(state.ID(), func() (any, error) {
		return s.doRefresh(ctx, state.ID(), state.Record())
	})
	if err != nil {
		return false, err
	}
	outcome := result.(refreshOutcome)
	switch {
	case outcome.revoked:
		state.ClearTokens()
		return false, nil
	case outcome.accessToken == "":
		return false, nil
	}
	state.Rotate(outcome.accessToken, outcome.refreshToken)
	return true, nil
}

func (s *service) doRefresh(ctx context.Context, sessionID string, rec session.Record) (refreshOutcome, error) {
	body, err := s.backend.Do(ctx, backend.Request{
		Op:        "auth.refresh",
		Method:    http.MethodPost,
		Path:      pathRefresh,
		Body:      map[string]string{"refreshToken": rec.RefreshToken},
		Header:    refreshCookie(rec.RefreshToken),
		Anonymous: true,
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeUnauthorized {
			// the refresh token is dead; drop it so we stop retrying
			rec.AccessToken = ""
			rec.RefreshToken = ""
			if saveErr := s.sessions.Save(ctx, sessionID, rec); saveErr != nil {
				return refreshOutcome{}, errors.Join(err, saveErr)
			}
			return refreshOutcome{revoked: true}, nil
		}
		return refreshOutcome{}, err
	}

	var tokens tokenPair
	if err := backend.Decode(body, &tokens); err != nil {
		return refreshOutcome{}, err
	}
	if tokens.access() == "" {
		return refreshOutcome{}, nil
	}
	rec.AccessToken = tokens.access()
	if next := tokens.refresh(); next != "" {
		rec.RefreshToken = next
	}
	if err := s.sessions.Save(ctx, sessionID, rec); err != nil {
		return refreshOutcome{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refreshed session")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithSessionID(ctx, sessionID), "auth.refresh.rotated")
	}
	return refreshOutcome{accessToken: rec.AccessToken, refreshToken: rec.RefreshToken}, nil
}

func (s *service) Me(ctx context.Context) (*Profile, error) {
	body, err := s.backend.Do(ctx, backend.Request{Op: "auth.me", Method: http.MethodGet, Path: pathMe})
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		User *Profile `json:"user"`
	}
	if err := backend.Decode(body, &wrapper); err == nil && wrapper.User != nil {
		return wrapper.User, nil
	}
	var profile Profile
	if err := backend.Decode(body, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *service) SendOTP(ctx context.Context, req SendOTPRequest) error {
	_, err := s.backend.Do(ctx, backend.Request{
		Op:        "auth.send_otp",
		Method:    http.MethodPost,
		Path:      pathSendOTP,
		Body:      map[string]string{"email": strings.ToLower(strings.TrimSpace(req.Email))},
		Anonymous: true,
	})
	return err
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	_, err := s.backend.Do(ctx, backend.Request{
		Op:        "auth.verify_otp",
		Method:    http.MethodPost,
		Path:      pathVerifyOTP,
		Body:      map[string]string{"email": strings.ToLower(strings.TrimSpace(req.Email)), "otp": strings.TrimSpace(req.OTP)},
		Anonymous: true,
	})
	return err
}

func (s *service) Register(ctx context.Context, payload map[string]any) error {
	if len(payload) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "registration payload is empty")
	}
	_, err := s.backend.Do(ctx, backend.Request{
		Op:        "auth.register",
		Method:    http.MethodPost,
		Path:      pathRegister,
		Body:      payload,
		Anonymous: true,
	})
	return err
}

func refreshCookie(token string) http.Header {
	if token == "" {
		return nil
	}
	cookie := &http.Cookie{Name: refreshCookieName, Value: token}
	return http.Header{"Cookie": []string{cookie.String()}}
}
