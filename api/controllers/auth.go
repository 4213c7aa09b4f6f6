package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/validation"
)

const afterLoginPath = "/dashboard"

// LoginPage is the data for the login template.
type LoginPage struct {
	Email      string
	Redirect   string
	RememberMe bool
	Errors     map[string]string
	Error      string
}

// LoginForm renders the login page, pre-filling a remembered email.
func LoginForm(v Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := session.FromContext(r.Context())
		redirect := middleware.SafeRedirect(r.URL.Query().Get("redirect"), "")
		if state.Identity().IsAuthenticated {
			http.Redirect(w, r, middleware.SafeRedirect(redirect, afterLoginPath), http.StatusFound)
			return
		}
		email := state.Record().RememberedEmail
		render(w, r, v, logg, http.StatusOK, "login", "Log in", LoginPage{
			Email:      email,
			Redirect:   redirect,
			RememberMe: email != "",
		})
	}
}

// LoginSubmit handles the login form post.
func LoginSubmit(svc auth.Service, cfg config.SessionConfig, v Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			renderError(w, r, v, logg, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form"))
			return
		}
		req := auth.LoginRequest{
			Email:      strings.TrimSpace(r.PostFormValue("email")),
			Password:   r.PostFormValue("password"),
			RememberMe: r.PostFormValue("rememberMe") == "true",
		}
		page := LoginPage{
			Email:      req.Email,
			Redirect:   middleware.SafeRedirect(r.PostFormValue("redirect"), ""),
			RememberMe: req.RememberMe,
		}
		if err := validation.Struct(req); err != nil {
			page.Errors = validation.Fields(err)
			render(w, r, v, logg, http.StatusUnprocessableEntity, "login", "Log in", page)
			return
		}

		result, err := svc.Login(r.Context(), req, session.FromContext(r.Context()))
		if err != nil {
			page.Error = loginFailureMessage(err)
			status := pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).HTTPStatus
			render(w, r, v, logg, status, "login", "Log in", page)
			return
		}
		setSessionCookies(w, cfg, result.SessionID)
		http.Redirect(w, r, middleware.SafeRedirect(page.Redirect, afterLoginPath), http.StatusSeeOther)
	}
}

// LogoutSubmit ends the session and returns to the home page.
func LogoutSubmit(svc auth.Service, cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := session.FromContext(r.Context())
		remembered := state.Record().RememberedEmail != ""
		if err := svc.Logout(r.Context(), state); err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "auth.logout.failed")
		}
		clearSessionCookies(w, cfg, remembered)
		setFlash(w, "You have been logged out")
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func LoginJSON(svc auth.Service, cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Login(r.Context(), req, session.FromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		setSessionCookies(w, cfg, result.SessionID)
		responses.WriteSuccess(w, map[string]any{"user": result.Identity})
	}
}

func LogoutJSON(svc auth.Service, cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := session.FromContext(r.Context())
		remembered := state.Record().RememberedEmail != ""
		if err := svc.Logout(r.Context(), state); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		clearSessionCookies(w, cfg, remembered)
		responses.WriteSuccess(w, map[string]bool{"loggedOut": true})
	}
}

// RefreshJSON rotates the session's access token on demand.
func RefreshJSON(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refreshed, err := svc.Refresh(r.Context(), session.FromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !refreshed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"user": session.IdentityFromContext(r.Context())})
	}
}

func MeJSON(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := svc.Me(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// SessionJSON reports the identity known to the gateway without calling the backend.
func SessionJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, session.IdentityFromContext(r.Context()))
	}
}

func SendOTPJSON(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.SendOTPRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SendOTP(r.Context(), req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"sent": true})
	}
}

func VerifyOTPJSON(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req auth.VerifyOTPRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.VerifyOTP(r.Context(), req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"verified": true})
	}
}

func setSessionCookies(w http.ResponseWriter, cfg config.SessionConfig, sessionID string) {
	http.SetCookie(w, middleware.SessionCookie(cfg, sessionID))
	http.SetCookie(w, middleware.AccessMarkerCookie(cfg, true))
}

// clearSessionCookies drops the access marker. The session cookie survives
// when it still carries a remembered email.
func clearSessionCookies(w http.ResponseWriter, cfg config.SessionConfig, keepSession bool) {
	if !keepSession {
		http.SetCookie(w, middleware.SessionCookie(cfg, ""))
	}
	http.SetCookie(w, middleware.AccessMarkerCookie(cfg, false))
}

func loginFailureMessage(err error) string {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeUnauthorized, pkgerrors.CodeNotFound:
		return "Invalid email or password"
	}
	return publicMessage(err)
}
