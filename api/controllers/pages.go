package controllers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/views"
	"github.com/angelmondragon/storefront/internal/broadcast"
	"github.com/angelmondragon/storefront/internal/session"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const flashCookie = "sf_flash"

// Renderer is the page renderer used by the HTML controllers.
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, page views.Page) error
}

// Publisher announces commerce changes to every listener of the session.
type Publisher interface {
	Publish(ctx context.Context, sig broadcast.Signal) (int, error)
}

func render(w http.ResponseWriter, r *http.Request, v Renderer, logg *logger.Logger, status int, name, title string, data any) {
	page := views.Page{
		Title:    title,
		Identity: session.IdentityFromContext(r.Context()),
		Flash:    popFlash(w, r),
		Path:     r.URL.Path,
		Data:     data,
	}
	if err := v.Render(w, status, name, page); err != nil {
		if logg != nil {
			logg.Error(r.Context(), "page.render_failed", err)
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// ErrorPage is the data for the error template.
type ErrorPage struct {
	Status  int
	Message string
}

func renderError(w http.ResponseWriter, r *http.Request, v Renderer, logg *logger.Logger, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	if logg != nil {
		ctx := logg.WithField(r.Context(), "error_code", string(typed.Code()))
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(ctx, "page.error", err)
		} else {
			logg.Warn(ctx, "page.error")
		}
	}
	render(w, r, v, logg, meta.HTTPStatus, "error", http.StatusText(meta.HTTPStatus), ErrorPage{
		Status:  meta.HTTPStatus,
		Message: publicMessage(typed),
	})
}

// publicMessage is the text shown to the browser for err.
func publicMessage(err error) string {
	return pkgerrors.PublicMessage(err)
}

// setFlash stores a one-shot message shown on the next rendered page.
func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   60,
	})
}

func popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	msg, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return msg
}

// redirectBack sends the browser to the form's redirect field, or fallback.
func redirectBack(w http.ResponseWriter, r *http.Request, fallback string) {
	http.Redirect(w, r, middleware.SafeRedirect(r.PostFormValue("redirect"), fallback), http.StatusSeeOther)
}

// requireLogin redirects anonymous browsers to the login page and reports
// whether the handler should stop.
func requireLogin(w http.ResponseWriter, r *http.Request) bool {
	if session.FromContext(r.Context()).AccessToken() != "" {
		return false
	}
	http.Redirect(w, r, middleware.LoginRedirect(r.URL.RequestURI()), http.StatusFound)
	return true
}

func formInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.PostFormValue(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// publish emits a signal for the caller's session. Delivery problems are
// logged; the mutation already succeeded.
func publish(ctx context.Context, pub Publisher, logg *logger.Logger, topic broadcast.Topic) {
	if pub == nil {
		return
	}
	sig := broadcast.Signal{Topic: topic, SessionID: session.FromContext(ctx).ID()}
	if _, err := pub.Publish(ctx, sig); err != nil && logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{"topic": string(topic), "error": err.Error()}), "broadcast.publish_failed")
	}
}

// Forbidden renders the 403 page for signed-in users without the needed role.
func Forbidden(v Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, v, logg, pkgerrors.New(pkgerrors.CodeForbidden, "You do not have access to this page"))
	}
}

func NotFound(v Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, v, logg, pkgerrors.New(pkgerrors.CodeNotFound, "Page not found"))
	}
}
