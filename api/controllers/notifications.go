package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/broadcast"
	"github.com/angelmondragon/storefront/internal/normalize"
	"github.com/angelmondragon/storefront/internal/notifications"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// DashboardPage is the data for the dashboard template.
type DashboardPage struct {
	Profile       *auth.Profile
	Notifications []normalize.Notification
	Unread        int
	Error         string
}

// Dashboard renders the signed-in landing page. Role specific dashboards
// share the template and are gated by the router.
func Dashboard(accounts auth.Service, notes notifications.Service, title string, v Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireLogin(w, r) {
			return
		}
		var (
			data    DashboardPage
			profile *auth.Profile
			list    normalize.Result[normalize.Notification]
			unread  int
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			profile, err = accounts.Me(ctx)
			return err
		})
		g.Go(func() error {
			var err error
			list, err = notes.List(ctx, notifications.ListParams{Page: 1, Limit: 10})
			return err
		})
		g.Go(func() error {
			var err error
			unread, err = notes.UnreadCount(ctx)
			return err
		})
		if err := g.Wait(); err != nil {
			data.Error = publicMessage(err)
		}
		data.Profile = profile
		data.Notifications = list.Rows
		data.Unread = unread
		render(w, r, v, logg, http.StatusOK, "dashboard", title, data)
	}
}

func NotificationReadForm(notes notifications.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireLogin(w, r) {
			return
		}
		if err := notes.MarkRead(r.Context(), chi.URLParam(r, "notificationId")); err != nil {
			setFlash(w, publicMessage(err))
		} else {
			publish(r.Context(), pub, logg, broadcast.TopicNotifications)
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

func NotificationsReadAllForm(notes notifications.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireLogin(w, r) {
			return
		}
		if err := notes.MarkAllRead(r.Context()); err != nil {
			setFlash(w, publicMessage(err))
		} else {
			publish(r.Context(), pub, logg, broadcast.TopicNotifications)
			setFlash(w, "All notifications marked as read")
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

// NotificationsJSON lists notifications with page, limit and unread filters.
func NotificationsJSON(notes notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := notes.List(r.Context(), notifications.ListParams{
			Page:       page,
			Limit:      limit,
			UnreadOnly: r.URL.Query().Get("unread") == "true",
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"items":     result.Rows,
			"page":      page,
			"limit":     limit,
			"malformed": result.Malformed(),
		})
	}
}

func UnreadCountJSON(notes notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := notes.UnreadCount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"count": count})
	}
}

func NotificationReadJSON(notes notifications.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "notificationId")
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "notification id is required"))
			return
		}
		if err := notes.MarkRead(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		publish(r.Context(), pub, logg, broadcast.TopicNotifications)
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

func NotificationsReadAllJSON(notes notifications.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := notes.MarkAllRead(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		publish(r.Context(), pub, logg, broadcast.TopicNotifications)
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}
