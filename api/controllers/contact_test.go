package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/contact"
	"github.com/angelmondragon/storefront/internal/normalize"
	"github.com/angelmondragon/storefront/internal/notifications"
	pkgAuth "github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/validation"
)

type validatingContact struct {
	sent []contact.Message
}

func (c *validatingContact) Submit(_ context.Context, msg contact.Message) error {
	if err := validation.Struct(msg); err != nil {
		return err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func TestContactSubmitKeepsInputOnValidationError(t *testing.T) {
	svc := &validatingContact{}
	req := formRequest("/contact", url.Values{"name": {"Ada"}, "email": {"not-an-email"}, "subject": {"Hi"}, "message": {"Hello there, friends"}})
	rec := httptest.NewRecorder()
	ContactSubmit(svc, testRenderer(t), testLogger())(rec, anonymous(req))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="Ada"`)
	assert.Contains(t, body, "field-error")
	assert.Empty(t, svc.sent)
}

func TestContactSubmitRedirectsOnSuccess(t *testing.T) {
	svc := &validatingContact{}
	req := formRequest("/contact", url.Values{"name": {" Ada "}, "email": {"ada@example.com"}, "subject": {"Hi"}, "message": {"Hello there, friends"}})
	rec := httptest.NewRecorder()
	ContactSubmit(svc, testRenderer(t), testLogger())(rec, anonymous(req))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/contact?sent=1", rec.Header().Get("Location"))
	require.Len(t, svc.sent, 1)
	assert.Equal(t, "Ada", svc.sent[0].Name)
}

type fakeAccounts struct {
	auth.Service
}

func (fakeAccounts) Me(context.Context) (*auth.Profile, error) {
	return &auth.Profile{ID: "u1", Name: "Ada Lovelace", Email: "ada@example.com", Role: "student"}, nil
}

type fakeNotes struct {
	notifications.Service
	marked []string
}

func (f *fakeNotes) List(context.Context, notifications.ListParams) (normalize.Result[normalize.Notification], error) {
	return normalize.Result[normalize.Notification]{Rows: []normalize.Notification{
		{ID: "n1", Title: "Tutor assigned", Body: "A tutor accepted your request"},
	}}, nil
}

func (f *fakeNotes) UnreadCount(context.Context) (int, error) { return 1, nil }

func (f *fakeNotes) MarkRead(_ context.Context, id string) error {
	f.marked = append(f.marked, id)
	return nil
}

func TestDashboardShowsProfileAndNotifications(t *testing.T) {
	rec := httptest.NewRecorder()
	req := signedIn(t, httptest.NewRequest(http.MethodGet, "/dashboard", nil), "sid-1", pkgAuth.RoleStudent)
	Dashboard(fakeAccounts{}, &fakeNotes{}, "Dashboard", testRenderer(t), testLogger())(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, "Tutor assigned")
	assert.Contains(t, body, `action="/notifications/n1/read"`)
}

func TestNotificationReadFormPublishes(t *testing.T) {
	notes := &fakeNotes{}
	pub := &fakePublisher{}
	req := withURLParam(signedIn(t, formRequest("/notifications/n1/read", url.Values{}), "sid-1", pkgAuth.RoleStudent), "notificationId", "n1")
	rec := httptest.NewRecorder()
	NotificationReadForm(notes, pub, testLogger())(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"n1"}, notes.marked)
	require.Len(t, pub.signals, 1)
	assert.Equal(t, "notifications", string(pub.signals[0].Topic))
}
