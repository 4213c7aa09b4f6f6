package notifications

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront/internal/normalize"
	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

const (
	pathList        = "notification"
	pathUnreadCount = "notification/unread-count"
	pathReadAll     = "notification/read-all"

	defaultLimit = 20
)

// Service defines notification list/read operations.
type Service interface {
	List(ctx context.Context, params ListParams) (normalize.Result[normalize.Notification], error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context) error
}

type backendCaller interface {
	Do(ctx context.Context, req backend.Request) ([]byte, error)
}

type service struct {
	backend backendCaller
}

// ListParams configures paging for notifications.
type ListParams struct {
	Page       int
	Limit      int
	UnreadOnly bool
}

// NewService wires notifications dependencies.
func NewService(client backendCaller) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend client required")
	}
	return &service{backend: client}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (normalize.Result[normalize.Notification], error) {
	query := url.Values{}
	pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize(defaultLimit).Apply(query)
	if params.UnreadOnly {
		query.Set("unread", "true")
	}

	body, err := s.backend.Do(ctx, backend.Request{Op: "notifications.list", Method: http.MethodGet, Path: pathList, Query: query})
	if err != nil {
		return normalize.Result[normalize.Notification]{Rows: []normalize.Notification{}, Shape: normalize.ShapeUnknown}, err
	}
	return normalize.Notifications(body), nil
}

func (s *service) UnreadCount(ctx context.Context) (int, error) {
	body, err := s.backend.Do(ctx, backend.Request{Op: "notifications.unread_count", Method: http.MethodGet, Path: pathUnreadCount})
	if err != nil {
		return 0, err
	}
	return normalize.Count(body), nil
}

func (s *service) MarkRead(ctx context.Context, notificationID string) error {
	id := strings.TrimSpace(notificationID)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	_, err := s.backend.Do(ctx, backend.Request{
		Op:     "notifications.mark_read",
		Method: http.MethodPatch,
		Path:   fmt.Sprintf("%s/%s/read", pathList, url.PathEscape(id)),
	})
	return err
}

func (s *service) MarkAllRead(ctx context.Context) error {
	_, err := s.backend.Do(ctx, backend.Request{Op: "notifications.mark_all_read", Method: http.MethodPatch, Path: pathReadAll})
	return err
}
