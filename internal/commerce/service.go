package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront/internal/normalize"
	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/validation"
)

const (
	pathCart           = "cart"
	pathCartAdd        = "cart/add"
	pathCartUpdate     = "cart/update"
	pathCartRemove     = "cart/remove/"
	pathWishlist       = "wishlist"
	pathWishlistAdd    = "wishlist/add"
	pathWishlistRemove = "wishlist/remove/"
	pathReviews        = "reviews"
	pathReviewCreate   = "reviews/create"
)

// Service wraps the cart, wishlist and review endpoints. Every call is a
// single backend attempt; failures come back as typed errors carrying the
// backend's message. Mutations return the unwrapped backend payload.
type Service interface {
	Cart(ctx context.Context) (normalize.Result[normalize.CartRow], error)
	Wishlist(ctx context.Context) (normalize.Result[normalize.WishlistRow], error)
	Reviews(ctx context.Context, productID string) (normalize.Result[normalize.ReviewRow], error)

	AddToCart(ctx context.Context, productID string, quantity int) (json.RawMessage, error)
	UpdateCartItem(ctx context.Context, productID string, quantity, stock int) (json.RawMessage, error)
	RemoveCartItem(ctx context.Context, productID string) (json.RawMessage, error)
	AddToWishlist(ctx context.Context, productID string) (json.RawMessage, error)
	RemoveFromWishlist(ctx context.Context, productID string) (json.RawMessage, error)
	MoveToCart(ctx context.Context, productID string) (json.RawMessage, error)
	CreateReview(ctx context.Context, input ReviewInput) (json.RawMessage, error)
}

type backendCaller interface {
	Do(ctx context.Context, req backend.Request) ([]byte, error)
}

type service struct {
	backend backendCaller
}

// NewService builds the commerce service on top of the backend client.
func NewService(client backendCaller) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	return &service{backend: client}, nil
}

// ReviewInput is the review form.
type ReviewInput struct {
	ProductID string `json:"productId" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"required,max=2000"`
}

// ClampQuantity keeps a requested quantity within 1..stock. A stock of zero
// or less clamps to 1 and leaves the backend to reject the line.
func ClampQuantity(requested, stock int) int {
	if requested < 1 || stock <= 0 {
		return 1
	}
	if requested > stock {
		return stock
	}
	return requested
}

func (s *service) Cart(ctx context.Context) (normalize.Result[normalize.CartRow], error) {
	body, err := s.backend.Do(ctx, backend.Request{Op: "cart.get", Method: http.MethodGet, Path: pathCart})
	if err != nil {
		return normalize.Result[normalize.CartRow]{Rows: []normalize.CartRow{}, Shape: normalize.ShapeUnknown}, err
	}
	return normalize.Cart(body), nil
}

func (s *service) Wishlist(ctx context.Context) (normalize.Result[normalize.WishlistRow], error) {
	body, err := s.backend.Do(ctx, backend.Request{Op: "wishlist.get", Method: http.MethodGet, Path: pathWishlist})
	if err != nil {
		return normalize.Result[normalize.WishlistRow]{Rows: []normalize.WishlistRow{}, Shape: normalize.ShapeUnknown}, err
	}
	return normalize.Wishlist(body), nil
}

func (s *service) Reviews(ctx context.Context, productID string) (normalize.Result[normalize.ReviewRow], error) {
	empty := normalize.Result[normalize.ReviewRow]{Rows: []normalize.ReviewRow{}, Shape: normalize.ShapeUnknown}
	id := strings.TrimSpace(productID)
	if id == "" {
		return empty, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	body, err := s.backend.Do(ctx, backend.Request{
		Op:     "reviews.list",
		Method: http.MethodGet,
		Path:   pathReviews,
		Query:  url.Values{"productId": []string{id}},
	})
	if err != nil {
		return empty, err
	}
	return normalize.Reviews(body), nil
}

func (s *service) AddToCart(ctx context.Context, productID string, quantity int) (json.RawMessage, error) {
	id, err := requireProductID(productID)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		quantity = 1
	}
	return s.mutate(ctx, "cart.add", http.MethodPost, pathCartAdd, map[string]any{"productId": id, "quantity": quantity})
}

func (s *service) UpdateCartItem(ctx context.Context, productID string, quantity, stock int) (json.RawMessage, error) {
	id, err := requireProductID(productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, "cart.update", http.MethodPut, pathCartUpdate, map[string]any{
		"productId": id,
		"quantity":  ClampQuantity(quantity, stock),
	})
}

func (s *service) RemoveCartItem(ctx context.Context, productID string) (json.RawMessage, error) {
	id, err := requireProductID(productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, "cart.remove", http.MethodDelete, pathCartRemove+url.PathEscape(id), nil)
}

func (s *service) AddToWishlist(ctx context.Context, productID string) (json.RawMessage, error) {
	id, err := requireProductID(productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, "wishlist.add", http.MethodPost, pathWishlistAdd, map[string]any{"productId": id})
}

func (s *service) RemoveFromWishlist(ctx context.Context, productID string) (json.RawMessage, error) {
	id, err := requireProductID(productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, "wishlist.remove", http.MethodDelete, pathWishlistRemove+url.PathEscape(id), nil)
}

// MoveToCart adds a wishlist product to the cart with quantity 1. The
// wishlist entry is left in place.
func (s *service) MoveToCart(ctx context.Context, productID string) (json.RawMessage, error) {
	return s.AddToCart(ctx, productID, 1)
}

func (s *service) CreateReview(ctx context.Context, input ReviewInput) (json.RawMessage, error) {
	input.ProductID = strings.TrimSpace(input.ProductID)
	input.Comment = strings.TrimSpace(input.Comment)
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	return s.mutate(ctx, "reviews.create", http.MethodPost, pathReviewCreate, input)
}

func (s *service) mutate(ctx context.Context, op, method, path string, body any) (json.RawMessage, error) {
	raw, err := s.backend.Do(ctx, backend.Request{Op: op, Method: method, Path: path, Body: body})
	if err != nil {
		return nil, err
	}
	payload := backend.Unwrap(raw)
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, nil
	}
	return json.RawMessage(payload), nil
}

func requireProductID(productID string) (string, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
			WithDetails(map[string]string{"productId": validation.MessageRequired})
	}
	return id, nil
}
