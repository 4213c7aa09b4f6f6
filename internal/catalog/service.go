package catalog

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
	"golang.org/x/sync/errgroup"
)

const (
	pathProducts         = "products"
	pathCategories       = "categories"
	pathDistricts        = "district"
	pathPlatformSettings = "platform-control/settings"
	pathReviews          = "reviews"

	defaultPageSize = 12
)

// ProductQuery filters the product listing.
type ProductQuery struct {
	Search     string
	CategoryID string
	Sort       string
	Page       int
	Limit      int
}

func (q ProductQuery) values() url.Values {
	values := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		values.Set("search", s)
	}
	if c := strings.TrimSpace(q.CategoryID); c != "" {
		values.Set("categoryId", c)
	}
	if s := strings.TrimSpace(q.Sort); s != "" {
		values.Set("sort", s)
	}
	pagination.Params{Page: q.Page, Limit: q.Limit}.Normalize(defaultPageSize).Apply(values)
	return values
}

// ProductDetail is a product together with its reviews.
type ProductDetail struct {
	Product normalize.Product
	Reviews normalize.Result[normalize.ReviewRow]
}

// Service reads the public catalog.
type Service interface {
	Products(ctx context.Context, query ProductQuery) (normalize.Result[normalize.Product], error)
	Product(ctx context.Context, id string) (*ProductDetail, error)
	Categories(ctx context.Context) (normalize.Result[normalize.Category], error)
	Districts(ctx context.Context) (normalize.Result[normalize.District], error)
	PlatformSettings(ctx context.Context) (map[string]any, error)
}

type backendCaller interface {
	Do(ctx context.Context, req backend.Request) ([]byte, error)
}

type service struct {
	backend backendCaller
}

func NewService(client backendCaller) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	return &service{backend: client}, nil
}

func (s *service) get(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	return s.backend.Do(ctx, backend.Request{Op: op, Method: http.MethodGet, Path: path, Query: query})
}

func (s *service) Products(ctx context.Context, query ProductQuery) (normalize.Result[normalize.Product], error) {
	body, err := s.get(ctx, "products.list", pathProducts, query.values())
	if err != nil {
		return normalize.Result[normalize.Product]{Rows: []normalize.Product{}, Shape: normalize.ShapeUnknown}, err
	}
	return normalize.Products(body), nil
}

// Product fetches the product and its reviews concurrently. A failed review
// fetch degrades to an empty review list; a failed product fetch fails the call.
func (s *service) Product(ctx context.Context, id string) (*ProductDetail, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var (
		productBody []byte
		reviewBody  []byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := s.get(gctx, "products.get", pathProducts+"/"+url.PathEscape(trimmed), nil)
		if err != nil {
			return err
		}
		productBody = body
		return nil
	})
	g.Go(func() error {
		body, err := s.get(gctx, "reviews.list", pathReviews, url.Values{"productId": []string{trimmed}})
		if err == nil {
			reviewBody = body
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	product, ok := normalize.SingleProduct(productBody)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &ProductDetail{Product: product, Reviews: normalize.Reviews(reviewBody)}, nil
}

func (s *service) Categories(ctx context.Context) (normalize.Result[normalize.Category], error) {
	body, err := s.get(ctx, "categories.list", pathCategories, nil)
	if err != nil {
		return normalize.Result[normalize.Category]{Rows: []normalize.Category{}, Shape: normalize.ShapeUnknown}, err
	}
	return normalize.Categories(body), nil
}

func (s *service) Districts(ctx context.Context) (normalize.Result[normalize.District], error) {
	body, err := s.get(ctx, "districts.list", pathDistricts, nil)
	if err != nil {
		return normalize.Result[normalize.District]{Rows: []normalize.District{}, Shape: normalize.ShapeUnknown}, err
	}
	return normalize.Districts(body), nil
}

// PlatformSettings returns the backend's platform-control settings object as is.
func (s *service) PlatformSettings(ctx context.Context) (map[string]any, error) {
	body, err := s.get(ctx, "platform.settings", pathPlatformSettings, nil)
	if err != nil {
		return nil, err
	}
	settings, ok := normalize.Object(body)
	if !ok {
		return map[string]any{}, nil
	}
	return settings, nil
}
