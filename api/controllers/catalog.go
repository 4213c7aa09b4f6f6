package controllers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/normalize"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

const (
	searchMaxLen  = 120
	featuredLimit = 8
)

// HomePage is the data for the landing page.
type HomePage struct {
	Settings map[string]any
	Featured []normalize.Product
}

// ShopPage is the data for the product listing.
type ShopPage struct {
	Products   []normalize.Product
	Categories []normalize.Category
	Query      catalog.ProductQuery
	HasNext    bool
	NextURL    string
	PrevURL    string
	Error      string
}

// ProductPage is the data for a product detail page.
type ProductPage struct {
	Detail        *catalog.ProductDetail
	ReviewErrors  map[string]string
	ReviewComment string
}

func productQuery(r *http.Request) (catalog.ProductQuery, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
	if err != nil {
		return catalog.ProductQuery{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", 12, 1, 100)
	if err != nil {
		return catalog.ProductQuery{}, err
	}
	q := r.URL.Query()
	return catalog.ProductQuery{
		Search:     validators.SanitizeString(q.Get("search"), searchMaxLen),
		CategoryID: strings.TrimSpace(q.Get("categoryId")),
		Sort:       strings.TrimSpace(q.Get("sort")),
		Page:       page,
		Limit:      limit,
	}, nil
}

func shopURL(query catalog.ProductQuery, page int) string {
	values := url.Values{}
	if query.Search != "" {
		values.Set("search", query.Search)
	}
	if query.CategoryID != "" {
		values.Set("categoryId", query.CategoryID)
	}
	if query.Sort != "" {
		values.Set("sort", query.Sort)
	}
	values.Set("page", strconv.Itoa(page))
	return "/shop?" + values.Encode()
}

// Home renders the landing page. Settings and featured products are
// fetched concurrently and either may be missing.
func Home(svc catalog.Service, v Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := HomePage{Settings: map[string]any{}}
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			settings, err := svc.PlatformSettings(ctx)
			if err == nil && settings != nil {
				data.Settings = settings
			}
			return nil
		})
		g.Go(func() error {
			products, err := svc.Products(ctx, catalog.ProductQuery{Limit: featuredLimit})
			if err == nil {
				data.Featured = products.Rows
			}
			return nil
		})
		_ = g.Wait()
		render(w, r, v, logg, http.StatusOK, "home", "", data)
	}
}

// Shop renders the filtered product listing.
func Shop(svc catalog.Service, v Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := productQuery(r)
		if err != nil {
			renderError(w, r, v, logg, err)
			return
		}
		if query.Page < 1 {
			query.Page = 1
		}

		data := ShopPage{Query: query, Products: []normalize.Product{}}
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			result, err := svc.Products(ctx, query)
			if err != nil {
				return err
			}
			data.Products = result.Rows
			return nil
		})
		g.Go(func() error {
			// the category filter is optional
			if categories, err := svc.Categories(ctx); err == nil {
				data.Categories = categories.Rows
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			data.Error = publicMessage(err)
		}

		data.HasNext = pagination.Params{Page: query.Page, Limit: query.Limit}.HasNext(len(data.Products))
		data.NextURL = shopURL(query, query.Page+1)
		data.PrevURL = shopURL(query, query.Page-1)
		render(w, r, v, logg, http.StatusOK, "shop", "Shop", data)
	}
}

// ProductDetail renders one product with its reviews.
func ProductDetail(svc catalog.Service, v Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.Product(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			renderError(w, r, v, logg, err)
			return
		}
		render(w, r, v, logg, http.StatusOK, "product", detail.Product.Name, ProductPage{Detail: detail})
	}
}

// ProductsJSON lists products for client widgets.
func ProductsJSON(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := productQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Products(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"items": result.Rows,
			"page":  query.Page,
			"limit": query.Limit,
		})
	}
}

func ProductJSON(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.Product(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"product": detail.Product,
			"reviews": detail.Reviews.Rows,
		})
	}
}

func CategoriesJSON(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Categories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result.Rows)
	}
}

func DistrictsJSON(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Districts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result.Rows)
	}
}

func SettingsJSON(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := svc.PlatformSettings(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if settings == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "settings unavailable"))
			return
		}
		responses.WriteSuccess(w, settings)
	}
}
