package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/broadcast"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/validation"
)

// ReviewCreateForm posts the product page review form. Validation errors
// re-render the product page with the comment kept.
func ReviewCreateForm(svc commerce.Service, products catalog.Service, v Renderer, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireLogin(w, r) {
			return
		}
		productID := chi.URLParam(r, "productId")
		back := "/products/" + url.PathEscape(productID) + "#reviews"
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}

		input := commerce.ReviewInput{
			ProductID: productID,
			Rating:    formInt(r, "rating", 0),
			Comment:   r.PostFormValue("comment"),
		}
		_, err := svc.CreateReview(r.Context(), input)
		if err == nil {
			publish(r.Context(), pub, logg, broadcast.TopicReviews)
			setFlash(w, "Thanks for your review")
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}

		fields := validation.Fields(err)
		if len(fields) == 0 {
			setFlash(w, publicMessage(err))
			http.Redirect(w, r, back, http.StatusSeeOther)
			return
		}
		detail, loadErr := products.Product(r.Context(), productID)
		if loadErr != nil {
			renderError(w, r, v, logg, loadErr)
			return
		}
		render(w, r, v, logg, http.StatusUnprocessableEntity, "product", detail.Product.Name, ProductPage{
			Detail:        detail,
			ReviewErrors:  fields,
			ReviewComment: strings.TrimSpace(input.Comment),
		})
	}
}

func ReviewsJSON(svc commerce.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Reviews(r.Context(), r.URL.Query().Get("productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": result.Rows, "malformed": result.Malformed()})
	}
}

func ReviewCreateJSON(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body commerce.ReviewInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload, err := svc.CreateReview(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		publish(r.Context(), pub, logg, broadcast.TopicReviews)
		responses.WriteSuccessStatus(w, http.StatusCreated, payload)
	}
}
