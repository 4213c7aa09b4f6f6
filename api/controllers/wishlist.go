package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/broadcast"
	"github.com/angelmondragon/storefront/internal/commerce"
	"github.com/angelmondragon/storefront/internal/normalize"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type WishlistPage struct {
	Rows  []normalize.WishlistRow
	Error string
}

type wishlistRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

func Wishlist(svc commerce.Service, v Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireLogin(w, r) {
			return
		}
		result, err := svc.Wishlist(r.Context())
		data := WishlistPage{Rows: result.Rows}
		if err != nil {
			data.Error = publicMessage(err)
		}
		render(w, r, v, logg, http.StatusOK, "wishlist", "Wishlist", data)
	}
}

func WishlistAddForm(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireLogin(w, r) {
			return
		}
		if err := r.ParseForm(); err != nil {
			redirectBack(w, r, "/wishlist")
			return
		}
		if _, err := svc.AddToWishlist(r.Context(), r.PostFormValue("productId")); err != nil {
			setFlash(w, publicMessage(err))
		} else {
			publish(r.Context(), pub, logg, broadcast.TopicWishlist)
			setFlash(w, "Saved to wishlist")
		}
		redirectBack(w, r, "/wishlist")
	}
}

func WishlistRemoveForm(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireLogin(w, r) {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, "/wishlist", http.StatusSeeOther)
			return
		}
		if _, err := svc.RemoveFromWishlist(r.Context(), r.PostFormValue("productId")); err != nil {
			setFlash(w, publicMessage(err))
		} else {
			publish(r.Context(), pub, logg, broadcast.TopicWishlist)
		}
		http.Redirect(w, r, "/wishlist", http.StatusSeeOther)
	}
}

// WishlistMoveToCartForm adds the product to the cart. The wishlist entry stays.
func WishlistMoveToCartForm(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireLogin(w, r) {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, "/wishlist", http.StatusSeeOther)
			return
		}
		if _, err := svc.MoveToCart(r.Context(), r.PostFormValue("productId")); err != nil {
			setFlash(w, publicMessage(err))
		} else {
			publish(r.Context(), pub, logg, broadcast.TopicCart)
			setFlash(w, "Added to cart")
		}
		http.Redirect(w, r, "/wishlist", http.StatusSeeOther)
	}
}

func WishlistJSON(svc commerce.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Wishlist(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": result.Rows, "malformed": result.Malformed()})
	}
}

func WishlistSummaryJSON(svc commerce.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Wishlist(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"count": len(result.Rows)})
	}
}

func WishlistAddJSON(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body wishlistRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload, err := svc.AddToWishlist(r.Context(), body.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		publish(r.Context(), pub, logg, broadcast.TopicWishlist)
		responses.WriteSuccess(w, payload)
	}
}

func WishlistRemoveJSON(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := svc.RemoveFromWishlist(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		publish(r.Context(), pub, logg, broadcast.TopicWishlist)
		responses.WriteSuccess(w, payload)
	}
}

func WishlistMoveToCartJSON(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := svc.MoveToCart(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		publish(r.Context(), pub, logg, broadcast.TopicCart)
		responses.WriteSuccess(w, payload)
	}
}
