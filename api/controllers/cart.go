package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/broadcast"
	"github.com/angelmondragon/storefront/internal/commerce"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// CartPage is the data for the cart template.
type CartPage struct {
	Summary commerce.CartSummary
	Error   string
}

type cartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1"`
	Stock     int    `json:"stock" validate:"omitempty,min=0"`
}

// Cart renders the cart page.
func Cart(svc commerce.Service, v Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireLogin(w, r) {
			return
		}
		result, err := svc.Cart(r.Context())
		data := CartPage{Summary: commerce.Summarize(result)}
		if err != nil {
			data.Error = publicMessage(err)
		}
		render(w, r, v, logg, http.StatusOK, "cart", "Your cart", data)
	}
}

// CartAddForm handles the add-to-cart buttons on product pages.
func CartAddForm(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireLogin(w, r) {
			return
		}
		if err := r.ParseForm(); err != nil {
			setFlash(w, "Could not read the form")
			redirectBack(w, r, "/shop")
			return
		}
		if _, err := svc.AddToCart(r.Context(), r.PostFormValue("productId"), formInt(r, "quantity", 1)); err != nil {
			setFlash(w, publicMessage(err))
			redirectBack(w, r, "/shop")
			return
		}
		publish(r.Context(), pub, logg, broadcast.TopicCart)
		setFlash(w, "Added to cart")
		redirectBack(w, r, "/cart")
	}
}

// CartUpdateForm changes a line quantity, clamped to the product stock.
func CartUpdateForm(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireLogin(w, r) {
			return
		}
		if err := r.ParseForm(); err != nil {
			setFlash(w, "Could not read the form")
			http.Redirect(w, r, "/cart", http.StatusSeeOther)
			return
		}
		_, err := svc.UpdateCartItem(r.Context(), r.PostFormValue("productId"), formInt(r, "quantity", 1), formInt(r, "stock", 0))
		if err != nil {
			setFlash(w, publicMessage(err))
		} else {
			publish(r.Context(), pub, logg, broadcast.TopicCart)
		}
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
	}
}

func CartRemoveForm(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireLogin(w, r) {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, "/cart", http.StatusSeeOther)
			return
		}
		if _, err := svc.RemoveCartItem(r.Context(), r.PostFormValue("productId")); err != nil {
			setFlash(w, publicMessage(err))
		} else {
			publish(r.Context(), pub, logg, broadcast.TopicCart)
			setFlash(w, "Removed from cart")
		}
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
	}
}

// CartJSON returns the normalized cart with totals.
func CartJSON(svc commerce.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Cart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary := commerce.Summarize(result)
		responses.WriteSuccess(w, map[string]any{
			"items":     summary.Lines,
			"count":     summary.ItemCount,
			"subtotal":  summary.Subtotal.StringFixed(2),
			"formatted": summary.SubtotalText(),
			"malformed": summary.Malformed,
		})
	}
}

// CartSummaryJSON feeds the header badge.
func CartSummaryJSON(svc commerce.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.Cart(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary := commerce.Summarize(result)
		responses.WriteSuccess(w, map[string]any{
			"count":    summary.ItemCount,
			"subtotal": summary.SubtotalText(),
		})
	}
}

func CartAddJSON(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload, err := svc.AddToCart(r.Context(), body.ProductID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		publish(r.Context(), pub, logg, broadcast.TopicCart)
		responses.WriteSuccess(w, payload)
	}
}

func CartUpdateJSON(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body cartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload, err := svc.UpdateCartItem(r.Context(), body.ProductID, body.Quantity, body.Stock)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		publish(r.Context(), pub, logg, broadcast.TopicCart)
		responses.WriteSuccess(w, payload)
	}
}

func CartRemoveJSON(svc commerce.Service, pub Publisher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID := chi.URLParam(r, "productId")
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}
		payload, err := svc.RemoveCartItem(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		publish(r.Context(), pub, logg, broadcast.TopicCart)
		responses.WriteSuccess(w, payload)
	}
}
