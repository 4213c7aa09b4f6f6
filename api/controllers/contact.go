package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/contact"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/validation"
)

// ContactPage is the data for the contact template.
type ContactPage struct {
	Form   contact.Message
	Errors map[string]string
	Sent   bool
}

func ContactForm(v Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, v, logg, http.StatusOK, "contact", "Contact us", ContactPage{Sent: r.URL.Query().Get("sent") == "1"})
	}
}

// ContactSubmit posts the form. Invalid input re-renders with the typed
// values kept.
func ContactSubmit(svc contact.Service, v Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			render(w, r, v, logg, http.StatusBadRequest, "contact", "Contact us", ContactPage{})
			return
		}
		msg := contact.Message{
			Name:    validators.SanitizeString(r.PostFormValue("name"), 120),
			Email:   validators.SanitizeString(r.PostFormValue("email"), 254),
			Phone:   validators.SanitizeString(r.PostFormValue("phone"), 32),
			Subject: validators.SanitizeString(r.PostFormValue("subject"), 200),
			Message: validators.SanitizeString(r.PostFormValue("message"), 5000),
		}
		if err := svc.Submit(r.Context(), msg); err != nil {
			data := ContactPage{Form: msg, Errors: validation.Fields(err)}
			if len(data.Errors) == 0 {
				data.Errors = map[string]string{"message": publicMessage(err)}
			}
			render(w, r, v, logg, http.StatusUnprocessableEntity, "contact", "Contact us", data)
			return
		}
		http.Redirect(w, r, "/contact?sent=1", http.StatusSeeOther)
	}
}

func ContactJSON(svc contact.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body contact.Message
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Submit(r.Context(), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]bool{"sent": true})
	}
}
