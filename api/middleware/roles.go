package middleware

import (
	"net/http"

	"github.com/angelmondragon/storefront/internal/session"
	pkgAuth "github.com/angelmondragon/storefront/pkg/auth"
)

// RequireRole gates dashboard pages by the role carried in the access token.
// Anonymous browsers go to login; signed-in users with another role get 403.
func RequireRole(forbidden http.Handler, roles ...pkgAuth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := session.IdentityFromContext(r.Context())
			if !identity.IsAuthenticated {
				http.Redirect(w, r, LoginRedirect(r.URL.RequestURI()), http.StatusFound)
				return
			}
			if !identity.HasRole(roles...) {
				if forbidden != nil {
					forbidden.ServeHTTP(w, r)
					return
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
