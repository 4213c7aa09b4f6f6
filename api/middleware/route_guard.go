package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// ProtectedPrefixes are the page paths that need a signed-in browser.
var ProtectedPrefixes = []string{"/dashboard", "/admin", "/checkout", "/profile", "/orders"}

const loginPath = "/login"

// RouteGuard redirects requests for protected paths without an access token
// cookie to the login page, keeping the original destination in ?redirect=.
func RouteGuard(prefixes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !matchesPrefix(r.URL.Path, prefixes) {
				next.ServeHTTP(w, r)
				return
			}
			if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, LoginRedirect(r.URL.RequestURI()), http.StatusFound)
		})
	}
}

// LoginRedirect builds /login?redirect=<destination>.
func LoginRedirect(destination string) string {
	if destination == "" {
		return loginPath
	}
	return loginPath + "?" + url.Values{"redirect": []string{destination}}.Encode()
}

// SafeRedirect accepts only local absolute paths so ?redirect= cannot send
// the user off-site.
func SafeRedirect(target, fallback string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
