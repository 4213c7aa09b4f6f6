package api

import (
	"net/http"
	"time"

	"github.com/angelmondragon/storefront/pkg/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	idleTimeout       = 120 * time.Second
)

// NewServer returns the HTTP server that cmd/storefront runs. There is no
// write timeout: the event stream holds responses open for as long as the
// browser stays connected.
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
	}
}
