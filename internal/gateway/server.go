package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", g.handleHealth())

	if g.metrics != nil {
		r.Method(http.MethodGet, "/metrics", g.metrics)
	}

	// /status exposes journal contents; only mounted behind a token.
	if g.config.Token != "" {
		r.Group(func(r chi.Router) {
			r.Use(bearerAuth(g.config.Token, g.logger))
			r.Get("/status", g.handleStatus())
		})
	}

	return r
}
