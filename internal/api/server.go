// Package api exposes the normalized catalog over HTTP as JSON. It renders
// nothing; front-ends browse the catalog tree and hand stream URLs to a
// player.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamdex/streamdex/internal/config"
	"github.com/streamdex/streamdex/internal/favorites"
	"github.com/streamdex/streamdex/internal/jobs"
	"github.com/streamdex/streamdex/internal/providers"
)

// refresh is expensive upstream; keep it to a handful per minute per IP.
const (
	refreshRateLimit  = 10
	refreshRateWindow = time.Minute
)

// Server is the HTTP API over the published catalog.
type Server struct {
	cfg       *config.Config
	registry  *providers.Registry
	runner    *jobs.Runner
	favorites *favorites.Store
}

func NewServer(cfg *config.Config, registry *providers.Registry, runner *jobs.Runner, favStore *favorites.Store) *Server {
	return &Server{cfg: cfg, registry: registry, runner: runner, favorites: favStore}
}

// Router assembles the route tree with the ingress middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestID)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/providers", s.handleListProviders)
		r.Get("/providers/{slug}", s.handleGetProvider)
		r.With(httprate.Limit(
			refreshRateLimit,
			refreshRateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		)).Post("/providers/{slug}/refresh", s.handleRefreshProvider)

		r.Get("/favorites", s.handleGetFavorites)
		r.Put("/favorites", s.handlePutFavorites)
	})
	return r
}
