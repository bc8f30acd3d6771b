package router

import (
	"context"
	"net/http"
	"time"

	"plumbstore/internal/auth"
	"plumbstore/internal/handler"
	"plumbstore/internal/metrics"
	"plumbstore/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Catalog        *handler.CatalogHandler
	Cart           *handler.CartHandler
	Order          *handler.OrderHandler
	PlumberRequest *handler.PlumberRequestHandler
}

// Pinger reports whether a dependency is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New creates a new HTTP router with all routes and middleware configured.
// m may be nil, in which case no /metrics endpoint is served.
func New(h Handlers, verifier *auth.Verifier, m *metrics.Metrics, db Pinger, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Recovery -> RequestID -> RealIP -> Logging -> CORS -> metrics
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	if m != nil {
		r.Use(m.Middleware)
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				logger.Warn().Err(err).Msg("health check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status": "unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Catalogue reads are public.
		r.Get("/products", h.Catalog.ListProducts)
		r.Get("/products/{id}", h.Catalog.GetProduct)
		r.Get("/categories", h.Catalog.ListCategories)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(verifier, logger))

			r.Route("/cart", func(r chi.Router) {
				r.Post("/", h.Cart.Add)
				r.Delete("/", h.Cart.Clear)
				r.Get("/{id}", h.Cart.List)
				r.Get("/{id}/total", h.Cart.Total)
				r.Patch("/{id}", h.Cart.Update)
				r.Delete("/{id}", h.Cart.Remove)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.Order.Create)
				r.Get("/", h.Order.ListMine)
				r.With(middleware.RequireAdmin).Get("/all", h.Order.ListAll)
				r.Get("/{id}", h.Order.GetByID)
				r.With(middleware.RequireAdmin).Patch("/{id}/status", h.Order.UpdateStatus)
			})

			r.Route("/plumber-requests", func(r chi.Router) {
				r.Post("/", h.PlumberRequest.Create)
				r.Get("/user/{userId}", h.PlumberRequest.ListForUser)
				r.With(middleware.RequireAdmin).Get("/all", h.PlumberRequest.ListAll)
				r.With(middleware.RequireAdmin).Patch("/{id}/status", h.PlumberRequest.UpdateStatus)
				r.Patch("/{id}/rating-comment", h.PlumberRequest.RateAndComment)
			})
		})
	})

	return r
}
