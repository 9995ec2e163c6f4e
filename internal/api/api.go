package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/folkvang/folkvang/internal/catalog"
	"github.com/folkvang/folkvang/internal/records"
	"github.com/folkvang/folkvang/internal/selection"
)

// API is the main struct that holds dependencies and the router.
// It follows the Dependency Injection pattern to facilitate testing.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	// catalog owns the persisted segment collection.
	catalog *catalog.Service

	// selection tracks the active rule.
	selection *selection.Coordinator

	// source serves customer snapshots for previews, member listings, and
	// quick segment aggregates.
	source records.Source

	// apiKeyHash is the SHA-256 hash of the valid API key.
	// Used for authentication in production environments.
	apiKeyHash string

	// skipAuth disables authentication when true (test/dev environments only).
	// Production environments should always set this to false.
	skipAuth bool
}

// NewAPI creates a new API instance with authentication enabled by default.
// The apiKeyHash parameter must be the SHA-256 hash of the API key.
func NewAPI(cat *catalog.Service, sel *selection.Coordinator, src records.Source, apiKeyHash string) *API {
	return NewAPIWithConfig(cat, sel, src, apiKeyHash, false)
}

// NewAPIWithConfig creates a new API instance with explicit control over
// authentication. This constructor is primarily used in tests to disable
// authentication.
//
// Panics if:
//   - cat, sel, or src are nil
//   - apiKeyHash is empty when skipAuth is false
func NewAPIWithConfig(cat *catalog.Service, sel *selection.Coordinator, src records.Source, apiKeyHash string, skipAuth bool) *API {
	if cat == nil {
		panic("api: catalog service cannot be nil")
	}
	if sel == nil {
		panic("api: selection coordinator cannot be nil")
	}
	if src == nil {
		panic("api: record source cannot be nil")
	}
	if !skipAuth && apiKeyHash == "" {
		panic("api: apiKeyHash cannot be empty when authentication is enabled")
	}

	a := &API{
		Router:     chi.NewRouter(),
		catalog:    cat,
		selection:  sel,
		source:     src,
		apiKeyHash: apiKeyHash,
		skipAuth:   skipAuth,
	}

	a.configureRoutes()
	return a
}

// configureRoutes registers the global middleware stack and API endpoints.
func (a *API) configureRoutes() {
	// 1. Global Middleware Stack
	// RequestID: Adds a unique ID to each request context (essential for tracing).
	a.Router.Use(middleware.RequestID)
	// RealIP: correctly sets the IP if behind a proxy/LB.
	a.Router.Use(middleware.RealIP)
	// Logger: Logs request method, path, status, and duration.
	a.Router.Use(RequestLogger)
	// Metrics: records latency and outcome per route pattern.
	a.Router.Use(RequestMetrics)
	// Recoverer: Prevents the server from crashing on panics, returning 500 instead.
	a.Router.Use(middleware.Recoverer)
	// Content-Type: Forces JSON content type for API responses.
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	// 2. Public Routes (no authentication required)
	a.Router.Get("/health", a.handleHealthCheck)

	// 3. Protected API V1 Routes (authentication required)
	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Use(a.authenticateAPIKey)

		r.Route("/segments", func(r chi.Router) {
			r.Post("/", a.handleCreateSegment)
			r.Get("/", a.handleListSegments)
			r.Post("/preview", a.handlePreview)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.handleGetSegment)
				r.Patch("/", a.handleUpdateSegment)
				r.Delete("/", a.handleDeleteSegment)
				r.Post("/refresh", a.handleRefreshSegment)
				r.Get("/members", a.handleListMembers)
			})
		})

		r.Get("/quick-segments", a.handleListQuickSegments)

		r.Route("/selection", func(r chi.Router) {
			r.Get("/", a.handleGetSelection)
			r.Put("/", a.handleSelect)
			r.Delete("/", a.handleClearSelection)
		})
	})
}

// handleHealthCheck verifies if the service is able to serve HTTP traffic.
// Deep dependency checks (database, redis) live on the observability server.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
