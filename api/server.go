/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (zap)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for browser frontends

ROUTE GROUPS:
  /api/servants/*       Servant catalog
  /api/quests           Quest catalog
  /api/presets          Quick-list presets
  /api/bond/*           Calculations
  /api/admin/*          Catalog refresh
  /                     Endpoint index

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured.
// An empty origins list allows every origin.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Catalog routes
		r.Route("/servants", func(r chi.Router) {
			r.Get("/", h.ListServants)
			r.Get("/{id}", h.GetServant)
		})
		r.Get("/quests", h.ListQuests)
		r.Get("/presets", h.ListPresets)
		r.Get("/frontline-options", h.ListFrontlineOptions)

		// Calculation routes
		r.Route("/bond", func(r chi.Router) {
			r.Post("/points-needed", h.PointsNeeded)
			r.Post("/modifiers", h.ApplyModifiers)
			r.Post("/estimate", h.Estimate)
			r.Post("/plan", h.Plan)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/refresh", h.TriggerRefresh)
			r.Get("/refreshes", h.ListRefreshes)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Bond Calculator</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Bond Calculator API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/servants">/api/servants</a> - Search servants</li>
<li><a href="/api/quests?farmable=true">/api/quests</a> - List quests</li>
<li><a href="/api/presets">/api/presets</a> - Quest presets</li>
<li>POST /api/bond/plan - Runs, AP and days to a target bond level</li>
</ul>
</body>
</html>`))
	})

	return r
}

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("http request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
