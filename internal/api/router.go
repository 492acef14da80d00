package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Harshitk-cp/lorekeeper/internal/api/handlers"
	mw "github.com/Harshitk-cp/lorekeeper/internal/api/middleware"
	"github.com/Harshitk-cp/lorekeeper/internal/bootstrap"
	"github.com/Harshitk-cp/lorekeeper/internal/buildconfig"
	"github.com/Harshitk-cp/lorekeeper/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports database liveness for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Services  *bootstrap.Services
	startTime time.Time
}

func NewApp(svcs *bootstrap.Services, db Pinger, logger *zap.Logger) *App {
	userHandler := handlers.NewUserHandler(svcs.Stores.Users)
	entryHandler := handlers.NewEntryHandler(svcs.Compiler, svcs.Entries, svcs.Promotion, svcs.Incremental)
	recallHandler := handlers.NewRecallHandler(svcs.Recall)
	scopeHandler := handlers.NewScopeHandler(svcs.Symbols)
	graphHandler := handlers.NewGraphHandler(svcs.Graph)
	analysisHandler := handlers.NewAnalysisHandler(svcs.Beliefs, svcs.Diffs, svcs.Auditor)

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		Services:  svcs,
		startTime: time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Metrics)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", app.healthHandler(db))
	r.Handle("/metrics", promhttp.Handler())

	// bootstrap endpoint, no auth
	r.Post("/v1/users", userHandler.Create)

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(svcs.Stores.Users))

		r.Route("/entries", func(r chi.Router) {
			r.Post("/", entryHandler.Compile)
			r.Get("/", entryHandler.List)
			r.Post("/recompile", entryHandler.Recompile)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", entryHandler.GetByID)
				r.Delete("/", entryHandler.Deprecate)
				r.Post("/promote", entryHandler.Promote)
			})
		})

		r.Get("/recall", recallHandler.Recall)
		r.Get("/graph/affected", graphHandler.Affected)

		r.Route("/scopes", func(r chi.Router) {
			r.Post("/", scopeHandler.Enter)
			r.Post("/{id}/symbols", scopeHandler.DefineSymbol)
			r.Get("/{id}/resolve", scopeHandler.Resolve)
		})

		r.Get("/beliefs", analysisHandler.ListBeliefs)
		r.Post("/beliefs/rebuild", analysisHandler.RebuildBeliefs)
		r.Get("/diffs", analysisHandler.ListDiffs)
		r.Post("/diffs/detect", analysisHandler.DetectDiffs)
		r.Get("/invariants", analysisHandler.Audit)
	})

	return app
}

func (app *App) healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := buildconfig.Get()
		resp := map[string]any{
			"version":        info.Version,
			"commit":         info.Commit,
			"go_version":     info.GoVersion,
			"uptime_seconds": time.Since(app.startTime).Seconds(),
		}
		status := http.StatusOK
		if err := db.Ping(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			resp["status"] = "error"
			resp["error"] = err.Error()
		} else {
			resp["status"] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
