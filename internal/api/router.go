package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/countpkg/internal/api/handler"
	"github.com/sevigo/countpkg/internal/crawler"
	"github.com/sevigo/countpkg/internal/store"
)

// NewRouter creates and configures a new HTTP router with middleware and
// API routes.
func NewRouter(st *store.Store, pool *crawler.Pool, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	statusHandler := handler.NewStatusHandler(pool)
	r.Get("/status", statusHandler.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		packagesHandler := handler.NewPackagesHandler(st, logger)
		r.Get("/packages/{name}", packagesHandler.Handle)

		reposHandler := handler.NewReposHandler(st, logger)
		r.Get("/repos/{owner}/{repo}", reposHandler.Handle)
	})

	return r
}
