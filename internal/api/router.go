package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/tubegrab/internal/api/handler"
	mw "github.com/iconidentify/tubegrab/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
//
// There is deliberately no global timeout middleware: download
// responses stream for as long as the transcode runs.
func NewRouter(
	mediaHandler *handler.MediaHandler,
	historyHandler *handler.HistoryHandler,
	healthHandler *handler.HealthHandler,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS)

	// Health endpoints
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/info", mediaHandler.Info)
		r.Get("/download", mediaHandler.Download)
		r.Get("/history", historyHandler.List)
	})

	return r
}
