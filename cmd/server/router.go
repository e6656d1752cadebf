package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/worksheetgen/internal/api"
	apiMiddleware "github.com/phrazzld/worksheetgen/internal/api/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	r.Use(middleware.Recoverer)

	worksheetHandler := api.NewWorksheetHandler(app.worksheets, app.config.Server.MaxUploadBytes, app.logger)
	cacheHandler := api.NewCacheHandler(app.cache, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", worksheetHandler.Upload)
		r.Get("/worksheets", worksheetHandler.ListWorksheets)
		r.Get("/worksheets/{id}", worksheetHandler.GetWorksheet)
		r.Get("/worksheets/{id}/tasks", worksheetHandler.GetTasks)
		r.Post("/worksheets/{id}/regenerate", worksheetHandler.Regenerate)
		r.Post("/tasks/{id}/check", worksheetHandler.CheckAnswer)
	})

	r.Route("/admin/cache", func(r chi.Router) {
		r.Get("/stats", cacheHandler.Stats)
		r.Post("/clear", cacheHandler.Clear)
	})

	r.Get("/health", api.HealthHandler(app.db))

	return r
}
