package api

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes mounts the public read API, the content write API and the CMS webhook.
func setupRoutes(r chi.Router, handlers *routeHandlers) {
	r.Get("/healthz", handlers.healthHandler.health())

	r.Group(func(r chi.Router) {
		r.Use(HTTPLoggingMiddleware)

		r.Get("/search", handlers.searchHandler.search())

		r.Post("/projects", handlers.projectHandler.createProject())
		r.Get("/projects/{slug}", handlers.projectHandler.getProject())

		r.Get("/tags", handlers.tagHandler.listTags())
		r.Get("/tags/suggestions", handlers.tagHandler.suggestTags())

		r.Get("/categories", handlers.categoryHandler.listCategories())
		r.Post("/categories", handlers.categoryHandler.createCategory())

		r.Post("/suggestions", handlers.suggestionHandler.suggestKeywords())

		r.Post("/webhook/sync", handlers.webhookHandler.syncFromCMS())
	})
}
