package api

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(deps Dependencies, r router) *routeHandlers {
	return &routeHandlers{
		searchHandler:     newSearchHandler(deps.Search),
		projectHandler:    newProjectHandler(deps.Projects),
		tagHandler:        newTagHandler(deps.Suggestions),
		categoryHandler:   newCategoryHandler(deps.Ledger),
		suggestionHandler: newSuggestionHandler(),
		webhookHandler:    newWebhookHandler(deps.WebhookSecret, deps.Projects, deps.Revalidator),
		healthHandler:     newHealthHandler(deps.Database, r.startupTime),
	}
}
