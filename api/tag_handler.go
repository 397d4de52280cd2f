package api

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-backend/services"
)

type tagHandler struct {
	responder   Responder
	logger      zerolog.Logger
	suggestions *services.SuggestionEngine
}

func newTagHandler(suggestions *services.SuggestionEngine) tagHandler {
	logger := log.With().Str("handlerName", "tagHandler").Logger()

	return tagHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		suggestions: suggestions,
	}
}

// listTags lists canonical tags
// @Summary List tags
// @Description Tags whose name contains q, most used first
// @Tags Tags
// @Produce json
// @Param q query string false "Case-insensitive substring"
// @Param limit query int false "At most 50" default(20)
// @Success 200 {array} models.Tag "Tags"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching tags"
// @Router /tags [get]
func (h tagHandler) listTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", services.DefaultTagListLimit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		tags, err := h.suggestions.SuggestFromLedger(r.Context(), r.URL.Query().Get("q"), limit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, tags)
	}
}

// suggestTags autocompletes tags in use on projects
// @Summary Suggest tags
// @Description Prefix and one-edit fuzzy completion over tags on projects, ranked by usage
// @Tags Tags
// @Produce json
// @Param q query string true "Partial tag"
// @Param limit query int false "At most 50" default(10)
// @Success 200 {array} services.TagSuggestion "Suggestions"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Suggestion failed"
// @Router /tags/suggestions [get]
func (h tagHandler) suggestTags() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit", services.DefaultSuggestionLimit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		suggestions, err := h.suggestions.SuggestFromLiveUsage(r.Context(), r.URL.Query().Get("q"), limit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, suggestions)
	}
}
