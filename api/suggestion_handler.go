package api

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-backend/services"
)

type suggestionHandler struct {
	responder Responder
	logger    zerolog.Logger
}

func newSuggestionHandler() suggestionHandler {
	logger := log.With().Str("handlerName", "suggestionHandler").Logger()

	return suggestionHandler{
		responder: NewResponder(logger),
		logger:    logger,
	}
}

type keywordRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// suggestKeywords proposes tags for a draft
// @Summary Suggest tags from text
// @Tags Suggestions
// @Accept json
// @Produce json
// @Param draft body keywordRequest true "Title and body"
// @Success 200 {array} string "Up to ten proposed tags"
// @Failure 400 {object} ErrorResponse "Bad Request - Title and body are required"
// @Router /suggestions [post]
func (h suggestionHandler) suggestKeywords() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req keywordRequest
		if err := decodeJSON(w, r, maxProjectBodyBytes, "suggestion", &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		keywords, err := services.SuggestKeywords(req.Title, req.Body)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, keywords)
	}
}
