package api

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-backend/search"
)

type searchHandler struct {
	responder Responder
	logger    zerolog.Logger
	executor  *search.Executor
}

func newSearchHandler(executor *search.Executor) searchHandler {
	logger := log.With().Str("handlerName", "searchHandler").Logger()

	return searchHandler{
		responder: NewResponder(logger),
		logger:    logger,
		executor:  executor,
	}
}

// search runs a faceted project search
// @Summary Search projects
// @Description Typo-tolerant search over project names and descriptions, filtered by tags and categories
// @Tags Search
// @Produce json
// @Param q query string false "Free text, empty browses all projects"
// @Param tags query string false "Comma separated tags, every tag is required"
// @Param categories query string false "Comma separated category ids, every category is required"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size, at most 50" default(5)
// @Success 200 {object} search.Result "One page of projects with totals and facets"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid search parameters"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Search failed"
// @Router /search [get]
func (h searchHandler) search() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := queryInt(r, "page", search.DefaultPage)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		limit, err := queryInt(r, "limit", search.DefaultLimit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		req, err := search.NewRequest(r.URL.Query().Get("q"), queryList(r, "tags"), queryList(r, "categories"), page, limit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		result, err := h.executor.Search(r.Context(), req)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, result)
	}
}
