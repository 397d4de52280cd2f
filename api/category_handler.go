package api

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-backend/services"
)

type categoryHandler struct {
	responder Responder
	logger    zerolog.Logger
	ledger    *services.TagLedger
}

func newCategoryHandler(ledger *services.TagLedger) categoryHandler {
	logger := log.With().Str("handlerName", "categoryHandler").Logger()

	return categoryHandler{
		responder: NewResponder(logger),
		logger:    logger,
		ledger:    ledger,
	}
}

type createCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// listCategories lists all categories
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {array} models.Tag "Categories by name"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching categories"
// @Router /categories [get]
func (h categoryHandler) listCategories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := h.ledger.ListCategories(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, categories)
	}
}

// createCategory creates a category
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Param category body createCategoryRequest true "Category"
// @Success 201 {object} models.Tag "Created category"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid name or description"
// @Failure 409 {object} ErrorResponse "Conflict - Name already used"
// @Router /categories [post]
func (h categoryHandler) createCategory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCategoryRequest
		if err := decodeJSON(w, r, 64<<10, "category", &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		category, err := h.ledger.CreateCategory(r.Context(), req.Name, req.Description)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSONStatus(w, http.StatusCreated, category)
	}
}
