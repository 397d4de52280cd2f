package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/services"
)

const (
	signatureHeader     = "sanity-signature"
	maxWebhookBodyBytes = 1 << 20
)

type webhookHandler struct {
	responder   Responder
	logger      zerolog.Logger
	secret      string
	projects    *services.ProjectService
	revalidator *services.Revalidator
}

func newWebhookHandler(secret string, projects *services.ProjectService, revalidator *services.Revalidator) webhookHandler {
	logger := log.With().Str("handlerName", "webhookHandler").Logger()

	return webhookHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		secret:      secret,
		projects:    projects,
		revalidator: revalidator,
	}
}

// cmsDocument is the subset of a CMS webhook payload that maps onto a project.
// Image URLs arrive already resolved.
type cmsDocument struct {
	ID          string   `json:"_id"`
	Type        string   `json:"_type"`
	Operation   string   `json:"operation"`
	ProjectName *string  `json:"projectName"`
	Description *string  `json:"description"`
	LiveURL     *string  `json:"liveUrl"`
	GithubURL   *string  `json:"githubUrl"`
	ImageURL    *string  `json:"imageUrl"`
	Tags        []string `json:"tags"`
	Categories  []string `json:"categories"`
}

type syncResponse struct {
	Message string `json:"message"`
	Created bool   `json:"created"`
	Slug    string `json:"slug,omitempty"`
}

// sign returns the hex HMAC-SHA256 of body under secret.
func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// syncFromCMS upserts a project document pushed by the CMS
// @Summary CMS sync webhook
// @Description Verifies the payload signature, upserts project documents by their CMS id and revalidates the frontend
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param sanity-signature header string true "Hex HMAC-SHA256 of the body"
// @Success 200 {object} syncResponse "Document processed"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid document"
// @Failure 401 {object} ErrorResponse "Unauthorized - Bad signature"
// @Router /webhook/sync [post]
func (h webhookHandler) syncFromCMS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.secret == "" {
			h.logger.Error().Msg("webhook secret is not configured")
			h.responder.WriteError(w, errs.NewInternalError("webhook secret not configured"))
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
		if err != nil {
			h.responder.WriteError(w, errs.NewMalformedPayloadError("webhook", err))
			return
		}

		signature := strings.TrimSpace(r.Header.Get(signatureHeader))
		if signature == "" {
			h.responder.WriteError(w, errs.NewUnauthorizedError("no signature header found"))
			return
		}
		if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(sign(h.secret, body))) {
			h.logger.Warn().Msg("invalid signature on incoming webhook request")
			h.responder.WriteError(w, errs.NewInvalidSignatureError(signatureHeader))
			return
		}

		var doc cmsDocument
		if err := json.NewDecoder(bytes.NewReader(body)).Decode(&doc); err != nil {
			h.responder.WriteError(w, errs.NewMalformedPayloadError("webhook", err))
			return
		}

		h.logger.Info().Str("type", doc.Type).Str("id", doc.ID).Str("operation", doc.Operation).Msg("webhook received")

		response := syncResponse{Message: "ignored"}
		if doc.Type == "project" && doc.Operation != "delete" {
			project, created, err := h.projects.UpsertByExternalID(r.Context(), doc.ID, services.ProjectInput{
				ProjectName: doc.ProjectName,
				Description: doc.Description,
				LiveURL:     doc.LiveURL,
				GithubURL:   doc.GithubURL,
				ImageURL:    doc.ImageURL,
				Tags:        doc.Tags,
				Categories:  doc.Categories,
			})
			if err != nil {
				h.responder.WriteError(w, err)
				return
			}
			response = syncResponse{Message: "synced", Created: created, Slug: project.Slug}

			if err := h.revalidator.Revalidate(r.Context(), services.ProjectsPath); err != nil {
				h.logger.Error().Err(err).Msg("frontend revalidation failed")
			}
		}

		h.responder.WriteJSON(w, response)
	}
}
