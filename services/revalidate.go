package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-backend/errs"
)

// ProjectsPath is the frontend page that lists projects.
const ProjectsPath = "/projects"

// Revalidator asks the frontend to rebuild cached pages after content changes.
type Revalidator struct {
	frontendURL string
	secret      string
	client      *http.Client
	logger      zerolog.Logger
}

// NewRevalidator returns a Revalidator posting to {frontendURL}/api/revalidate.
// Revalidate is a no-op when frontendURL or secret is empty.
func NewRevalidator(frontendURL, secret string, client *http.Client) *Revalidator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Revalidator{
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
		secret:      secret,
		client:      client,
		logger:      log.With().Str("component", "revalidator").Logger(),
	}
}

func (r *Revalidator) Enabled() bool {
	return r.frontendURL != "" && r.secret != ""
}

func (r *Revalidator) Revalidate(ctx context.Context, path string) error {
	if !r.Enabled() {
		r.logger.Warn().Msg("frontend URL or revalidation secret not set, skipping revalidation")
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"secret": r.secret,
		"path":   path,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal revalidation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.frontendURL+"/api/revalidate", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create revalidation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return errs.NewContextDeadlineError("frontend revalidation", err)
		}
		return errs.NewServiceUnreachableError("frontend", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return errs.NewServiceUnreachableError("frontend", fmt.Errorf("failed to read revalidation response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.NewServiceUnreachableError("frontend", fmt.Errorf("revalidation failed (status %d): %s", resp.StatusCode, string(bodyBytes)))
	}

	r.logger.Info().Str("path", path).Msg("frontend revalidated")
	return nil
}
