package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestNewDatabaseErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		cause  error
		status int
		check  func(error) bool
	}{
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound, IsNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, http.StatusConflict, IsConflict},
		{"postgres duplicate message", errors.New(`ERROR: duplicate key value violates unique constraint "idx_tags_name"`), http.StatusConflict, IsAlreadyExists},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, IsStoreUnavailable},
		{"sqlite lock", errors.New("database is locked"), http.StatusServiceUnavailable, IsStoreUnavailable},
		{"anything else", errors.New("syntax error"), http.StatusInternalServerError, IsStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDatabaseError("create", "tag", tt.cause)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.True(t, tt.check(err))
			assert.Equal(t, tt.cause, err.Cause)
		})
	}
}

func TestKindsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("saving project: %w", NewInvalidFieldError("liveUrl", "must be an http(s) URL"))

	assert.True(t, IsInvalidInput(err))
	assert.True(t, IsInvalidFieldError(err))
	assert.False(t, IsMissingRequiredFieldError(err))
	assert.False(t, IsConflict(err))

	var apiErr *ApiErr
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "liveUrl", apiErr.Field)
}

func TestRequestErrors(t *testing.T) {
	assert.True(t, IsMissingRequiredFieldError(NewMissingRequiredFieldError("title")))
	assert.True(t, IsInvalidInput(NewMalformedPayloadError("project", errors.New("EOF"))))

	sig := NewInvalidSignatureError("sanity-signature")
	assert.Equal(t, http.StatusUnauthorized, sig.StatusCode)
	assert.True(t, IsUnauthorized(sig))
	assert.True(t, errors.Is(sig, ErrInvalidSignature))
}

func TestGetFullErrorFollowsCauses(t *testing.T) {
	inner := NewSearchIndexError("search projects", errors.New("index closed"))
	outer := NewDatabaseError("load", "project", inner)

	assert.Equal(t, "database query failed: Failed to load project -> search index failed: Failed to search projects -> index closed", outer.GetFullError())
}
