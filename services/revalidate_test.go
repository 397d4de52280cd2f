package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/portfolio-backend/errs"
)

func TestRevalidatePostsSecretAndPath(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/revalidate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"revalidated":true}`))
	}))
	defer server.Close()

	r := NewRevalidator(server.URL+"/", "s3cret", server.Client())
	require.NoError(t, r.Revalidate(context.Background(), ProjectsPath))
	assert.Equal(t, map[string]string{"secret": "s3cret", "path": "/projects"}, got)
}

func TestRevalidateReportsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer server.Close()

	err := NewRevalidator(server.URL, "wrong", server.Client()).Revalidate(context.Background(), ProjectsPath)
	require.Error(t, err)
	assert.True(t, errs.IsServiceUnreachableError(err))

	var apiErr *errs.ApiErr
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.GetFullError(), "401")
}

func TestRevalidateUnreachableFrontend(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	err := NewRevalidator(url, "s3cret", nil).Revalidate(context.Background(), ProjectsPath)
	assert.True(t, errs.IsServiceUnreachableError(err))
}

func TestRevalidateTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewRevalidator(server.URL, "s3cret", server.Client()).Revalidate(ctx, ProjectsPath)
	assert.True(t, errs.IsContextDeadlineError(err))
}

func TestRevalidateDisabledWithoutConfig(t *testing.T) {
	r := NewRevalidator("", "", nil)
	assert.False(t, r.Enabled())
	assert.NoError(t, r.Revalidate(context.Background(), ProjectsPath))
}
