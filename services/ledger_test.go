package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
)

func TestUpsertTagUsageNormalizesToOneRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var first *models.Tag
	for _, raw := range []string{"React", "  react ", "REACT"} {
		tag, err := env.ledger.UpsertTagUsage(ctx, raw)
		require.NoError(t, err)
		assert.Equal(t, "react", tag.Name)
		if first == nil {
			first = tag
		}
		assert.Equal(t, first.ID, tag.ID)
	}
	assert.Equal(t, int64(3), env.tagCount(t, "react"))
}

func TestUpsertTagUsageConcurrentCallsCountExactly(t *testing.T) {
	env := newTestEnv(t)

	const n = 25
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		raw := "Go"
		if i%2 == 0 {
			raw = " go "
		}
		g.Go(func() error {
			_, err := env.ledger.UpsertTagUsage(ctx, raw)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(n), env.tagCount(t, "go"))
}

func TestUpsertTagUsageRejectsBadNames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, raw := range []string{"", "   ", "x", strings.Repeat("a", MaxTagNameLength+1)} {
		_, err := env.ledger.UpsertTagUsage(ctx, raw)
		assert.True(t, errs.IsInvalidInput(err), "name %q", raw)
	}
}

func TestCreateCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	category, err := env.ledger.CreateCategory(ctx, "  Web Apps ", "Things in a browser")
	require.NoError(t, err)
	assert.Equal(t, "web apps", category.Name)
	assert.Equal(t, models.TagKindCategory, category.Kind)
	assert.Equal(t, int64(0), category.ProjectCount)

	_, err = env.ledger.CreateCategory(ctx, "WEB APPS", "")
	assert.True(t, errs.IsConflict(err))

	_, err = env.ledger.UpsertTagUsage(ctx, "golang")
	require.NoError(t, err)
	_, err = env.ledger.CreateCategory(ctx, "golang", "")
	assert.True(t, errs.IsConflict(err), "names are unique across tags and categories")

	_, err = env.ledger.UpsertTagUsage(ctx, "web apps")
	assert.True(t, errs.IsConflict(err))

	_, err = env.ledger.CreateCategory(ctx, "ok", strings.Repeat("d", MaxTagDescriptionLength+1))
	assert.True(t, errs.IsInvalidInput(err))

	_, err = env.ledger.CreateCategory(ctx, "", "")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestListCategoriesByName(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"web", "cli", "mobile"} {
		env.category(t, name)
	}
	_, err := env.ledger.UpsertTagUsage(context.Background(), "go")
	require.NoError(t, err)

	categories, err := env.ledger.ListCategories(context.Background())
	require.NoError(t, err)
	var names []string
	for _, c := range categories {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"cli", "mobile", "web"}, names)
}

func TestListTagsLimits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 60; i++ {
		_, err := env.ledger.UpsertTagUsage(ctx, fmt.Sprintf("tag%02d", i))
		require.NoError(t, err)
	}
	_, err := env.ledger.UpsertTagUsage(ctx, "tag59")
	require.NoError(t, err)

	tags, err := env.ledger.ListTags(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, tags, DefaultTagListLimit)
	assert.Equal(t, "tag59", tags[0].Name)
	assert.Equal(t, "tag00", tags[1].Name)

	tags, err = env.ledger.ListTags(ctx, "", 500)
	require.NoError(t, err)
	assert.Len(t, tags, MaxTagListLimit)

	tags, err = env.ledger.ListTags(ctx, "TAG5", 10)
	require.NoError(t, err)
	assert.Len(t, tags, 10)
	assert.Equal(t, "tag59", tags[0].Name)
}
