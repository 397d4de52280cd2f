package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
)

type memProjects struct {
	byID map[uuid.UUID]models.Project
}

func (m *memProjects) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Project, error) {
	var out []models.Project
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type memCategories struct {
	byID map[uuid.UUID]models.Tag
}

func (m *memCategories) ResolveCategories(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Tag, error) {
	out := make(map[uuid.UUID]models.Tag)
	for _, id := range ids {
		if c, ok := m.byID[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

type fixture struct {
	index      *Index
	projects   *memProjects
	categories *memCategories
	executor   *Executor
	clock      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	index, err := OpenIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	f := &fixture{
		index:      index,
		projects:   &memProjects{byID: map[uuid.UUID]models.Project{}},
		categories: &memCategories{byID: map[uuid.UUID]models.Tag{}},
		clock:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.executor = NewExecutor(index, f.projects, f.categories, nil)
	return f
}

func (f *fixture) category(name string) uuid.UUID {
	id := uuid.New()
	f.categories.byID[id] = models.Tag{ID: id, Name: name, Kind: models.TagKindCategory}
	return id
}

// add stores and indexes a project; each one is newer than the last.
func (f *fixture) add(t *testing.T, name, description string, tags []string, categories ...uuid.UUID) models.Project {
	t.Helper()
	f.clock = f.clock.Add(time.Hour)
	p := models.Project{
		ID:          uuid.New(),
		ProjectName: name,
		Description: description,
		Tags:        datatypes.JSONSlice[string](tags),
		Categories:  datatypes.JSONSlice[uuid.UUID](categories),
		Slug:        name,
		CreatedAt:   f.clock,
		UpdatedAt:   f.clock,
	}
	f.projects.byID[p.ID] = p
	require.NoError(t, f.index.Put(p))
	return p
}

func (f *fixture) search(t *testing.T, q string, tags, categories []string, page, limit int) *Result {
	t.Helper()
	req, err := NewRequest(q, tags, categories, page, limit)
	require.NoError(t, err)
	result, err := f.executor.Search(context.Background(), req)
	require.NoError(t, err)
	return result
}

func names(result *Result) []string {
	out := []string{}
	for _, p := range result.Projects {
		out = append(out, p.ProjectName)
	}
	return out
}

func TestFuzzyMatchToleratesOneEdit(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Widget", "A great widget for widgets", []string{"js", "react"})
	f.add(t, "Gadget", "Something entirely unrelated", []string{"go"})

	result := f.search(t, "widgt", nil, nil, 1, 5)
	assert.Equal(t, []string{"Widget"}, names(result))
	assert.Equal(t, 1, result.TotalCount)

	result = f.search(t, "wxdgit", nil, nil, 1, 5)
	assert.Empty(t, result.Projects)
	assert.Equal(t, 0, result.TotalCount)
	assert.Equal(t, 0, result.TotalPages)
	assert.Empty(t, result.TagFacets)
	assert.Empty(t, result.CategoryFacets)
}

func TestExactMatchOutranksFuzzyMatch(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Widget", "first project", nil)
	f.add(t, "Widgets", "second project", nil)

	result := f.search(t, "widget", nil, nil, 1, 5)
	assert.Equal(t, []string{"Widget", "Widgets"}, names(result))
}

func TestEmptyQueryReturnsEverythingNewestFirst(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Alpha", "first project", nil)
	f.add(t, "Beta", "second project", nil)
	f.add(t, "Gamma", "third project", nil)

	result := f.search(t, "", nil, nil, 1, 5)
	assert.Equal(t, []string{"Gamma", "Beta", "Alpha"}, names(result))
	assert.Equal(t, 3, result.TotalCount)

	// stop words alone browse everything too
	result = f.search(t, "the and", nil, nil, 1, 5)
	assert.Equal(t, 3, result.TotalCount)
}

func TestPaginationCoversMatchesOnce(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 7; i++ {
		f.add(t, fmt.Sprintf("Project %d", i), "a showcased project", nil)
	}

	full := f.search(t, "", nil, nil, 1, 50)
	require.Len(t, full.Projects, 7)

	var paged []string
	for page := 1; page <= 3; page++ {
		result := f.search(t, "", nil, nil, page, 3)
		assert.Equal(t, 7, result.TotalCount)
		assert.Equal(t, 3, result.TotalPages)
		paged = append(paged, names(result)...)
	}
	assert.Equal(t, names(full), paged)

	beyond := f.search(t, "", nil, nil, 4, 3)
	assert.Empty(t, beyond.Projects)
	assert.Equal(t, 7, beyond.TotalCount)
	assert.Equal(t, 3, beyond.TotalPages)
}

func TestTagFiltersRequireEveryTag(t *testing.T) {
	f := newFixture(t)
	f.add(t, "A", "project with both tags", []string{"js", "react"})
	f.add(t, "B", "project with one tag", []string{"js"})

	result := f.search(t, "", []string{"JS", " react "}, nil, 1, 5)
	assert.Equal(t, []string{"A"}, names(result))

	result = f.search(t, "", []string{"js"}, nil, 1, 5)
	assert.ElementsMatch(t, []string{"A", "B"}, names(result))
}

func TestCategoryFilterAndResolution(t *testing.T) {
	f := newFixture(t)
	web := f.category("web")
	cli := f.category("cli")
	f.add(t, "Site", "a web project", nil, web)
	f.add(t, "Tool", "a command line project", nil, cli)
	f.add(t, "Both", "a hybrid project", nil, web, cli)

	result := f.search(t, "", nil, []string{web.String()}, 1, 5)
	assert.ElementsMatch(t, []string{"Site", "Both"}, names(result))
	for _, p := range result.Projects {
		require.NotEmpty(t, p.Categories)
		for _, ref := range p.Categories {
			assert.Contains(t, []string{"web", "cli"}, ref.Name)
		}
	}

	result = f.search(t, "", nil, []string{web.String(), cli.String()}, 1, 5)
	assert.Equal(t, []string{"Both"}, names(result))
}

func TestFacetsCountWholeMatchSet(t *testing.T) {
	f := newFixture(t)
	web := f.category("web")
	cli := f.category("cli")
	f.add(t, "One", "first project", []string{"go", "cli"}, cli)
	f.add(t, "Two", "second project", []string{"go", "web"}, web)
	f.add(t, "Three", "third project", []string{"go", "web", "react"}, web)
	f.add(t, "Four", "fourth project", []string{"react"}, web)

	result := f.search(t, "", nil, nil, 1, 1)
	require.Len(t, result.Projects, 1)

	assert.Equal(t, []TagFacet{
		{Value: "go", Count: 3},
		{Value: "react", Count: 2},
		{Value: "web", Count: 2},
		{Value: "cli", Count: 1},
	}, result.TagFacets)
	assert.Equal(t, []CategoryFacet{
		{ID: web, Name: "web", Count: 3},
		{ID: cli, Name: "cli", Count: 1},
	}, result.CategoryFacets)

	result = f.search(t, "", []string{"react"}, nil, 1, 5)
	assert.Equal(t, []TagFacet{
		{Value: "react", Count: 2},
		{Value: "go", Count: 1},
		{Value: "web", Count: 1},
	}, result.TagFacets)
}

func TestFacetCutoffs(t *testing.T) {
	f := newFixture(t)
	var categories []uuid.UUID
	for i := 0; i < 7; i++ {
		categories = append(categories, f.category(fmt.Sprintf("cat%d", i)))
	}
	var tags []string
	for i := 0; i < 12; i++ {
		tags = append(tags, fmt.Sprintf("tag%02d", i))
	}
	f.add(t, "Everything", "project with many tags", tags, categories...)

	result := f.search(t, "", nil, nil, 1, 5)
	require.Len(t, result.TagFacets, TagFacetSize)
	assert.Equal(t, "tag00", result.TagFacets[0].Value)
	assert.Equal(t, "tag09", result.TagFacets[9].Value)
	assert.Len(t, result.CategoryFacets, CategoryFacetSize)
}

func TestCategoryFacetCutoffSkipsMissingCategories(t *testing.T) {
	f := newFixture(t)
	var categories []uuid.UUID
	for i := 0; i < 7; i++ {
		categories = append(categories, f.category(fmt.Sprintf("cat%d", i)))
	}
	f.add(t, "Everything", "in every category", nil, categories...)
	f.add(t, "Popular", "in the first two categories", nil, categories[0], categories[1])
	delete(f.categories.byID, categories[0])

	result := f.search(t, "", nil, nil, 1, 5)
	require.Len(t, result.CategoryFacets, CategoryFacetSize)
	assert.Equal(t, "cat1", result.CategoryFacets[0].Name)
	assert.Equal(t, 2, result.CategoryFacets[0].Count)
	for _, facet := range result.CategoryFacets {
		assert.NotEqual(t, categories[0], facet.ID)
	}
}

func TestIndexDriftIsSkipped(t *testing.T) {
	f := newFixture(t)
	gone := f.add(t, "Gone", "deleted from the store", nil)
	f.add(t, "Kept", "still in the store", nil)
	delete(f.projects.byID, gone.ID)

	result := f.search(t, "", nil, nil, 1, 5)
	assert.Equal(t, []string{"Kept"}, names(result))
	assert.Equal(t, 2, result.TotalCount)
}

func TestSearchRejectsInvalidRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.executor.Search(ctx, Request{Page: 0, Limit: 5})
	assert.True(t, errs.IsInvalidInput(err))

	_, err = f.executor.Search(ctx, Request{Page: 1, Limit: -1})
	assert.True(t, errs.IsInvalidInput(err))

	_, err = NewRequest("", nil, []string{"not-a-uuid"}, 1, 5)
	assert.True(t, errs.IsInvalidInput(err))

	req, err := NewRequest("", nil, nil, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, req.Limit)
}

type countingCache struct {
	NoopCache
	stored map[string]*Result
	hits   int
}

func (c *countingCache) key(req Request) string { return fmt.Sprintf("%+v", req) }

func (c *countingCache) Get(_ context.Context, req Request) (*Result, string, bool) {
	key := c.key(req)
	r, ok := c.stored[key]
	if ok {
		c.hits++
	}
	return r, key, ok
}

func (c *countingCache) Set(_ context.Context, key string, result *Result) {
	c.stored[key] = result
}

func TestSearchUsesCache(t *testing.T) {
	f := newFixture(t)
	cache := &countingCache{stored: map[string]*Result{}}
	f.executor = NewExecutor(f.index, f.projects, f.categories, cache)
	f.add(t, "Widget", "A great widget", nil)

	first := f.search(t, "widget", nil, nil, 1, 5)
	second := f.search(t, "widget", nil, nil, 1, 5)
	assert.Equal(t, 1, cache.hits)
	assert.Same(t, first, second)
}
