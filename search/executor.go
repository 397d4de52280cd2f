package search

import (
	"context"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
)

const (
	TagFacetSize      = 10
	CategoryFacetSize = 5

	// facets are requested wider than returned so ties are cut by value, not by index order
	facetFetchSize = 100
)

// ProjectLoader loads projects by id.
type ProjectLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Project, error)
}

// CategoryResolver maps category ids to category records. Unknown ids are absent from the map.
type CategoryResolver interface {
	ResolveCategories(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Tag, error)
}

type TagFacet struct {
	Value string `json:"_id"`
	Count int    `json:"count"`
}

type CategoryFacet struct {
	ID    uuid.UUID `json:"_id"`
	Name  string    `json:"name"`
	Count int       `json:"count"`
}

type Result struct {
	Projects       []models.ProjectView `json:"projects"`
	TotalCount     int                  `json:"totalCount"`
	TotalPages     int                  `json:"totalPages"`
	TagFacets      []TagFacet           `json:"tagFacets"`
	CategoryFacets []CategoryFacet      `json:"categoryFacets"`
}

type Executor struct {
	index      *Index
	projects   ProjectLoader
	categories CategoryResolver
	cache      Cache
	logger     zerolog.Logger
}

// NewExecutor builds an executor. A nil cache disables result caching.
func NewExecutor(index *Index, projects ProjectLoader, categories CategoryResolver, cache Cache) *Executor {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Executor{
		index:      index,
		projects:   projects,
		categories: categories,
		cache:      cache,
		logger:     log.With().Str("component", "searchExecutor").Logger(),
	}
}

// Search runs req and returns one page of ranked projects with totals and
// facets computed over every match.
func (e *Executor) Search(ctx context.Context, req Request) (*Result, error) {
	req, err := NewRequest(req.Query, req.Tags, uuidStrings(req.Categories), req.Page, req.Limit)
	if err != nil {
		return nil, err
	}

	cached, cacheKey, ok := e.cache.Get(ctx, req)
	if ok {
		return cached, nil
	}

	searchRequest := bleve.NewSearchRequestOptions(BuildQuery(req), req.Limit, (req.Page-1)*req.Limit, false)
	if req.HasText() {
		searchRequest.SortBy([]string{"-_score", "-" + FieldCreatedAt, "_id"})
	} else {
		searchRequest.SortBy([]string{"-" + FieldCreatedAt, "_id"})
	}
	searchRequest.AddFacet(FieldTags, bleve.NewFacetRequest(FieldTags, facetFetchSize))
	searchRequest.AddFacet(FieldCategories, bleve.NewFacetRequest(FieldCategories, facetFetchSize))

	searchResult, err := e.index.Search(ctx, searchRequest)
	if err != nil {
		return nil, errs.NewSearchIndexError("search projects", err)
	}

	result := &Result{
		Projects:       []models.ProjectView{},
		TotalCount:     int(searchResult.Total),
		TotalPages:     totalPages(int(searchResult.Total), req.Limit),
		TagFacets:      []TagFacet{},
		CategoryFacets: []CategoryFacet{},
	}

	ids := make([]uuid.UUID, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			e.logger.Warn().Str("docID", hit.ID).Msg("index document id is not a uuid")
			continue
		}
		ids = append(ids, id)
	}

	projects, err := e.loadInOrder(ctx, ids)
	if err != nil {
		return nil, err
	}

	var categoryCounts []TagFacet
	if facet, ok := searchResult.Facets[FieldTags]; ok && facet.Terms != nil {
		for _, term := range facet.Terms.Terms() {
			result.TagFacets = append(result.TagFacets, TagFacet{Value: term.Term, Count: term.Count})
		}
	}
	if facet, ok := searchResult.Facets[FieldCategories]; ok && facet.Terms != nil {
		for _, term := range facet.Terms.Terms() {
			categoryCounts = append(categoryCounts, TagFacet{Value: term.Term, Count: term.Count})
		}
	}
	result.TagFacets = topFacets(result.TagFacets, TagFacetSize)

	// one lookup for the categories of the page and of every faceted category,
	// so the cut-off counts only categories that still exist
	var categoryIDs []uuid.UUID
	for _, p := range projects {
		categoryIDs = append(categoryIDs, p.Categories...)
	}
	for _, facet := range categoryCounts {
		if id, err := uuid.Parse(facet.Value); err == nil {
			categoryIDs = append(categoryIDs, id)
		}
	}
	resolved, err := e.categories.ResolveCategories(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}

	for _, p := range projects {
		result.Projects = append(result.Projects, p.View(resolved))
	}

	known := categoryCounts[:0]
	for _, facet := range categoryCounts {
		id, err := uuid.Parse(facet.Value)
		if err != nil {
			continue
		}
		if _, ok := resolved[id]; !ok {
			e.logger.Warn().Str("categoryID", facet.Value).Msg("faceted category not found")
			continue
		}
		known = append(known, facet)
	}
	for _, facet := range topFacets(known, CategoryFacetSize) {
		id := uuid.MustParse(facet.Value)
		result.CategoryFacets = append(result.CategoryFacets, CategoryFacet{ID: id, Name: resolved[id].Name, Count: facet.Count})
	}

	e.cache.Set(ctx, cacheKey, result)
	return result, nil
}

// loadInOrder fetches projects and returns them in the order of ids.
// Ids missing from the store are skipped.
func (e *Executor) loadInOrder(ctx context.Context, ids []uuid.UUID) ([]models.Project, error) {
	found, err := e.projects.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Project, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	ordered := make([]models.Project, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			e.logger.Warn().Str("projectID", id.String()).Msg("indexed project missing from store")
			continue
		}
		ordered = append(ordered, p)
	}
	return ordered, nil
}

// topFacets sorts by count descending then value ascending and keeps the first n.
func topFacets(facets []TagFacet, n int) []TagFacet {
	sort.SliceStable(facets, func(i, j int) bool {
		if facets[i].Count != facets[j].Count {
			return facets[i].Count > facets[j].Count
		}
		return facets[i].Value < facets[j].Value
	})
	if len(facets) > n {
		facets = facets[:n]
	}
	return facets
}

func totalPages(total, limit int) int {
	if total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
