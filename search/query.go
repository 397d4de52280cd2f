package search

import (
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	"github.com/rpupo63/portfolio-backend/errs"
)

const (
	DefaultPage  = 1
	DefaultLimit = 5
	MaxLimit     = 50

	// Fuzziness is the edit distance tolerated per query term.
	Fuzziness = 1

	exactBoost = 2.0
	fuzzyBoost = 1.0
)

// Request is a search over the project corpus.
type Request struct {
	Query      string      `json:"q"`
	Tags       []string    `json:"tags"`
	Categories []uuid.UUID `json:"categories"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
}

// NewRequest validates raw search parameters and returns a normalized Request.
// Tags are lowercased and trimmed, category ids must be uuids, page and limit
// must be positive and limit is clamped to MaxLimit.
func NewRequest(q string, tags, categories []string, page, limit int) (Request, error) {
	if page <= 0 {
		return Request{}, errs.NewInvalidFieldError("page", "must be a positive integer")
	}
	if limit <= 0 {
		return Request{}, errs.NewInvalidFieldError("limit", "must be a positive integer")
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	req := Request{
		Query: strings.TrimSpace(q),
		Tags:  NormalizeTags(tags),
		Page:  page,
		Limit: limit,
	}

	seen := make(map[uuid.UUID]struct{}, len(categories))
	for _, raw := range categories {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return Request{}, errs.NewInvalidFieldError("categories", "invalid category id "+raw)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		req.Categories = append(req.Categories, id)
	}

	return req, nil
}

// NormalizeTags lowercases and trims tags, dropping empty and repeated values.
// Order of first appearance is kept.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}

// BuildQuery translates a request into a bleve query.
//
// Each analyzed query term matches projectName or description either exactly
// or within Fuzziness edits, exact matches scoring higher. Terms are OR-ed.
// Without usable terms every project matches. Tag and category filters are
// required and carry no boost, so they select without ranking.
func BuildQuery(req Request) query.Query {
	var textQuery query.Query
	if terms := Analyze(req.Query); len(terms) > 0 {
		termQueries := make([]query.Query, 0, len(terms))
		for _, term := range terms {
			termQueries = append(termQueries, termMatch(term))
		}
		textQuery = bleve.NewDisjunctionQuery(termQueries...)
	} else {
		textQuery = bleve.NewMatchAllQuery()
	}

	if len(req.Tags) == 0 && len(req.Categories) == 0 {
		return textQuery
	}

	clauses := []query.Query{textQuery}
	for _, tag := range req.Tags {
		clauses = append(clauses, filterTerm(FieldTags, tag))
	}
	for _, id := range req.Categories {
		clauses = append(clauses, filterTerm(FieldCategories, id.String()))
	}
	return bleve.NewConjunctionQuery(clauses...)
}

// termMatch matches one analyzed term against the text fields.
func termMatch(term string) query.Query {
	fields := []string{FieldProjectName, FieldDescription}
	clauses := make([]query.Query, 0, 2*len(fields))
	for _, field := range fields {
		exact := bleve.NewTermQuery(term)
		exact.SetField(field)
		exact.SetBoost(exactBoost)

		fuzzy := bleve.NewFuzzyQuery(term)
		fuzzy.SetField(field)
		fuzzy.SetFuzziness(Fuzziness)
		fuzzy.SetBoost(fuzzyBoost)

		clauses = append(clauses, exact, fuzzy)
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

func filterTerm(field, value string) query.Query {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	q.SetBoost(0)
	return q
}

// HasText reports whether the request carries searchable terms.
func (r Request) HasText() bool {
	return len(Analyze(r.Query)) > 0
}
