package services

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rpupo63/portfolio-backend/search"
)

const (
	DefaultSuggestionLimit = 10
	MaxSuggestionLimit     = 50

	// suggestionPrefixLength is how many leading characters a fuzzy suggestion must share with the query.
	suggestionPrefixLength = 2
	suggestionFacetSize    = 1000

	keywordLimit     = 10
	keywordMinLength = 2
)

type TagSuggestion struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SuggestionEngine proposes tag names from the ledger, from tags in use on
// projects, or from free text.
type SuggestionEngine struct {
	ledger *TagLedger
	index  *search.Index
	logger zerolog.Logger
}

func NewSuggestionEngine(ledger *TagLedger, index *search.Index) *SuggestionEngine {
	return &SuggestionEngine{
		ledger: ledger,
		index:  index,
		logger: log.With().Str("component", "suggestionEngine").Logger(),
	}
}

func (e *SuggestionEngine) SuggestFromLedger(ctx context.Context, q string, limit int) ([]models.Tag, error) {
	return e.ledger.ListTags(ctx, q, limit)
}

// SuggestFromLiveUsage completes q against tag values on indexed projects.
// A value matches when it starts with q, or is one edit away from q and shares
// its first two characters. Results are ranked by project count, then name.
func (e *SuggestionEngine) SuggestFromLiveUsage(ctx context.Context, q string, limit int) ([]TagSuggestion, error) {
	suggestions := []TagSuggestion{}
	q = NormalizeTagName(q)
	if q == "" {
		return suggestions, nil
	}
	limit = clampLimit(limit, DefaultSuggestionLimit, MaxSuggestionLimit)

	prefix := bleve.NewPrefixQuery(q)
	prefix.SetField(search.FieldTags)
	clauses := []query.Query{prefix}
	if utf8.RuneCountInString(q) >= suggestionPrefixLength {
		fuzzy := bleve.NewFuzzyQuery(q)
		fuzzy.SetField(search.FieldTags)
		fuzzy.SetFuzziness(search.Fuzziness)
		fuzzy.SetPrefix(suggestionPrefixLength)
		clauses = append(clauses, fuzzy)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(clauses...), 0, 0, false)
	req.AddFacet(search.FieldTags, bleve.NewFacetRequest(search.FieldTags, suggestionFacetSize))

	result, err := e.index.Search(ctx, req)
	if err != nil {
		return nil, errs.NewSearchIndexError("suggest tags", err)
	}

	// the facet counts every tag on a matching project, so keep only values that match q
	facet, ok := result.Facets[search.FieldTags]
	if !ok || facet.Terms == nil {
		return suggestions, nil
	}
	for _, term := range facet.Terms.Terms() {
		if matchesSuggestion(term.Term, q) {
			suggestions = append(suggestions, TagSuggestion{Name: term.Term, Count: term.Count})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Count != suggestions[j].Count {
			return suggestions[i].Count > suggestions[j].Count
		}
		return suggestions[i].Name < suggestions[j].Name
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func matchesSuggestion(value, q string) bool {
	if strings.HasPrefix(value, q) {
		return true
	}
	v, r := []rune(value), []rune(q)
	if len(r) < suggestionPrefixLength || len(v) < suggestionPrefixLength {
		return false
	}
	if string(v[:suggestionPrefixLength]) != string(r[:suggestionPrefixLength]) {
		return false
	}
	return levenshtein(v, r) <= search.Fuzziness
}

// levenshtein counts the insertions, deletions and substitutions turning a into b.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// SuggestKeywords proposes up to ten tags for a draft from its most frequent
// terms. Ties keep the order of first appearance.
func SuggestKeywords(title, body string) ([]string, error) {
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if title == "" {
		return nil, errs.NewMissingRequiredFieldError("title")
	}
	if body == "" {
		return nil, errs.NewMissingRequiredFieldError("body")
	}

	counts := make(map[string]int)
	var order []string
	for _, term := range search.Analyze(title + " " + body) {
		if utf8.RuneCountInString(term) < keywordMinLength {
			continue
		}
		if _, seen := counts[term]; !seen {
			order = append(order, term)
		}
		counts[term]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > keywordLimit {
		order = order[:keywordLimit]
	}
	if order == nil {
		order = []string{}
	}
	return order, nil
}
