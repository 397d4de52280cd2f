package search

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

var textAnalyzer analysis.Analyzer

func init() {
	textAnalyzer = newIndexMapping().AnalyzerNamed(standard.Name)
	if textAnalyzer == nil {
		panic("search: standard analyzer is not registered")
	}
}

// Analyze splits text into the terms the index stores for projectName and
// description: unicode words, lowercased, English stop words removed.
func Analyze(text string) []string {
	tokens := textAnalyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(tokens))
	for _, token := range tokens {
		terms = append(terms, string(token.Term))
	}
	return terms
}
