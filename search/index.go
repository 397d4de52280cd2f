package search

import (
	"context"
	"errors"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-backend/models"
)

// Indexed field names.
const (
	FieldProjectName = "projectName"
	FieldDescription = "description"
	FieldTags        = "tags"
	FieldCategories  = "categories"
	FieldCreatedAt   = "created_at"
)

// document is the indexed form of a project.
type document struct {
	ProjectName string    `json:"projectName"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Categories  []string  `json:"categories"`
	CreatedAt   time.Time `json:"created_at"`
}

func newDocument(p models.Project) document {
	categories := make([]string, 0, len(p.Categories))
	for _, id := range p.Categories {
		categories = append(categories, id.String())
	}
	return document{
		ProjectName: p.ProjectName,
		Description: p.Description,
		Tags:        append([]string{}, p.Tags...),
		Categories:  categories,
		CreatedAt:   p.CreatedAt,
	}
}

// Index is the full-text and facet index over projects. Documents are keyed by project id.
type Index struct {
	bleve  bleve.Index
	logger zerolog.Logger
}

// OpenIndex opens the on-disk index at path, creating it when missing.
// An empty path gives a memory-only index.
func OpenIndex(path string) (*Index, error) {
	logger := log.With().Str("component", "searchIndex").Logger()

	if path == "" {
		idx, err := bleve.NewMemOnly(newIndexMapping())
		if err != nil {
			return nil, err
		}
		return &Index{bleve: idx, logger: logger}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		logger.Info().Str("path", path).Msg("creating search index")
		idx, err = bleve.New(path, newIndexMapping())
	}
	if err != nil {
		return nil, err
	}
	return &Index{bleve: idx, logger: logger}, nil
}

func newIndexMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	projectMapping := bleve.NewDocumentMapping()
	projectMapping.Dynamic = false

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	nameField.Store = false
	projectMapping.AddFieldMappingsAt(FieldProjectName, nameField)

	descriptionField := bleve.NewTextFieldMapping()
	descriptionField.Analyzer = standard.Name
	descriptionField.Store = false
	projectMapping.AddFieldMappingsAt(FieldDescription, descriptionField)

	// keyword fields hold whole values for exact filters and facets
	tagsField := bleve.NewTextFieldMapping()
	tagsField.Analyzer = keyword.Name
	tagsField.Store = false
	projectMapping.AddFieldMappingsAt(FieldTags, tagsField)

	categoriesField := bleve.NewTextFieldMapping()
	categoriesField.Analyzer = keyword.Name
	categoriesField.Store = false
	projectMapping.AddFieldMappingsAt(FieldCategories, categoriesField)

	createdField := bleve.NewDateTimeFieldMapping()
	createdField.Store = false
	projectMapping.AddFieldMappingsAt(FieldCreatedAt, createdField)

	indexMapping.DefaultMapping = projectMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// Put adds or replaces the project's document.
func (i *Index) Put(p models.Project) error {
	return i.bleve.Index(p.ID.String(), newDocument(p))
}

// PutBatch indexes projects in a single batch.
func (i *Index) PutBatch(projects []models.Project) error {
	batch := i.bleve.NewBatch()
	for _, p := range projects {
		if err := batch.Index(p.ID.String(), newDocument(p)); err != nil {
			return err
		}
	}
	return i.bleve.Batch(batch)
}

func (i *Index) Count() (uint64, error) {
	return i.bleve.DocCount()
}

func (i *Index) Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	return i.bleve.SearchInContext(ctx, req)
}

func (i *Index) Close() error {
	return i.bleve.Close()
}
