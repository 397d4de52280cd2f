package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
)

const (
	MinTagNameLength        = 2
	MaxTagNameLength        = 50
	MaxTagDescriptionLength = 280

	DefaultTagListLimit = 20
	MaxTagListLimit     = 50
)

// TagStore persists tags and categories.
type TagStore interface {
	UpsertUsage(ctx context.Context, name string) (*models.Tag, error)
	Add(ctx context.Context, tag *models.Tag) error
	FindByName(ctx context.Context, name string) (*models.Tag, error)
	ListCategories(ctx context.Context) ([]models.Tag, error)
	ListTags(ctx context.Context, query string, limit int) ([]models.Tag, error)
	FindCategoriesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tag, error)
}

// TagLedger keeps the canonical tag and category records and their usage counters.
// Counters only grow: they rank popularity and are not exact reference counts.
type TagLedger struct {
	tags   TagStore
	logger zerolog.Logger
}

func NewTagLedger(tags TagStore) *TagLedger {
	return &TagLedger{
		tags:   tags,
		logger: log.With().Str("component", "tagLedger").Logger(),
	}
}

// NormalizeTagName lowercases and trims a tag or category name.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateTagName(field, name string) error {
	if name == "" {
		return errs.NewMissingRequiredFieldError(field)
	}
	if n := utf8.RuneCountInString(name); n < MinTagNameLength || n > MaxTagNameLength {
		return errs.NewInvalidFieldError(field,
			fmt.Sprintf("%q must be between %d and %d characters", name, MinTagNameLength, MaxTagNameLength))
	}
	return nil
}

// UpsertTagUsage records one more project using the tag, creating it on first use.
func (l *TagLedger) UpsertTagUsage(ctx context.Context, name string) (*models.Tag, error) {
	name = NormalizeTagName(name)
	if err := validateTagName("name", name); err != nil {
		return nil, err
	}
	return l.tags.UpsertUsage(ctx, name)
}

// CreateCategory creates a category. The name must not be held by any tag or category.
func (l *TagLedger) CreateCategory(ctx context.Context, name, description string) (*models.Tag, error) {
	name = NormalizeTagName(name)
	if err := validateTagName("name", name); err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > MaxTagDescriptionLength {
		return nil, errs.NewInvalidFieldError("description",
			fmt.Sprintf("must be at most %d characters", MaxTagDescriptionLength))
	}

	existing, err := l.tags.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errs.NewConflictError(fmt.Sprintf("a %s named %q already exists", existing.Kind, name))
	}

	category := &models.Tag{
		Name:        name,
		Description: description,
		Kind:        models.TagKindCategory,
	}
	if err := l.tags.Add(ctx, category); err != nil {
		return nil, err
	}
	l.logger.Info().Str("category", name).Msg("category created")
	return category, nil
}

func (l *TagLedger) ListCategories(ctx context.Context) ([]models.Tag, error) {
	return l.tags.ListCategories(ctx)
}

// ListTags returns the most used tags whose name contains query.
// limit defaults to DefaultTagListLimit and is capped at MaxTagListLimit.
func (l *TagLedger) ListTags(ctx context.Context, query string, limit int) ([]models.Tag, error) {
	return l.tags.ListTags(ctx, NormalizeTagName(query), clampLimit(limit, DefaultTagListLimit, MaxTagListLimit))
}

// ResolveCategories maps the category ids that exist to their records.
func (l *TagLedger) ResolveCategories(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Tag, error) {
	resolved := make(map[uuid.UUID]models.Tag, len(ids))
	if len(ids) == 0 {
		return resolved, nil
	}

	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	categories, err := l.tags.FindCategoriesByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	for _, category := range categories {
		resolved[category.ID] = category
	}
	return resolved, nil
}

func clampLimit(limit, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
