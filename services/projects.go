package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rpupo63/portfolio-backend/search"
	"github.com/rpupo63/portfolio-backend/slug"
)

const (
	MinProjectNameLength = 3
	MaxProjectNameLength = 100
	MinDescriptionLength = 10
	MaxDescriptionLength = 1000

	// slugAttempts bounds inserts retried after losing a slug race.
	slugAttempts = 5

	reindexBatchSize = 200
)

// ProjectStore persists projects.
type ProjectStore interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Project, error)
	FindBySlug(ctx context.Context, slug string) (*models.Project, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Project, error)
	SlugsWithBase(ctx context.Context, base string) ([]string, error)
	Add(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
	EachBatch(ctx context.Context, batchSize int, fn func([]models.Project) error) error
}

// ProjectInput carries project fields from a caller. Nil fields were not supplied.
type ProjectInput struct {
	ProjectName *string  `json:"projectName"`
	Description *string  `json:"description"`
	LiveURL     *string  `json:"liveUrl"`
	GithubURL   *string  `json:"githubUrl"`
	ImageURL    *string  `json:"imageUrl"`
	Tags        []string `json:"tags"`
	Categories  []string `json:"categories"`
}

// ProjectPolicy holds the validation rules that differ between entry points.
type ProjectPolicy struct {
	RequireCategory bool
	RequireTags     bool
}

type ProjectService struct {
	projects     ProjectStore
	ledger       *TagLedger
	index        *search.Index
	cache        search.Cache
	createPolicy ProjectPolicy
	syncPolicy   ProjectPolicy
	logger       zerolog.Logger
}

// NewProjectService wires the store, ledger and index. createPolicy applies to
// Create and syncPolicy to UpsertByExternalID. A nil cache disables invalidation.
func NewProjectService(projects ProjectStore, ledger *TagLedger, index *search.Index, cache search.Cache, createPolicy, syncPolicy ProjectPolicy) *ProjectService {
	if cache == nil {
		cache = search.NoopCache{}
	}
	return &ProjectService{
		projects:     projects,
		ledger:       ledger,
		index:        index,
		cache:        cache,
		createPolicy: createPolicy,
		syncPolicy:   syncPolicy,
		logger:       log.With().Str("component", "projectService").Logger(),
	}
}

// validatedInput is a ProjectInput after trimming, normalization and checks.
type validatedInput struct {
	ProjectName *string
	Description *string
	LiveURL     *string
	GithubURL   *string
	ImageURL    *string
	Tags        []string
	Categories  []uuid.UUID
	hasTags     bool
	hasCats     bool
}

// validate checks every supplied field. With full set, name and description are
// required and policy requirements apply even to omitted tags and categories.
func validate(in ProjectInput, policy ProjectPolicy, full bool) (validatedInput, error) {
	var out validatedInput

	if in.ProjectName != nil || full {
		name := trimmed(in.ProjectName)
		if name == "" {
			return out, errs.NewMissingRequiredFieldError("projectName")
		}
		if n := utf8.RuneCountInString(name); n < MinProjectNameLength || n > MaxProjectNameLength {
			return out, errs.NewInvalidFieldError("projectName",
				fmt.Sprintf("must be between %d and %d characters", MinProjectNameLength, MaxProjectNameLength))
		}
		out.ProjectName = &name
	}

	if in.Description != nil || full {
		description := trimmed(in.Description)
		if description == "" {
			return out, errs.NewMissingRequiredFieldError("description")
		}
		if n := utf8.RuneCountInString(description); n < MinDescriptionLength || n > MaxDescriptionLength {
			return out, errs.NewInvalidFieldError("description",
				fmt.Sprintf("must be between %d and %d characters", MinDescriptionLength, MaxDescriptionLength))
		}
		out.Description = &description
	}

	var err error
	if out.LiveURL, err = validateURL("liveUrl", in.LiveURL); err != nil {
		return out, err
	}
	if out.GithubURL, err = validateURL("githubUrl", in.GithubURL); err != nil {
		return out, err
	}
	if out.ImageURL, err = validateURL("imageUrl", in.ImageURL); err != nil {
		return out, err
	}

	if in.Tags != nil || full {
		out.hasTags = true
		out.Tags = search.NormalizeTags(in.Tags)
		for _, tag := range out.Tags {
			if err := validateTagName("tags", tag); err != nil {
				return out, err
			}
		}
		if policy.RequireTags && len(out.Tags) == 0 {
			return out, errs.NewMissingRequiredFieldError("tags")
		}
	}

	if in.Categories != nil || full {
		out.hasCats = true
		seen := make(map[uuid.UUID]struct{}, len(in.Categories))
		for _, raw := range in.Categories {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				return out, errs.NewInvalidFieldError("categories", fmt.Sprintf("invalid category id %q", raw))
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out.Categories = append(out.Categories, id)
		}
		if policy.RequireCategory && len(out.Categories) == 0 {
			return out, errs.NewMissingRequiredFieldError("categories")
		}
	}

	return out, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// validateURL accepts absolute http and https URLs. An empty value clears the field.
func validateURL(field string, raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return &value, nil
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errs.NewInvalidFieldError(field, "must be an absolute http or https URL")
	}
	return &value, nil
}

func optional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// Create validates and stores a new project, counting one use of each of its tags.
func (s *ProjectService) Create(ctx context.Context, in ProjectInput) (*models.ProjectView, error) {
	v, err := validate(in, s.createPolicy, true)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, v, nil)
}

// create inserts a new project. Without an external id, tag usage is recorded
// before the insert. With one, it is recorded only once the insert wins, since
// a concurrent sync of the same document may insert first.
func (s *ProjectService) create(ctx context.Context, v validatedInput, externalID *string) (*models.ProjectView, error) {
	categories, err := s.requireCategories(ctx, v.Categories)
	if err != nil {
		return nil, err
	}

	if externalID == nil {
		if err := s.recordTagUsage(ctx, v.Tags); err != nil {
			return nil, err
		}
	}

	project := &models.Project{
		ProjectName: *v.ProjectName,
		Description: *v.Description,
		LiveURL:     optional(v.LiveURL),
		GithubURL:   optional(v.GithubURL),
		ImageURL:    optional(v.ImageURL),
		Tags:        datatypes.JSONSlice[string](v.Tags),
		Categories:  datatypes.JSONSlice[uuid.UUID](v.Categories),
		ExternalID:  externalID,
	}
	if err := s.saveWithSlug(ctx, project, true); err != nil {
		if externalID == nil && len(v.Tags) > 0 {
			s.logger.Warn().Strs("tags", v.Tags).Msg("project insert failed after tag usage was recorded; counters over-count")
		}
		return nil, err
	}

	if externalID != nil {
		if err := s.recordTagUsage(ctx, v.Tags); err != nil {
			return nil, err
		}
	}

	s.afterWrite(ctx, *project)
	s.logger.Info().Str("projectID", project.ID.String()).Str("slug", project.Slug).Msg("project created")

	view := project.View(categories)
	return &view, nil
}

// UpsertByExternalID creates the project correlated with externalID or replaces
// the supplied fields of the existing one. The bool reports whether it was created.
func (s *ProjectService) UpsertByExternalID(ctx context.Context, externalID string, in ProjectInput) (*models.ProjectView, bool, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, false, errs.NewMissingRequiredFieldError("externalId")
	}

	existing, err := s.projects.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		v, err := validate(in, s.syncPolicy, true)
		if err != nil {
			return nil, false, err
		}
		view, err := s.create(ctx, v, &externalID)
		var taken *externalIDTakenError
		if !errors.As(err, &taken) {
			if err != nil {
				return nil, false, err
			}
			return view, true, nil
		}
		s.logger.Info().Str("externalID", externalID).Msg("project synced concurrently, updating it instead")
		existing = taken.existing
	}

	v, err := validate(in, s.syncPolicy, false)
	if err != nil {
		return nil, false, err
	}
	view, err := s.update(ctx, existing, v)
	if err != nil {
		return nil, false, err
	}
	return view, false, nil
}

func (s *ProjectService) update(ctx context.Context, project *models.Project, v validatedInput) (*models.ProjectView, error) {
	if v.hasCats {
		if _, err := s.requireCategories(ctx, v.Categories); err != nil {
			return nil, err
		}
		project.Categories = datatypes.JSONSlice[uuid.UUID](v.Categories)
	}

	if v.hasTags {
		current := make(map[string]struct{}, len(project.Tags))
		for _, tag := range project.Tags {
			current[tag] = struct{}{}
		}
		var added []string
		for _, tag := range v.Tags {
			if _, ok := current[tag]; !ok {
				added = append(added, tag)
			}
		}
		if err := s.recordTagUsage(ctx, added); err != nil {
			return nil, err
		}
		project.Tags = datatypes.JSONSlice[string](v.Tags)
	}

	renamed := false
	if v.ProjectName != nil && *v.ProjectName != project.ProjectName {
		project.ProjectName = *v.ProjectName
		renamed = true
	}
	if v.Description != nil {
		project.Description = *v.Description
	}
	if v.LiveURL != nil {
		project.LiveURL = optional(v.LiveURL)
	}
	if v.GithubURL != nil {
		project.GithubURL = optional(v.GithubURL)
	}
	if v.ImageURL != nil {
		project.ImageURL = optional(v.ImageURL)
	}

	if renamed {
		if err := s.saveWithSlug(ctx, project, false); err != nil {
			return nil, err
		}
	} else if err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, *project)
	s.logger.Info().Str("projectID", project.ID.String()).Str("slug", project.Slug).Msg("project updated")

	categories, err := s.ledger.ResolveCategories(ctx, project.Categories)
	if err != nil {
		return nil, err
	}
	view := project.View(categories)
	return &view, nil
}

// saveWithSlug assigns the first free slug for the project's name and writes it,
// picking again when a concurrent write takes the slug first.
func (s *ProjectService) saveWithSlug(ctx context.Context, project *models.Project, insert bool) error {
	base := slug.Generate(project.ProjectName)
	own := project.Slug

	for attempt := 1; attempt <= slugAttempts; attempt++ {
		taken, err := s.projects.SlugsWithBase(ctx, base)
		if err != nil {
			return err
		}
		if !insert && own != "" {
			taken = without(taken, own)
		}
		project.Slug = slug.Unique(base, taken)

		if insert {
			err = s.projects.Add(ctx, project)
		} else {
			err = s.projects.Update(ctx, project)
		}
		if err == nil {
			return nil
		}
		if !errs.IsConflict(err) {
			return err
		}
		if insert && project.ExternalID != nil {
			existing, findErr := s.projects.FindByExternalID(ctx, *project.ExternalID)
			if findErr != nil {
				return findErr
			}
			if existing != nil {
				return &externalIDTakenError{existing: existing}
			}
		}
		s.logger.Debug().Str("slug", project.Slug).Int("attempt", attempt).Msg("slug taken concurrently, retrying")
	}

	return errs.NewConflictError(fmt.Sprintf("could not assign a unique slug for %q", project.ProjectName))
}

// externalIDTakenError reports that a concurrent sync inserted the project first.
type externalIDTakenError struct {
	existing *models.Project
}

func (e *externalIDTakenError) Error() string {
	return fmt.Sprintf("project with external id %q already exists", *e.existing.ExternalID)
}

func without(values []string, drop string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}

// requireCategories fails with NotFound unless every id is an existing category.
func (s *ProjectService) requireCategories(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Tag, error) {
	resolved, err := s.ledger.ResolveCategories(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := resolved[id]; !ok {
			return nil, errs.NewNotFoundError(fmt.Sprintf("category %s not found", id))
		}
	}
	return resolved, nil
}

// recordTagUsage upserts every tag concurrently and waits for all of them.
func (s *ProjectService) recordTagUsage(ctx context.Context, tags []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, tag := range tags {
		g.Go(func() error {
			_, err := s.ledger.UpsertTagUsage(gctx, tag)
			return err
		})
	}
	return g.Wait()
}

// afterWrite indexes the project and drops cached search results. Index failures
// are logged; the next reindex repairs them.
func (s *ProjectService) afterWrite(ctx context.Context, project models.Project) {
	if err := s.index.Put(project); err != nil {
		s.logger.Error().Err(err).Str("projectID", project.ID.String()).Msg("failed to index project")
	}
	s.cache.Invalidate(ctx)
}

// GetBySlug returns one project with its categories resolved.
func (s *ProjectService) GetBySlug(ctx context.Context, projectSlug string) (*models.ProjectView, error) {
	project, err := s.projects.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(projectSlug)))
	if err != nil {
		return nil, err
	}
	categories, err := s.ledger.ResolveCategories(ctx, project.Categories)
	if err != nil {
		return nil, err
	}
	view := project.View(categories)
	return &view, nil
}

// FindByIDs loads projects for the search executor.
func (s *ProjectService) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Project, error) {
	return s.projects.FindByIDs(ctx, ids)
}

// Reindex writes every stored project into the search index and returns how many were indexed.
func (s *ProjectService) Reindex(ctx context.Context) (int, error) {
	indexed := 0
	err := s.projects.EachBatch(ctx, reindexBatchSize, func(batch []models.Project) error {
		if err := s.index.PutBatch(batch); err != nil {
			return errs.NewSearchIndexError("index projects", err)
		}
		indexed += len(batch)
		return nil
	})
	if err != nil {
		return indexed, err
	}
	s.cache.Invalidate(ctx)
	s.logger.Info().Int("projects", indexed).Msg("search index rebuilt")
	return indexed, nil
}
