package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
)

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

// FindByIDs returns the projects among ids, in no particular order.
func (r *ProjectRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Project, error) {
	projects := []models.Project{}
	if len(ids) == 0 {
		return projects, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&projects).Error; err != nil {
		return nil, errs.NewDatabaseError("find", "projects", err)
	}
	return projects, nil
}

// FindBySlug returns a project by its slug
func (r *ProjectRepo) FindBySlug(ctx context.Context, slug string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).Take(&project).Error; err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	return &project, nil
}

// FindByExternalID returns nil, nil when no project carries externalID.
func (r *ProjectRepo) FindByExternalID(ctx context.Context, externalID string) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).Clauses(dbresolver.Write).Where("external_id = ?", externalID).Take(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	return &project, nil
}

// SlugsWithBase returns base and every base-N slug already taken.
func (r *ProjectRepo) SlugsWithBase(ctx context.Context, base string) ([]string, error) {
	var slugs []string
	err := r.db.WithContext(ctx).Clauses(dbresolver.Write).
		Model(&models.Project{}).
		Where(`slug = ? OR slug LIKE ? ESCAPE '\'`, base, likePattern(base)+"-%").
		Pluck("slug", &slugs).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "slugs", err)
	}
	return slugs, nil
}

// Add inserts a new project into the database
func (r *ProjectRepo) Add(ctx context.Context, project *models.Project) error {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return errs.NewDatabaseError("create", "project", err)
	}
	return nil
}

// Update updates an existing project in the database
func (r *ProjectRepo) Update(ctx context.Context, project *models.Project) error {
	if err := r.db.WithContext(ctx).Save(project).Error; err != nil {
		return errs.NewDatabaseError("update", "project", err)
	}
	return nil
}

// EachBatch calls fn with every project, batchSize at a time.
func (r *ProjectRepo) EachBatch(ctx context.Context, batchSize int, fn func([]models.Project) error) error {
	var batch []models.Project
	result := r.db.WithContext(ctx).FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	})
	if result.Error != nil {
		var apiErr *errs.ApiErr
		if errors.As(result.Error, &apiErr) {
			return result.Error
		}
		return errs.NewDatabaseError("scan", "projects", result.Error)
	}
	return nil
}
