package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
)

type TagRepo struct {
	db *gorm.DB
}

func NewTagRepo(db *gorm.DB) *TagRepo {
	return &TagRepo{db}
}

// UpsertUsage creates the tag with a count of one or increments the count of the
// existing tag, in a single statement. name must already be normalized.
// A name held by a category is left untouched and reported as a conflict.
func (r *TagRepo) UpsertUsage(ctx context.Context, name string) (*models.Tag, error) {
	now := time.Now().UTC()
	tag := models.Tag{
		ID:           uuid.New(),
		Name:         name,
		Kind:         models.TagKindTag,
		ProjectCount: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"project_count": gorm.Expr("tags.project_count + 1"),
			"updated_at":    now,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("tags.kind = ?", models.TagKindTag),
		}},
	}).Create(&tag).Error
	if err != nil {
		return nil, errs.NewDatabaseError("upsert", "tag", err)
	}

	var stored models.Tag
	if err := r.db.WithContext(ctx).Clauses(dbresolver.Write).Where("name = ?", name).Take(&stored).Error; err != nil {
		return nil, errs.NewDatabaseError("read", "tag", err)
	}
	if stored.Kind != models.TagKindTag {
		return nil, errs.NewConflictError("tag name " + name + " is already used by a category")
	}
	return &stored, nil
}

// Add inserts a new tag or category into the database
func (r *TagRepo) Add(ctx context.Context, tag *models.Tag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		return errs.NewDatabaseError("create", string(tag.Kind), err)
	}
	return nil
}

// FindByName returns nil, nil when no record of either kind holds name.
func (r *TagRepo) FindByName(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).Clauses(dbresolver.Write).Where("name = ?", name).Take(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewDatabaseError("find", "tag", err)
	}
	return &tag, nil
}

// ListCategories returns all categories ordered by name
func (r *TagRepo) ListCategories(ctx context.Context) ([]models.Tag, error) {
	categories := []models.Tag{}
	err := r.db.WithContext(ctx).
		Where("kind = ?", models.TagKindCategory).
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "categories", err)
	}
	return categories, nil
}

// ListTags returns tags whose name contains query, most used first.
func (r *TagRepo) ListTags(ctx context.Context, query string, limit int) ([]models.Tag, error) {
	tx := r.db.WithContext(ctx).Where("kind = ?", models.TagKindTag)
	if query != "" {
		tx = tx.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+likePattern(query)+"%")
	}

	tags := []models.Tag{}
	err := tx.Order("project_count DESC").Order("name ASC").Limit(limit).Find(&tags).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "tags", err)
	}
	return tags, nil
}

// FindCategoriesByIDs returns the categories among ids, in no particular order.
func (r *TagRepo) FindCategoriesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Tag, error) {
	categories := []models.Tag{}
	if len(ids) == 0 {
		return categories, nil
	}
	err := r.db.WithContext(ctx).
		Where("kind = ? AND id IN ?", models.TagKindCategory, ids).
		Find(&categories).Error
	if err != nil {
		return nil, errs.NewDatabaseError("find", "categories", err)
	}
	return categories, nil
}
