package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project represents a showcased work item
type Project struct {
	ID          uuid.UUID                      `json:"_id" db:"id" gorm:"type:uuid;primaryKey;not null"`
	ProjectName string                         `json:"projectName" db:"project_name" gorm:"type:text;not null"`
	Description string                         `json:"description" db:"description" gorm:"type:text;not null"`
	LiveURL     *string                        `json:"liveUrl,omitempty" db:"live_url" gorm:"type:text"`
	GithubURL   *string                        `json:"githubUrl,omitempty" db:"github_url" gorm:"type:text"`
	ImageURL    *string                        `json:"imageUrl,omitempty" db:"image_url" gorm:"type:text"`
	Tags        datatypes.JSONSlice[string]    `json:"tags" db:"tags" gorm:"not null"`
	Categories  datatypes.JSONSlice[uuid.UUID] `json:"categories" db:"categories" gorm:"not null"`
	Slug        string                         `json:"slug" db:"slug" gorm:"type:text;not null;uniqueIndex:idx_projects_slug"`
	ExternalID  *string                        `json:"externalId,omitempty" db:"external_id" gorm:"type:text;uniqueIndex:idx_projects_external_id"`
	CreatedAt   time.Time                      `json:"createdAt" db:"created_at" gorm:"<-:create;not null"`
	UpdatedAt   time.Time                      `json:"updatedAt" db:"updated_at" gorm:"not null"`
}

// BeforeCreate assigns the id in Go so the table needs no uuid extension.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Tags == nil {
		p.Tags = datatypes.JSONSlice[string]{}
	}
	if p.Categories == nil {
		p.Categories = datatypes.JSONSlice[uuid.UUID]{}
	}
	return nil
}

// CategoryRef is a category reference resolved for display.
type CategoryRef struct {
	ID   uuid.UUID `json:"_id"`
	Name string    `json:"name"`
}

// ProjectView is a Project whose category ids have been resolved to names.
type ProjectView struct {
	Project
	Categories []CategoryRef `json:"categories"`
}

// View resolves category ids against categories. Unknown ids are dropped.
func (p Project) View(categories map[uuid.UUID]Tag) ProjectView {
	refs := make([]CategoryRef, 0, len(p.Categories))
	for _, id := range p.Categories {
		if category, ok := categories[id]; ok {
			refs = append(refs, CategoryRef{ID: id, Name: category.Name})
		}
	}
	return ProjectView{Project: p, Categories: refs}
}
