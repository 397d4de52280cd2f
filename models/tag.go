package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TagKind string

const (
	TagKindTag      TagKind = "tag"
	TagKindCategory TagKind = "category"
)

// Tag is a vocabulary entry shared by project tags and categories.
// Names are unique across both kinds.
type Tag struct {
	ID           uuid.UUID `json:"_id" db:"id" gorm:"type:uuid;primaryKey;not null"`
	Name         string    `json:"name" db:"name" gorm:"type:text;not null;uniqueIndex:idx_tags_name"`
	Description  string    `json:"description,omitempty" db:"description" gorm:"type:text;not null;default:''"`
	Kind         TagKind   `json:"type" db:"kind" gorm:"type:text;not null;index:idx_tags_kind"`
	ProjectCount int64     `json:"projectCount" db:"project_count" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at" gorm:"<-:create;not null"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at" gorm:"not null"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
