package models

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestMigrateAndReportLeftoverColumns(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Exec("ALTER TABLE projects ADD COLUMN title text").Error)

	report, err := ColumnMismatches(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, report["projects"])
	assert.Empty(t, report["tags"])

	var out bytes.Buffer
	WriteColumnMismatchReport(&out, report)
	assert.Contains(t, out.String(), "--- Table: projects ---")
	assert.Contains(t, out.String(), "  - title")
	assert.Contains(t, out.String(), "Total mismatched columns across all tables: 1")
}

func TestBeforeCreateAssignsIDs(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db))

	project := Project{ProjectName: "Widget", Description: "A great widget", Slug: "widget"}
	require.NoError(t, db.Create(&project).Error)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", project.ID.String())
	assert.NotNil(t, project.Tags)
	assert.NotNil(t, project.Categories)

	tag := Tag{Name: "go", Kind: TagKindTag}
	require.NoError(t, db.Create(&tag).Error)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", tag.ID.String())
}
