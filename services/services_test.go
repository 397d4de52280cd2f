package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpupo63/portfolio-backend/database"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rpupo63/portfolio-backend/search"
)

type testEnv struct {
	db          database.Database
	index       *search.Index
	ledger      *TagLedger
	projects    *ProjectService
	suggestions *SuggestionEngine
	executor    *search.Executor
}

var defaultPolicy = ProjectPolicy{RequireCategory: true, RequireTags: true}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithPolicy(t, defaultPolicy, ProjectPolicy{})
}

func newTestEnvWithPolicy(t *testing.T, createPolicy, syncPolicy ProjectPolicy) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := database.Open(map[string]string{
		"DB_TYPE":     "sqlite",
		"SQLITE_PATH": "file:" + name + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.New(gdb)
	require.NoError(t, db.Migrate())

	index, err := search.OpenIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	ledger := NewTagLedger(db.TagRepo())
	projects := NewProjectService(db.ProjectRepo(), ledger, index, nil, createPolicy, syncPolicy)
	return &testEnv{
		db:          db,
		index:       index,
		ledger:      ledger,
		projects:    projects,
		suggestions: NewSuggestionEngine(ledger, index),
		executor:    search.NewExecutor(index, projects, ledger, nil),
	}
}

func (e *testEnv) category(t *testing.T, name string) *models.Tag {
	t.Helper()
	category, err := e.ledger.CreateCategory(context.Background(), name, "")
	require.NoError(t, err)
	return category
}

func (e *testEnv) create(t *testing.T, name string, tags []string, categories ...*models.Tag) *models.ProjectView {
	t.Helper()
	view, err := e.projects.Create(context.Background(), input(name, "A showcased portfolio project", tags, categories...))
	require.NoError(t, err)
	return view
}

func (e *testEnv) tagCount(t *testing.T, name string) int64 {
	t.Helper()
	tag, err := e.db.TagRepo().FindByName(context.Background(), name)
	require.NoError(t, err)
	if tag == nil {
		return 0
	}
	return tag.ProjectCount
}

func input(name, description string, tags []string, categories ...*models.Tag) ProjectInput {
	in := ProjectInput{
		ProjectName: &name,
		Description: &description,
		Tags:        tags,
		Categories:  []string{},
	}
	for _, c := range categories {
		in.Categories = append(in.Categories, c.ID.String())
	}
	return in
}

func ptr(s string) *string { return &s }
