package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/rpupo63/portfolio-backend/config"
	"github.com/rpupo63/portfolio-backend/errs"
	"github.com/rpupo63/portfolio-backend/models"
)

type Database struct {
	db          *gorm.DB
	projectRepo *ProjectRepo
	tagRepo     *TagRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB) Database {
	return Database{
		db:          db,
		projectRepo: NewProjectRepo(db),
		tagRepo:     NewTagRepo(db),
	}
}

// Accessor methods for each repository

func (d Database) ProjectRepo() *ProjectRepo {
	return d.projectRepo
}

func (d Database) TagRepo() *TagRepo {
	return d.tagRepo
}

// Ping runs a trivial query against the primary.
func (d Database) Ping(ctx context.Context) error {
	var result int
	if err := d.db.WithContext(ctx).Clauses(dbresolver.Write).Raw("SELECT 1").Scan(&result).Error; err != nil {
		return errs.NewDatabaseError("ping", "database", err)
	}
	return nil
}

func (d Database) Migrate() error {
	return models.Migrate(d.db)
}

func (d Database) ColumnMismatches() (map[string][]string, error) {
	return models.ColumnMismatches(d.db)
}

// Open connects to the database selected by DB_TYPE (supa, postgres or sqlite)
// and registers DATABASE_REPLICA_URLS as read replicas.
func Open(cfg map[string]string) (*gorm.DB, error) {
	dbType := config.GetString(cfg, "DB_TYPE", "")
	log.Info().Str("dbType", dbType).Msg("connecting to database")

	var dialector gorm.Dialector
	switch dbType {
	case "supa":
		connStr := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
			config.GetString(cfg, "SUPABASE_DB_HOST", ""),
			config.GetString(cfg, "SUPABASE_DB_USER", ""),
			config.GetString(cfg, "SUPABASE_DB_PASSWORD", ""),
			config.GetString(cfg, "SUPABASE_DB_NAME", ""),
			config.GetString(cfg, "SUPABASE_DB_PORT", "5432"),
		)
		dialector = postgres.New(postgres.Config{DSN: connStr, PreferSimpleProtocol: true})
	case "postgres":
		dsn := config.GetString(cfg, "DATABASE_URL", "")
		if dsn == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_TYPE=postgres")
		}
		dialector = postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true})
	case "sqlite":
		dialector = sqlite.Open(config.GetString(cfg, "SQLITE_PATH", "portfolio.db?_busy_timeout=5000"))
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", dbType)
	}

	gormLog := log.With().Str("component", "gorm").Logger()
	newLogger := logger.New(
		&gormLog,
		logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		PrepareStmt:    false,
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if dbType == "sqlite" {
		// one writer at a time; shared in-memory databases also need a single connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if replicas := config.GetStrings(cfg, "DATABASE_REPLICA_URLS", nil); len(replicas) > 0 && dbType != "sqlite" {
		dialectors := make([]gorm.Dialector, 0, len(replicas))
		for _, dsn := range replicas {
			dialectors = append(dialectors, postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}))
		}
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: dialectors,
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, fmt.Errorf("error registering read replicas: %w", err)
		}
		log.Info().Int("replicas", len(dialectors)).Msg("read replicas registered")
	}

	// Test database connection
	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("error testing database connection: %w", err)
	}

	return db, nil
}

// likePattern escapes LIKE wildcards in s; use with ESCAPE '\'.
func likePattern(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
