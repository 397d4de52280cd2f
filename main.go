package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rpupo63/portfolio-backend/api"
	"github.com/rpupo63/portfolio-backend/config"
	"github.com/rpupo63/portfolio-backend/database"
	"github.com/rpupo63/portfolio-backend/models"
	"github.com/rpupo63/portfolio-backend/search"
	"github.com/rpupo63/portfolio-backend/services"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

var (
	rootCmd = &cobra.Command{
		Use:               "portfolio-backend",
		Short:             "Portfolio API server and maintenance commands",
		SilenceUsage:      true,
		PersistentPreRunE: initialize,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE:  runServe,
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	}
	reindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the database",
		RunE:  runReindex,
	}

	// Flags
	envFile      string
	columnReport bool

	cfg map[string]string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading configuration")
	migrateCmd.Flags().BoolVar(&columnReport, "report", false, "Print columns that differ between the models and the database instead of migrating")
	rootCmd.AddCommand(serveCmd, migrateCmd, reindexCmd)
}

// initialize loads the environment file and configures the global logger.
func initialize(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Error loading %s file: %v\n", envFile, err)
	}
	cfg = config.New()

	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString(cfg, "LOG_LEVEL", "info")))
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	zerolog.SetGlobalLevel(level)
	if config.GetString(cfg, "LOG_FORMAT", "json") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return nil
}

// app holds every long-lived component built from configuration.
type app struct {
	db          database.Database
	index       *search.Index
	cache       search.Cache
	ledger      *services.TagLedger
	projects    *services.ProjectService
	suggestions *services.SuggestionEngine
	executor    *search.Executor
	closers     []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("error releasing resource")
		}
	}
}

func openDatabase() (database.Database, func() error, error) {
	gdb, err := database.Open(cfg)
	if err != nil {
		return database.Database{}, nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return database.Database{}, nil, err
	}
	return database.New(gdb), sqlDB.Close, nil
}

func newApp() (*app, error) {
	a := &app{}

	db, closeDB, err := openDatabase()
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, closeDB)

	if config.GetBool(cfg, "AUTO_MIGRATE", true) {
		if err := db.Migrate(); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrating schema: %w", err)
		}
	}

	index, err := search.OpenIndex(config.GetString(cfg, "SEARCH_INDEX_PATH", ""))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening search index: %w", err)
	}
	a.index = index
	a.closers = append(a.closers, index.Close)

	a.cache = search.NoopCache{}
	if addr := config.GetString(cfg, "REDIS_ADDR", ""); addr != "" {
		client, err := search.ConnectRedis(addr, config.GetString(cfg, "REDIS_PASSWORD", ""))
		if err != nil {
			log.Warn().Err(err).Str("addr", addr).Msg("redis unavailable, search results will not be cached")
		} else {
			a.cache = search.NewRedisCache(client, config.GetDuration(cfg, "SEARCH_CACHE_TTL_SECONDS", 5*time.Minute))
			a.closers = append(a.closers, client.Close)
		}
	}

	createPolicy := services.ProjectPolicy{
		RequireCategory: config.GetBool(cfg, "REQUIRE_PROJECT_CATEGORY", true),
		RequireTags:     config.GetBool(cfg, "REQUIRE_PROJECT_TAGS", true),
	}
	syncPolicy := services.ProjectPolicy{
		RequireCategory: config.GetBool(cfg, "SYNC_REQUIRE_CATEGORY", false),
	}

	a.ledger = services.NewTagLedger(db.TagRepo())
	a.projects = services.NewProjectService(db.ProjectRepo(), a.ledger, index, a.cache, createPolicy, syncPolicy)
	a.suggestions = services.NewSuggestionEngine(a.ledger, index)
	a.executor = search.NewExecutor(index, a.projects, a.ledger, a.cache)
	return a, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	count, err := a.projects.Reindex(cmd.Context())
	if err != nil {
		return fmt.Errorf("building search index: %w", err)
	}
	log.Info().Int("projects", count).Msg("search index ready")

	revalidator := services.NewRevalidator(
		config.GetString(cfg, "FRONTEND_URL", ""),
		config.GetString(cfg, "REVALIDATE_SECRET", ""),
		&http.Client{Timeout: config.GetDuration(cfg, "REVALIDATE_TIMEOUT_SECONDS", 10*time.Second)},
	)

	errChannel := make(chan error)

	server, err := api.NewServer(api.Dependencies{
		Database:      a.db,
		Ledger:        a.ledger,
		Projects:      a.projects,
		Suggestions:   a.suggestions,
		Search:        a.executor,
		Revalidator:   revalidator,
		WebhookSecret: config.GetString(cfg, "SANITY_WEBHOOK_SECRET", ""),
	}, cfg)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(config.GetDuration(cfg, "SHUTDOWN_TIMEOUT_SECONDS", 30*time.Second))
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, closeDB, err := openDatabase()
	if err != nil {
		return err
	}
	defer closeDB()

	if columnReport {
		report, err := db.ColumnMismatches()
		if err != nil {
			return err
		}
		models.WriteColumnMismatchReport(cmd.OutOrStdout(), report)
		return nil
	}

	if err := db.Migrate(); err != nil {
		return err
	}
	log.Info().Msg("schema is up to date")
	return nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	if config.GetString(cfg, "SEARCH_INDEX_PATH", "") == "" {
		return fmt.Errorf("SEARCH_INDEX_PATH must be set to rebuild a persistent index")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), config.GetDuration(cfg, "REINDEX_TIMEOUT_SECONDS", 10*time.Minute))
	defer cancel()

	count, err := a.projects.Reindex(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("projects", count).Msg("search index rebuilt")
	return nil
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
