package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MedCatGit/catalog_api/internal/cache"
	"github.com/MedCatGit/catalog_api/internal/config"
	"github.com/MedCatGit/catalog_api/internal/database"
	"github.com/MedCatGit/catalog_api/internal/handler"
	"github.com/MedCatGit/catalog_api/internal/identity"
	"github.com/MedCatGit/catalog_api/internal/middleware"
	"github.com/MedCatGit/catalog_api/internal/repository"
	"github.com/MedCatGit/catalog_api/internal/service"
	"github.com/MedCatGit/catalog_api/internal/worker"
	"github.com/MedCatGit/catalog_api/pkg/textgen"
)

// main is the application entrypoint for the catalog import API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting catalog api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 4. Initialize repositories and collaborators
	productRepo := repository.NewProductRepository(db)
	passLock := cache.NewPassLock(redisClient, cfg.DB.Name, cfg.Importer.LockTTL)
	reportCache := cache.NewReportCache(redisClient, 0)
	ids := identity.NewUUIDProvider()

	var enhancer service.Enhancer
	if cfg.Enrich.Enabled {
		enhancer = textgen.NewClient(cfg.Enrich.BaseURL, cfg.Enrich.APIKey, cfg.Enrich.Model)
		log.Info().Str("model", cfg.Enrich.Model).Msg("description enrichment enabled")
	}

	// 5. Initialize services
	importSvc := service.NewImportService(productRepo, passLock, enhancer, reportCache, ids, cfg.Importer, cfg.Enrich)

	// 6. Initialize handlers
	healthHandler := handler.NewHealthHandler(db, redisClient)
	importHandler := handler.NewImportHandler(importSvc, reportCache)

	// 7. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())

	router.GET("/v1/health", healthHandler.GetHealth)
	router.POST("/v1/import/trigger", importHandler.TriggerImport)
	router.GET("/v1/import/report", importHandler.GetLastReport)

	// 8. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 9. Start the import worker
	go worker.NewImportWorker(importSvc, cfg.Importer.Interval).Start(ctx)

	// 10. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 11. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 12. Cancel context to stop workers
	cancel()

	// 13. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
