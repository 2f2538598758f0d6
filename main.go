package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xceldash/adapters/llm"
	"xceldash/adapters/postgres"
	"xceldash/ai"
	"xceldash/app"
	"xceldash/internal/config"
	"xceldash/internal/errors"
	"xceldash/internal/ingest"
	"xceldash/internal/migration"
	"xceldash/internal/ops"
	"xceldash/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// initDatabase connects and migrates the configured database
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect(appConfig.Database.Driver, appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := initDatabase(appConfig)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}
	defer db.Close()

	storage, err := ingest.NewLocalFileStorage(appConfig.Storage.BasePath)
	if err != nil {
		log.Fatal("Failed to initialize storage: ", err)
	}

	fileRepo := postgres.NewFileRepository(db)
	widgetRepo := postgres.NewWidgetRepository(db)

	llmClient := llm.NewOpenAIClient(appConfig.AI)
	analyst := ai.NewFileAnalyst(llmClient, appConfig.AI)
	advisor := ai.NewWidgetAdvisor(llmClient, appConfig.AI)
	combAnalyst := ai.NewCombinationAnalyst(llmClient, appConfig.AI)

	loader := ingest.NewLoader()
	registry := app.NewRegistryService(fileRepo)
	policy := app.NewSelectionPolicy(widgetRepo)
	resolver := app.NewFunctionResolver(registry, loader)
	catalog := app.NewCatalogService(widgetRepo, registry, policy, advisor)
	planner := app.NewCombinationPlanner(registry, fileRepo, loader, combAnalyst, storage, appConfig.AI.MaxConcurrent)
	processor := ingest.NewProcessor(registry, storage, appConfig.Storage.MaxFileSize, appConfig.Storage.SampleRows)

	server := ui.NewServer(appConfig.Server.Port, appConfig.Server.GinMode, ui.Dependencies{
		Registry:  registry,
		Catalog:   catalog,
		Resolver:  resolver,
		Planner:   planner,
		Processor: processor,
		Analyst:   analyst,
	})

	var opsServer *ops.Server
	if appConfig.Ops.Enabled {
		opsServer = ops.NewServer(appConfig.Ops.Port, db)
		go func() {
			if err := opsServer.Start(); err != nil {
				log.Printf("[Ops] Server stopped: %v", err)
			}
		}()
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("API server failed: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("API shutdown error: %v", err)
	}
	if opsServer != nil {
		if err := opsServer.Shutdown(ctx); err != nil {
			log.Printf("Ops shutdown error: %v", err)
		}
	}
}
