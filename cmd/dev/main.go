package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"xceldash/adapters/postgres"
	"xceldash/app"
	"xceldash/domain/core"
	"xceldash/domain/file"
	"xceldash/domain/widget"
	"xceldash/internal/ingest"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

// The dev sandbox runs the full pipeline against a local SQLite file so no
// Postgres instance is needed for manual testing.

func main() {
	rootCmd := &cobra.Command{
		Use:   "xceldash-dev",
		Short: "Xcel Dashboard development sandbox",
	}

	rootCmd.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newSmokeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

const devDBPath = "xceldash_dev.db"

func openSandbox() (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", devDBPath)
	if err != nil {
		return nil, err
	}
	if err := createSandboxSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// createSandboxSchema mirrors the Postgres schema minus Postgres-only
// defaults; the repositories always write every column explicitly.
func createSandboxSchema(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS files (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			original_filename TEXT NOT NULL,
			storage_path TEXT,
			file_type TEXT NOT NULL,
			file_size INTEGER DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'processing',
			error_message TEXT,
			headers TEXT DEFAULT '[]',
			total_rows INTEGER DEFAULT 0,
			total_columns INTEGER DEFAULT 0,
			metadata TEXT DEFAULT '{}',
			source TEXT NOT NULL DEFAULT 'upload',
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS widgets (
			id TEXT PRIMARY KEY,
			file_id TEXT NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			displayed INTEGER NOT NULL DEFAULT 0,
			display_order INTEGER NOT NULL DEFAULT 0,
			origin TEXT NOT NULL DEFAULT 'manual',
			ai_insights TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_status ON files(status)`,
		`CREATE INDEX IF NOT EXISTS idx_widgets_file ON widgets(file_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the sandbox SQLite schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openSandbox()
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Printf("Sandbox schema ready in %s\n", devDBPath)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Ingest a generated sample CSV through the full upload pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := seedSampleFile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Seeded file %s (%s, %d rows)\n", f.ID, f.Status, f.Schema.TotalRows)
			return nil
		},
	}
}

func newSmokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smoke",
		Short: "Seed a file, create widgets and verify the display caps",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmoke(cmd.Context())
		},
	}
}

const sampleCSV = `Region,Product,Revenue,Units
North,Gadget,1200.50,12
South,Widget,980.00,8
East,Gadget,1530.25,15
West,Widget,640.75,5
North,Widget,2100.00,19
`

func seedSampleFile(ctx context.Context) (*file.UploadedFile, error) {
	db, err := openSandbox()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	storage, err := ingest.NewLocalFileStorage(filepath.Join(os.TempDir(), "xceldash-dev"))
	if err != nil {
		return nil, err
	}

	registry := app.NewRegistryService(postgres.NewFileRepository(db))
	processor := ingest.NewProcessor(registry, storage, 10*1024*1024, 5)

	samplePath := filepath.Join(os.TempDir(), "xceldash_sample.csv")
	if err := os.WriteFile(samplePath, []byte(sampleCSV), 0o644); err != nil {
		return nil, err
	}
	sample, err := os.Open(samplePath)
	if err != nil {
		return nil, err
	}
	defer sample.Close()

	info, _ := sample.Stat()
	return processor.Process(ctx, file.Upload{
		UserID:   core.UserID("dev"),
		Filename: "sample_sales.csv",
		File:     sample,
		Size:     info.Size(),
	})
}

func runSmoke(ctx context.Context) error {
	f, err := seedSampleFile(ctx)
	if err != nil {
		return err
	}
	if !f.IsCompleted() {
		return fmt.Errorf("seeded file did not complete: %s", f.ErrorMessage)
	}

	db, err := openSandbox()
	if err != nil {
		return err
	}
	defer db.Close()

	registry := app.NewRegistryService(postgres.NewFileRepository(db))
	widgetRepo := postgres.NewWidgetRepository(db)
	policy := app.NewSelectionPolicy(widgetRepo)
	catalog := app.NewCatalogService(widgetRepo, registry, policy, nil)
	resolver := app.NewFunctionResolver(registry, ingest.NewLoader())

	options, err := resolver.Options(ctx, f.ID, widget.TypeKPI)
	if err != nil {
		return err
	}
	fmt.Printf("Resolved %d KPI options\n", len(options))

	w, err := catalog.CreateManual(ctx, f.ID, "Total revenue", widget.TypeKPI, widget.ForKPI("Revenue", widget.AggSum))
	if err != nil {
		return err
	}
	if _, err := catalog.SetDisplayed(ctx, w.ID, true); err != nil {
		return err
	}
	fmt.Printf("Created and displayed widget %s\n", w.ID)

	widgets, err := catalog.ListByFile(ctx, f.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Smoke test passed: %d widget(s) on file %s\n", len(widgets), f.ID)
	return nil
}
