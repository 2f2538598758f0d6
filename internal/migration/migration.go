package migration

import (
	"context"

	"xceldash/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createFilesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create files table")
	}

	if err := r.createWidgetsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create widgets table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createFilesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS files (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			original_filename VARCHAR(512) NOT NULL,
			storage_path TEXT,
			file_type VARCHAR(10) NOT NULL,
			file_size BIGINT DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'processing',
			error_message TEXT,
			headers JSONB DEFAULT '[]',
			total_rows INTEGER DEFAULT 0,
			total_columns INTEGER DEFAULT 0,
			metadata JSONB DEFAULT '{}',
			source VARCHAR(20) NOT NULL DEFAULT 'upload',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createWidgetsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS widgets (
			id UUID PRIMARY KEY,
			file_id UUID NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			type VARCHAR(20) NOT NULL,
			config JSONB NOT NULL DEFAULT '{}',
			displayed BOOLEAN NOT NULL DEFAULT FALSE,
			display_order INTEGER NOT NULL DEFAULT 0,
			origin VARCHAR(10) NOT NULL DEFAULT 'manual',
			ai_insights TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_files_status ON files(status)`,
		`CREATE INDEX IF NOT EXISTS idx_files_user ON files(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_widgets_file ON widgets(file_id)`,
		`CREATE INDEX IF NOT EXISTS idx_widgets_file_displayed ON widgets(file_id, displayed)`,
	}

	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
