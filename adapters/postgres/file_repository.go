package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"xceldash/domain/core"
	"xceldash/domain/file"
	"xceldash/domain/widget"
	"xceldash/ports"

	"github.com/jmoiron/sqlx"
)

// fileRepository implements the FileRepository interface
type fileRepository struct {
	db *sqlx.DB
}

// NewFileRepository creates a new uploaded-file repository
func NewFileRepository(db *sqlx.DB) ports.FileRepository {
	return &fileRepository{db: db}
}

const fileColumns = `
	id, user_id, original_filename, COALESCE(storage_path, '') as storage_path,
	file_type, COALESCE(file_size, 0) as file_size, status, COALESCE(error_message, '') as error_message,
	headers, COALESCE(total_rows, 0) as total_rows, COALESCE(total_columns, 0) as total_columns,
	metadata, source, created_at, updated_at`

// Create inserts a new uploaded file
func (r *fileRepository) Create(ctx context.Context, f *file.UploadedFile) error {
	return r.create(ctx, r.db, f)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *fileRepository) create(ctx context.Context, ex execer, f *file.UploadedFile) error {
	headersJSON, err := json.Marshal(f.Schema.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}
	metadataJSON, err := json.Marshal(f.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `INSERT INTO files (
		id, user_id, original_filename, storage_path, file_type, file_size,
		status, error_message, headers, total_rows, total_columns, metadata,
		source, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
	)`

	_, err = ex.ExecContext(ctx, query,
		f.ID, f.UserID, f.OriginalFilename, f.StoragePath, f.FileType, f.FileSize,
		f.Status, f.ErrorMessage, headersJSON, f.Schema.TotalRows, f.Schema.TotalColumns, metadataJSON,
		f.Source, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

// GetByID retrieves an uploaded file by its ID
func (r *fileRepository) GetByID(ctx context.Context, id core.FileID) (*file.UploadedFile, error) {
	query := `SELECT` + fileColumns + ` FROM files WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	f, err := scanFile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("file not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// GetByIDs retrieves multiple files at once, preserving the requested order
func (r *fileRepository) GetByIDs(ctx context.Context, ids []core.FileID) ([]*file.UploadedFile, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT`+fileColumns+` FROM files WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	query = r.db.Rebind(query)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	byID := make(map[core.FileID]*file.UploadedFile, len(ids))
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		byID[f.ID] = f
	}

	ordered := make([]*file.UploadedFile, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			ordered = append(ordered, f)
		}
	}
	return ordered, nil
}

// List retrieves files newest first with pagination
func (r *fileRepository) List(ctx context.Context, limit, offset int) ([]*file.UploadedFile, error) {
	query := `SELECT` + fileColumns + ` FROM files ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// ListByStatus retrieves files by parse status
func (r *fileRepository) ListByStatus(ctx context.Context, status file.Status) ([]*file.UploadedFile, error) {
	query := `SELECT` + fileColumns + ` FROM files WHERE status = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query files by status: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// Update modifies an existing file
func (r *fileRepository) Update(ctx context.Context, f *file.UploadedFile) error {
	headersJSON, err := json.Marshal(f.Schema.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}
	metadataJSON, err := json.Marshal(f.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	// Placeholders run in appearance order so the same query binds
	// identically under lib/pq and the sqlite3 sandbox driver, which
	// numbers $N parameters by first occurrence.
	query := `UPDATE files SET
		original_filename = $1, storage_path = $2, file_type = $3, file_size = $4,
		status = $5, error_message = $6, headers = $7, total_rows = $8,
		total_columns = $9, metadata = $10, source = $11, updated_at = $12
	WHERE id = $13`

	result, err := r.db.ExecContext(ctx, query,
		f.OriginalFilename, f.StoragePath, f.FileType, f.FileSize,
		f.Status, f.ErrorMessage, headersJSON, f.Schema.TotalRows,
		f.Schema.TotalColumns, metadataJSON, f.Source, f.UpdatedAt, f.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("file not found: %s", f.ID)
	}

	return nil
}

// UpdateStatus updates only the status and error message of a file
func (r *fileRepository) UpdateStatus(ctx context.Context, id core.FileID, status file.Status, errorMsg string) error {
	query := `UPDATE files SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, status, errorMsg, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update file status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("file not found: %s", id)
	}

	return nil
}

// CreateWithWidgets persists a combined file and its widget placeholders in
// one transaction.
func (r *fileRepository) CreateWithWidgets(ctx context.Context, f *file.UploadedFile, widgets []*widget.Widget) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.create(ctx, tx, f); err != nil {
		return err
	}

	for _, w := range widgets {
		if err := insertWidget(ctx, tx, w); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit combined file: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(row scanner) (*file.UploadedFile, error) {
	var f file.UploadedFile
	var headersJSON, metadataJSON []byte

	err := row.Scan(
		&f.ID, &f.UserID, &f.OriginalFilename, &f.StoragePath,
		&f.FileType, &f.FileSize, &f.Status, &f.ErrorMessage,
		&headersJSON, &f.Schema.TotalRows, &f.Schema.TotalColumns,
		&metadataJSON, &f.Source, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(headersJSON) > 0 {
		if err := json.Unmarshal(headersJSON, &f.Schema.Headers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal headers: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &f.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &f, nil
}

func collectFiles(rows *sql.Rows) ([]*file.UploadedFile, error) {
	var files []*file.UploadedFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
