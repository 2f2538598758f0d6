package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"xceldash/domain/core"
	"xceldash/domain/widget"
	"xceldash/ports"

	"github.com/jmoiron/sqlx"
)

// widgetRepository implements the WidgetRepository interface
type widgetRepository struct {
	db *sqlx.DB
}

// NewWidgetRepository creates a new widget repository
func NewWidgetRepository(db *sqlx.DB) ports.WidgetRepository {
	return &widgetRepository{db: db}
}

const widgetColumns = `
	id, file_id, name, type, config, displayed, display_order,
	origin, COALESCE(ai_insights, '') as ai_insights, created_at, updated_at`

// Create inserts a new widget
func (r *widgetRepository) Create(ctx context.Context, w *widget.Widget) error {
	return insertWidget(ctx, r.db, w)
}

func insertWidget(ctx context.Context, ex execer, w *widget.Widget) error {
	configJSON, err := json.Marshal(w.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal widget config: %w", err)
	}

	query := `INSERT INTO widgets (
		id, file_id, name, type, config, displayed, display_order,
		origin, ai_insights, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
	)`

	_, err = ex.ExecContext(ctx, query,
		w.ID, w.FileID, w.Name, w.Type, configJSON, w.Displayed, w.DisplayOrder,
		w.Origin, w.AIInsights, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create widget: %w", err)
	}

	return nil
}

// GetByID retrieves a widget by its ID
func (r *widgetRepository) GetByID(ctx context.Context, id core.WidgetID) (*widget.Widget, error) {
	query := `SELECT` + widgetColumns + ` FROM widgets WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	w, err := scanWidget(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("widget not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get widget: %w", err)
	}
	return w, nil
}

// ListByFile retrieves all widgets for a file ordered by display position
func (r *widgetRepository) ListByFile(ctx context.Context, fileID core.FileID) ([]*widget.Widget, error) {
	query := `SELECT` + widgetColumns + ` FROM widgets WHERE file_id = $1 ORDER BY display_order ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query widgets: %w", err)
	}
	defer rows.Close()

	var widgets []*widget.Widget
	for rows.Next() {
		w, err := scanWidget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan widget: %w", err)
		}
		widgets = append(widgets, w)
	}
	return widgets, rows.Err()
}

// Update modifies an existing widget
func (r *widgetRepository) Update(ctx context.Context, w *widget.Widget) error {
	configJSON, err := json.Marshal(w.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal widget config: %w", err)
	}

	// Appearance-ordered placeholders keep the query portable to the
	// sqlite3 sandbox driver, which numbers $N by first occurrence.
	query := `UPDATE widgets SET
		name = $1, type = $2, config = $3, displayed = $4,
		display_order = $5, origin = $6, ai_insights = $7, updated_at = $8
	WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		w.Name, w.Type, configJSON, w.Displayed,
		w.DisplayOrder, w.Origin, w.AIInsights, w.UpdatedAt, w.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update widget: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("widget not found: %s", w.ID)
	}

	return nil
}

// Delete removes a widget. Zero rows affected is a successful no-op so
// duplicate removal clicks stay harmless.
func (r *widgetRepository) Delete(ctx context.Context, id core.WidgetID) error {
	query := `DELETE FROM widgets WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete widget: %w", err)
	}
	return nil
}

// SaveDisplayedSet recomputes every widget's displayed flag for the file as
// membership in widgetIDs, in one transaction. Display order follows the
// submitted sequence.
func (r *widgetRepository) SaveDisplayedSet(ctx context.Context, fileID core.FileID, widgetIDs []core.WidgetID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE widgets SET displayed = FALSE, updated_at = $1 WHERE file_id = $2`, now, fileID); err != nil {
		return fmt.Errorf("failed to clear displayed flags: %w", err)
	}

	for i, id := range widgetIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE widgets SET displayed = TRUE, display_order = $1, updated_at = $2 WHERE id = $3 AND file_id = $4`,
			i, now, id, fileID); err != nil {
			return fmt.Errorf("failed to set displayed flag for widget %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit displayed set: %w", err)
	}
	return nil
}

func scanWidget(row scanner) (*widget.Widget, error) {
	var w widget.Widget
	var configJSON []byte

	err := row.Scan(
		&w.ID, &w.FileID, &w.Name, &w.Type, &configJSON, &w.Displayed,
		&w.DisplayOrder, &w.Origin, &w.AIInsights, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &w.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal widget config: %w", err)
		}
	}

	return &w, nil
}
