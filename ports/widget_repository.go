package ports

import (
	"context"

	"xceldash/domain/core"
	"xceldash/domain/widget"
)

// WidgetRepository defines the interface for widget storage operations
type WidgetRepository interface {
	Create(ctx context.Context, w *widget.Widget) error
	GetByID(ctx context.Context, id core.WidgetID) (*widget.Widget, error)
	ListByFile(ctx context.Context, fileID core.FileID) ([]*widget.Widget, error)
	Update(ctx context.Context, w *widget.Widget) error

	// Delete removes a widget. Deleting an id that does not exist is a no-op,
	// not an error, so duplicate UI clicks stay harmless.
	Delete(ctx context.Context, id core.WidgetID) error

	// SaveDisplayedSet atomically recomputes every widget's displayed flag for
	// the file as membership in widgetIDs, and assigns display order following
	// the submitted sequence.
	SaveDisplayedSet(ctx context.Context, fileID core.FileID, widgetIDs []core.WidgetID) error
}
