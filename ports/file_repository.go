package ports

import (
	"context"

	"xceldash/domain/core"
	"xceldash/domain/file"
	"xceldash/domain/widget"
)

// FileRepository defines the interface for uploaded-file storage operations
type FileRepository interface {
	Create(ctx context.Context, f *file.UploadedFile) error
	GetByID(ctx context.Context, id core.FileID) (*file.UploadedFile, error)
	GetByIDs(ctx context.Context, ids []core.FileID) ([]*file.UploadedFile, error)
	List(ctx context.Context, limit, offset int) ([]*file.UploadedFile, error)
	ListByStatus(ctx context.Context, status file.Status) ([]*file.UploadedFile, error)
	Update(ctx context.Context, f *file.UploadedFile) error
	UpdateStatus(ctx context.Context, id core.FileID, status file.Status, errorMsg string) error

	// CreateWithWidgets persists a combined file together with its widget
	// placeholders in a single transaction. Either everything is created or
	// nothing is.
	CreateWithWidgets(ctx context.Context, f *file.UploadedFile, widgets []*widget.Widget) error
}
