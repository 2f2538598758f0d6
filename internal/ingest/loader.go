package ingest

import (
	"context"

	"xceldash/adapters/tabular"
	"xceldash/domain/file"
	"xceldash/internal/errors"
)

// Loader re-reads a completed file's stored bytes into tabular form. Widget
// previews and combinations always work from the stored artifact, never from
// any in-memory copy of the upload.
type Loader struct{}

// NewLoader creates a table loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses the stored file into structured table data
func (l *Loader) Load(ctx context.Context, f *file.UploadedFile) (*tabular.TableData, error) {
	if f.StoragePath == "" {
		return nil, errors.StorageFailure("file has no stored data", nil)
	}
	return tabular.NewDataReader(f.StoragePath).ReadData()
}
