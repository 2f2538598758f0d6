package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"xceldash/adapters/tabular"
	"xceldash/app"
	"xceldash/domain/file"
	"xceldash/internal/errors"
)

// Processor runs the upload pipeline: validate, store, register, parse,
// profile. Parsing happens synchronously so the upload response already
// carries the terminal status; a failed parse is a failed file, not a failed
// request.
type Processor struct {
	registry    *app.RegistryService
	storage     FileStorage
	maxFileSize int64
	sampleRows  int
}

// NewProcessor creates an upload processor
func NewProcessor(registry *app.RegistryService, storage FileStorage, maxFileSize int64, sampleRows int) *Processor {
	return &Processor{
		registry:    registry,
		storage:     storage,
		maxFileSize: maxFileSize,
		sampleRows:  sampleRows,
	}
}

// Process ingests one uploaded spreadsheet end to end
func (p *Processor) Process(ctx context.Context, up file.Upload) (*file.UploadedFile, error) {
	if up.Size > p.maxFileSize {
		return nil, errors.ValidationError(fmt.Sprintf("file exceeds the maximum size of %d MB", p.maxFileSize/(1024*1024)))
	}

	fileType, ok := file.DetectFileType(up.Filename)
	if !ok {
		return nil, errors.ValidationError("unsupported file type; upload .xlsx, .xls or .csv")
	}

	path, size, err := p.storage.Store(ctx, up.Filename, up.File)
	if err != nil {
		return nil, err
	}

	f := file.New(up.UserID, up.Filename, fileType)
	f.StoragePath = path
	f.FileSize = size

	if err := p.registry.Register(ctx, f); err != nil {
		// Registration failed; the stored bytes have no owning record.
		if delErr := p.storage.Delete(ctx, path); delErr != nil {
			log.Printf("[Processor] WARNING: failed to clean up %s after failed registration: %v", path, delErr)
		}
		return nil, err
	}

	p.parse(ctx, f)
	return f, nil
}

// parse reads and profiles the stored file, recording the outcome on the
// registry. Parse failures are terminal: the file moves to failed and only a
// re-upload produces a usable file.
func (p *Processor) parse(ctx context.Context, f *file.UploadedFile) {
	startTime := time.Now()

	data, err := tabular.NewDataReader(f.StoragePath).ReadData()
	if err != nil {
		reason := fmt.Sprintf("failed to parse file: %v", err)
		if markErr := p.registry.MarkFailed(ctx, f.ID, reason); markErr != nil {
			log.Printf("[Processor] Failed to record parse failure for %s: %v", f.ID, markErr)
		}
		f.MarkFailed(reason)
		return
	}

	meta := &file.Metadata{
		Columns:    tabular.ProfileColumns(data),
		SampleRows: data.SampleRows(p.sampleRows),
	}

	if err := p.registry.MarkParsed(ctx, f.ID, data.Headers, data.RowCount(), data.ColumnCount(), meta); err != nil {
		log.Printf("[Processor] Failed to record parse result for %s: %v", f.ID, err)
		f.MarkFailed("failed to record parse result")
		return
	}

	f.MarkParsed(data.Headers, data.RowCount(), data.ColumnCount())
	f.Metadata = *meta
	log.Printf("[Processor] File %s processed in %.2fms", f.ID, float64(time.Since(startTime).Nanoseconds())/1e6)
}
