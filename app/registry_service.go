package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"xceldash/domain/core"
	"xceldash/domain/file"
	"xceldash/internal/errors"
	"xceldash/ports"
)

// RegistryService tracks uploaded files and their parse lifecycle. Status
// transitions are the only externally observable state change; consumers must
// go through the completed-only accessors so processing/failed files never
// leak into widget creation or combination.
type RegistryService struct {
	files ports.FileRepository
}

// NewRegistryService creates a file registry
func NewRegistryService(files ports.FileRepository) *RegistryService {
	return &RegistryService{files: files}
}

// Register persists a new file in the processing state
func (s *RegistryService) Register(ctx context.Context, f *file.UploadedFile) error {
	if f.Status == "" {
		f.Status = file.StatusProcessing
	}
	if err := s.files.Create(ctx, f); err != nil {
		return errors.StorageFailure("failed to register file", err)
	}
	log.Printf("[Registry] Registered file %s (%s, %d bytes)", f.ID, f.OriginalFilename, f.FileSize)
	return nil
}

// MarkParsed records the parsed schema plus column profiles and sample rows,
// and transitions the file to completed.
func (s *RegistryService) MarkParsed(ctx context.Context, id core.FileID, headers []string, rowCount, colCount int, meta *file.Metadata) error {
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return errors.NotFound("file")
	}

	f.MarkParsed(headers, rowCount, colCount)
	if meta != nil {
		f.Metadata = *meta
	}
	if err := s.files.Update(ctx, f); err != nil {
		return errors.StorageFailure("failed to record parse result", err)
	}
	log.Printf("[Registry] File %s parsed (%d rows, %d columns)", id, rowCount, colCount)
	return nil
}

// MarkFailed transitions the file to the terminal failed state. Failed files
// can only be re-uploaded; there is no automatic retry.
func (s *RegistryService) MarkFailed(ctx context.Context, id core.FileID, reason string) error {
	if err := s.files.UpdateStatus(ctx, id, file.StatusFailed, reason); err != nil {
		return errors.StorageFailure("failed to record parse failure", err)
	}
	log.Printf("[Registry] File %s failed: %s", id, reason)
	return nil
}

// Get retrieves a file regardless of status
func (s *RegistryService) Get(ctx context.Context, id core.FileID) (*file.UploadedFile, error) {
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NotFound("file")
	}
	return f, nil
}

// List retrieves files newest first
func (s *RegistryService) List(ctx context.Context, limit, offset int) ([]*file.UploadedFile, error) {
	if limit <= 0 {
		limit = 50
	}
	files, err := s.files.List(ctx, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list files")
	}
	return files, nil
}

// ListCompleted retrieves only files eligible for widgets and combination
func (s *RegistryService) ListCompleted(ctx context.Context) ([]*file.UploadedFile, error) {
	files, err := s.files.ListByStatus(ctx, file.StatusCompleted)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list completed files")
	}
	return files, nil
}

// GetCompleted retrieves a file and rejects it unless parsing finished
func (s *RegistryService) GetCompleted(ctx context.Context, id core.FileID) (*file.UploadedFile, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.IsCompleted() {
		return nil, errors.InvalidInput(fmt.Sprintf("file %s is not ready (status: %s)", id, f.Status))
	}
	return f, nil
}

// GetCompletedSet retrieves several files and rejects the whole request if any
// is missing or not completed. The planner must not trust client-side filtering.
func (s *RegistryService) GetCompletedSet(ctx context.Context, ids []core.FileID) ([]*file.UploadedFile, error) {
	files, err := s.files.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load files")
	}
	if len(files) != len(ids) {
		return nil, errors.InvalidInput(fmt.Sprintf("%d of %d selected files do not exist", len(ids)-len(files), len(ids)))
	}
	for _, f := range files {
		if !f.IsCompleted() {
			return nil, errors.InvalidInput(fmt.Sprintf("file %s is not ready (status: %s)", f.ID, f.Status))
		}
	}
	return files, nil
}

// AttachInsights stores the AI analysis blob on a file
func (s *RegistryService) AttachInsights(ctx context.Context, id core.FileID, insights *file.AIInsights) error {
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return errors.NotFound("file")
	}

	f.Metadata.Insights = insights
	f.UpdatedAt = time.Now()
	if err := s.files.Update(ctx, f); err != nil {
		return errors.StorageFailure("failed to attach insights", err)
	}
	return nil
}
