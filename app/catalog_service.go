package app

import (
	"context"
	"log"
	"strings"

	"xceldash/ai"
	"xceldash/domain/core"
	"xceldash/domain/widget"
	"xceldash/internal/errors"
	"xceldash/ports"
)

// maxDescriptionLength caps the free-text prompt a user may attach to an AI
// widget request. The text itself is passed through opaquely.
const maxDescriptionLength = 4096

// CatalogService manages the per-file widget catalog. AI and manual widgets
// are stored identically; only the origin tag differs, and it is used purely
// for display badging.
type CatalogService struct {
	widgets  ports.WidgetRepository
	registry *RegistryService
	policy   *SelectionPolicy
	advisor  *ai.WidgetAdvisor
}

// NewCatalogService creates a widget catalog
func NewCatalogService(widgets ports.WidgetRepository, registry *RegistryService, policy *SelectionPolicy, advisor *ai.WidgetAdvisor) *CatalogService {
	return &CatalogService{
		widgets:  widgets,
		registry: registry,
		policy:   policy,
		advisor:  advisor,
	}
}

// CreateManual validates and stores a manually configured widget. Validation
// failures report every unmet condition at once and nothing is created.
func (s *CatalogService) CreateManual(ctx context.Context, fileID core.FileID, name string, typ widget.Type, cfg widget.Config) (*widget.Widget, error) {
	w, err := s.buildValidated(ctx, fileID, name, typ, cfg, widget.OriginManual)
	if err != nil {
		return nil, err
	}

	if err := s.widgets.Create(ctx, w); err != nil {
		return nil, errors.StorageFailure("failed to create widget", err)
	}
	log.Printf("[Catalog] Created %s widget %q for file %s", typ, w.Name, fileID)
	return w, nil
}

// CreateFromAI delegates column and function selection to the AI collaborator
// and stores the result exactly as a manual widget would be stored.
func (s *CatalogService) CreateFromAI(ctx context.Context, fileID core.FileID, typ widget.Type, description string) (*widget.Widget, error) {
	if len(description) > maxDescriptionLength {
		return nil, errors.ValidationError("description is too long")
	}
	if !typ.IsValid() {
		return nil, errors.ValidationError("unknown widget type")
	}

	f, err := s.registry.GetCompleted(ctx, fileID)
	if err != nil {
		return nil, err
	}

	suggestion, err := s.advisor.Suggest(ctx, f.Schema, f.Metadata.Columns, typ, description)
	if err != nil {
		return nil, errors.AIUnavailable(err)
	}

	w, err := s.buildValidated(ctx, fileID, suggestion.Name, typ, suggestion.Config, widget.OriginAI)
	if err != nil {
		// The model suggested columns that do not exist; the user retries
		// rather than us silently repairing the suggestion.
		return nil, err
	}
	w.AIInsights = suggestion.Insight

	if err := s.widgets.Create(ctx, w); err != nil {
		return nil, errors.StorageFailure("failed to create widget", err)
	}
	log.Printf("[Catalog] Created AI-suggested %s widget %q for file %s", typ, w.Name, fileID)
	return w, nil
}

// buildValidated runs the shared manual/AI validation path
func (s *CatalogService) buildValidated(ctx context.Context, fileID core.FileID, name string, typ widget.Type, cfg widget.Config, origin widget.Origin) (*widget.Widget, error) {
	var problems []string
	if strings.TrimSpace(name) == "" {
		problems = append(problems, "widget name is required")
	}
	if !typ.IsValid() {
		problems = append(problems, "unknown widget type")
		return nil, errors.ValidationError(strings.Join(problems, "; "))
	}

	f, err := s.registry.GetCompleted(ctx, fileID)
	if err != nil {
		return nil, err
	}

	problems = append(problems, cfg.Validate(typ, f.Schema)...)
	if len(problems) > 0 {
		return nil, errors.ValidationError(strings.Join(problems, "; "))
	}

	return widget.New(fileID, strings.TrimSpace(name), typ, cfg, origin), nil
}

// Rename updates a widget's display name
func (s *CatalogService) Rename(ctx context.Context, id core.WidgetID, name string) (*widget.Widget, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.ValidationError("widget name is required")
	}

	w, err := s.widgets.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NotFound("widget")
	}

	w.Name = strings.TrimSpace(name)
	w.UpdatedAt = core.Now().Time()
	if err := s.widgets.Update(ctx, w); err != nil {
		return nil, errors.StorageFailure("failed to rename widget", err)
	}
	return w, nil
}

// Remove deletes a widget. Removing an already-removed id is a no-op success
// so duplicate UI clicks stay harmless.
func (s *CatalogService) Remove(ctx context.Context, id core.WidgetID) error {
	if err := s.widgets.Delete(ctx, id); err != nil {
		return errors.StorageFailure("failed to remove widget", err)
	}
	return nil
}

// ListByFile returns the file's widgets in display order
func (s *CatalogService) ListByFile(ctx context.Context, fileID core.FileID) ([]*widget.Widget, error) {
	widgets, err := s.widgets.ListByFile(ctx, fileID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list widgets")
	}
	return widgets, nil
}

// SetDisplayed toggles a single widget's displayed flag, consulting the
// selection policy before committing. Toggling off is always permitted.
func (s *CatalogService) SetDisplayed(ctx context.Context, id core.WidgetID, displayed bool) (*widget.Widget, error) {
	w, err := s.widgets.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NotFound("widget")
	}

	if displayed {
		siblings, err := s.widgets.ListByFile(ctx, w.FileID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load widget set")
		}
		if err := s.policy.CanDisplay(w, siblings); err != nil {
			return nil, err
		}
	}

	w.Displayed = displayed
	w.UpdatedAt = core.Now().Time()
	if err := s.widgets.Update(ctx, w); err != nil {
		return nil, errors.StorageFailure("failed to update widget", err)
	}
	return w, nil
}

// SaveSelection persists the full displayed-set for a file. The submitted set
// is re-validated against the bucket caps and the write is atomic; a stale
// client cannot leave a partially applied selection behind.
func (s *CatalogService) SaveSelection(ctx context.Context, fileID core.FileID, widgetIDs []core.WidgetID) error {
	widgets, err := s.widgets.ListByFile(ctx, fileID)
	if err != nil {
		return errors.Wrap(err, "failed to load widget set")
	}

	if err := s.policy.ValidateSet(widgets, widgetIDs); err != nil {
		return err
	}

	if err := s.widgets.SaveDisplayedSet(ctx, fileID, widgetIDs); err != nil {
		return errors.StorageFailure("failed to save selection", err)
	}
	log.Printf("[Catalog] Saved selection for file %s (%d displayed)", fileID, len(widgetIDs))
	return nil
}
