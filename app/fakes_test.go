package app

import (
	"context"
	"fmt"
	"sync"

	"xceldash/adapters/tabular"
	"xceldash/domain/core"
	"xceldash/domain/file"
	"xceldash/domain/widget"
	"xceldash/ports"
)

// In-memory fakes for the storage ports. They keep insertion order so list
// results are deterministic.

type fakeFileRepo struct {
	mu    sync.Mutex
	files map[core.FileID]*file.UploadedFile
	order []core.FileID

	failCreateWithWidgets bool
	createdWidgets        []*widget.Widget
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[core.FileID]*file.UploadedFile)}
}

func (r *fakeFileRepo) Create(ctx context.Context, f *file.UploadedFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[f.ID] = f
	r.order = append(r.order, f.ID)
	return nil
}

func (r *fakeFileRepo) GetByID(ctx context.Context, id core.FileID) (*file.UploadedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, fmt.Errorf("file %s not found", id)
	}
	return f, nil
}

func (r *fakeFileRepo) GetByIDs(ctx context.Context, ids []core.FileID) ([]*file.UploadedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*file.UploadedFile
	for _, id := range ids {
		if f, ok := r.files[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) List(ctx context.Context, limit, offset int) ([]*file.UploadedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*file.UploadedFile
	for _, id := range r.order {
		out = append(out, r.files[id])
	}
	return out, nil
}

func (r *fakeFileRepo) ListByStatus(ctx context.Context, status file.Status) ([]*file.UploadedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*file.UploadedFile
	for _, id := range r.order {
		if r.files[id].Status == status {
			out = append(out, r.files[id])
		}
	}
	return out, nil
}

func (r *fakeFileRepo) Update(ctx context.Context, f *file.UploadedFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[f.ID]; !ok {
		return fmt.Errorf("file %s not found", f.ID)
	}
	r.files[f.ID] = f
	return nil
}

func (r *fakeFileRepo) UpdateStatus(ctx context.Context, id core.FileID, status file.Status, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return fmt.Errorf("file %s not found", id)
	}
	f.Status = status
	f.ErrorMessage = errorMsg
	return nil
}

func (r *fakeFileRepo) CreateWithWidgets(ctx context.Context, f *file.UploadedFile, widgets []*widget.Widget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateWithWidgets {
		return fmt.Errorf("simulated transaction failure")
	}
	r.files[f.ID] = f
	r.order = append(r.order, f.ID)
	r.createdWidgets = append(r.createdWidgets, widgets...)
	return nil
}

var _ ports.FileRepository = (*fakeFileRepo)(nil)

type fakeWidgetRepo struct {
	mu      sync.Mutex
	widgets map[core.WidgetID]*widget.Widget
	order   []core.WidgetID
}

func newFakeWidgetRepo() *fakeWidgetRepo {
	return &fakeWidgetRepo{widgets: make(map[core.WidgetID]*widget.Widget)}
}

func (r *fakeWidgetRepo) Create(ctx context.Context, w *widget.Widget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.widgets[w.ID] = w
	r.order = append(r.order, w.ID)
	return nil
}

func (r *fakeWidgetRepo) GetByID(ctx context.Context, id core.WidgetID) (*widget.Widget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.widgets[id]
	if !ok {
		return nil, fmt.Errorf("widget %s not found", id)
	}
	return w, nil
}

func (r *fakeWidgetRepo) ListByFile(ctx context.Context, fileID core.FileID) ([]*widget.Widget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*widget.Widget
	for _, id := range r.order {
		if r.widgets[id].FileID == fileID {
			out = append(out, r.widgets[id])
		}
	}
	return out, nil
}

func (r *fakeWidgetRepo) Update(ctx context.Context, w *widget.Widget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.widgets[w.ID]; !ok {
		return fmt.Errorf("widget %s not found", w.ID)
	}
	r.widgets[w.ID] = w
	return nil
}

func (r *fakeWidgetRepo) Delete(ctx context.Context, id core.WidgetID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.widgets[id]; !ok {
		// Missing ids are a no-op, matching the SQL adapter.
		return nil
	}
	delete(r.widgets, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeWidgetRepo) SaveDisplayedSet(ctx context.Context, fileID core.FileID, widgetIDs []core.WidgetID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	selected := make(map[core.WidgetID]int, len(widgetIDs))
	for i, id := range widgetIDs {
		selected[id] = i
	}
	for _, id := range r.order {
		w := r.widgets[id]
		if w.FileID != fileID {
			continue
		}
		if pos, ok := selected[id]; ok {
			w.Displayed = true
			w.DisplayOrder = pos
		} else {
			w.Displayed = false
		}
	}
	return nil
}

var _ ports.WidgetRepository = (*fakeWidgetRepo)(nil)

// fakeLoader serves canned table data per file
type fakeLoader struct {
	tables map[core.FileID]*tabular.TableData
	err    error
}

func (l *fakeLoader) Load(ctx context.Context, f *file.UploadedFile) (*tabular.TableData, error) {
	if l.err != nil {
		return nil, l.err
	}
	data, ok := l.tables[f.ID]
	if !ok {
		return nil, fmt.Errorf("no data for file %s", f.ID)
	}
	return data, nil
}

// fakeWriter captures written artifacts
type fakeWriter struct {
	mu        sync.Mutex
	failWrite bool

	writtenFilename string
	writtenHeaders  []string
	writtenRows     [][]string
	deletedPaths    []string
}

func (w *fakeWriter) WriteCSV(ctx context.Context, filename string, headers []string, rows [][]string) (string, int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failWrite {
		return "", 0, fmt.Errorf("simulated write failure")
	}
	w.writtenFilename = filename
	w.writtenHeaders = headers
	w.writtenRows = rows
	return "/tmp/fake/" + filename, int64(len(rows)), nil
}

func (w *fakeWriter) Delete(ctx context.Context, path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deletedPaths = append(w.deletedPaths, path)
	return nil
}

// stubLLM returns a canned payload for every AI call
type stubLLM struct {
	content string
	err     error
}

func (s *stubLLM) ChatCompletion(ctx context.Context, systemMessage, prompt string) (*ports.LLMResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ports.LLMResponse{Content: s.content}, nil
}

// completedFile builds a parsed sales file registered in the repo
func completedFile(repo *fakeFileRepo, name string, headers []string, rows int, profiles []file.ColumnProfile) *file.UploadedFile {
	f := file.New("user-1", name, file.TypeCSV)
	f.MarkParsed(headers, rows, len(headers))
	f.Metadata.Columns = profiles
	repo.Create(context.Background(), f)
	return f
}

func numericProfile(name string) file.ColumnProfile {
	return file.ColumnProfile{Name: name, DataType: tabular.KindNumeric}
}

func categoricalProfile(name string) file.ColumnProfile {
	return file.ColumnProfile{Name: name, DataType: tabular.KindCategorical}
}
