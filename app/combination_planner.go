package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"xceldash/adapters/tabular"
	"xceldash/ai"
	"xceldash/domain/combine"
	"xceldash/domain/core"
	"xceldash/domain/file"
	"xceldash/domain/widget"
	"xceldash/internal/errors"
	"xceldash/ports"

	"golang.org/x/sync/semaphore"
)

// ArtifactWriter persists a combined dataset as a CSV artifact
type ArtifactWriter interface {
	WriteCSV(ctx context.Context, filename string, headers []string, rows [][]string) (path string, size int64, err error)
	Delete(ctx context.Context, path string) error
}

// sampleRowsPerMember bounds how many rows per file feed the AI analyst
const sampleRowsPerMember = 5

// CombinationPlanner produces previews over sets of completed files and
// materializes confirmed combinations. Previews are ephemeral and keyed by
// the member set; each carries a version so a stale regenerate response
// arriving after a newer one is detected and discarded.
type CombinationPlanner struct {
	registry *RegistryService
	files    ports.FileRepository
	loader   TableLoader
	analyst  *ai.CombinationAnalyst
	writer   ArtifactWriter

	// Caps concurrent AI analysis calls; they are the only operations with
	// externally variable latency.
	aiSlots *semaphore.Weighted

	// Installed previews are never mutated: handlers may still be
	// serializing a pointer they were handed, so Regenerate installs a
	// modified clone instead of writing through the stored one.
	mu       sync.Mutex
	previews map[string]*combine.Preview
}

// NewCombinationPlanner creates a combination planner
func NewCombinationPlanner(registry *RegistryService, files ports.FileRepository, loader TableLoader, analyst *ai.CombinationAnalyst, writer ArtifactWriter, maxConcurrentAI int) *CombinationPlanner {
	if maxConcurrentAI < 1 {
		maxConcurrentAI = 1
	}
	return &CombinationPlanner{
		registry: registry,
		files:    files,
		loader:   loader,
		analyst:  analyst,
		writer:   writer,
		aiSlots:  semaphore.NewWeighted(int64(maxConcurrentAI)),
		previews: make(map[string]*combine.Preview),
	}
}

// Preview produces a combination preview for at least two completed files
// without mutating any stored data.
func (p *CombinationPlanner) Preview(ctx context.Context, fileIDs []core.FileID) (*combine.Preview, error) {
	members, err := p.eligibleMembers(ctx, fileIDs)
	if err != nil {
		return nil, err
	}

	headers, provenance, estimatedRows, memberNames := unionOf(members)

	analysis, err := p.analyze(ctx, members)
	if err != nil {
		return nil, err
	}
	analysis.DerivedColumns = filterDerivations(headers, analysis.DerivedColumns)

	preview := &combine.Preview{
		ID:               core.PreviewID(core.NewID()),
		Version:          1,
		FileIDs:          fileIDs,
		EstimatedRows:    estimatedRows,
		EstimatedColumns: len(headers) + len(analysis.DerivedColumns),
		ProposedFilename: combine.DefaultCombinedFilename(memberNames, time.Now()),
		UnionHeaders:     headers,
		Provenance:       provenance,
		DerivedColumns:   analysis.DerivedColumns,
		Optimizations:    analysis.Optimizations,
		Insights:         analysis.Insights,
		State:            combine.StatePreviewReady,
		CreatedAt:        time.Now(),
	}

	p.mu.Lock()
	p.previews[memberKey(fileIDs)] = preview
	p.mu.Unlock()

	log.Printf("[Planner] Preview ready for %d files (~%d rows, %d columns, version %d)",
		len(fileIDs), preview.EstimatedRows, preview.EstimatedColumns, preview.Version)
	return preview, nil
}

// Regenerate re-runs only the AI analysis for an existing preview, leaving
// the size estimates untouched. If a newer regenerate finished while this
// one's AI call was in flight, this response is discarded and the newer
// preview returned.
func (p *CombinationPlanner) Regenerate(ctx context.Context, fileIDs []core.FileID) (*combine.Preview, error) {
	key := memberKey(fileIDs)

	p.mu.Lock()
	existing, ok := p.previews[key]
	if !ok {
		p.mu.Unlock()
		return nil, errors.InvalidInput("no preview exists for the selected files; request a preview first")
	}
	attemptVersion := existing.Version + 1
	p.mu.Unlock()

	members, err := p.eligibleMembers(ctx, fileIDs)
	if err != nil {
		return nil, err
	}

	analysis, err := p.analyze(ctx, members)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.previews[key]
	if !ok {
		return nil, errors.InvalidInput("preview was discarded while regenerating")
	}
	if current.Version >= attemptVersion {
		// A competing regenerate installed a newer version first; drop ours.
		log.Printf("[Planner] Discarding stale regenerate response (version %d, current %d)", attemptVersion, current.Version)
		return current, nil
	}

	next := current.Clone()
	next.Version = attemptVersion
	next.DerivedColumns = filterDerivations(next.UnionHeaders, analysis.DerivedColumns)
	next.Optimizations = analysis.Optimizations
	next.Insights = analysis.Insights
	p.previews[key] = next

	log.Printf("[Planner] Regenerated insights for %d files (version %d)", len(fileIDs), next.Version)
	return next, nil
}

// Confirm materializes the combined dataset: member rows concatenated under
// the unioned header set, missing cells left empty, and approved derived
// columns appended as placeholders. The new file and its widget placeholder
// are registered together or not at all.
func (p *CombinationPlanner) Confirm(ctx context.Context, req combine.ConfirmRequest) (*file.UploadedFile, error) {
	members, err := p.eligibleMembers(ctx, req.FileIDs)
	if err != nil {
		return nil, err
	}

	headers, _, _, memberNames := unionOf(members)
	approved := filterDerivations(headers, req.ApprovedDerivations)

	finalHeaders := append([]string{}, headers...)
	for _, dc := range approved {
		finalHeaders = append(finalHeaders, dc.Name)
	}

	filename := strings.TrimSpace(req.FinalFilename)
	if filename == "" {
		filename = combine.DefaultCombinedFilename(memberNames, time.Now())
	}

	rows, err := p.concatRows(ctx, members, headers, len(approved))
	if err != nil {
		return nil, err
	}

	path, size, err := p.writer.WriteCSV(ctx, filename, finalHeaders, rows)
	if err != nil {
		return nil, errors.StorageFailure("failed to write combined file", err)
	}

	combined := file.New(members[0].UserID, filename, file.TypeCSV)
	combined.Source = "combination"
	combined.StoragePath = path
	combined.FileSize = size
	combined.MarkParsed(finalHeaders, len(rows), len(finalHeaders))
	combined.Metadata.SourceIDs = req.FileIDs
	combined.Metadata.Columns = profileCombined(finalHeaders, rows)

	placeholder := widget.New(combined.ID, "Combined data", widget.TypeTable, widget.ForTable(finalHeaders), widget.OriginManual)

	if err := p.files.CreateWithWidgets(ctx, combined, []*widget.Widget{placeholder}); err != nil {
		// Roll the artifact back so no orphan file is left behind.
		if rmErr := p.writer.Delete(ctx, path); rmErr != nil {
			log.Printf("[Planner] WARNING: failed to clean up artifact %s after failed confirm: %v", path, rmErr)
		}
		return nil, errors.StorageFailure("failed to register combined file", err)
	}

	p.mu.Lock()
	delete(p.previews, memberKey(req.FileIDs))
	p.mu.Unlock()

	log.Printf("[Planner] Materialized combined file %s (%d rows, %d columns)", combined.ID, len(rows), len(finalHeaders))
	return combined, nil
}

// eligibleMembers loads the member files and rejects the request unless there
// are at least two and every one has finished parsing. The UI already filters;
// the planner does not trust that.
func (p *CombinationPlanner) eligibleMembers(ctx context.Context, fileIDs []core.FileID) ([]*file.UploadedFile, error) {
	if len(fileIDs) < 2 {
		return nil, errors.InvalidInput("at least 2 files are required for combination")
	}
	return p.registry.GetCompletedSet(ctx, fileIDs)
}

// analyze runs the AI collaborator under the concurrency cap, translating
// failures into the retryable AIUnavailable condition. Insights are never
// fabricated locally on failure.
func (p *CombinationPlanner) analyze(ctx context.Context, members []*file.UploadedFile) (*ai.AnalysisResult, error) {
	if err := p.aiSlots.Acquire(ctx, 1); err != nil {
		return nil, errors.AIUnavailable(err)
	}
	defer p.aiSlots.Release(1)

	summaries := make([]ai.MemberSummary, 0, len(members))
	for _, m := range members {
		summaries = append(summaries, ai.MemberSummary{
			Filename:   m.OriginalFilename,
			Headers:    m.Schema.Headers,
			TotalRows:  m.Schema.TotalRows,
			SampleRows: truncateSamples(m.Metadata.SampleRows, sampleRowsPerMember),
		})
	}

	analysis, err := p.analyst.Analyze(ctx, summaries)
	if err != nil {
		return nil, errors.AIUnavailable(err)
	}
	return analysis, nil
}

// concatRows appends every member's rows under the unioned headers. Cells a
// member never had stay empty; derived columns are appended as empty
// placeholders for downstream computation.
func (p *CombinationPlanner) concatRows(ctx context.Context, members []*file.UploadedFile, headers []string, derivedCount int) ([][]string, error) {
	var rows [][]string
	for _, m := range members {
		data, err := p.loader.Load(ctx, m)
		if err != nil {
			return nil, errors.StorageFailure(fmt.Sprintf("failed to load data for file %s", m.ID), err)
		}
		for _, raw := range data.Rows {
			row := make([]string, len(headers)+derivedCount)
			for i, h := range headers {
				row[i] = raw[h]
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// unionOf merges the member schemas: deduplicated header union with
// provenance, summed row estimate, and the member filenames in order.
func unionOf(members []*file.UploadedFile) (headers []string, provenance map[string][]string, estimatedRows int, memberNames []string) {
	memberHeaders := make([][]string, 0, len(members))
	memberNames = make([]string, 0, len(members))
	for _, m := range members {
		memberHeaders = append(memberHeaders, m.Schema.Headers)
		memberNames = append(memberNames, m.OriginalFilename)
		// Row estimate is a straight sum: the combination model is append,
		// not join, since no join-key concept exists in the contracts.
		estimatedRows += m.Schema.TotalRows
	}
	headers, provenance = combine.UnionHeaders(memberHeaders, memberNames)
	return headers, provenance, estimatedRows, memberNames
}

// profileCombined classifies the combined columns from the materialized rows
func profileCombined(headers []string, rows [][]string) []file.ColumnProfile {
	data := &tabular.TableData{Headers: headers}
	for _, row := range rows {
		raw := make(tabular.RawRowData, len(headers))
		for i, h := range headers {
			if i < len(row) {
				raw[h] = row[i]
			}
		}
		data.Rows = append(data.Rows, raw)
	}
	return tabular.ProfileColumns(data)
}

// filterDerivations drops proposed columns whose names are blank or collide
// with an existing header or an earlier proposal, so a derivation can never
// duplicate a column in the artifact.
func filterDerivations(headers []string, proposals []combine.DerivedColumn) []combine.DerivedColumn {
	taken := make(map[string]bool, len(headers)+len(proposals))
	for _, h := range headers {
		taken[h] = true
	}
	kept := make([]combine.DerivedColumn, 0, len(proposals))
	for _, dc := range proposals {
		name := strings.TrimSpace(dc.Name)
		if name == "" || taken[name] {
			continue
		}
		taken[name] = true
		dc.Name = name
		kept = append(kept, dc)
	}
	return kept
}

func truncateSamples(samples []map[string]string, n int) []map[string]string {
	if len(samples) <= n {
		return samples
	}
	return samples[:n]
}

// memberKey canonicalizes a file set so previews are shared across id order
func memberKey(fileIDs []core.FileID) string {
	ids := make([]string, 0, len(fileIDs))
	for _, id := range fileIDs {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}
