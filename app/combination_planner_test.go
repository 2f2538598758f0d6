package app

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"xceldash/adapters/tabular"
	"xceldash/ai"
	"xceldash/domain/combine"
	"xceldash/domain/core"
	"xceldash/domain/file"
	"xceldash/domain/widget"
	"xceldash/internal/config"
	"xceldash/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analysisPayload = `{
	"derived_columns": [{"name": "revenue_per_unit", "description": "Revenue divided by Units"}],
	"optimizations": ["trimmed whitespace"],
	"data_insights": ["north leads"],
	"key_discoveries": [],
	"business_opportunities": [],
	"data_quality_insights": [],
	"analytics_recommendations": []
}`

type plannerFixture struct {
	planner *CombinationPlanner
	files   *fakeFileRepo
	writer  *fakeWriter
	a       *file.UploadedFile
	b       *file.UploadedFile
}

func newPlannerFixture(t *testing.T, llm *stubLLM) *plannerFixture {
	t.Helper()
	fileRepo := newFakeFileRepo()
	registry := NewRegistryService(fileRepo)

	a := completedFile(fileRepo, "sales.csv", []string{"Region", "Revenue"}, 100, nil)
	b := completedFile(fileRepo, "units.csv", []string{"Region", "Units"}, 50, nil)

	loader := &fakeLoader{tables: map[core.FileID]*tabular.TableData{
		a.ID: {
			Headers: []string{"Region", "Revenue"},
			Rows: []tabular.RawRowData{
				{"Region": "North", "Revenue": "100"},
				{"Region": "South", "Revenue": "200"},
			},
		},
		b.ID: {
			Headers: []string{"Region", "Units"},
			Rows: []tabular.RawRowData{
				{"Region": "East", "Units": "7"},
			},
		},
	}}

	analyst := ai.NewCombinationAnalyst(llm, config.AIConfig{
		PromptsDir:    "../prompts",
		SystemContext: "You respond with JSON.",
	})
	writer := &fakeWriter{}

	planner := NewCombinationPlanner(registry, fileRepo, loader, analyst, writer, 2)
	return &plannerFixture{planner: planner, files: fileRepo, writer: writer, a: a, b: b}
}

func TestPreviewEstimates(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{content: analysisPayload})

	preview, err := fx.planner.Preview(context.Background(), []core.FileID{fx.a.ID, fx.b.ID})
	require.NoError(t, err)

	// Rows sum across members, columns are the union plus derivations.
	assert.Equal(t, 150, preview.EstimatedRows)
	assert.Equal(t, []string{"Region", "Revenue", "Units"}, preview.UnionHeaders)
	assert.Equal(t, 4, preview.EstimatedColumns)
	assert.Equal(t, 1, preview.Version)
	assert.Equal(t, combine.StatePreviewReady, preview.State)
	assert.NotEmpty(t, preview.ProposedFilename)
	assert.Len(t, preview.DerivedColumns, 1)
	assert.Equal(t, []string{"sales.csv", "units.csv"}, preview.Provenance["Region"])
}

func TestPreviewRequiresTwoFiles(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{content: analysisPayload})

	_, err := fx.planner.Preview(context.Background(), []core.FileID{fx.a.ID})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestPreviewRejectsProcessingMember(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{content: analysisPayload})

	pending := file.New("user-1", "pending.csv", file.TypeCSV)
	require.NoError(t, fx.files.Create(context.Background(), pending))

	_, err := fx.planner.Preview(context.Background(), []core.FileID{fx.a.ID, pending.ID})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestPreviewAIFailureIsRetryable(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{err: stderrors.New("upstream timeout")})

	_, err := fx.planner.Preview(context.Background(), []core.FileID{fx.a.ID, fx.b.ID})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeAIUnavailable))
}

func TestRegenerateBumpsVersionKeepsEstimates(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{content: analysisPayload})
	ids := []core.FileID{fx.a.ID, fx.b.ID}

	first, err := fx.planner.Preview(context.Background(), ids)
	require.NoError(t, err)

	second, err := fx.planner.Regenerate(context.Background(), ids)
	require.NoError(t, err)

	assert.Equal(t, 2, second.Version)
	assert.Equal(t, first.EstimatedRows, second.EstimatedRows)
	assert.Equal(t, first.EstimatedColumns, second.EstimatedColumns)

	// Member order must not matter for finding the preview.
	third, err := fx.planner.Regenerate(context.Background(), []core.FileID{fx.b.ID, fx.a.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, third.Version)
}

func TestRegenerateDoesNotMutateHandedOutPreview(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{content: analysisPayload})
	ids := []core.FileID{fx.a.ID, fx.b.ID}

	first, err := fx.planner.Preview(context.Background(), ids)
	require.NoError(t, err)

	// Serialize the first response concurrently, the way a handler does,
	// while regenerates install newer versions.
	done := make(chan error, 1)
	go func() {
		for i := 0; i < 100; i++ {
			if _, err := json.Marshal(first); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	var last *combine.Preview
	for i := 0; i < 20; i++ {
		last, err = fx.planner.Regenerate(context.Background(), ids)
		require.NoError(t, err)
	}
	require.NoError(t, <-done)

	assert.Equal(t, 1, first.Version, "the handed-out preview must not change underneath its reader")
	assert.Equal(t, 21, last.Version)
	assert.NotSame(t, first, last)
}

func TestRegenerateWithoutPreview(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{content: analysisPayload})

	_, err := fx.planner.Regenerate(context.Background(), []core.FileID{fx.a.ID, fx.b.ID})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestPreviewDropsCollidingDerivations(t *testing.T) {
	colliding := `{
		"derived_columns": [
			{"name": "Revenue", "description": "already a source column"},
			{"name": "   ", "description": "blank"},
			{"name": "margin", "description": "revenue minus cost"},
			{"name": "margin", "description": "repeated proposal"}
		],
		"optimizations": [],
		"data_insights": [],
		"key_discoveries": [],
		"business_opportunities": [],
		"data_quality_insights": [],
		"analytics_recommendations": []
	}`
	fx := newPlannerFixture(t, &stubLLM{content: colliding})

	preview, err := fx.planner.Preview(context.Background(), []core.FileID{fx.a.ID, fx.b.ID})
	require.NoError(t, err)

	require.Len(t, preview.DerivedColumns, 1)
	assert.Equal(t, "margin", preview.DerivedColumns[0].Name)
	assert.Equal(t, 4, preview.EstimatedColumns, "dropped proposals must not inflate the estimate")
}

func TestConfirmMaterializesCombinedFile(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{content: analysisPayload})
	ids := []core.FileID{fx.a.ID, fx.b.ID}

	combined, err := fx.planner.Confirm(context.Background(), combine.ConfirmRequest{
		FileIDs:       ids,
		FinalFilename: "merged_sales.csv",
		ApprovedDerivations: []combine.DerivedColumn{
			{Name: "revenue_per_unit", Description: "Revenue divided by Units"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "combination", combined.Source)
	assert.True(t, combined.IsCompleted())
	assert.Equal(t, ids, combined.Metadata.SourceIDs)
	assert.Equal(t, []string{"Region", "Revenue", "Units", "revenue_per_unit"}, combined.Schema.Headers)
	assert.Equal(t, 3, combined.Schema.TotalRows)

	// The artifact holds every member row under the union headers, missing
	// cells empty and the derived column as a placeholder.
	assert.Equal(t, "merged_sales.csv", fx.writer.writtenFilename)
	require.Len(t, fx.writer.writtenRows, 3)
	assert.Equal(t, []string{"North", "100", "", ""}, fx.writer.writtenRows[0])
	assert.Equal(t, []string{"East", "", "7", ""}, fx.writer.writtenRows[2])

	// The placeholder widget is created in the same transaction.
	require.Len(t, fx.files.createdWidgets, 1)
	assert.Equal(t, widget.TypeTable, fx.files.createdWidgets[0].Type)
	assert.Equal(t, combined.ID, fx.files.createdWidgets[0].FileID)
}

func TestConfirmSkipsCollidingDerivations(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{content: analysisPayload})

	combined, err := fx.planner.Confirm(context.Background(), combine.ConfirmRequest{
		FileIDs: []core.FileID{fx.a.ID, fx.b.ID},
		ApprovedDerivations: []combine.DerivedColumn{
			{Name: "Revenue", Description: "collides with a source column"},
			{Name: "", Description: "blank"},
			{Name: "margin", Description: "revenue minus cost"},
			{Name: "margin", Description: "duplicate approval"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Region", "Revenue", "Units", "margin"}, combined.Schema.Headers)
	assert.Equal(t, 4, combined.Schema.TotalColumns)
	require.Len(t, fx.writer.writtenRows, 3)
	assert.Len(t, fx.writer.writtenRows[0], 4, "artifact rows match the deduplicated header set")
}

func TestConfirmDefaultsFilename(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{content: analysisPayload})

	combined, err := fx.planner.Confirm(context.Background(), combine.ConfirmRequest{
		FileIDs: []core.FileID{fx.a.ID, fx.b.ID},
	})
	require.NoError(t, err)
	assert.Contains(t, combined.OriginalFilename, "combined_sales_units_")
}

func TestConfirmPreviewColumnsMatchArtifact(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{content: analysisPayload})
	ids := []core.FileID{fx.a.ID, fx.b.ID}

	preview, err := fx.planner.Preview(context.Background(), ids)
	require.NoError(t, err)

	combined, err := fx.planner.Confirm(context.Background(), combine.ConfirmRequest{
		FileIDs:             ids,
		ApprovedDerivations: preview.DerivedColumns,
	})
	require.NoError(t, err)

	// Approving every proposed derivation makes the artifact's width equal
	// the preview's column estimate.
	assert.Equal(t, preview.EstimatedColumns, combined.Schema.TotalColumns)
}

func TestConfirmCleansUpArtifactOnDBFailure(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{content: analysisPayload})
	fx.files.failCreateWithWidgets = true

	_, err := fx.planner.Confirm(context.Background(), combine.ConfirmRequest{
		FileIDs: []core.FileID{fx.a.ID, fx.b.ID},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeStorageFailure))
	require.Len(t, fx.writer.deletedPaths, 1, "written artifact must be removed after a failed registration")
}

func TestConfirmStorageFailure(t *testing.T) {
	fx := newPlannerFixture(t, &stubLLM{content: analysisPayload})
	fx.writer.failWrite = true

	_, err := fx.planner.Confirm(context.Background(), combine.ConfirmRequest{
		FileIDs: []core.FileID{fx.a.ID, fx.b.ID},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeStorageFailure))
	assert.Empty(t, fx.writer.deletedPaths)
}
