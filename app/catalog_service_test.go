package app

import (
	"context"
	stderrors "errors"
	"testing"

	"xceldash/ai"
	"xceldash/domain/core"
	"xceldash/domain/file"
	"xceldash/domain/widget"
	"xceldash/internal/config"
	"xceldash/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogFixture(llm *stubLLM) (*CatalogService, *fakeWidgetRepo, *file.UploadedFile) {
	fileRepo := newFakeFileRepo()
	widgetRepo := newFakeWidgetRepo()
	registry := NewRegistryService(fileRepo)
	policy := NewSelectionPolicy(widgetRepo)

	var advisor *ai.WidgetAdvisor
	if llm != nil {
		advisor = ai.NewWidgetAdvisor(llm, config.AIConfig{
			PromptsDir:    "../prompts",
			SystemContext: "You respond with JSON.",
		})
	}

	f := completedFile(fileRepo, "sales.csv",
		[]string{"Region", "Product", "Revenue", "Units"}, 100,
		[]file.ColumnProfile{
			categoricalProfile("Region"),
			categoricalProfile("Product"),
			numericProfile("Revenue"),
			numericProfile("Units"),
		})

	return NewCatalogService(widgetRepo, registry, policy, advisor), widgetRepo, f
}

func TestCreateManualValidWidget(t *testing.T) {
	catalog, repo, f := catalogFixture(nil)

	w, err := catalog.CreateManual(context.Background(), f.ID, "Total revenue", widget.TypeKPI, widget.ForKPI("Revenue", widget.AggSum))
	require.NoError(t, err)

	assert.Equal(t, widget.OriginManual, w.Origin)
	assert.False(t, w.Displayed, "new widgets start hidden")

	stored, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Total revenue", stored.Name)
}

func TestCreateManualCollectsAllProblems(t *testing.T) {
	catalog, repo, f := catalogFixture(nil)

	_, err := catalog.CreateManual(context.Background(), f.ID, "Bad", widget.TypeKPI, widget.ForKPI("Profit", widget.Aggregation("stddev")))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))
	assert.Contains(t, err.Error(), "Profit")
	assert.Contains(t, err.Error(), "stddev")

	widgets, _ := repo.ListByFile(context.Background(), f.ID)
	assert.Empty(t, widgets, "nothing must be created on validation failure")
}

func TestCreateManualBarChartSameAxesRejected(t *testing.T) {
	catalog, _, f := catalogFixture(nil)

	_, err := catalog.CreateManual(context.Background(), f.ID, "Rev by rev", widget.TypeBarChart, widget.ForBarChart("Revenue", "Revenue"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))
}

func TestCreateManualRejectsIncompleteFile(t *testing.T) {
	fileRepo := newFakeFileRepo()
	widgetRepo := newFakeWidgetRepo()
	catalog := NewCatalogService(widgetRepo, NewRegistryService(fileRepo), NewSelectionPolicy(widgetRepo), nil)

	pending := file.New("user-1", "pending.csv", file.TypeCSV)
	require.NoError(t, fileRepo.Create(context.Background(), pending))

	_, err := catalog.CreateManual(context.Background(), pending.ID, "Too soon", widget.TypeKPI, widget.ForKPI("A", widget.AggSum))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidInput))
}

func TestCreateFromAIStoredLikeManual(t *testing.T) {
	llm := &stubLLM{content: `{"widget_name":"Revenue by Region","x_axis":"Region","y_axis":"Revenue","insight":"North dominates."}`}
	catalog, repo, f := catalogFixture(llm)

	w, err := catalog.CreateFromAI(context.Background(), f.ID, widget.TypeBarChart, "compare regions")
	require.NoError(t, err)

	assert.Equal(t, widget.OriginAI, w.Origin)
	assert.Equal(t, "North dominates.", w.AIInsights)
	require.NotNil(t, w.Config.BarChart)
	assert.Equal(t, "Region", w.Config.BarChart.XAxis)

	stored, err := repo.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	assert.False(t, stored.Displayed)
}

func TestCreateFromAIRejectsHallucinatedColumns(t *testing.T) {
	llm := &stubLLM{content: `{"widget_name":"Ghost","column":"Profit","function":"sum"}`}
	catalog, repo, f := catalogFixture(llm)

	_, err := catalog.CreateFromAI(context.Background(), f.ID, widget.TypeKPI, "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))

	widgets, _ := repo.ListByFile(context.Background(), f.ID)
	assert.Empty(t, widgets)
}

func TestCreateFromAIUnavailable(t *testing.T) {
	llm := &stubLLM{err: stderrors.New("timeout")}
	catalog, _, f := catalogFixture(llm)

	_, err := catalog.CreateFromAI(context.Background(), f.ID, widget.TypeKPI, "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeAIUnavailable))
}

func TestCreateFromAIDescriptionTooLong(t *testing.T) {
	catalog, _, f := catalogFixture(nil)

	long := make([]byte, maxDescriptionLength+1)
	for i := range long {
		long[i] = 'a'
	}

	_, err := catalog.CreateFromAI(context.Background(), f.ID, widget.TypeKPI, string(long))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))
}

func TestRename(t *testing.T) {
	catalog, _, f := catalogFixture(nil)

	w, err := catalog.CreateManual(context.Background(), f.ID, "Old name", widget.TypeKPI, widget.ForKPI("Revenue", widget.AggSum))
	require.NoError(t, err)

	renamed, err := catalog.Rename(context.Background(), w.ID, "  New name  ")
	require.NoError(t, err)
	assert.Equal(t, "New name", renamed.Name)

	_, err = catalog.Rename(context.Background(), w.ID, "   ")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))
}

func TestRemoveIsIdempotent(t *testing.T) {
	catalog, repo, f := catalogFixture(nil)

	w, err := catalog.CreateManual(context.Background(), f.ID, "Doomed", widget.TypeKPI, widget.ForKPI("Revenue", widget.AggSum))
	require.NoError(t, err)

	require.NoError(t, catalog.Remove(context.Background(), w.ID))
	require.NoError(t, catalog.Remove(context.Background(), w.ID), "second remove must succeed")
	require.NoError(t, catalog.Remove(context.Background(), core.WidgetID("never-existed")))

	widgets, _ := repo.ListByFile(context.Background(), f.ID)
	assert.Empty(t, widgets)
}

func TestSetDisplayedEnforcesCap(t *testing.T) {
	catalog, _, f := catalogFixture(nil)

	var last *widget.Widget
	for i := 0; i < 5; i++ {
		w, err := catalog.CreateManual(context.Background(), f.ID, "KPI", widget.TypeKPI, widget.ForKPI("Revenue", widget.AggSum))
		require.NoError(t, err)
		last = w
		if i < 4 {
			_, err = catalog.SetDisplayed(context.Background(), w.ID, true)
			require.NoError(t, err)
		}
	}

	_, err := catalog.SetDisplayed(context.Background(), last.ID, true)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeLimitExceeded))

	// Toggling off is always permitted, and frees a slot.
	first, _ := catalog.ListByFile(context.Background(), f.ID)
	_, err = catalog.SetDisplayed(context.Background(), first[0].ID, false)
	require.NoError(t, err)

	_, err = catalog.SetDisplayed(context.Background(), last.ID, true)
	require.NoError(t, err)
}

func TestSaveSelectionAtomicReplace(t *testing.T) {
	catalog, repo, f := catalogFixture(nil)

	var ids []core.WidgetID
	for i := 0; i < 3; i++ {
		w, err := catalog.CreateManual(context.Background(), f.ID, "KPI", widget.TypeKPI, widget.ForKPI("Revenue", widget.AggSum))
		require.NoError(t, err)
		ids = append(ids, w.ID)
	}

	require.NoError(t, catalog.SaveSelection(context.Background(), f.ID, ids[:2]))

	widgets, _ := repo.ListByFile(context.Background(), f.ID)
	displayed := 0
	for _, w := range widgets {
		if w.Displayed {
			displayed++
		}
	}
	assert.Equal(t, 2, displayed)

	// Saving the same set twice leaves the same end state.
	require.NoError(t, catalog.SaveSelection(context.Background(), f.ID, ids[:2]))

	// Shrinking the set hides the rest.
	require.NoError(t, catalog.SaveSelection(context.Background(), f.ID, ids[:1]))
	widgets, _ = repo.ListByFile(context.Background(), f.ID)
	displayed = 0
	for _, w := range widgets {
		if w.Displayed {
			displayed++
		}
	}
	assert.Equal(t, 1, displayed)
}

func TestSaveSelectionRejectsOverfullSet(t *testing.T) {
	catalog, _, f := catalogFixture(nil)

	var ids []core.WidgetID
	for i := 0; i < 5; i++ {
		w, err := catalog.CreateManual(context.Background(), f.ID, "KPI", widget.TypeKPI, widget.ForKPI("Revenue", widget.AggSum))
		require.NoError(t, err)
		ids = append(ids, w.ID)
	}

	err := catalog.SaveSelection(context.Background(), f.ID, ids)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeLimitExceeded))
}
