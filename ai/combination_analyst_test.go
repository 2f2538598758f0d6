package ai

import (
	"context"
	"testing"
)

// TestAnalyzeCombination tests shaping the analyst response
func TestAnalyzeCombination(t *testing.T) {
	stub := &stubLLM{content: `{
		"derived_columns": [
			{"name": "revenue_per_unit", "description": "Revenue divided by Units"},
			{"name": "", "description": "nameless entries are dropped"}
		],
		"optimizations": ["dropped empty column Notes"],
		"data_insights": ["revenue skews north"],
		"key_discoveries": ["units correlate with revenue"],
		"business_opportunities": ["bundle products"],
		"data_quality_insights": ["3% missing units"],
		"analytics_recommendations": ["add a monthly rollup"]
	}`}
	analyst := NewCombinationAnalyst(stub, testAIConfig())

	members := []MemberSummary{
		{Filename: "sales.csv", Headers: []string{"Region", "Revenue"}, TotalRows: 100},
		{Filename: "units.csv", Headers: []string{"Region", "Units"}, TotalRows: 50},
	}

	result, err := analyst.Analyze(context.Background(), members)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.DerivedColumns) != 1 {
		t.Fatalf("Expected nameless derived column dropped, got %d", len(result.DerivedColumns))
	}
	if result.DerivedColumns[0].Name != "revenue_per_unit" {
		t.Errorf("Unexpected derived column: %+v", result.DerivedColumns[0])
	}
	if len(result.Optimizations) != 1 {
		t.Errorf("Expected 1 optimization, got %d", len(result.Optimizations))
	}
	if len(result.Insights.DataInsights) != 1 || len(result.Insights.AnalyticsRecommendations) != 1 {
		t.Errorf("Expected narrative lists carried through: %+v", result.Insights)
	}
}

// TestAnalyzeCombinationFailure tests propagation of an unusable response
func TestAnalyzeCombinationFailure(t *testing.T) {
	stub := &stubLLM{content: "no structured payload"}
	analyst := NewCombinationAnalyst(stub, testAIConfig())

	if _, err := analyst.Analyze(context.Background(), nil); err == nil {
		t.Error("Expected error for unparseable analysis")
	}
}
