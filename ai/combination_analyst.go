package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"xceldash/domain/combine"
	"xceldash/internal/config"
	"xceldash/ports"
)

// CombinationAnalyst asks the AI collaborator to study the member files of a
// proposed combination and produce derived columns, optimizations, and the
// narrative insight lists. Input contract: member schemas plus sample rows.
type CombinationAnalyst struct {
	client *StructuredClient[combinationAnalysis]
}

type combinationAnalysis struct {
	DerivedColumns []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"derived_columns" description:"New columns to derive from the combined data"`
	Optimizations            []string `json:"optimizations" description:"Applied cleanup steps, e.g. dropped all-empty columns"`
	DataInsights             []string `json:"data_insights"`
	KeyDiscoveries           []string `json:"key_discoveries"`
	BusinessOpportunities    []string `json:"business_opportunities"`
	DataQualityInsights      []string `json:"data_quality_insights"`
	AnalyticsRecommendations []string `json:"analytics_recommendations"`
}

// MemberSummary is the per-file slice of the analyst's input contract
type MemberSummary struct {
	Filename   string              `json:"filename"`
	Headers    []string            `json:"headers"`
	TotalRows  int                 `json:"total_rows"`
	SampleRows []map[string]string `json:"sample_rows"`
}

// AnalysisResult is the analyst's output contract
type AnalysisResult struct {
	DerivedColumns []combine.DerivedColumn
	Optimizations  []string
	Insights       combine.AIInsights
}

// NewCombinationAnalyst creates a combination analyst
func NewCombinationAnalyst(client ports.LLMClient, cfg config.AIConfig) *CombinationAnalyst {
	return &CombinationAnalyst{
		client: NewStructuredClient[combinationAnalysis](client, cfg.PromptsDir, cfg.SystemContext),
	}
}

// Analyze produces derivations and narrative insights for the member files
func (a *CombinationAnalyst) Analyze(ctx context.Context, members []MemberSummary) (*AnalysisResult, error) {
	membersJSON, err := json.MarshalIndent(members, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal member summaries: %w", err)
	}

	resp, err := a.client.GetJSONResponseFromPrompt(ctx, "combination_analyst", map[string]string{
		"MEMBER_FILES": string(membersJSON),
	})
	if err != nil {
		log.Printf("[CombinationAnalyst] ERROR: analysis call failed: %v", err)
		return nil, fmt.Errorf("combination analysis call failed: %w", err)
	}

	result := &AnalysisResult{
		Optimizations: resp.Optimizations,
		Insights: combine.AIInsights{
			DataInsights:             resp.DataInsights,
			KeyDiscoveries:           resp.KeyDiscoveries,
			BusinessOpportunities:    resp.BusinessOpportunities,
			DataQualityInsights:      resp.DataQualityInsights,
			AnalyticsRecommendations: resp.AnalyticsRecommendations,
		},
	}
	for _, dc := range resp.DerivedColumns {
		if dc.Name == "" {
			continue
		}
		result.DerivedColumns = append(result.DerivedColumns, combine.DerivedColumn{
			Name:        dc.Name,
			Description: dc.Description,
		})
	}

	return result, nil
}
