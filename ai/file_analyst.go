package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"xceldash/domain/file"
	"xceldash/internal/config"
	"xceldash/ports"
)

// FileAnalyst extracts business context from an uploaded file's schema and
// sample rows: a clean display name, the business domain, and a description.
type FileAnalyst struct {
	client *StructuredClient[fileAnalysisResponse]
}

type fileAnalysisResponse struct {
	DisplayName string  `json:"display_name" description:"Clean snake_case dataset name"`
	Domain      string  `json:"domain" description:"Business/industry domain"`
	Description string  `json:"description" description:"2-3 sentence description of the data"`
	Confidence  float64 `json:"confidence" description:"Confidence 0-1 in the domain identification"`
}

// NewFileAnalyst creates a file analyst
func NewFileAnalyst(client ports.LLMClient, cfg config.AIConfig) *FileAnalyst {
	return &FileAnalyst{
		client: NewStructuredClient[fileAnalysisResponse](client, cfg.PromptsDir, cfg.SystemContext),
	}
}

// Analyze asks the AI collaborator to identify the business context of a file
func (a *FileAnalyst) Analyze(ctx context.Context, headers []string, sampleRows []map[string]string) (*file.AIInsights, error) {
	sample := map[string]interface{}{
		"headers":     headers,
		"sample_rows": sampleRows,
	}
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sample data: %w", err)
	}

	resp, err := a.client.GetJSONResponseFromPrompt(ctx, "file_analyst", map[string]string{
		"DATA_SAMPLE": string(sampleJSON),
	})
	if err != nil {
		log.Printf("[FileAnalyst] ERROR: analysis call failed: %v", err)
		return nil, fmt.Errorf("file analysis call failed: %w", err)
	}

	return &file.AIInsights{
		DisplayName: resp.DisplayName,
		Domain:      resp.Domain,
		Description: resp.Description,
		Confidence:  resp.Confidence,
		AnalyzedAt:  time.Now(),
	}, nil
}
