package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"xceldash/domain/file"
	"xceldash/domain/widget"
	"xceldash/internal/config"
	"xceldash/ports"
)

// WidgetAdvisor asks the AI collaborator to pick columns and a function for a
// widget of the requested type, optionally steered by a free-text description.
type WidgetAdvisor struct {
	client *StructuredClient[widgetSuggestion]
}

type widgetSuggestion struct {
	WidgetName     string   `json:"widget_name" description:"Short human-readable widget title"`
	Column         string   `json:"column,omitempty" description:"KPI source column"`
	Function       string   `json:"function,omitempty" description:"KPI aggregation: sum|average|count|min|max"`
	XAxis          string   `json:"x_axis,omitempty" description:"Bar chart categorical column"`
	YAxis          string   `json:"y_axis,omitempty" description:"Bar chart numeric column"`
	CategoryColumn string   `json:"category_column,omitempty" description:"Pie chart category column"`
	ValueColumn    string   `json:"value_column,omitempty" description:"Pie chart value column"`
	Columns        []string `json:"columns,omitempty" description:"Table columns"`
	Insight        string   `json:"insight,omitempty" description:"One sentence on why this widget is useful"`
}

// NewWidgetAdvisor creates a widget advisor
func NewWidgetAdvisor(client ports.LLMClient, cfg config.AIConfig) *WidgetAdvisor {
	return &WidgetAdvisor{
		client: NewStructuredClient[widgetSuggestion](client, cfg.PromptsDir, cfg.SystemContext),
	}
}

// Suggestion is the advisor's answer, already shaped into a widget config
type Suggestion struct {
	Name    string
	Config  widget.Config
	Insight string
}

// Suggest produces a widget configuration for the given file schema. The
// description is passed through opaquely; it may be empty.
func (a *WidgetAdvisor) Suggest(ctx context.Context, schema file.Schema, profiles []file.ColumnProfile, widgetType widget.Type, description string) (*Suggestion, error) {
	schemaJSON, err := json.MarshalIndent(map[string]interface{}{
		"headers": schema.Headers,
		"columns": profiles,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	if description == "" {
		description = "(none provided)"
	}

	resp, err := a.client.GetJSONResponseFromPrompt(ctx, "widget_advisor", map[string]string{
		"WIDGET_TYPE": string(widgetType),
		"SCHEMA":      string(schemaJSON),
		"DESCRIPTION": description,
	})
	if err != nil {
		log.Printf("[WidgetAdvisor] ERROR: suggestion call failed: %v", err)
		return nil, fmt.Errorf("widget suggestion call failed: %w", err)
	}

	cfg, err := resp.toConfig(widgetType)
	if err != nil {
		return nil, err
	}

	name := resp.WidgetName
	if name == "" {
		name = fmt.Sprintf("AI %s widget", widgetType)
	}

	return &Suggestion{Name: name, Config: cfg, Insight: resp.Insight}, nil
}

func (s *widgetSuggestion) toConfig(widgetType widget.Type) (widget.Config, error) {
	switch widgetType {
	case widget.TypeKPI:
		fn := widget.Aggregation(s.Function)
		if fn == "" {
			fn = widget.AggSum
		}
		return widget.ForKPI(s.Column, fn), nil
	case widget.TypeBarChart:
		return widget.ForBarChart(s.XAxis, s.YAxis), nil
	case widget.TypePieChart:
		return widget.ForPieChart(s.CategoryColumn, s.ValueColumn), nil
	case widget.TypeTable:
		return widget.ForTable(s.Columns), nil
	default:
		return widget.Config{}, fmt.Errorf("unsupported widget type: %s", widgetType)
	}
}
