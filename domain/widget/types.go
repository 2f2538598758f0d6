package widget

import (
	"time"

	"xceldash/domain/core"
)

// Type enumerates the supported widget kinds
type Type string

const (
	TypeKPI      Type = "kpi"
	TypeBarChart Type = "bar_chart"
	TypePieChart Type = "pie_chart"
	TypeTable    Type = "table"
)

// IsValid reports whether t is a known widget type
func (t Type) IsValid() bool {
	switch t {
	case TypeKPI, TypeBarChart, TypePieChart, TypeTable:
		return true
	}
	return false
}

// Origin tags how a widget was created. It only affects display badging;
// AI and manual widgets are stored identically.
type Origin string

const (
	OriginManual Origin = "manual"
	OriginAI     Origin = "ai"
)

// Aggregation enumerates the calculation functions a widget can bind
type Aggregation string

const (
	AggSum          Aggregation = "sum"
	AggAverage      Aggregation = "average"
	AggCount        Aggregation = "count"
	AggMin          Aggregation = "min"
	AggMax          Aggregation = "max"
	AggGroupBySum   Aggregation = "group_by"
	AggDistribution Aggregation = "distribution"
)

// Widget is a named, typed visual element bound to one file's data
type Widget struct {
	ID     core.WidgetID `json:"id"`
	FileID core.FileID   `json:"file_id"`

	Name   string `json:"name"`
	Type   Type   `json:"type"`
	Config Config `json:"config"`

	Displayed    bool   `json:"displayed"`
	DisplayOrder int    `json:"display_order"`
	Origin       Origin `json:"origin"`

	// Narrative the AI produced alongside the suggestion, if any
	AIInsights string `json:"ai_insights,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a widget in the not-displayed state
func New(fileID core.FileID, name string, typ Type, cfg Config, origin Origin) *Widget {
	return &Widget{
		ID:        core.WidgetID(core.NewID()),
		FileID:    fileID,
		Name:      name,
		Type:      typ,
		Config:    cfg,
		Origin:    origin,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// Bucket is a cardinality-limited category of widget types sharing a display cap
type Bucket string

const (
	BucketKPI   Bucket = "kpi"
	BucketChart Bucket = "chart"
	BucketNone  Bucket = "" // unbucketed, no display cap
)

// Display caps per bucket
const (
	MaxDisplayedKPI    = 4
	MaxDisplayedCharts = 2
)

// BucketFor maps a widget type to its display bucket. Tables are unbucketed.
func BucketFor(t Type) Bucket {
	switch t {
	case TypeKPI:
		return BucketKPI
	case TypeBarChart, TypePieChart:
		return BucketChart
	default:
		return BucketNone
	}
}

// Limit returns the display cap for a bucket, or 0 for unbucketed types
func (b Bucket) Limit() int {
	switch b {
	case BucketKPI:
		return MaxDisplayedKPI
	case BucketChart:
		return MaxDisplayedCharts
	default:
		return 0
	}
}

// CountDisplayed counts displayed widgets belonging to the given bucket
func CountDisplayed(widgets []*Widget, bucket Bucket) int {
	count := 0
	for _, w := range widgets {
		if w.Displayed && BucketFor(w.Type) == bucket {
			count++
		}
	}
	return count
}
