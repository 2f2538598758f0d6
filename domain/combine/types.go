package combine

import (
	"fmt"
	"strings"
	"time"

	"xceldash/domain/core"
)

// State tracks a combination workflow explicitly rather than leaving it
// implied by client lifecycle.
type State string

const (
	StateIdle           State = "idle"
	StatePreviewPending State = "preview_pending"
	StatePreviewReady   State = "preview_ready"
	StateConfirming     State = "confirming"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// DerivedColumn is a new column the AI proposes during combination,
// not present in any source file.
type DerivedColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AIInsights holds the narrative lists the AI collaborator produces for a
// combination preview.
type AIInsights struct {
	DataInsights             []string `json:"data_insights"`
	KeyDiscoveries           []string `json:"key_discoveries"`
	BusinessOpportunities    []string `json:"business_opportunities"`
	DataQualityInsights      []string `json:"data_quality_insights"`
	AnalyticsRecommendations []string `json:"analytics_recommendations"`
}

// Preview is the ephemeral projection over a set of selected files. It is
// never persisted; a confirm request promotes it to a stored combined file.
type Preview struct {
	ID      core.PreviewID `json:"id"`
	Version int            `json:"version"` // increments on every regenerate; stale responses are discarded

	FileIDs []core.FileID `json:"file_ids"`

	EstimatedRows    int `json:"estimated_rows"`
	EstimatedColumns int `json:"estimated_columns"`

	ProposedFilename string `json:"proposed_filename"` // user-editable before confirmation

	UnionHeaders []string            `json:"union_headers"`
	Provenance   map[string][]string `json:"provenance"` // header -> originating filenames

	DerivedColumns []DerivedColumn `json:"derived_columns"`
	Optimizations  []string        `json:"optimizations"`
	Insights       AIInsights      `json:"insights"`

	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns an independent copy of the preview. Handed-out previews are
// treated as immutable; a regenerate installs a modified clone instead of
// writing through a pointer a caller may still be reading.
func (p *Preview) Clone() *Preview {
	c := *p
	c.FileIDs = append([]core.FileID(nil), p.FileIDs...)
	c.UnionHeaders = append([]string(nil), p.UnionHeaders...)
	c.DerivedColumns = append([]DerivedColumn(nil), p.DerivedColumns...)
	c.Optimizations = append([]string(nil), p.Optimizations...)
	if p.Provenance != nil {
		c.Provenance = make(map[string][]string, len(p.Provenance))
		for h, sources := range p.Provenance {
			c.Provenance[h] = append([]string(nil), sources...)
		}
	}
	c.Insights = AIInsights{
		DataInsights:             append([]string(nil), p.Insights.DataInsights...),
		KeyDiscoveries:           append([]string(nil), p.Insights.KeyDiscoveries...),
		BusinessOpportunities:    append([]string(nil), p.Insights.BusinessOpportunities...),
		DataQualityInsights:      append([]string(nil), p.Insights.DataQualityInsights...),
		AnalyticsRecommendations: append([]string(nil), p.Insights.AnalyticsRecommendations...),
	}
	return &c
}

// ConfirmRequest carries the user's final answer for materializing a preview
type ConfirmRequest struct {
	FileIDs             []core.FileID
	FinalFilename       string
	ApprovedDerivations []DerivedColumn
}

// UnionHeaders merges header lists in member order, keeping the first
// occurrence of each duplicate name and recording which source files
// contributed each header.
func UnionHeaders(memberHeaders [][]string, memberNames []string) (headers []string, provenance map[string][]string) {
	provenance = make(map[string][]string)
	seen := make(map[string]bool)

	for i, hs := range memberHeaders {
		name := ""
		if i < len(memberNames) {
			name = memberNames[i]
		}
		for _, h := range hs {
			if !seen[h] {
				seen[h] = true
				headers = append(headers, h)
			}
			provenance[h] = append(provenance[h], name)
		}
	}
	return headers, provenance
}

// DefaultCombinedFilename proposes a name for the combined artifact based on
// the member filenames, e.g. "combined_sales_regions_20240115.csv".
func DefaultCombinedFilename(memberNames []string, now time.Time) string {
	parts := make([]string, 0, len(memberNames))
	for _, name := range memberNames {
		base := name
		if idx := strings.LastIndex(base, "."); idx > 0 {
			base = base[:idx]
		}
		base = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(base), " ", "_"))
		if base != "" {
			parts = append(parts, base)
		}
		if len(parts) == 2 {
			break
		}
	}
	stem := strings.Join(parts, "_")
	if stem == "" {
		stem = "combined"
	} else {
		stem = "combined_" + stem
	}
	return fmt.Sprintf("%s_%s.csv", stem, now.Format("20060102"))
}
