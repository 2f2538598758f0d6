package app

import (
	"fmt"

	"xceldash/domain/core"
	"xceldash/domain/widget"
	"xceldash/internal/errors"
	"xceldash/ports"
)

// SelectionPolicy enforces the display cardinality caps: at most 4 displayed
// KPI widgets and at most 2 displayed chart widgets per file. Tables are
// unbucketed and always allowed.
type SelectionPolicy struct {
	widgets ports.WidgetRepository
}

// NewSelectionPolicy creates a selection policy
func NewSelectionPolicy(widgets ports.WidgetRepository) *SelectionPolicy {
	return &SelectionPolicy{widgets: widgets}
}

// CanDisplay checks whether toggling the widget on would exceed its bucket's
// cap, given the file's current widget set. Returns a LimitExceeded error
// carrying bucket/current/max. Toggling off is always permitted and never
// reaches this check.
func (p *SelectionPolicy) CanDisplay(w *widget.Widget, widgets []*widget.Widget) error {
	bucket := widget.BucketFor(w.Type)
	if bucket == widget.BucketNone {
		return nil
	}
	if w.Displayed {
		// Already shown; re-toggling on changes nothing.
		return nil
	}

	current := widget.CountDisplayed(widgets, bucket)
	if current >= bucket.Limit() {
		return errors.LimitExceeded(string(bucket), current, bucket.Limit())
	}
	return nil
}

// ValidateSet re-validates a full submitted displayed-set against the bucket
// caps. Defense in depth against a stale or bypassing client: the interactive
// CanDisplay check cannot be trusted to have run.
func (p *SelectionPolicy) ValidateSet(widgets []*widget.Widget, selected []core.WidgetID) error {
	selectedSet := make(map[core.WidgetID]bool, len(selected))
	for _, id := range selected {
		selectedSet[id] = true
	}

	known := make(map[core.WidgetID]bool, len(widgets))
	counts := make(map[widget.Bucket]int)
	for _, w := range widgets {
		known[w.ID] = true
		if selectedSet[w.ID] {
			counts[widget.BucketFor(w.Type)]++
		}
	}

	for _, id := range selected {
		if !known[id] {
			return errors.ValidationError(fmt.Sprintf("widget %s does not belong to this file", id))
		}
	}

	for _, bucket := range []widget.Bucket{widget.BucketKPI, widget.BucketChart} {
		if counts[bucket] > bucket.Limit() {
			return errors.LimitExceeded(string(bucket), counts[bucket], bucket.Limit())
		}
	}
	return nil
}
