package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"xceldash/adapters/tabular"
	"xceldash/domain/core"
	"xceldash/domain/file"
	"xceldash/domain/widget"
	"xceldash/internal/errors"

	"github.com/montanaflynn/stats"
)

// TableLoader loads a completed file's parsed data for read-only use.
// Implementations must not mutate the underlying data; resolver calls are
// pure functions of it and safe to run in parallel.
type TableLoader interface {
	Load(ctx context.Context, f *file.UploadedFile) (*tabular.TableData, error)
}

// FunctionOption is a candidate aggregation binding offered to the user
type FunctionOption struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	Description    string `json:"description"`
	Expression     string `json:"expression"`
	FormattedValue string `json:"formatted_value,omitempty"`
}

// FunctionResolver enumerates valid aggregation functions bound to concrete
// columns for a file and widget type. Option lists are deterministic: ordering
// follows column position in the parsed headers, never computation order, so
// repeated calls return identical lists.
type FunctionResolver struct {
	registry *RegistryService
	loader   TableLoader
}

// NewFunctionResolver creates a function resolver
func NewFunctionResolver(registry *RegistryService, loader TableLoader) *FunctionResolver {
	return &FunctionResolver{registry: registry, loader: loader}
}

// kpiFunctions is the fixed per-column function order for KPI options
var kpiFunctions = []widget.Aggregation{
	widget.AggSum,
	widget.AggAverage,
	widget.AggCount,
	widget.AggMin,
	widget.AggMax,
}

// Options returns the ordered option list for a file and widget type
func (r *FunctionResolver) Options(ctx context.Context, fileID core.FileID, widgetType widget.Type) ([]FunctionOption, error) {
	f, err := r.registry.GetCompleted(ctx, fileID)
	if err != nil {
		return nil, err
	}

	switch widgetType {
	case widget.TypeKPI:
		return r.kpiOptions(ctx, f)
	case widget.TypeBarChart:
		return r.pairOptions(f, widget.AggGroupBySum, "x_axis", "y_axis"), nil
	case widget.TypePieChart:
		return r.pairOptions(f, widget.AggDistribution, "category", "value"), nil
	case widget.TypeTable:
		// Tables are a column multi-select; no function resolution applies.
		return []FunctionOption{}, nil
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown widget type %q", widgetType))
	}
}

// kpiOptions builds one option per numeric column and function, each with an
// eagerly computed preview value, plus a trailing count-of-rows option.
func (r *FunctionResolver) kpiOptions(ctx context.Context, f *file.UploadedFile) ([]FunctionOption, error) {
	data, err := r.loader.Load(ctx, f)
	if err != nil {
		return nil, errors.StorageFailure("failed to load parsed data", err)
	}

	numericByName := numericColumns(f)

	var options []FunctionOption
	for _, header := range f.Schema.Headers {
		if !numericByName[header] {
			continue
		}
		values := tabular.NumericColumn(data, header)
		for _, fn := range kpiFunctions {
			value, ok := applyAggregation(fn, values)
			option := FunctionOption{
				ID:          fmt.Sprintf("%s_%s", fn, slugify(header)),
				Label:       fmt.Sprintf("%s of %s", titleFor(fn), header),
				Description: fmt.Sprintf("Calculates the %s of the %s column", strings.ToLower(titleFor(fn)), header),
				Expression:  fmt.Sprintf("%s(%s)", strings.ToUpper(string(fn)), header),
			}
			if ok {
				option.FormattedValue = formatValue(fn, value)
			}
			options = append(options, option)
		}
	}

	options = append(options, FunctionOption{
		ID:             "count_rows",
		Label:          "Total rows",
		Description:    "Counts every row in the file",
		Expression:     "COUNT(*)",
		FormattedValue: formatValue(widget.AggCount, float64(f.Schema.TotalRows)),
	})

	return options, nil
}

// pairOptions builds categorical-by-numeric column pairs in header order,
// deduplicated by pair.
func (r *FunctionResolver) pairOptions(f *file.UploadedFile, fn widget.Aggregation, firstRole, secondRole string) []FunctionOption {
	numericByName := numericColumns(f)
	categoricalByName := categoricalColumns(f)

	seen := make(map[string]bool)
	var options []FunctionOption
	for _, cat := range f.Schema.Headers {
		if !categoricalByName[cat] {
			continue
		}
		for _, num := range f.Schema.Headers {
			if !numericByName[num] || num == cat {
				continue
			}
			key := cat + "\x00" + num
			if seen[key] {
				continue
			}
			seen[key] = true
			options = append(options, FunctionOption{
				ID:          fmt.Sprintf("%s_%s_by_%s", fn, slugify(num), slugify(cat)),
				Label:       fmt.Sprintf("%s by %s", num, cat),
				Description: fmt.Sprintf("Uses %s as the %s and %s as the %s", cat, firstRole, num, secondRole),
				Expression:  fmt.Sprintf("%s(%s) GROUP BY %s", strings.ToUpper(string(widget.AggSum)), num, cat),
			})
		}
	}
	return options
}

// applyAggregation computes a KPI aggregation over a numeric column
func applyAggregation(fn widget.Aggregation, values []float64) (float64, bool) {
	if fn == widget.AggCount {
		return float64(len(values)), true
	}
	if len(values) == 0 {
		return 0, false
	}

	var (
		v   float64
		err error
	)
	switch fn {
	case widget.AggSum:
		v, err = stats.Sum(values)
	case widget.AggAverage:
		v, err = stats.Mean(values)
	case widget.AggMin:
		v, err = stats.Min(values)
	case widget.AggMax:
		v, err = stats.Max(values)
	default:
		return 0, false
	}
	if err != nil {
		return 0, false
	}
	return v, true
}

func numericColumns(f *file.UploadedFile) map[string]bool {
	byName := make(map[string]bool)
	for _, col := range f.Metadata.Columns {
		if col.DataType == tabular.KindNumeric {
			byName[col.Name] = true
		}
	}
	return byName
}

func categoricalColumns(f *file.UploadedFile) map[string]bool {
	byName := make(map[string]bool)
	for _, col := range f.Metadata.Columns {
		if col.DataType == tabular.KindCategorical {
			byName[col.Name] = true
		}
	}
	return byName
}

func titleFor(fn widget.Aggregation) string {
	switch fn {
	case widget.AggSum:
		return "Sum"
	case widget.AggAverage:
		return "Average"
	case widget.AggCount:
		return "Count"
	case widget.AggMin:
		return "Minimum"
	case widget.AggMax:
		return "Maximum"
	default:
		return string(fn)
	}
}

// formatValue renders a preview value: counts as integers with separators,
// everything else with two decimals.
func formatValue(fn widget.Aggregation, v float64) string {
	if fn == widget.AggCount {
		return addThousands(strconv.FormatFloat(v, 'f', 0, 64))
	}
	return addThousands(strconv.FormatFloat(v, 'f', 2, 64))
}

func addThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if idx := strings.Index(s, "."); idx >= 0 {
		intPart, fracPart = s[:idx], s[idx:]
	}
	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	out := b.String() + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

func slugify(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
}
