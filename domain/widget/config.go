package widget

import (
	"fmt"
	"strings"

	"xceldash/domain/file"
)

// Config is a tagged union of the per-type widget configurations. Exactly one
// variant must be set, and it must match the widget's declared type. Keeping
// the variants separate means an invalid field combination (e.g. a KPI with an
// x-axis) cannot be represented.
type Config struct {
	KPI      *KPIConfig      `json:"kpi,omitempty"`
	BarChart *BarChartConfig `json:"bar_chart,omitempty"`
	PieChart *PieChartConfig `json:"pie_chart,omitempty"`
	Table    *TableConfig    `json:"table,omitempty"`
}

// KPIConfig binds a single column to an aggregation function
type KPIConfig struct {
	Column   string      `json:"column"`
	Function Aggregation `json:"function"`
}

// BarChartConfig pairs a categorical x-axis with a numeric y-axis
type BarChartConfig struct {
	XAxis string `json:"x_axis"`
	YAxis string `json:"y_axis"`
}

// PieChartConfig pairs a category column with a numeric value column
type PieChartConfig struct {
	CategoryColumn string `json:"category_column"`
	ValueColumn    string `json:"value_column"`
}

// TableConfig selects the columns shown in a table widget
type TableConfig struct {
	Columns []string `json:"columns"`
}

// ForKPI builds a KPI config
func ForKPI(column string, fn Aggregation) Config {
	return Config{KPI: &KPIConfig{Column: column, Function: fn}}
}

// ForBarChart builds a bar chart config
func ForBarChart(xAxis, yAxis string) Config {
	return Config{BarChart: &BarChartConfig{XAxis: xAxis, YAxis: yAxis}}
}

// ForPieChart builds a pie chart config
func ForPieChart(category, value string) Config {
	return Config{PieChart: &PieChartConfig{CategoryColumn: category, ValueColumn: value}}
}

// ForTable builds a table config
func ForTable(columns []string) Config {
	return Config{Table: &TableConfig{Columns: columns}}
}

// Variant returns the widget type the populated variant corresponds to,
// or false if zero or multiple variants are set.
func (c Config) Variant() (Type, bool) {
	var typ Type
	count := 0
	if c.KPI != nil {
		typ, count = TypeKPI, count+1
	}
	if c.BarChart != nil {
		typ, count = TypeBarChart, count+1
	}
	if c.PieChart != nil {
		typ, count = TypePieChart, count+1
	}
	if c.Table != nil {
		typ, count = TypeTable, count+1
	}
	if count != 1 {
		return "", false
	}
	return typ, true
}

// Validate checks the config against the declared widget type and the owning
// file's parsed schema. It collects every unmet condition rather than stopping
// at the first so the caller can report them all at once.
func (c Config) Validate(typ Type, schema file.Schema) []string {
	var problems []string

	variant, ok := c.Variant()
	if !ok {
		problems = append(problems, "widget configuration must set exactly one variant")
		return problems
	}
	if variant != typ {
		problems = append(problems, fmt.Sprintf("configuration variant %q does not match widget type %q", variant, typ))
		return problems
	}

	checkColumn := func(role, name string) {
		if strings.TrimSpace(name) == "" {
			problems = append(problems, fmt.Sprintf("%s column is required", role))
			return
		}
		if !schema.HasColumn(name) {
			problems = append(problems, fmt.Sprintf("%s column %q not found in file headers", role, name))
		}
	}

	switch typ {
	case TypeKPI:
		checkColumn("kpi", c.KPI.Column)
		switch c.KPI.Function {
		case AggSum, AggAverage, AggCount, AggMin, AggMax:
		default:
			problems = append(problems, fmt.Sprintf("unsupported kpi function %q", c.KPI.Function))
		}
	case TypeBarChart:
		checkColumn("x-axis", c.BarChart.XAxis)
		checkColumn("y-axis", c.BarChart.YAxis)
		if c.BarChart.XAxis != "" && c.BarChart.XAxis == c.BarChart.YAxis {
			problems = append(problems, "x-axis and y-axis must be different columns")
		}
	case TypePieChart:
		checkColumn("category", c.PieChart.CategoryColumn)
		checkColumn("value", c.PieChart.ValueColumn)
	case TypeTable:
		if len(c.Table.Columns) == 0 {
			problems = append(problems, "table widgets require at least one column")
		}
		for _, col := range c.Table.Columns {
			checkColumn("table", col)
		}
	}

	return problems
}
