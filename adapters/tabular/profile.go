package tabular

import (
	"strconv"
	"strings"

	"xceldash/domain/file"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Column kind constants as stored in file metadata
const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
	KindText        = "text"
)

// numericThreshold is the fraction of non-empty cells that must parse as
// numbers for a column to be treated as numeric.
const numericThreshold = 0.8

// categoricalMaxUnique caps the distinct-value count for a string column to
// still count as categorical rather than free text.
const categoricalMaxUnique = 50

// maxSampleValues limits how many example values are kept per column.
const maxSampleValues = 5

// ProfileColumns classifies every column and computes summary statistics.
// Profiles are ordered by column position in the header row.
func ProfileColumns(data *TableData) []file.ColumnProfile {
	profiles := make([]file.ColumnProfile, 0, len(data.Headers))
	for _, header := range data.Headers {
		profiles = append(profiles, profileColumn(header, data.Column(header)))
	}
	return profiles
}

func profileColumn(name string, values []string) file.ColumnProfile {
	profile := file.ColumnProfile{Name: name}

	unique := make(map[string]bool)
	var numeric []float64
	nonEmpty := 0

	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			profile.MissingCount++
			continue
		}
		nonEmpty++
		if !unique[v] {
			unique[v] = true
			if len(profile.SampleValues) < maxSampleValues {
				profile.SampleValues = append(profile.SampleValues, v)
			}
		}
		if f, err := parseNumeric(v); err == nil {
			numeric = append(numeric, f)
		}
	}
	profile.UniqueCount = len(unique)

	switch {
	case nonEmpty > 0 && float64(len(numeric))/float64(nonEmpty) >= numericThreshold:
		profile.DataType = KindNumeric
		profile.Statistics = numericStatistics(numeric)
	case profile.UniqueCount > 0 && profile.UniqueCount <= categoricalMaxUnique:
		profile.DataType = KindCategorical
	default:
		profile.DataType = KindText
	}

	return profile
}

// numericStatistics summarizes a numeric column. Min/max/mean/sum come from
// montanaflynn; variance and skew use gonum since montanaflynn has no
// moment-based measures.
func numericStatistics(values []float64) map[string]float64 {
	if len(values) == 0 {
		return nil
	}

	statistics := make(map[string]float64, 7)
	if v, err := stats.Min(values); err == nil {
		statistics["min"] = v
	}
	if v, err := stats.Max(values); err == nil {
		statistics["max"] = v
	}
	if v, err := stats.Mean(values); err == nil {
		statistics["mean"] = v
	}
	if v, err := stats.Sum(values); err == nil {
		statistics["sum"] = v
	}
	if v, err := stats.Median(values); err == nil {
		statistics["median"] = v
	}
	statistics["variance"] = stat.Variance(values, nil)
	if len(values) >= 3 {
		statistics["skewness"] = stat.Skew(values, nil)
	}
	return statistics
}

// parseNumeric accepts plain numbers plus common spreadsheet formatting
// (thousands separators, currency symbols, percent signs).
func parseNumeric(v string) (float64, error) {
	cleaned := strings.TrimSpace(v)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.TrimPrefix(cleaned, "€")
	cleaned = strings.TrimPrefix(cleaned, "£")
	pct := strings.HasSuffix(cleaned, "%")
	cleaned = strings.TrimSuffix(cleaned, "%")

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if pct {
		f /= 100
	}
	return f, nil
}

// NumericColumn extracts parseable numeric values for a header
func NumericColumn(data *TableData, header string) []float64 {
	var out []float64
	for _, v := range data.Column(header) {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if f, err := parseNumeric(v); err == nil {
			out = append(out, f)
		}
	}
	return out
}
