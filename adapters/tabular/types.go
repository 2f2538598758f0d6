package tabular

// RawRowData maps header names to raw cell strings for a single row
type RawRowData map[string]string

// TableData holds a parsed spreadsheet in structured form
type TableData struct {
	Headers []string
	Rows    []RawRowData
}

// RowCount returns the number of data rows (excluding the header)
func (d *TableData) RowCount() int {
	return len(d.Rows)
}

// ColumnCount returns the number of columns
func (d *TableData) ColumnCount() int {
	return len(d.Headers)
}

// Column returns all raw values for a header in row order
func (d *TableData) Column(header string) []string {
	values := make([]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		values = append(values, row[header])
	}
	return values
}

// SampleRows returns up to n leading rows for metadata and AI prompts
func (d *TableData) SampleRows(n int) []map[string]string {
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	samples := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		row := make(map[string]string, len(d.Headers))
		for _, h := range d.Headers {
			row[h] = d.Rows[i][h]
		}
		samples = append(samples, row)
	}
	return samples
}
