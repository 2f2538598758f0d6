package tabular

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write temp csv: %v", err)
	}
	return path
}

// TestReadCSVData tests basic CSV parsing into structured rows
func TestReadCSVData(t *testing.T) {
	path := writeTempCSV(t, "Region,Revenue\nNorth,1200\nSouth,900\n")

	data, err := NewDataReader(path).ReadData()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if data.RowCount() != 2 {
		t.Errorf("Expected 2 rows, got %d", data.RowCount())
	}
	if data.ColumnCount() != 2 {
		t.Errorf("Expected 2 columns, got %d", data.ColumnCount())
	}
	if data.Rows[0]["Region"] != "North" || data.Rows[1]["Revenue"] != "900" {
		t.Errorf("Unexpected row data: %+v", data.Rows)
	}
}

// TestReadCSVRaggedRows tests that short rows are padded against the header
func TestReadCSVRaggedRows(t *testing.T) {
	path := writeTempCSV(t, "A,B,C\n1,2\n4,5,6\n")

	data, err := NewDataReader(path).ReadData()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if data.Rows[0]["C"] != "" {
		t.Errorf("Expected missing cell padded to empty, got %q", data.Rows[0]["C"])
	}
	if data.Rows[1]["C"] != "6" {
		t.Errorf("Expected full row preserved, got %q", data.Rows[1]["C"])
	}
}

// TestReadCSVTrimsWhitespace tests header and cell trimming
func TestReadCSVTrimsWhitespace(t *testing.T) {
	path := writeTempCSV(t, " Region , Revenue \n North , 1200 \n")

	data, err := NewDataReader(path).ReadData()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if data.Headers[0] != "Region" {
		t.Errorf("Expected trimmed header, got %q", data.Headers[0])
	}
	if data.Rows[0]["Region"] != "North" {
		t.Errorf("Expected trimmed cell, got %q", data.Rows[0]["Region"])
	}
}

// TestReadCSVHeaderOnly tests rejection of files without data rows
func TestReadCSVHeaderOnly(t *testing.T) {
	path := writeTempCSV(t, "Region,Revenue\n")

	if _, err := NewDataReader(path).ReadData(); err == nil {
		t.Error("Expected error for header-only file")
	}
}

// TestReadMissingFile tests the not-found path
func TestReadMissingFile(t *testing.T) {
	if _, err := NewDataReader("/nonexistent/file.csv").ReadData(); err == nil {
		t.Error("Expected error for missing file")
	}
}

// TestSampleRows tests bounded row sampling
func TestSampleRows(t *testing.T) {
	path := writeTempCSV(t, "A\n1\n2\n3\n")

	data, err := NewDataReader(path).ReadData()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	samples := data.SampleRows(2)
	if len(samples) != 2 {
		t.Errorf("Expected 2 samples, got %d", len(samples))
	}
	if samples[0]["A"] != "1" {
		t.Errorf("Expected leading rows, got %+v", samples)
	}

	all := data.SampleRows(10)
	if len(all) != 3 {
		t.Errorf("Expected sampling capped at row count, got %d", len(all))
	}
}
