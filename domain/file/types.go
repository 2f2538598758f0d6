package file

import (
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"xceldash/domain/core"
)

// Status represents the parse state of an uploaded file
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// FileType identifies the detected spreadsheet format
type FileType string

const (
	TypeXLSX FileType = "xlsx"
	TypeXLS  FileType = "xls"
	TypeCSV  FileType = "csv"
)

// DetectFileType infers the file type from a filename extension
func DetectFileType(filename string) (FileType, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return TypeXLSX, true
	case ".xls":
		return TypeXLS, true
	case ".csv":
		return TypeCSV, true
	default:
		return "", false
	}
}

// Schema describes the parsed structure of a completed file
type Schema struct {
	Headers      []string `json:"headers"`
	TotalRows    int      `json:"total_rows"`
	TotalColumns int      `json:"total_columns"`
}

// HasColumn reports whether the schema contains the named header
func (s Schema) HasColumn(name string) bool {
	for _, h := range s.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// ColumnIndex returns the position of a header, or -1 if absent
func (s Schema) ColumnIndex(name string) int {
	for i, h := range s.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// ColumnProfile describes a single parsed column
type ColumnProfile struct {
	Name         string                 `json:"name"`
	DataType     string                 `json:"data_type"` // "numeric", "categorical", "text", "date"
	UniqueCount  int                    `json:"unique_count"`
	MissingCount int                    `json:"missing_count"`
	SampleValues []string               `json:"sample_values,omitempty"`
	Statistics   map[string]float64     `json:"statistics,omitempty"` // min, max, mean, stddev for numeric columns
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// AIInsights is the AI-generated analysis attached to a file
type AIInsights struct {
	DisplayName string    `json:"display_name"` // snake_case name like "customer_purchase_history"
	Domain      string    `json:"domain"`       // "Retail Analytics", "Healthcare", etc.
	Description string    `json:"description"`
	Confidence  float64   `json:"confidence,omitempty"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}

// Metadata holds the structured per-file detail persisted as JSONB
type Metadata struct {
	Columns    []ColumnProfile     `json:"columns,omitempty"`
	SampleRows []map[string]string `json:"sample_rows,omitempty"`
	Insights   *AIInsights         `json:"insights,omitempty"`
	SourceIDs  []core.FileID       `json:"source_ids,omitempty"` // member files when this file was combined
}

// UploadedFile represents a stored spreadsheet and its parse state
type UploadedFile struct {
	ID     core.FileID `json:"id"`
	UserID core.UserID `json:"user_id"`

	OriginalFilename string   `json:"original_filename"`
	StoragePath      string   `json:"storage_path,omitempty"`
	FileType         FileType `json:"file_type"`
	FileSize         int64    `json:"file_size"`

	Status       Status `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`

	Schema   Schema   `json:"schema"`
	Metadata Metadata `json:"metadata"`

	// "upload" for direct uploads, "combination" for planner output
	Source string `json:"source"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Upload represents an uploaded file before processing
type Upload struct {
	UserID   core.UserID
	Filename string
	File     multipart.File
	Size     int64
}

// New creates a file record in the processing state
func New(userID core.UserID, originalFilename string, fileType FileType) *UploadedFile {
	return &UploadedFile{
		ID:               core.FileID(core.NewID()),
		UserID:           userID,
		OriginalFilename: originalFilename,
		FileType:         fileType,
		Status:           StatusProcessing,
		Source:           "upload",
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

// IsCompleted returns true once the file is parsed and usable downstream
func (f *UploadedFile) IsCompleted() bool {
	return f.Status == StatusCompleted
}

// MarkParsed records the parsed schema and moves the file to completed
func (f *UploadedFile) MarkParsed(headers []string, totalRows, totalColumns int) {
	f.Schema = Schema{Headers: headers, TotalRows: totalRows, TotalColumns: totalColumns}
	f.Status = StatusCompleted
	f.ErrorMessage = ""
	f.UpdatedAt = time.Now()
}

// MarkFailed records a terminal parse failure. Failed files can only be re-uploaded.
func (f *UploadedFile) MarkFailed(reason string) {
	f.Status = StatusFailed
	f.ErrorMessage = reason
	f.UpdatedAt = time.Now()
}

// DisplayName returns the AI-suggested name or falls back to the original filename
func (f *UploadedFile) DisplayName() string {
	if f.Metadata.Insights != nil && f.Metadata.Insights.DisplayName != "" {
		return f.Metadata.Insights.DisplayName
	}
	return f.OriginalFilename
}

// FilterCompleted returns only the files eligible for widgets and combination
func FilterCompleted(files []*UploadedFile) []*UploadedFile {
	eligible := make([]*UploadedFile, 0, len(files))
	for _, f := range files {
		if f.IsCompleted() {
			eligible = append(eligible, f)
		}
	}
	return eligible
}
