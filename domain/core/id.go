package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	FileID    ID
	WidgetID  ID
	PreviewID ID
	UserID    ID
)

// String conversions for domain IDs
func (id FileID) String() string    { return ID(id).String() }
func (id WidgetID) String() string  { return ID(id).String() }
func (id PreviewID) String() string { return ID(id).String() }
func (id UserID) String() string    { return ID(id).String() }

// ParseFileID parses a string into FileID
func ParseFileID(s string) (FileID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("file ID cannot be empty")
	}
	return FileID(s), nil
}

// ParseWidgetID parses a string into WidgetID
func ParseWidgetID(s string) (WidgetID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("widget ID cannot be empty")
	}
	return WidgetID(s), nil
}

// ParsePreviewID parses a string into PreviewID
func ParsePreviewID(s string) (PreviewID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("preview ID cannot be empty")
	}
	return PreviewID(s), nil
}
