package docsystem

import (
	"strings"
	"time"
)

// DocumentStatus tracks the generation lifecycle of a document
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusGenerating DocumentStatus = "generating"
	StatusReady      DocumentStatus = "ready"
	StatusError      DocumentStatus = "error"
)

// DefaultDocumentTitle is used when a document is created without a title
const DefaultDocumentTitle = "Untitled Document"

// EmptyContent is the placeholder content of a freshly created document
const EmptyContent = "{}"

// IsValid reports whether s is a known status
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusGenerating, StatusReady, StatusError:
		return true
	}
	return false
}

// IsTerminal reports whether generation will not move past this status without a new request
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusReady || s == StatusError
}

// CanTransitionTo reports whether the status may move to next.
// pending -> generating -> {ready, error}; pending -> ready is the uploaded-file path.
// Writing the same status again is always allowed.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusGenerating || next == StatusReady
	case StatusGenerating:
		return next == StatusReady || next == StatusError
	}
	return false
}

type Document struct {
	ID        string         `json:"id" db:"id"`
	UserID    string         `json:"user_id" db:"user_id"`
	Title     string         `json:"title" db:"title"`
	Status    DocumentStatus `json:"status" db:"status"`
	Content   string         `json:"content" db:"content"` // Serialized content tree (canonical JSON)
	FileURL   *string        `json:"file_url,omitempty" db:"file_url"`
	FileType  *string        `json:"file_type,omitempty" db:"file_type"`
	WordCount int            `json:"word_count" db:"word_count"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// HasUsableContent reports whether the document carries real content rather than
// the empty placeholder written at creation.
func (d *Document) HasUsableContent() bool {
	return IsUsableContent(d.Content)
}

// HasFile reports whether the document was created from an uploaded file
func (d *Document) HasFile() bool {
	return d.FileURL != nil && *d.FileURL != ""
}

// IsUsableContent reports whether serialized content is non-trivial
func IsUsableContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed != "" && trimmed != EmptyContent && len(trimmed) > 2
}
