package docsystem

import "time"

// Snapshot is an immutable, numbered copy of a document's content
type Snapshot struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Name       string    `json:"name" db:"name"`
	Version    int       `json:"version" db:"version"`
	Content    string    `json:"content,omitempty" db:"content"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SnapshotSummary is the list view of a snapshot (no content)
type SnapshotSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary strips content from a snapshot
func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:        s.ID,
		Name:      s.Name,
		Version:   s.Version,
		CreatedAt: s.CreatedAt,
	}
}

// AutoSnapshotNameLayout renders as "Jan 2, 2006 3:04 PM"
const AutoSnapshotNameLayout = "Jan 2, 2006 3:04 PM"

// AutoSnapshotName returns the name given to periodic snapshots taken at t
func AutoSnapshotName(t time.Time) string {
	return "Auto Draft - " + t.Format(AutoSnapshotNameLayout)
}
