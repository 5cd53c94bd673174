package config

const (
	// MaxDocumentTitleLength is the maximum length for document titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxDocumentTitleLength = 255

	// MaxSnapshotNameLength is the maximum length for snapshot names.
	MaxSnapshotNameLength = 255

	// MaxContentBytes caps a single serialized content write.
	MaxContentBytes = 10 << 20

	// MaxImportBytes caps uploaded files accepted for import.
	MaxImportBytes = 10 << 20

	// MaxSnapshotCreateAttempts bounds retries when two writers race for the
	// same version number.
	MaxSnapshotCreateAttempts = 5
)
