package docsystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"smartdoc/internal/config"
	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	"smartdoc/internal/domain/repositories"
	docsysRepo "smartdoc/internal/domain/repositories/docsystem"
	"smartdoc/internal/repository/postgres"
)

// PostgresSnapshotRepository implements the SnapshotRepository interface
type PostgresSnapshotRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(cfg *postgres.RepositoryConfig) docsysRepo.SnapshotRepository {
	return &PostgresSnapshotRepository{
		pool:   cfg.Pool,
		tables: cfg.Tables,
		logger: cfg.Logger,
	}
}

// Create inserts the next version of a document. The version is computed in
// the INSERT itself; two writers that compute the same number collide on the
// UNIQUE (document_id, version) constraint and the loser retries.
func (r *PostgresSnapshotRepository) Create(ctx context.Context, snap *models.Snapshot) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, name, version, content, created_at)
		SELECT $1, $2, COALESCE(MAX(version), 0) + 1, $3, $4
		FROM %s
		WHERE document_id = $1
		RETURNING id, version, created_at
	`, r.tables.Snapshots, r.tables.Snapshots)

	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	for attempt := 1; attempt <= config.MaxSnapshotCreateAttempts; attempt++ {
		err := executor.QueryRow(ctx, query,
			snap.DocumentID,
			snap.Name,
			snap.Content,
			snap.CreatedAt,
		).Scan(&snap.ID, &snap.Version, &snap.CreatedAt)

		switch {
		case err == nil:
			return nil
		case postgres.IsPgDuplicateError(err):
			// Inside a caller's transaction the statement error aborts the
			// transaction, so retrying here cannot succeed.
			if repositories.GetTx(ctx) != nil {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("concurrent snapshot for document %s", snap.DocumentID),
					ResourceType: "snapshot",
					ResourceID:   snap.DocumentID,
				}
			}
			r.logger.Debug("snapshot version collision, retrying",
				"document_id", snap.DocumentID,
				"attempt", attempt,
			)
			continue
		case postgres.IsPgForeignKeyError(err):
			return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", snap.DocumentID)}
		default:
			return postgres.TranslateError(err, "snapshot for document", snap.DocumentID)
		}
	}

	return &domain.ConflictError{
		Message:      fmt.Sprintf("could not assign a version for document %s after %d attempts", snap.DocumentID, config.MaxSnapshotCreateAttempts),
		ResourceType: "snapshot",
		ResourceID:   snap.DocumentID,
	}
}

// ListByDocument returns summaries newest-first, without content
func (r *PostgresSnapshotRepository) ListByDocument(ctx context.Context, documentID string) ([]models.SnapshotSummary, error) {
	query := fmt.Sprintf(`
		SELECT id, name, version, created_at
		FROM %s
		WHERE document_id = $1
		ORDER BY version DESC
	`, r.tables.Snapshots)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, postgres.TranslateError(err, "snapshots of document", documentID)
	}
	defer rows.Close()

	summaries := []models.SnapshotSummary{}
	for rows.Next() {
		var s models.SnapshotSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Version, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.TranslateError(err, "snapshots of document", documentID)
	}

	return summaries, nil
}

// GetByID retrieves a snapshot including content
func (r *PostgresSnapshotRepository) GetByID(ctx context.Context, id string) (*models.Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, name, version, content, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Snapshots)

	var snap models.Snapshot
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&snap.ID,
		&snap.DocumentID,
		&snap.Name,
		&snap.Version,
		&snap.Content,
		&snap.CreatedAt,
	)
	if err != nil {
		return nil, postgres.TranslateError(err, "snapshot", id)
	}

	return &snap, nil
}
