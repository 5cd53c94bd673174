package docsystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	docsysRepo "smartdoc/internal/domain/repositories/docsystem"
	"smartdoc/internal/repository/postgres"
)

const documentColumns = `id, user_id, title, status, content, file_url, file_type, word_count, created_at, updated_at`

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) docsysRepo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create creates a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, status, content, file_url, file_type, word_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, r.tables.Documents)

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.UserID,
		doc.Title,
		string(doc.Status),
		doc.Content,
		doc.FileURL,
		doc.FileType,
		doc.WordCount,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if postgres.IsPgTransientError(err) {
			return &domain.TransientIOError{Message: "create document", Err: err}
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, documentColumns, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		return nil, postgres.TranslateError(err, "document", id)
	}
	return doc, nil
}

// ListByUser lists a user's documents without content, most recently updated first
func (r *PostgresDocumentRepository) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, status, '' AS content, file_url, file_type, word_count, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, postgres.TranslateError(err, "documents of user", userID)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.TranslateError(err, "documents of user", userID)
	}

	return docs, nil
}

// UpdateContent overwrites content. An update carrying Status or From is
// applied only while the stored status still satisfies it.
func (r *PostgresDocumentRepository) UpdateContent(ctx context.Context, id string, update *docsysRepo.ContentUpdate) (*models.Document, error) {
	executor := postgres.GetExecutor(ctx, r.pool)

	if update.Status == nil && len(update.From) == 0 {
		query := fmt.Sprintf(`
			UPDATE %s SET content = $2, word_count = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING %s
		`, r.tables.Documents, documentColumns)

		doc, err := scanDocument(executor.QueryRow(ctx, query, id, update.Content, update.WordCount))
		if err != nil {
			return nil, postgres.TranslateError(err, "document", id)
		}
		return doc, nil
	}

	var next *string
	if update.Status != nil {
		s := string(*update.Status)
		next = &s
	}
	query := fmt.Sprintf(`
		UPDATE %s SET content = $2, word_count = $3, status = COALESCE($4::text, status), updated_at = NOW()
		WHERE id = $1 AND status = ANY($5)
		RETURNING %s
	`, r.tables.Documents, documentColumns)

	doc, err := scanDocument(executor.QueryRow(ctx, query, id, update.Content, update.WordCount, next, statusStrings(guardedFrom(update))))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			current, gerr := r.GetByID(ctx, id)
			if gerr != nil {
				return nil, gerr
			}
			target := current.Status
			if update.Status != nil {
				target = *update.Status
			}
			return nil, r.transitionConflict(ctx, id, target)
		}
		return nil, postgres.TranslateError(err, "document", id)
	}
	return doc, nil
}

// TransitionStatus moves status from one of from to next
func (r *PostgresDocumentRepository) TransitionStatus(ctx context.Context, id string, from []models.DocumentStatus, next models.DocumentStatus) (*models.Document, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
		RETURNING %s
	`, r.tables.Documents, documentColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id, string(next), statusStrings(from)))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, r.transitionConflict(ctx, id, next)
		}
		return nil, postgres.TranslateError(err, "document", id)
	}

	r.logger.Debug("document status changed", "id", id, "status", next)
	return doc, nil
}

// transitionConflict explains a guarded update that matched no row
func (r *PostgresDocumentRepository) transitionConflict(ctx context.Context, id string, next models.DocumentStatus) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return &domain.ConflictError{
		Message:      fmt.Sprintf("document %s is %s and cannot become %s", id, current.Status, next),
		ResourceType: "document",
		ResourceID:   id,
	}
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	var status string
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&status,
		&doc.Content,
		&doc.FileURL,
		&doc.FileType,
		&doc.WordCount,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = models.DocumentStatus(status)
	return &doc, nil
}

// guardedFrom lists the stored statuses a guarded content update accepts
func guardedFrom(update *docsysRepo.ContentUpdate) []models.DocumentStatus {
	var from []models.DocumentStatus
	for _, s := range allStatuses {
		if update.Accepts(s) {
			from = append(from, s)
		}
	}
	return from
}

var allStatuses = []models.DocumentStatus{models.StatusPending, models.StatusGenerating, models.StatusReady, models.StatusError}

// allowedFrom lists the statuses that may transition to next
func allowedFrom(next models.DocumentStatus) []models.DocumentStatus {
	var from []models.DocumentStatus
	for _, s := range allStatuses {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

func statusStrings(statuses []models.DocumentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
