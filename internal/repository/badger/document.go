package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	docsysRepo "smartdoc/internal/domain/repositories/docsystem"
)

func docKey(id string) []byte { return []byte("doc:" + id) }

func userDocPrefix(userID string) []byte { return []byte("user:" + userID + ":doc:") }

func userDocKey(userID, id string) []byte {
	return append(userDocPrefix(userID), id...)
}

// DocumentRepository implements DocumentRepository on BadgerDB
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates a document repository backed by db
func NewDocumentRepository(db *DB) docsysRepo.DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create stores a new document and its ownership index entry
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}

	return r.db.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(doc.ID)); err == nil {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("document %s already exists", doc.ID),
				ResourceType: "document",
				ResourceID:   doc.ID,
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := setJSON(txn, docKey(doc.ID), doc); err != nil {
			return err
		}
		return txn.Set(userDocKey(doc.UserID, doc.ID), nil)
	})
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	var doc *models.Document
	err := r.db.view(ctx, func(txn *badger.Txn) error {
		var err error
		doc, err = loadDocument(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListByUser lists a user's documents without content, most recently updated first
func (r *DocumentRepository) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	docs := []models.Document{}
	err := r.db.view(ctx, func(txn *badger.Txn) error {
		prefix := userDocPrefix(userID)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			id := string(bytes.TrimPrefix(it.Item().Key(), prefix))
			doc, err := loadDocument(txn, id)
			if err != nil {
				// A dangling index entry is skipped rather than failing the list
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				return err
			}
			doc.Content = ""
			docs = append(docs, *doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
	return docs, nil
}

// UpdateContent overwrites content, guarded by the update's status conditions
func (r *DocumentRepository) UpdateContent(ctx context.Context, id string, update *docsysRepo.ContentUpdate) (*models.Document, error) {
	var updated *models.Document
	err := r.db.update(ctx, func(txn *badger.Txn) error {
		doc, err := loadDocument(txn, id)
		if err != nil {
			return err
		}

		if !update.Accepts(doc.Status) {
			next := doc.Status
			if update.Status != nil {
				next = *update.Status
			}
			return transitionConflict(doc, next)
		}
		if update.Status != nil {
			doc.Status = *update.Status
		}
		doc.Content = update.Content
		doc.WordCount = update.WordCount
		doc.UpdatedAt = time.Now().UTC()

		if err := setJSON(txn, docKey(id), doc); err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// TransitionStatus moves status from one of from to next
func (r *DocumentRepository) TransitionStatus(ctx context.Context, id string, from []models.DocumentStatus, next models.DocumentStatus) (*models.Document, error) {
	var updated *models.Document
	err := r.db.update(ctx, func(txn *badger.Txn) error {
		doc, err := loadDocument(txn, id)
		if err != nil {
			return err
		}

		allowed := false
		for _, s := range from {
			if doc.Status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return transitionConflict(doc, next)
		}

		doc.Status = next
		doc.UpdatedAt = time.Now().UTC()
		if err := setJSON(txn, docKey(id), doc); err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func loadDocument(txn *badger.Txn, id string) (*models.Document, error) {
	var doc models.Document
	if err := getJSON(txn, docKey(id), &doc); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
		}
		return nil, fmt.Errorf("load document %s: %w", id, err)
	}
	return &doc, nil
}

func transitionConflict(doc *models.Document, next models.DocumentStatus) error {
	return &domain.ConflictError{
		Message:      fmt.Sprintf("document %s is %s and cannot become %s", doc.ID, doc.Status, next),
		ResourceType: "document",
		ResourceID:   doc.ID,
	}
}
