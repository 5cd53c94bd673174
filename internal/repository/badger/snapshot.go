package badger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	docsysRepo "smartdoc/internal/domain/repositories/docsystem"
)

func snapKey(id string) []byte { return []byte("snap:" + id) }

func docSnapPrefix(documentID string) []byte { return []byte("docsnap:" + documentID + ":") }

// docSnapKey zero-pads the version so keys sort in version order
func docSnapKey(documentID string, version int) []byte {
	return []byte(fmt.Sprintf("docsnap:%s:%010d", documentID, version))
}

func docVersionKey(documentID string) []byte { return []byte("docver:" + documentID) }

// SnapshotRepository implements SnapshotRepository on BadgerDB
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a snapshot repository backed by db
func NewSnapshotRepository(db *DB) docsysRepo.SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create assigns the next version of the document and stores the snapshot.
// The version counter is read and written in the same transaction, so two
// concurrent creates conflict on commit and the loser retries with a fresh read.
func (r *SnapshotRepository) Create(ctx context.Context, snap *models.Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	id := uuid.NewString()

	return r.db.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(snap.DocumentID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", snap.DocumentID)}
			}
			return err
		}

		version, err := lastVersion(txn, snap.DocumentID)
		if err != nil {
			return err
		}
		version++

		stored := *snap
		stored.ID = id
		stored.Version = version

		if err := setJSON(txn, snapKey(id), &stored); err != nil {
			return err
		}
		if err := txn.Set(docSnapKey(snap.DocumentID, version), []byte(id)); err != nil {
			return err
		}
		if err := txn.Set(docVersionKey(snap.DocumentID), []byte(strconv.Itoa(version))); err != nil {
			return err
		}

		snap.ID = id
		snap.Version = version
		return nil
	})
}

// ListByDocument returns summaries newest-first, without content
func (r *SnapshotRepository) ListByDocument(ctx context.Context, documentID string) ([]models.SnapshotSummary, error) {
	summaries := []models.SnapshotSummary{}
	err := r.db.view(ctx, func(txn *badger.Txn) error {
		prefix := docSnapPrefix(documentID)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the last key <= seek key
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			snap, err := loadSnapshot(txn, string(id))
			if err != nil {
				return err
			}
			summaries = append(summaries, snap.Summary())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetByID retrieves a snapshot including content
func (r *SnapshotRepository) GetByID(ctx context.Context, id string) (*models.Snapshot, error) {
	var snap *models.Snapshot
	err := r.db.view(ctx, func(txn *badger.Txn) error {
		var err error
		snap, err = loadSnapshot(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func lastVersion(txn *badger.Txn, documentID string) (int, error) {
	item, err := txn.Get(docVersionKey(documentID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = item.Value(func(val []byte) error {
		v, err := strconv.Atoi(string(val))
		if err != nil {
			return fmt.Errorf("corrupt version counter for document %s: %w", documentID, err)
		}
		version = v
		return nil
	})
	return version, err
}

func loadSnapshot(txn *badger.Txn, id string) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := getJSON(txn, snapKey(id), &snap); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("snapshot %s not found", id)}
		}
		return nil, fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return &snap, nil
}
