package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/observability"
)

// Snapshot kinds, used as the metrics label
const (
	snapshotAuto  = "auto"
	snapshotNamed = "named"
)

// ApplyFunc replaces the live tree with a restored one and persists it.
// An error means nothing was applied.
type ApplyFunc func(ctx context.Context, tree *models.Node, serialized string) error

// VersionManager owns the snapshot policy of one editing session. It keeps the
// serialized content of the last snapshot it knows about so periodic snapshots
// of unchanged content cost no store call.
type VersionManager struct {
	documentID string
	store      Store
	serializer docsysSvc.ContentSerializer
	clock      Clock
	metrics    *observability.Metrics
	logger     *slog.Logger

	mu       sync.Mutex
	baseline string
}

// NewVersionManager creates a manager for one document
func NewVersionManager(
	documentID string,
	store Store,
	serializer docsysSvc.ContentSerializer,
	clock Clock,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *VersionManager {
	return &VersionManager{
		documentID: documentID,
		store:      store,
		serializer: serializer,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// SetBaseline sets the content the next periodic snapshot is compared against
func (v *VersionManager) SetBaseline(serialized string) {
	v.mu.Lock()
	v.baseline = serialized
	v.mu.Unlock()
}

// Baseline returns the comparison baseline
func (v *VersionManager) Baseline() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.baseline
}

// MaybeCreateSnapshot snapshots tree under an "Auto Draft" name unless its
// serialization equals the baseline. Returns nil, nil when nothing changed.
func (v *VersionManager) MaybeCreateSnapshot(ctx context.Context, tree *models.Node) (*models.Snapshot, error) {
	serialized, err := v.serializer.Serialize(tree)
	if err != nil {
		return nil, err
	}

	if serialized == v.Baseline() {
		return nil, nil
	}

	return v.create(ctx, models.AutoSnapshotName(v.clock.Now()), serialized, snapshotAuto)
}

// CreateNamedSnapshot snapshots tree under a user-chosen name
func (v *VersionManager) CreateNamedSnapshot(ctx context.Context, name string, tree *models.Node) (*models.Snapshot, error) {
	serialized, err := v.serializer.Serialize(tree)
	if err != nil {
		return nil, err
	}
	return v.create(ctx, name, serialized, snapshotNamed)
}

func (v *VersionManager) create(ctx context.Context, name, serialized, kind string) (*models.Snapshot, error) {
	snapshot, err := v.store.CreateSnapshot(ctx, v.documentID, name, serialized)
	if err != nil {
		v.metrics.Snapshot(kind, observability.ResultError)
		return nil, fmt.Errorf("create snapshot: %w", err)
	}

	v.SetBaseline(serialized)
	v.metrics.Snapshot(kind, observability.ResultSuccess)
	v.logger.Debug("snapshot created",
		"document_id", v.documentID,
		"version", snapshot.Version,
		"kind", kind,
	)
	return snapshot, nil
}

// ListVersions returns snapshot summaries newest-first
func (v *VersionManager) ListVersions(ctx context.Context) ([]models.SnapshotSummary, error) {
	return v.store.ListSnapshots(ctx, v.documentID)
}

// RestoreVersion fetches and parses a snapshot, then hands the tree to apply.
// A fetch or parse failure returns before apply is called.
func (v *VersionManager) RestoreVersion(ctx context.Context, snapshotID string, apply ApplyFunc) (*models.Node, error) {
	tree, serialized, err := v.fetch(ctx, snapshotID)
	if err != nil {
		v.metrics.Restore(observability.ResultError)
		return nil, err
	}

	if err := apply(ctx, tree, serialized); err != nil {
		v.metrics.Restore(observability.ResultError)
		return nil, fmt.Errorf("apply restored content: %w", err)
	}

	v.SetBaseline(serialized)
	v.metrics.Restore(observability.ResultSuccess)
	v.logger.Info("version restored",
		"document_id", v.documentID,
		"snapshot_id", snapshotID,
	)
	return tree, nil
}

func (v *VersionManager) fetch(ctx context.Context, snapshotID string) (*models.Node, string, error) {
	snap, err := v.store.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, "", err
	}
	if snap.DocumentID != v.documentID {
		return nil, "", &domain.NotFoundError{Message: fmt.Sprintf("snapshot %s not found for document %s", snapshotID, v.documentID)}
	}

	tree, err := v.serializer.Load(snap.Content)
	if err != nil {
		v.logger.Warn("snapshot content is malformed",
			"document_id", v.documentID,
			"snapshot_id", snapshotID,
			"error", err,
		)
		return nil, "", err
	}

	// Re-serialize so legacy HTML snapshots are written back in canonical form.
	serialized, err := v.serializer.Serialize(tree)
	if err != nil {
		return nil, "", &domain.MalformedContentError{Message: err.Error()}
	}
	return tree, serialized, nil
}
