package main

import (
	"context"
	"fmt"
	"log/slog"

	"smartdoc/internal/config"
	"smartdoc/internal/domain/repositories"
	docsysRepo "smartdoc/internal/domain/repositories/docsystem"
	badgerrepo "smartdoc/internal/repository/badger"
	"smartdoc/internal/repository/postgres"
	postgresDocsys "smartdoc/internal/repository/postgres/docsystem"
)

// storage holds the repositories of the selected backend
type storage struct {
	documents docsysRepo.DocumentRepository
	snapshots docsysRepo.SnapshotRepository
	txManager repositories.TransactionManager
	close     func()
}

// openStorage connects the backend named by STORAGE_BACKEND
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
		if err != nil {
			return nil, err
		}

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database connected",
			"backend", "postgres",
			"table_prefix", cfg.TablePrefix,
			"max_conns", 25,
			"min_conns", 5,
		)

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		}
		return &storage{
			documents: postgresDocsys.NewDocumentRepository(repoConfig),
			snapshots: postgresDocsys.NewSnapshotRepository(repoConfig),
			txManager: postgres.NewTransactionManager(pool, logger),
			close:     pool.Close,
		}, nil

	case "badger":
		dbConfig := badgerrepo.DefaultConfig(cfg.BadgerPath)
		dbConfig.Logger = logger
		db, err := badgerrepo.Open(dbConfig)
		if err != nil {
			return nil, err
		}
		logger.Info("database opened", "backend", "badger", "path", cfg.BadgerPath)

		return &storage{
			documents: badgerrepo.NewDocumentRepository(db),
			snapshots: badgerrepo.NewSnapshotRepository(db),
			txManager: badgerrepo.NewTransactionManager(),
			close: func() {
				if err := db.Close(); err != nil {
					logger.Error("close badger", "error", err)
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.StorageBackend)
	}
}
