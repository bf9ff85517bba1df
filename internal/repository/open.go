// Package repository selects and opens the record store backend.
package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/barberdash/internal/config"
	"github.com/mamadbah2/barberdash/internal/repository/memory"
	"github.com/mamadbah2/barberdash/internal/repository/mongodb"
	"github.com/mamadbah2/barberdash/internal/repository/postgres"
	"github.com/mamadbah2/barberdash/internal/repository/rest"
	"github.com/mamadbah2/barberdash/internal/repository/store"
)

// CloseFunc releases the resources held by a backend.
type CloseFunc func(ctx context.Context) error

func noopClose(context.Context) error { return nil }

// Open builds the backend named by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, CloseFunc, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Store.Backend {
	case config.BackendMemory:
		if cfg.Store.File == "" {
			return memory.NewRepository(logger.Named("repo.memory")), noopClose, nil
		}
		repo, err := memory.NewFileRepository(cfg.Store.File, logger.Named("repo.memory"))
		if err != nil {
			return nil, nil, err
		}
		return repo, noopClose, nil

	case config.BackendREST:
		return rest.NewRepository(cfg.Store, logger.Named("repo.rest")), noopClose, nil

	case config.BackendMongoDB:
		repo, err := mongodb.NewRepository(ctx, cfg.MongoDB, logger.Named("repo.mongodb"))
		if err != nil {
			return nil, nil, err
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = repo.Close(ctx)
			return nil, nil, err
		}
		return repo, repo.Close, nil

	case config.BackendPostgres:
		repo, err := postgres.NewRepository(ctx, cfg.Postgres, logger.Named("repo.postgres"))
		if err != nil {
			return nil, nil, err
		}
		return repo, func(context.Context) error { return repo.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
}
