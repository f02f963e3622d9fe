package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/peerlink/internal/config"
	"github.com/rickgao/peerlink/internal/database"
	"github.com/rickgao/peerlink/internal/store"
	"github.com/rickgao/peerlink/internal/store/memory"
	"github.com/rickgao/peerlink/internal/store/mongo"
	"github.com/rickgao/peerlink/internal/store/postgres"
	"github.com/rickgao/peerlink/internal/store/sqlite"
)

// OpenStore connects the configured storage backend.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return memory.New(), nil

	case config.BackendPostgres:
		logger.Info("connecting to database",
			"host", cfg.Postgres.Host,
			"port", cfg.Postgres.Port,
			"database", cfg.Postgres.Name,
		)
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		st := postgres.New(pool, logger)
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil

	case config.BackendMongo:
		logger.Info("connecting to mongo", "database", cfg.Mongo.Database)
		connectCtx := ctx
		if cfg.Mongo.Timeout > 0 {
			var cancel context.CancelFunc
			connectCtx, cancel = context.WithTimeout(ctx, cfg.Mongo.Timeout)
			defer cancel()
		}
		st, err := mongo.Connect(connectCtx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return st, nil

	case config.BackendSQLite:
		logger.Info("opening sqlite", "path", cfg.SQLite.Path)
		st, err := sqlite.Open(ctx, sqlite.Config{
			Path:     cfg.SQLite.Path,
			PoolSize: cfg.SQLite.PoolSize,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
