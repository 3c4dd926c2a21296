// Package infra picks and opens the document store backend the service
// runs on.
package infra

import (
	"affiliate/domain"
	"affiliate/infra/memory"
	"affiliate/infra/mongodb"
	"affiliate/infra/postgres"
	"affiliate/infra/sqlite"
	"affiliate/pkg/config"
	"affiliate/pkg/docstore"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultDatabaseName = "affiliate"
	connectTimeout      = 10 * time.Second
)

var ErrStoreNotConfigured = errors.New("DATABASE_URL is not set")

// OpenBackend connects to the backend selected by STORE_DRIVER.
func OpenBackend(ctx context.Context, cfg *config.AppConfig) (docstore.Backend, error) {
	if !cfg.StoreConfigured() {
		return nil, ErrStoreNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverMongo, "":
		name := cfg.DatabaseName
		if name == "" {
			name = defaultDatabaseName
		}
		return mongodb.NewStore(ctx, cfg.DatabaseURL, name)
	case config.DriverPostgres:
		return postgres.NewPgStore(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		return sqlite.NewStore(cfg.DatabaseURL)
	case config.DriverMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// OpenStore opens the configured backend and prepares the catalog indexes.
// Failures are logged and yield an unconfigured store, so the service still
// starts and reports the problem on /test.
func OpenStore(ctx context.Context, cfg *config.AppConfig) *docstore.Store {
	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		zap.L().Error("Document store not available",
			zap.String("driver", cfg.StoreDriver),
			zap.Error(err),
		)
		return docstore.New(nil)
	}

	store := docstore.New(backend)

	if err := store.EnsureUniqueIndex(ctx, domain.CategoryCollection, "slug"); err != nil {
		zap.L().Error("Failed to ensure unique category slug index", zap.Error(err))
	}

	zap.L().Info("Document store connected", zap.String("driver", cfg.StoreDriver))

	return store
}
