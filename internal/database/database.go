// Package database opens the configured store backend.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelforge/nexus/internal/config"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/internal/store/mongostore"
	"github.com/pixelforge/nexus/internal/store/sqlstore"
)

const connectTimeout = 10 * time.Second

// Open connects to the backend named by cfg.Driver and prepares its schema
// (gorm migrations or MongoDB indexes).
func Open(ctx context.Context, cfg *config.DatabaseConfig, debug bool) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite", "mysql", "postgres":
		return sqlstore.Open(cfg.Driver, cfg.DSN, debug)
	case "mongodb":
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return mongostore.Open(ctx, cfg.DSN, cfg.Name)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}
