// Package bootstrap wires the storage dependencies shared by the server and
// the admin CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/middleware"
	"quill/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema leaves the schema untouched. The admin CLI manages it itself.
	SkipSchema bool
	// SeedBuiltIns inserts the default tag catalog when tags are missing.
	SeedBuiltIns bool
	// SkipRedis runs without a cache even when REDIS_URL is set.
	SkipRedis bool
}

// InitRuntime connects to the database, applies the schema policy, connects
// Redis when configured and optionally seeds built-in data. A Redis outage is
// not fatal: the returned client is nil and caching is disabled.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if !opts.SkipSchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			closeDB(db)
			return nil, nil, fmt.Errorf("schema setup failed: %w", err)
		}
	}

	if opts.SeedBuiltIns {
		created, err := seed.Tags(ctx, db)
		if err != nil {
			closeDB(db)
			return nil, nil, fmt.Errorf("failed to seed built-in tags: %w", err)
		}
		if created > 0 {
			middleware.Logger.Info("seeded built-in tags", slog.Int("created", created))
		}
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" && !opts.SkipRedis {
		rdb = cache.InitRedis(cfg.RedisURL)
	} else {
		cache.SetClient(nil)
	}

	return db, rdb, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
