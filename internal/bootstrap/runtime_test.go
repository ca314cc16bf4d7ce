package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/models"
	"quill/internal/seed"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:        "test",
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "quill.db"),
	}
}

func TestInitRuntime_SQLiteWithSeed(t *testing.T) {
	cfg := sqliteConfig(t)
	ctx := context.Background()

	db, rdb, err := InitRuntime(ctx, cfg, Options{SeedBuiltIns: true})
	require.NoError(t, err)
	t.Cleanup(func() { closeDB(db) })
	assert.Nil(t, rdb)
	assert.Nil(t, cache.GetClient())

	var tags int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tags).Error)
	assert.EqualValues(t, len(seed.DefaultTags), tags)

	closeDB(db)
	db, _, err = InitRuntime(ctx, cfg, Options{SeedBuiltIns: true})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Tag{}).Count(&tags).Error)
	assert.EqualValues(t, len(seed.DefaultTags), tags, "seeding twice must not duplicate tags")
}

func TestInitRuntime_SkipSchema(t *testing.T) {
	db, _, err := InitRuntime(context.Background(), sqliteConfig(t), Options{SkipSchema: true})
	require.NoError(t, err)
	t.Cleanup(func() { closeDB(db) })

	assert.False(t, db.Migrator().HasTable(&models.Post{}))
}

func TestInitRuntime_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := sqliteConfig(t)
	cfg.RedisURL = mr.Addr()

	db, rdb, err := InitRuntime(context.Background(), cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() {
		closeDB(db)
		_ = rdb.Close()
		cache.SetClient(nil)
	})

	require.NotNil(t, rdb)
	assert.Same(t, rdb, cache.GetClient())
}

func TestInitRuntime_UnreachableRedisIsNotFatal(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := sqliteConfig(t)
	cfg.RedisURL = addr

	db, rdb, err := InitRuntime(context.Background(), cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { closeDB(db) })
	assert.Nil(t, rdb)
}

func TestInitRuntime_ProductionRejectsSQLite(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Env = "production"

	_, _, err := InitRuntime(context.Background(), cfg, Options{})
	assert.Error(t, err)
}
