package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"quill/internal/config"
	"quill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func sqliteLoader(t *testing.T) (configLoader, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quill.db")
	return func() (*config.Config, error) {
		return &config.Config{Env: "test", DBDriver: "sqlite", SQLitePath: path}, nil
	}, path
}

func execute(t *testing.T, load configLoader, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand(load)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func openSQLite(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestVAPID(t *testing.T) {
	out, err := execute(t, nil, "vapid")
	require.NoError(t, err)
	assert.Contains(t, out, "VAPID_PUBLIC_KEY=")
	assert.Contains(t, out, "VAPID_PRIVATE_KEY=")
}

func TestSeedTags(t *testing.T) {
	load, path := sqliteLoader(t)

	out, err := execute(t, load, "seed", "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "created 7 of 7 built-in tags")

	out, err = execute(t, load, "seed", "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "created 0 of 7 built-in tags")

	var n int64
	require.NoError(t, openSQLite(t, path).Model(&models.Tag{}).Count(&n).Error)
	assert.EqualValues(t, 7, n)
}

func TestSeedDemo(t *testing.T) {
	load, path := sqliteLoader(t)

	out, err := execute(t, load, "seed", "demo", "--users", "3", "--posts", "4", "--seed", "5", "--fast-hash")
	require.NoError(t, err)
	assert.Contains(t, out, "users=3 posts=4")

	var n int64
	require.NoError(t, openSQLite(t, path).Model(&models.Post{}).Count(&n).Error)
	assert.EqualValues(t, 4, n)
}

func TestSeedDemo_RejectsZeroUsers(t *testing.T) {
	load, _ := sqliteLoader(t)

	_, err := execute(t, load, "seed", "demo", "--users", "0")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	load, path := sqliteLoader(t)

	out, err := execute(t, load, "migrate", "status")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "mode=hybrid env=test dialect=sqlite run_sql=false run_auto=true"), out)

	out, err = execute(t, load, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")
	assert.True(t, openSQLite(t, path).Migrator().HasTable(&models.Post{}))
}

func TestMigrateDown_RejectsBadVersion(t *testing.T) {
	load, _ := sqliteLoader(t)

	for _, arg := range []string{"abc", "0"} {
		_, err := execute(t, load, "migrate", "down", arg)
		assert.ErrorContains(t, err, "invalid version")
	}
	_, err := execute(t, load, "migrate", "down")
	assert.Error(t, err)
}

func TestConnect_ConfigError(t *testing.T) {
	load := func() (*config.Config, error) { return nil, errors.New("boom") }

	_, err := execute(t, load, "seed", "tags")
	assert.ErrorContains(t, err, "load config: boom")
}
