// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync/atomic"
	"testing"

	"quill/internal/database"
	"quill/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory SQLite database with foreign keys
// enforced. The pool holds a single connection so that goroutines spawned by
// the code under test see the same database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:quill_test_%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with every notification toggle enabled.
func CreateUser(t testing.TB, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		Name:            name,
		Email:           strings.ToLower(strings.ReplaceAll(name, " ", ".")) + fmt.Sprintf(".%d@example.com", dbSeq.Add(1)),
		Password:        "x",
		NotifyOnComment: true,
		NotifyOnLike:    true,
		NotifyOnFollow:  true,
		NotifyOnNewPost: true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// CreatePost inserts a post owned by author. Slug defaults to a unique value.
func CreatePost(t testing.TB, db *gorm.DB, author *models.User, title string, published bool, tags ...models.Tag) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:         title,
		Slug:          fmt.Sprintf("post-%d", dbSeq.Add(1)),
		Content:       "some words for the body",
		ContentFormat: models.ContentFormatHTML,
		Excerpt:       "excerpt",
		ReadingTime:   1,
		Published:     published,
		AuthorID:      author.ID,
		Tags:          tags,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

// CreateTag inserts a tag.
func CreateTag(t testing.TB, db *gorm.DB, name, slug string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name, Slug: slug}
	if err := db.Create(&tag).Error; err != nil {
		t.Fatalf("create tag: %v", err)
	}
	return tag
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
