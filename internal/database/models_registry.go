package database

import (
	"fmt"

	"quill/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Parents come before children so foreign keys resolve on creation.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Tag{},
		&models.Post{},
		&models.PostTag{},
		&models.Comment{},
		&models.Like{},
		&models.Bookmark{},
		&models.Follow{},
		&models.Notification{},
		&models.PushSubscription{},
	}
}

// Migrate registers the post/tag join model and migrates every persistent model.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Post{}, "Tags", &models.PostTag{}); err != nil {
		return fmt.Errorf("setup post_tags join table: %w", err)
	}
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
