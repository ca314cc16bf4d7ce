package repository

import (
	"context"
	"errors"
	"strings"

	"quill/internal/models"
	"quill/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdateSettings(ctx context.Context, userID uint, settings models.NotificationSettings) error
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", nil)
		}
		return nil, err
	}
	return &user, nil
}

// Create inserts the user. Notification toggles take their column defaults.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"user_id": user.ID})
	return nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(&models.User{ID: user.ID}).
		Select("name", "bio", "avatar", "updated_at").
		Updates(user).Error
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return err
	}
	r.log.LogUpdate(ctx, map[string]any{"user_id": user.ID})
	return nil
}

// UpdateSettings writes all four toggles, including false values.
func (r *userRepository) UpdateSettings(ctx context.Context, userID uint, s models.NotificationSettings) error {
	return r.db.WithContext(ctx).Model(&models.User{ID: userID}).Updates(map[string]any{
		"notify_on_comment":  s.NotifyOnComment,
		"notify_on_like":     s.NotifyOnLike,
		"notify_on_follow":   s.NotifyOnFollow,
		"notify_on_new_post": s.NotifyOnNewPost,
	}).Error
}
