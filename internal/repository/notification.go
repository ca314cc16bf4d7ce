package repository

import (
	"context"
	"errors"

	"quill/internal/database"
	"quill/internal/models"

	"gorm.io/gorm"
)

// NotificationFilter selects a page of a user's inbox.
type NotificationFilter struct {
	UserID     uint
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationRepository persists in-app notifications and push subscriptions.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, f NotificationFilter) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	SetRead(ctx context.Context, userID, id uint, read bool) (*models.Notification, error)

	SaveSubscription(ctx context.Context, sub *models.PushSubscription) (bool, error)
	ListSubscriptions(ctx context.Context, userID uint) ([]models.PushSubscription, error)
	DeleteSubscription(ctx context.Context, userID uint, endpoint string) (int64, error)
	DeleteSubscriptionByID(ctx context.Context, id uint) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func senderCard(tx *gorm.DB) *gorm.DB {
	return tx.Select("id", "name", "avatar")
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Omit("User", "Sender").Create(n).Error
}

func (r *notificationRepository) List(ctx context.Context, f NotificationFilter) ([]models.Notification, int64, error) {
	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", f.UserID)
		if f.UnreadOnly {
			q = q.Where("read = ?", false)
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	notifications := []models.Notification{}
	err := scope().
		Preload("Sender", senderCard).
		Order("created_at DESC").
		Order("id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&notifications).Error
	return notifications, total, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks the listed notifications read. Ids belonging to other users
// are ignored.
func (r *notificationRepository) MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND id IN ? AND read = ?", userID, ids, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) SetRead(ctx context.Context, userID, id uint, read bool) (*models.Notification, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", read)
	if res.Error != nil {
		return nil, res.Error
	}

	var n models.Notification
	err := r.db.WithContext(ctx).Preload("Sender", senderCard).
		Where("id = ? AND user_id = ?", id, userID).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Notification", id)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// SaveSubscription stores sub, refreshing the keys of an existing
// (user, endpoint) pair. It reports whether a new row was created.
func (r *notificationRepository) SaveSubscription(ctx context.Context, sub *models.PushSubscription) (bool, error) {
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PushSubscription
		err := tx.Where("user_id = ? AND endpoint = ?", sub.UserID, sub.Endpoint).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Omit("User").Create(sub).Error; err != nil {
				return err
			}
			created = true
			return nil
		case err != nil:
			return err
		}

		existing.P256dh = sub.P256dh
		existing.Auth = sub.Auth
		if err := tx.Model(&existing).Select("p256dh", "auth").Updates(&existing).Error; err != nil {
			return err
		}
		*sub = existing
		return nil
	})
	if database.IsUniqueViolation(err) {
		// Lost a race with a concurrent subscribe for the same endpoint.
		return false, nil
	}
	return created, err
}

func (r *notificationRepository) ListSubscriptions(ctx context.Context, userID uint) ([]models.PushSubscription, error) {
	subs := []models.PushSubscription{}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&subs).Error
	return subs, err
}

func (r *notificationRepository) DeleteSubscription(ctx context.Context, userID uint, endpoint string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&models.PushSubscription{})
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) DeleteSubscriptionByID(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.PushSubscription{}, id).Error
}
