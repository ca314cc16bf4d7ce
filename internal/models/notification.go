package models

import (
	"time"
)

// NotificationType identifies the social event behind a notification.
type NotificationType string

const (
	NotificationTypeNewPost NotificationType = "new_post"
	NotificationTypeComment NotificationType = "comment"
	NotificationTypeLike    NotificationType = "like"
	NotificationTypeFollow  NotificationType = "follow"
)

// Notification is an in-app notification addressed to UserID.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index:idx_notifications_user_read" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Title     string           `gorm:"not null" json:"title"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	URL       string           `json:"url"`
	Read      bool             `gorm:"not null;index:idx_notifications_user_read" json:"read"`
	SenderID  *uint            `gorm:"index" json:"sender_id"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`

	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Sender *User `gorm:"foreignKey:SenderID;constraint:OnDelete:SET NULL" json:"sender,omitempty"`
}

// PushSubscription is a browser push endpoint registered by a user.
type PushSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_push_user_endpoint" json:"user_id"`
	Endpoint  string    `gorm:"size:2048;not null;uniqueIndex:idx_push_user_endpoint" json:"endpoint"`
	P256dh    string    `gorm:"not null" json:"p256dh"`
	Auth      string    `gorm:"not null" json:"auth"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
