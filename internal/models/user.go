// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents an account on the Quill platform.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email,omitempty"`
	Password  string    `gorm:"not null" json:"-"`
	Bio       string    `gorm:"type:text" json:"bio"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`

	// Per-type notification toggles. New accounts receive every type.
	NotifyOnComment bool `gorm:"not null;default:true" json:"-"`
	NotifyOnLike    bool `gorm:"not null;default:true" json:"-"`
	NotifyOnFollow  bool `gorm:"not null;default:true" json:"-"`
	NotifyOnNewPost bool `gorm:"not null;default:true" json:"-"`
}

// DisplayName returns the user's name or fallback when it is blank.
func (u *User) DisplayName(fallback string) string {
	if u == nil || u.Name == "" {
		return fallback
	}
	return u.Name
}

// NotificationSettings is the editable view of a user's notification toggles.
type NotificationSettings struct {
	NotifyOnComment bool `json:"notify_on_comment"`
	NotifyOnLike    bool `json:"notify_on_like"`
	NotifyOnFollow  bool `json:"notify_on_follow"`
	NotifyOnNewPost bool `json:"notify_on_new_post"`
}

// Settings returns the user's notification toggles.
func (u *User) Settings() NotificationSettings {
	return NotificationSettings{
		NotifyOnComment: u.NotifyOnComment,
		NotifyOnLike:    u.NotifyOnLike,
		NotifyOnFollow:  u.NotifyOnFollow,
		NotifyOnNewPost: u.NotifyOnNewPost,
	}
}

// Wants reports whether the user opted in to notifications of type t.
func (u *User) Wants(t NotificationType) bool {
	switch t {
	case NotificationTypeComment:
		return u.NotifyOnComment
	case NotificationTypeLike:
		return u.NotifyOnLike
	case NotificationTypeFollow:
		return u.NotifyOnFollow
	case NotificationTypeNewPost:
		return u.NotifyOnNewPost
	}
	return false
}

// UserProfile is the public view of a user with social counters.
type UserProfile struct {
	User
	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`
	PostCount      int64 `json:"post_count"`
}
