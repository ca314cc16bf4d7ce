package models

import (
	"time"
)

// Like represents a user's like on a post.
// The combination of PostID and UserID must be unique; the row is removed on unlike.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_like_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_post_user;index" json:"user_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Bookmark represents a post saved by a user for later reading.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_post_user" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_post_user;index" json:"user_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Follow represents FollowerID subscribing to FollowingID's posts.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FollowerID  uint      `gorm:"not null;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FollowingID uint      `gorm:"not null;uniqueIndex:idx_follow_pair;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`

	Follower  *User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Following *User `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE" json:"-"`
}
