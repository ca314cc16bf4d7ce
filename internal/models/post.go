package models

import (
	"time"
)

// Content formats accepted for post bodies.
const (
	ContentFormatHTML     = "html"
	ContentFormatMarkdown = "markdown"
)

// Post represents an article in the Quill application.
type Post struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Title         string  `gorm:"not null" json:"title"`
	Slug          string  `gorm:"uniqueIndex;not null" json:"slug"`
	Content       string  `gorm:"type:text;not null" json:"content"`
	ContentFormat string  `gorm:"size:16;not null" json:"content_format"`
	Excerpt       string  `gorm:"type:text;not null" json:"excerpt"`
	CoverImage    *string `json:"cover_image"`
	ReadingTime   int     `gorm:"not null" json:"reading_time"`
	Published     bool    `gorm:"not null;index" json:"published"`
	Featured      bool    `gorm:"not null" json:"featured"`
	AuthorID      uint    `gorm:"not null;index" json:"author_id"`
	Author        *User   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Tags          []Tag   `gorm:"many2many:post_tags;constraint:OnDelete:CASCADE" json:"tags"`
	// ContentHTML is rendered from markdown content when served; never stored.
	ContentHTML string `gorm:"-" json:"content_html,omitempty"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int       `gorm:"->;-:migration" json:"comments_count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TagIDs returns the ids of the post's loaded tags.
func (p *Post) TagIDs() []uint {
	ids := make([]uint, 0, len(p.Tags))
	for _, t := range p.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// PostTag links a post to a tag. The pair is the primary key.
type PostTag struct {
	PostID    uint      `gorm:"primaryKey" json:"post_id"`
	TagID     uint      `gorm:"primaryKey;index" json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Tag is a topic label attached to posts.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;size:120;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	// PostsCount is not persisted; computed at query time
	PostsCount int `gorm:"->;-:migration" json:"posts_count"`
}
