// Package service holds the business rules behind the HTTP API. Every
// operation receives the acting user explicitly as a session.Actor.
package service

import (
	"context"

	"quill/internal/models"
)

// Notifier receives the social events that produce notifications. Calls
// return immediately; delivery happens in the background.
type Notifier interface {
	NotifyNewPost(ctx context.Context, post *models.Post)
	NotifyComment(ctx context.Context, comment *models.Comment, post *models.Post)
	NotifyLike(ctx context.Context, actorID uint, post *models.Post)
	NotifyFollow(ctx context.Context, followerID, followingID uint)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) NotifyNewPost(context.Context, *models.Post)                  {}
func (NopNotifier) NotifyComment(context.Context, *models.Comment, *models.Post) {}
func (NopNotifier) NotifyLike(context.Context, uint, *models.Post)               {}
func (NopNotifier) NotifyFollow(context.Context, uint, uint)                     {}

// Pagination describes one page of a post listing.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func newPagination(page, limit int, total int64) Pagination {
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages(total, limit)}
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// pageWindow clamps page and limit and returns the matching offset.
func pageWindow(page, limit, defaultLimit, maxLimit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, (page - 1) * limit
}
