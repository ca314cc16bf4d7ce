package repository

import (
	"context"
	"errors"

	"quill/internal/cache"
	"quill/internal/models"
	"quill/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListTree(ctx context.Context, postID uint) ([]*models.Comment, error)
	UpdateContent(ctx context.Context, comment *models.Comment) error
	DeleteTree(ctx context.Context, comment *models.Comment) (int64, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

func authorCard(tx *gorm.DB) *gorm.DB {
	return tx.Select("id", "name", "avatar", "bio")
}

func oldestFirst(tx *gorm.DB) *gorm.DB {
	return tx.Order("comments.created_at ASC").Order("comments.id ASC")
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Post", "Replies").Create(comment).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"comment_id": comment.ID, "post_id": comment.PostID})
	r.invalidatePost(ctx, comment.PostID)
	return r.db.WithContext(ctx).Preload("Author", authorCard).First(comment, comment.ID).Error
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Preload("Author", authorCard).First(&comment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Comment", id)
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListTree returns top-level comments newest first, each with two levels of
// replies oldest first.
func (r *commentRepository) ListTree(ctx context.Context, postID uint) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := r.db.WithContext(ctx).
		Preload("Author", authorCard).
		Preload("Replies", oldestFirst).
		Preload("Replies.Author", authorCard).
		Preload("Replies.Replies", oldestFirst).
		Preload("Replies.Replies.Author", authorCard).
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("comments.created_at DESC").
		Order("comments.id DESC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) UpdateContent(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Model(&models.Comment{ID: comment.ID}).
		Select("content", "updated_at").
		Updates(&models.Comment{Content: comment.Content}).Error
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return err
	}
	r.log.LogUpdate(ctx, map[string]any{"comment_id": comment.ID})
	return nil
}

// DeleteTree deletes the comment and all of its descendants in one
// transaction, deepest level first.
func (r *commentRepository) DeleteTree(ctx context.Context, comment *models.Comment) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		levels := [][]uint{{comment.ID}}
		for frontier := levels[0]; len(frontier) > 0; {
			var children []uint
			if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			if len(children) > 0 {
				levels = append(levels, children)
			}
			frontier = children
		}

		for i := len(levels) - 1; i >= 0; i-- {
			res := tx.Where("id IN ?", levels[i]).Delete(&models.Comment{})
			if res.Error != nil {
				return res.Error
			}
			deleted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return 0, err
	}
	r.log.LogDelete(ctx, map[string]any{"comment_id": comment.ID, "deleted": deleted})
	r.invalidatePost(ctx, comment.PostID)
	return deleted, nil
}

// invalidatePost drops cached copies of the post whose comment count changed.
func (r *commentRepository) invalidatePost(ctx context.Context, postID uint) {
	if cache.GetClient() == nil {
		return
	}
	var slugs []string
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Pluck("slug", &slugs).Error; err == nil && len(slugs) == 1 {
		cache.InvalidatePost(ctx, slugs[0])
	}
}
