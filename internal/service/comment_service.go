package service

import (
	"context"
	"strings"

	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/session"
)

const maxCommentLen = 10000

// CommentService implements threaded comments on posts.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	notifier Notifier
}

type CreateCommentInput struct {
	Content  string
	PostID   uint
	ParentID *uint
}

func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, notifier Notifier) *CommentService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CommentService{comments: comments, posts: posts, notifier: notifier}
}

func validateCommentContent(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.NewValidationError("Content is required")
	}
	if len(text) > maxCommentLen {
		return "", models.NewValidationError("Comment too long (max 10000 characters)")
	}
	return text, nil
}

// List returns the comment tree of a post.
func (s *CommentService) List(ctx context.Context, postID uint) ([]*models.Comment, error) {
	if postID == 0 {
		return nil, models.NewValidationError("Post ID required")
	}
	return s.comments.ListTree(ctx, postID)
}

func (s *CommentService) Create(ctx context.Context, actor session.Actor, in CreateCommentInput) (*models.Comment, error) {
	userID, err := actor.Require()
	if err != nil {
		return nil, err
	}
	if in.PostID == 0 {
		return nil, models.NewValidationError("Content and post ID are required")
	}
	text, err := validateCommentContent(in.Content)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if !post.Published && !actor.Is(post.AuthorID) {
		return nil, models.NewNotFoundError("Post", in.PostID)
	}

	if in.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, models.NewNotFoundError("Parent comment", *in.ParentID)
		}
		if parent.PostID != post.ID {
			return nil, models.NewNotFoundError("Parent comment", *in.ParentID)
		}
	}

	comment := &models.Comment{
		Content:  text,
		PostID:   post.ID,
		AuthorID: userID,
		ParentID: in.ParentID,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.notifier.NotifyComment(ctx, comment, post)
	return comment, nil
}

func (s *CommentService) Update(ctx context.Context, actor session.Actor, id uint, text string) (*models.Comment, error) {
	if _, err := actor.Require(); err != nil {
		return nil, err
	}
	text, err := validateCommentContent(text)
	if err != nil {
		return nil, err
	}

	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := actor.Authorize(comment.AuthorID); err != nil {
		return nil, err
	}

	comment.Content = text
	if err := s.comments.UpdateContent(ctx, comment); err != nil {
		return nil, err
	}
	return s.comments.GetByID(ctx, id)
}

// Delete removes the comment with every reply below it.
func (s *CommentService) Delete(ctx context.Context, actor session.Actor, id uint) (int64, error) {
	if _, err := actor.Require(); err != nil {
		return 0, err
	}
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := actor.Authorize(comment.AuthorID); err != nil {
		return 0, err
	}
	return s.comments.DeleteTree(ctx, comment)
}
