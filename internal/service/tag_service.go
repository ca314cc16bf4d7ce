package service

import (
	"context"
	"strings"

	"quill/internal/content"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/session"
	"quill/internal/validation"
)

type TagService struct {
	tags repository.TagRepository
}

func NewTagService(tags repository.TagRepository) *TagService {
	return &TagService{tags: tags}
}

func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	return s.tags.List(ctx)
}

// Create adds a tag. Name and slug must both be unused.
func (s *TagService) Create(ctx context.Context, actor session.Actor, name string) (*models.Tag, error) {
	if _, err := actor.Require(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validation.ValidateTagName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	slug := content.Slugify(name)
	if slug == "" {
		return nil, models.NewValidationError("Tag name must contain letters or digits")
	}

	taken, err := s.tags.NameOrSlugTaken(ctx, name, slug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewConflictError("Tag already exists")
	}

	tag := &models.Tag{Name: name, Slug: slug}
	if err := s.tags.Create(ctx, tag); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, models.NewConflictError("Tag already exists")
		}
		return nil, err
	}
	return tag, nil
}
