package repository

import (
	"context"

	"quill/internal/cache"
	"quill/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository defines persistence operations for tags.
type TagRepository interface {
	List(ctx context.Context) ([]models.Tag, error)
	Create(ctx context.Context, tag *models.Tag) error
	NameOrSlugTaken(ctx context.Context, name, slug string) (bool, error)
	ExistingIDs(ctx context.Context, ids []uint) ([]uint, error)
	IDsForPosts(ctx context.Context, postIDs []uint) ([]uint, error)
	EnsureAll(ctx context.Context, tags []models.Tag) (int64, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// List returns every tag ordered by name with its published post count.
func (r *tagRepository) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := cache.Aside(ctx, cache.TagsKey, &tags, cache.TagsTTL, func() error {
		return r.db.WithContext(ctx).
			Model(&models.Tag{}).
			Select("tags.*, (SELECT COUNT(*) FROM post_tags JOIN posts ON posts.id = post_tags.post_id "+
				"WHERE post_tags.tag_id = tags.id AND posts.published = ?) AS posts_count", true).
			Order("tags.name ASC").
			Find(&tags).Error
	})
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, err
}

func (r *tagRepository) Create(ctx context.Context, tag *models.Tag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		return err
	}
	cache.InvalidateTags(ctx)
	return nil
}

func (r *tagRepository) NameOrSlugTaken(ctx context.Context, name, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Tag{}).
		Where("LOWER(name) = LOWER(?) OR slug = ?", name, slug).
		Count(&count).Error
	return count > 0, err
}

// ExistingIDs filters ids down to tags that exist.
func (r *tagRepository) ExistingIDs(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	err := r.db.WithContext(ctx).Model(&models.Tag{}).Where("id IN ?", ids).Order("id").Pluck("id", &found).Error
	return found, err
}

// IDsForPosts returns the distinct tag ids attached to any of postIDs.
func (r *tagRepository) IDsForPosts(ctx context.Context, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.PostTag{}).
		Distinct("tag_id").
		Where("post_id IN ?", postIDs).
		Pluck("tag_id", &ids).Error
	return ids, err
}

// EnsureAll inserts tags whose slug is not present yet and reports how many
// were created.
func (r *tagRepository) EnsureAll(ctx context.Context, tags []models.Tag) (int64, error) {
	if len(tags) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tags)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		cache.InvalidateTags(ctx)
	}
	return res.RowsAffected, nil
}
