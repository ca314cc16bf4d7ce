// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"quill/internal/cache"
	"quill/internal/models"
	"quill/internal/observability"

	"gorm.io/gorm"
)

// PostFilter narrows published post listings.
type PostFilter struct {
	TagSlug  string
	Search   string
	AuthorID uint
	Limit    int
	Offset   int
}

func (f PostFilter) unfiltered() bool {
	return f.TagSlug == "" && f.Search == "" && f.AuthorID == 0
}

// PostPage is one page of posts with the total match count.
type PostPage struct {
	Posts []*models.Post `json:"posts"`
	Total int64          `json:"total"`
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post, tagIDs []uint) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, filter PostFilter) (*PostPage, error)
	Featured(ctx context.Context) (*models.Post, error)
	ListBookmarked(ctx context.Context, userID uint) ([]*models.Post, error)
	ListMatching(ctx context.Context, authorIDs, tagIDs, excludeIDs []uint, limit int) ([]*models.Post, error)
	ListTrending(ctx context.Context, excludeIDs []uint, limit int) ([]*models.Post, error)
	CountPublishedByAuthor(ctx context.Context, authorID uint) (int64, error)
	UpdateWithTags(ctx context.Context, post *models.Post, tagIDs []uint) error
	Delete(ctx context.Context, post *models.Post) error
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

// applyPostDetails adds subqueries to fetch counts in a single query.
func applyPostDetails(db *gorm.DB) *gorm.DB {
	return db.Select("posts.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count")
}

// withRelations preloads the public author card and tags.
func withRelations(db *gorm.DB) *gorm.DB {
	return withTags(db).Preload("Author", func(tx *gorm.DB) *gorm.DB {
		return selectAuthorCard(tx)
	})
}

func withTags(db *gorm.DB) *gorm.DB {
	return db.Preload("Tags", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("tags.name ASC")
	})
}

func selectAuthorCard(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "avatar", "bio")
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("posts.created_at DESC").Order("posts.id DESC")
}

func tagLinks(postID uint, tagIDs []uint) []models.PostTag {
	links := make([]models.PostTag, 0, len(tagIDs))
	seen := make(map[uint]bool, len(tagIDs))
	for _, id := range tagIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		links = append(links, models.PostTag{PostID: postID, TagID: id})
	}
	return links
}

func (r *postRepository) Create(ctx context.Context, post *models.Post, tagIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "Author").Create(post).Error; err != nil {
			return err
		}
		if links := tagLinks(post.ID, tagIDs); len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"post_id": post.ID, "slug": post.Slug})
	cache.InvalidatePostsList(ctx)
	return nil
}

func (r *postRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// GetBySlug caches the post body for PostTTL. The author card is read on
// every call so profile edits show up immediately.
func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(slug), &post, cache.PostTTL, func() error {
		return withTags(applyPostDetails(r.db.WithContext(ctx))).
			Where("posts.slug = ?", slug).
			First(&post).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Post", nil)
	}
	if err != nil {
		return nil, err
	}

	var author models.User
	err = selectAuthorCard(r.db.WithContext(ctx)).First(&author, post.AuthorID).Error
	switch {
	case err == nil:
		post.Author = &author
	case errors.Is(err, gorm.ErrRecordNotFound):
		post.Author = nil
	default:
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := withRelations(applyPostDetails(r.db.WithContext(ctx))).First(&post, "posts.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Post", id)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *postRepository) filtered(ctx context.Context, f PostFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("posts.published = ?", true)
	if f.AuthorID != 0 {
		q = q.Where("posts.author_id = ?", f.AuthorID)
	}
	if f.TagSlug != "" {
		q = q.Where("posts.id IN (?)", r.db.Table("post_tags").
			Select("post_tags.post_id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.slug = ?", f.TagSlug))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		q = q.Where(`LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\' OR LOWER(posts.excerpt) LIKE ? ESCAPE '\'`,
			like, like, like)
	}
	return q
}

func (r *postRepository) List(ctx context.Context, f PostFilter) (*PostPage, error) {
	load := func(page *PostPage) error {
		if err := r.filtered(ctx, f).Count(&page.Total).Error; err != nil {
			return err
		}
		return newestFirst(withRelations(applyPostDetails(r.filtered(ctx, f)))).
			Limit(f.Limit).
			Offset(f.Offset).
			Find(&page.Posts).Error
	}

	page := &PostPage{}
	if f.unfiltered() && f.Offset == 0 && f.Limit == defaultListLimit {
		if err := cache.Aside(ctx, cache.PostsFirstPage, page, cache.ListTTL, func() error { return load(page) }); err != nil {
			return nil, err
		}
		return page, nil
	}
	if err := load(page); err != nil {
		return nil, err
	}
	return page, nil
}

// defaultListLimit is the page size of the cached first listing page.
const defaultListLimit = 10

func (r *postRepository) Featured(ctx context.Context) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.FeaturedKey, &post, cache.ListTTL, func() error {
		base := func() *gorm.DB {
			return newestFirst(withRelations(applyPostDetails(r.db.WithContext(ctx).Model(&models.Post{})))).
				Where("posts.published = ?", true)
		}
		err := base().Where("posts.featured = ?", true).First(&post).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = base().First(&post).Error
		}
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Featured post", nil)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListBookmarked(ctx context.Context, userID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := withRelations(applyPostDetails(r.db.WithContext(ctx).Model(&models.Post{}))).
		Joins("JOIN bookmarks ON bookmarks.post_id = posts.id").
		Where("bookmarks.user_id = ?", userID).
		Order("bookmarks.created_at DESC").
		Order("bookmarks.id DESC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListMatching(ctx context.Context, authorIDs, tagIDs, excludeIDs []uint, limit int) ([]*models.Post, error) {
	if len(authorIDs) == 0 && len(tagIDs) == 0 {
		return nil, nil
	}

	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("posts.published = ?", true)
	if len(excludeIDs) > 0 {
		q = q.Where("posts.id NOT IN ?", excludeIDs)
	}

	switch {
	case len(authorIDs) > 0 && len(tagIDs) > 0:
		q = q.Where("posts.author_id IN ? OR posts.id IN (?)", authorIDs,
			r.db.Table("post_tags").Select("post_id").Where("tag_id IN ?", tagIDs))
	case len(authorIDs) > 0:
		q = q.Where("posts.author_id IN ?", authorIDs)
	default:
		q = q.Where("posts.id IN (?)", r.db.Table("post_tags").Select("post_id").Where("tag_id IN ?", tagIDs))
	}

	var posts []*models.Post
	err := newestFirst(withRelations(applyPostDetails(q))).Limit(limit).Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListTrending(ctx context.Context, excludeIDs []uint, limit int) ([]*models.Post, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("posts.published = ?", true)
	if len(excludeIDs) > 0 {
		q = q.Where("posts.id NOT IN ?", excludeIDs)
	}

	var posts []*models.Post
	err := newestFirst(withRelations(applyPostDetails(q)).Order("likes_count DESC")).
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) CountPublishedByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("author_id = ? AND published = ?", authorID, true).
		Count(&count).Error
	return count, err
}

// UpdateWithTags saves the editable post columns and replaces its tag links
// in one transaction.
func (r *postRepository) UpdateWithTags(ctx context.Context, post *models.Post, tagIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{ID: post.ID}).
			Select("title", "content", "content_format", "excerpt", "cover_image", "reading_time", "published", "updated_at").
			Updates(post).Error; err != nil {
			return err
		}
		if links := tagLinks(post.ID, tagIDs); len(links) > 0 {
			if err := tx.Create(&links).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return err
	}
	r.log.LogUpdate(ctx, map[string]any{"post_id": post.ID})
	cache.InvalidatePost(ctx, post.Slug)
	return nil
}

// Delete removes the post and every row hanging off it, children first.
func (r *postRepository) Delete(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			model any
			where string
		}{
			{&models.PostTag{}, "post_id = ?"},
			{&models.Like{}, "post_id = ?"},
			{&models.Bookmark{}, "post_id = ?"},
			{&models.Comment{}, "post_id = ?"},
		}
		for _, step := range steps {
			if err := tx.Where(step.where, post.ID).Delete(step.model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	r.log.LogDelete(ctx, map[string]any{"post_id": post.ID})
	cache.InvalidatePost(ctx, post.Slug)
	return nil
}
