package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"quill/internal/content"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/session"
)

const (
	defaultPostPageSize = 10
	maxPostPageSize     = 100
	maxTitleLen         = 300
	fallbackSlug        = "post"
)

// PostService implements post authoring and browsing.
type PostService struct {
	posts    repository.PostRepository
	tags     repository.TagRepository
	notifier Notifier
	now      func() time.Time
}

// PostInput is the editable part of a post.
type PostInput struct {
	Title         string
	Content       string
	Excerpt       string
	CoverImage    *string
	Tags          []uint
	Published     *bool
	ContentFormat string
}

// ListPostsInput selects a page of published posts.
type ListPostsInput struct {
	Page     int
	Limit    int
	Tag      string
	Search   string
	AuthorID uint
}

// PostList is a page of posts with pagination metadata.
type PostList struct {
	Posts      []*models.Post `json:"posts"`
	Pagination Pagination     `json:"pagination"`
}

func NewPostService(posts repository.PostRepository, tags repository.TagRepository, notifier Notifier) *PostService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PostService{posts: posts, tags: tags, notifier: notifier, now: time.Now}
}

func (in *PostInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	if in.Title == "" || strings.TrimSpace(in.Content) == "" || in.Excerpt == "" {
		return models.NewValidationError("Title, content, and excerpt are required")
	}
	if len(in.Title) > maxTitleLen {
		return models.NewValidationError("Title too long (max 300 characters)")
	}
	switch in.ContentFormat {
	case "", models.ContentFormatHTML, models.ContentFormatMarkdown:
	default:
		return models.NewValidationError("content_format must be html or markdown")
	}
	if in.CoverImage != nil && strings.TrimSpace(*in.CoverImage) == "" {
		in.CoverImage = nil
	}
	return nil
}

// existingTags drops ids that do not name a tag.
func (s *PostService) existingTags(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.tags.ExistingIDs(ctx, ids)
}

// uniqueSlug derives the slug for title, suffixing the current epoch
// milliseconds when the plain slug is taken.
func (s *PostService) uniqueSlug(ctx context.Context, title string) (string, error) {
	slug := content.Slugify(title)
	if slug == "" {
		slug = fallbackSlug
	}
	taken, err := s.posts.SlugExists(ctx, slug)
	if err != nil {
		return "", err
	}
	if taken {
		slug = content.SlugWithSuffix(slug, s.now().UnixMilli())
	}
	return slug, nil
}

func (s *PostService) Create(ctx context.Context, actor session.Actor, in PostInput) (*models.Post, error) {
	userID, err := actor.Require()
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	slug, err := s.uniqueSlug(ctx, in.Title)
	if err != nil {
		return nil, err
	}
	tagIDs, err := s.existingTags(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	format := in.ContentFormat
	if format == "" {
		format = models.ContentFormatHTML
	}
	post := &models.Post{
		Title:         in.Title,
		Slug:          slug,
		Content:       in.Content,
		ContentFormat: format,
		Excerpt:       in.Excerpt,
		CoverImage:    in.CoverImage,
		ReadingTime:   content.ReadingTime(in.Content),
		Published:     in.Published != nil && *in.Published,
		AuthorID:      userID,
	}
	if err := s.posts.Create(ctx, post, tagIDs); err != nil {
		return nil, err
	}

	created, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if created.Published {
		s.notifier.NotifyNewPost(ctx, created)
	}
	return render(ctx, created), nil
}

// Get returns a published post, or a draft when the actor wrote it.
func (s *PostService) Get(ctx context.Context, actor session.Actor, slug string) (*models.Post, error) {
	post, err := s.visible(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	return render(ctx, post), nil
}

func (s *PostService) visible(ctx context.Context, actor session.Actor, slug string) (*models.Post, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !post.Published && !actor.Is(post.AuthorID) {
		return nil, models.NewNotFoundError("Post", nil)
	}
	return post, nil
}

func (s *PostService) Update(ctx context.Context, actor session.Actor, slug string, in PostInput) (*models.Post, error) {
	if _, err := actor.Require(); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := actor.Authorize(post.AuthorID); err != nil {
		return nil, err
	}

	tagIDs, err := s.existingTags(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	wasPublished := post.Published
	if in.Content != post.Content {
		post.ReadingTime = content.ReadingTime(in.Content)
	}
	post.Title = in.Title
	post.Content = in.Content
	post.Excerpt = in.Excerpt
	post.CoverImage = in.CoverImage
	if in.ContentFormat != "" {
		post.ContentFormat = in.ContentFormat
	}
	if in.Published != nil {
		post.Published = *in.Published
	}
	post.UpdatedAt = s.now()

	if err := s.posts.UpdateWithTags(ctx, post, tagIDs); err != nil {
		return nil, err
	}
	updated, err := s.posts.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if !wasPublished && updated.Published {
		s.notifier.NotifyNewPost(ctx, updated)
	}
	return render(ctx, updated), nil
}

func (s *PostService) Delete(ctx context.Context, actor session.Actor, slug string) error {
	if _, err := actor.Require(); err != nil {
		return err
	}
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := actor.Authorize(post.AuthorID); err != nil {
		return err
	}
	return s.posts.Delete(ctx, post)
}

func (s *PostService) List(ctx context.Context, in ListPostsInput) (*PostList, error) {
	page, limit, offset := pageWindow(in.Page, in.Limit, defaultPostPageSize, maxPostPageSize)
	result, err := s.posts.List(ctx, repository.PostFilter{
		TagSlug:  strings.TrimSpace(in.Tag),
		Search:   in.Search,
		AuthorID: in.AuthorID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}

	posts := result.Posts
	if posts == nil {
		posts = []*models.Post{}
	}
	for _, p := range posts {
		render(ctx, p)
	}
	return &PostList{Posts: posts, Pagination: newPagination(page, limit, result.Total)}, nil
}

// Featured returns the newest featured post, falling back to the newest post.
func (s *PostService) Featured(ctx context.Context) (*models.Post, error) {
	post, err := s.posts.Featured(ctx)
	if err != nil {
		return nil, err
	}
	return render(ctx, post), nil
}

// render fills ContentHTML for markdown posts. A render failure leaves the
// field empty; the raw content is still served.
func render(ctx context.Context, post *models.Post) *models.Post {
	if post == nil || post.ContentFormat != models.ContentFormatMarkdown {
		return post
	}
	html, err := content.RenderMarkdown(post.Content)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "markdown render failed",
			slog.Uint64("post_id", uint64(post.ID)),
			slog.String("error", err.Error()),
		)
		return post
	}
	post.ContentHTML = html
	return post
}
