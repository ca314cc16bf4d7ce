package seed

import (
	"fmt"
	"strings"
	"time"

	"quill/internal/content"
	"quill/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Factory builds and persists fake domain records. A fixed seed yields the
// same records on every run.
type Factory struct {
	db      *gorm.DB
	faker   *gofakeit.Faker
	now     func() time.Time
	maxDays int
	seq     int
}

// NewFactory returns a Factory writing through db. seed 0 picks a random seed.
func NewFactory(db *gorm.DB, seed int64, maxDays int) *Factory {
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{
		db:      db,
		faker:   gofakeit.New(seed),
		now:     time.Now,
		maxDays: maxDays,
	}
}

// backdate returns a creation time spread over the last maxDays.
func (f *Factory) backdate() time.Time {
	offset := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	return f.now().Add(-offset)
}

// BuildUser returns an unsaved user with every notification type enabled.
// passwordHash is stored as is.
func (f *Factory) BuildUser(passwordHash string) *models.User {
	f.seq++
	first, last := f.faker.FirstName(), f.faker.LastName()
	return &models.User{
		Name:            first + " " + last,
		Email:           fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), f.seq),
		Password:        passwordHash,
		Bio:             f.faker.Sentence(12),
		Avatar:          fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		NotifyOnComment: true,
		NotifyOnLike:    true,
		NotifyOnFollow:  true,
		NotifyOnNewPost: true,
	}
}

// CreateUser persists a built user after applying overrides.
func (f *Factory) CreateUser(passwordHash string, overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(passwordHash)
	for _, override := range overrides {
		override(user)
	}
	taken, err := f.exists(&models.User{}, "email", user.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		local, domain, _ := strings.Cut(user.Email, "@")
		user.Email = fmt.Sprintf("%s.%d@%s", local, f.now().UnixNano(), domain)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost returns an unsaved markdown post by author. Slug, excerpt and
// reading time are derived from the generated text.
func (f *Factory) BuildPost(author *models.User, tags []models.Tag) *models.Post {
	f.seq++
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 8)), ".")
	body := f.markdownBody()

	slug := content.Slugify(title)
	if slug == "" {
		slug = "post"
	}
	created := f.backdate()

	return &models.Post{
		Title:         title,
		Slug:          slug,
		Content:       body,
		ContentFormat: models.ContentFormatMarkdown,
		Excerpt:       content.Truncate(f.faker.Paragraph(1, 2, 12, " "), 200),
		ReadingTime:   content.ReadingTime(body),
		Published:     f.faker.Number(1, 100) <= 85,
		AuthorID:      author.ID,
		Tags:          f.pickTags(tags, 3),
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func (f *Factory) markdownBody() string {
	var b strings.Builder
	sections := f.faker.Number(2, 4)
	for i := 0; i < sections; i++ {
		fmt.Fprintf(&b, "## %s\n\n", strings.TrimSuffix(f.faker.Sentence(4), "."))
		b.WriteString(f.faker.Paragraph(f.faker.Number(1, 3), 5, 14, "\n\n"))
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// pickTags returns up to n distinct tags from pool.
func (f *Factory) pickTags(pool []models.Tag, n int) []models.Tag {
	if len(pool) == 0 {
		return nil
	}
	want := f.faker.Number(1, min(n, len(pool)))
	picked := make([]models.Tag, 0, want)
	for _, i := range f.perm(len(pool))[:want] {
		picked = append(picked, pool[i])
	}
	return picked
}

// CreatePost persists a built post after applying overrides.
func (f *Factory) CreatePost(author *models.User, tags []models.Tag, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, tags)
	for _, override := range overrides {
		override(post)
	}
	taken, err := f.exists(&models.Post{}, "slug", post.Slug)
	if err != nil {
		return nil, err
	}
	if taken {
		post.Slug = content.SlugWithSuffix(post.Slug, f.now().UnixMilli()+int64(f.seq))
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a comment by author on post. A non-nil parent makes
// it a reply.
func (f *Factory) CreateComment(author *models.User, post *models.Post, parent *models.Comment) (*models.Comment, error) {
	comment := &models.Comment{
		Content:  f.faker.Sentence(f.faker.Number(6, 20)),
		PostID:   post.ID,
		AuthorID: author.ID,
	}
	if parent != nil {
		comment.ParentID = &parent.ID
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from user on post.
func (f *Factory) CreateLike(user *models.User, post *models.Post) error {
	return f.db.Create(&models.Like{UserID: user.ID, PostID: post.ID}).Error
}

// CreateFollow persists follower following following.
func (f *Factory) CreateFollow(follower, following *models.User) error {
	if follower.ID == following.ID {
		return fmt.Errorf("user %d cannot follow itself", follower.ID)
	}
	return f.db.Create(&models.Follow{FollowerID: follower.ID, FollowingID: following.ID}).Error
}

func (f *Factory) exists(model any, column, value string) (bool, error) {
	var n int64
	if err := f.db.Model(model).Where(column+" = ?", value).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// perm returns a pseudo-random permutation of [0, n) drawn from the faker.
func (f *Factory) perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := f.faker.Number(0, i)
		p[i], p[j] = p[j], p[i]
	}
	return p
}
