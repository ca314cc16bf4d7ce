package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingNotifier captures notification triggers.
type recordingNotifier struct {
	mu       sync.Mutex
	newPosts []uint
	comments []uint
	likes    [][2]uint
	follows  [][2]uint
}

func (n *recordingNotifier) NotifyNewPost(_ context.Context, post *models.Post) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.newPosts = append(n.newPosts, post.ID)
}

func (n *recordingNotifier) NotifyComment(_ context.Context, comment *models.Comment, _ *models.Post) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.comments = append(n.comments, comment.ID)
}

func (n *recordingNotifier) NotifyLike(_ context.Context, actorID uint, post *models.Post) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.likes = append(n.likes, [2]uint{actorID, post.ID})
}

func (n *recordingNotifier) NotifyFollow(_ context.Context, followerID, followingID uint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.follows = append(n.follows, [2]uint{followerID, followingID})
}

// fixture bundles real repositories over an in-memory database.
type fixture struct {
	db            *gorm.DB
	posts         repository.PostRepository
	tags          repository.TagRepository
	comments      repository.CommentRepository
	social        repository.SocialRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	notifier      *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	return &fixture{
		db:            db,
		posts:         repository.NewPostRepository(db),
		tags:          repository.NewTagRepository(db),
		comments:      repository.NewCommentRepository(db),
		social:        repository.NewSocialRepository(db),
		users:         repository.NewUserRepository(db),
		notifications: repository.NewNotificationRepository(db),
		notifier:      &recordingNotifier{},
	}
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }
