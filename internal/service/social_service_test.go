package service

import (
	"context"
	"testing"

	"quill/internal/models"
	"quill/internal/session"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSocialService(f *fixture) *SocialService {
	return NewSocialService(f.posts, f.users, f.social, f.notifier)
}

func TestSocialService_DoubleToggleLikeRestoresState(t *testing.T) {
	f := newFixture(t)
	svc := newSocialService(f)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "Ada")
	reader := testutil.CreateUser(t, f.db, "Bob")
	post := testutil.CreatePost(t, f.db, author, "Post", true)
	actor := session.User(reader.ID)

	before, err := svc.LikeStatus(ctx, actor, post.Slug)
	require.NoError(t, err)

	on, err := svc.ToggleLike(ctx, actor, post.Slug)
	require.NoError(t, err)
	assert.True(t, on.Liked)
	assert.Equal(t, before.LikeCount+1, on.LikeCount)
	assert.Equal(t, "Post liked", on.Message)

	off, err := svc.ToggleLike(ctx, actor, post.Slug)
	require.NoError(t, err)
	assert.False(t, off.Liked)
	assert.Equal(t, before.LikeCount, off.LikeCount)

	assert.Equal(t, [][2]uint{{reader.ID, post.ID}}, f.notifier.likes)
}

func TestSocialService_LikeStatusAnonymous(t *testing.T) {
	f := newFixture(t)
	svc := newSocialService(f)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "Ada")
	post := testutil.CreatePost(t, f.db, author, "Post", true)
	require.NoError(t, f.social.AddLike(ctx, post.ID, author.ID))

	status, err := svc.LikeStatus(ctx, session.Anonymous(), post.Slug)
	require.NoError(t, err)
	assert.False(t, status.Liked)
	assert.Equal(t, int64(1), status.LikeCount)

	_, err = svc.ToggleLike(ctx, session.Anonymous(), post.Slug)
	assertAppError(t, err, models.CodeUnauthorized)

	_, err = svc.ToggleLike(ctx, session.User(author.ID), "missing")
	assertAppError(t, err, models.CodeNotFound)
}

func TestSocialService_DoubleToggleBookmark(t *testing.T) {
	f := newFixture(t)
	svc := newSocialService(f)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "Ada")
	post := testutil.CreatePost(t, f.db, author, "Post", true)
	actor := session.User(author.ID)

	on, err := svc.ToggleBookmark(ctx, actor, post.Slug)
	require.NoError(t, err)
	assert.True(t, on.Bookmarked)

	status, err := svc.BookmarkStatus(ctx, actor, post.Slug)
	require.NoError(t, err)
	assert.True(t, status.Bookmarked)

	off, err := svc.ToggleBookmark(ctx, actor, post.Slug)
	require.NoError(t, err)
	assert.False(t, off.Bookmarked)

	_, err = svc.BookmarkStatus(ctx, session.Anonymous(), post.Slug)
	assertAppError(t, err, models.CodeUnauthorized)
}

func TestSocialService_ListBookmarksOnlySelf(t *testing.T) {
	f := newFixture(t)
	svc := newSocialService(f)
	ctx := context.Background()
	ada := testutil.CreateUser(t, f.db, "Ada")
	bob := testutil.CreateUser(t, f.db, "Bob")
	first := testutil.CreatePost(t, f.db, ada, "First", true)
	second := testutil.CreatePost(t, f.db, ada, "Second", true)
	require.NoError(t, f.social.AddBookmark(ctx, second.ID, bob.ID))
	require.NoError(t, f.social.AddBookmark(ctx, first.ID, bob.ID))

	list, err := svc.ListBookmarks(ctx, session.User(bob.ID), bob.ID)
	require.NoError(t, err)
	require.Equal(t, 2, list.Count)
	assert.Equal(t, first.ID, list.Posts[0].ID, "newest bookmark first")

	_, err = svc.ListBookmarks(ctx, session.User(ada.ID), bob.ID)
	assertAppError(t, err, models.CodeForbidden)
}

func TestSocialService_FollowSelfAlwaysRejected(t *testing.T) {
	f := newFixture(t)
	svc := newSocialService(f)
	ctx := context.Background()

	// Rejected even before the target is looked up.
	_, err := svc.ToggleFollow(ctx, session.User(42), 42)
	assertAppError(t, err, models.CodeValidation)

	ada := testutil.CreateUser(t, f.db, "Ada")
	_, err = svc.ToggleFollow(ctx, session.User(ada.ID), ada.ID)
	assertAppError(t, err, models.CodeValidation)

	_, err = svc.ToggleFollow(ctx, session.User(ada.ID), 9999)
	assertAppError(t, err, models.CodeNotFound)
}

func TestSocialService_DoubleToggleFollow(t *testing.T) {
	f := newFixture(t)
	svc := newSocialService(f)
	ctx := context.Background()
	ada := testutil.CreateUser(t, f.db, "Ada")
	bob := testutil.CreateUser(t, f.db, "Bob")
	actor := session.User(bob.ID)

	on, err := svc.ToggleFollow(ctx, actor, ada.ID)
	require.NoError(t, err)
	assert.True(t, on.Following)
	assert.Equal(t, int64(1), on.FollowerCount)

	status, err := svc.FollowStatus(ctx, actor, ada.ID)
	require.NoError(t, err)
	assert.True(t, status.Following)
	require.NotNil(t, status.FollowingCount)
	assert.Zero(t, *status.FollowingCount)

	off, err := svc.ToggleFollow(ctx, actor, ada.ID)
	require.NoError(t, err)
	assert.False(t, off.Following)
	assert.Zero(t, off.FollowerCount)

	again, err := svc.Unfollow(ctx, actor, ada.ID)
	require.NoError(t, err)
	assert.False(t, again.Following)

	assert.Equal(t, [][2]uint{{bob.ID, ada.ID}}, f.notifier.follows)
}
