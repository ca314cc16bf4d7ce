package service

import (
	"context"
	"strings"
	"testing"

	"quill/internal/models"
	"quill/internal/session"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_ProfileCountsAndEmailVisibility(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.users, f.posts, f.social)
	ctx := context.Background()
	ada := testutil.CreateUser(t, f.db, "Ada")
	bob := testutil.CreateUser(t, f.db, "Bob")
	testutil.CreatePost(t, f.db, ada, "Published", true)
	testutil.CreatePost(t, f.db, ada, "Draft", false)
	require.NoError(t, f.social.AddFollow(ctx, bob.ID, ada.ID))

	public, err := svc.Profile(ctx, session.User(bob.ID), ada.ID)
	require.NoError(t, err)
	assert.Empty(t, public.Email)
	assert.Equal(t, int64(1), public.FollowerCount)
	assert.Zero(t, public.FollowingCount)
	assert.Equal(t, int64(1), public.PostCount)

	own, err := svc.Profile(ctx, session.User(ada.ID), ada.ID)
	require.NoError(t, err)
	assert.Equal(t, ada.Email, own.Email)

	_, err = svc.Profile(ctx, session.Anonymous(), 9999)
	assertAppError(t, err, models.CodeNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.users, f.posts, f.social)
	ctx := context.Background()
	ada := testutil.CreateUser(t, f.db, "Ada")
	actor := session.User(ada.ID)

	updated, err := svc.UpdateProfile(ctx, actor, UpdateProfileInput{Name: strPtr(" Ada L "), Bio: strPtr("Writes code")})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", updated.Name)

	me, err := svc.Me(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, "Writes code", me.Bio)

	_, err = svc.UpdateProfile(ctx, actor, UpdateProfileInput{Name: strPtr("")})
	assertAppError(t, err, models.CodeValidation)
	_, err = svc.UpdateProfile(ctx, actor, UpdateProfileInput{Bio: strPtr(strings.Repeat("b", 501))})
	assertAppError(t, err, models.CodeValidation)
	_, err = svc.Me(ctx, session.Anonymous())
	assertAppError(t, err, models.CodeUnauthorized)
}

func TestUserService_NotificationSettingsPersistFalse(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.users, f.posts, f.social)
	ctx := context.Background()
	ada := testutil.CreateUser(t, f.db, "Ada")
	actor := session.User(ada.ID)

	settings := models.NotificationSettings{NotifyOnComment: false, NotifyOnLike: true, NotifyOnFollow: false, NotifyOnNewPost: true}
	_, err := svc.UpdateSettings(ctx, actor, settings)
	require.NoError(t, err)

	got, err := svc.Settings(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, settings, *got)
}

func TestTagService_Create(t *testing.T) {
	f := newFixture(t)
	svc := NewTagService(f.tags)
	ctx := context.Background()
	actor := session.User(1)

	tag, err := svc.Create(ctx, actor, "Over Coffee Talk")
	require.NoError(t, err)
	assert.Equal(t, "over-coffee-talk", tag.Slug)

	_, err = svc.Create(ctx, actor, "over coffee talk")
	assertAppError(t, err, models.CodeConflict)
	_, err = svc.Create(ctx, actor, "Over-Coffee Talk!")
	assertAppError(t, err, models.CodeConflict)
	_, err = svc.Create(ctx, actor, "   ")
	assertAppError(t, err, models.CodeValidation)
	_, err = svc.Create(ctx, actor, "???")
	assertAppError(t, err, models.CodeValidation)
	_, err = svc.Create(ctx, session.Anonymous(), "Go")
	assertAppError(t, err, models.CodeUnauthorized)

	tags, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Zero(t, tags[0].PostsCount)
}
