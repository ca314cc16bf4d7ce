package seed

import (
	"context"
	"testing"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestDemo(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	sum, err := Demo(ctx, db, Options{
		Users:          6,
		Posts:          12,
		MaxComments:    4,
		MaxLikes:       3,
		FollowsPerUser: 2,
		Seed:           42,
		FastHash:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, len(DefaultTags), sum.Tags)
	assert.Equal(t, 6, sum.Users)
	assert.Equal(t, 12, sum.Posts)
	assert.Equal(t, 12, sum.Follows)

	counts := map[any]int{
		&models.User{}:    sum.Users,
		&models.Post{}:    sum.Posts,
		&models.Comment{}: sum.Comments,
		&models.Like{}:    sum.Likes,
		&models.Follow{}:  sum.Follows,
	}
	for model, want := range counts {
		var got int64
		require.NoError(t, db.Model(model).Count(&got).Error)
		assert.EqualValues(t, want, got, "%T", model)
	}

	var self int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = following_id").Count(&self).Error)
	assert.Zero(t, self)

	var posts []models.Post
	require.NoError(t, db.Preload("Tags").Find(&posts).Error)
	slugs := make(map[string]bool)
	for _, p := range posts {
		assert.False(t, slugs[p.Slug], "duplicate slug %s", p.Slug)
		slugs[p.Slug] = true
		assert.Equal(t, models.ContentFormatMarkdown, p.ContentFormat)
		assert.Positive(t, p.ReadingTime)
		assert.NotEmpty(t, p.Tags)
		assert.LessOrEqual(t, len(p.Tags), 3)
	}

	var user models.User
	require.NoError(t, db.First(&user).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(DemoPassword)))
	assert.True(t, user.NotifyOnNewPost)
}

func TestDemo_RepliesStayOnTheirPost(t *testing.T) {
	db := testutil.NewDB(t)

	_, err := Demo(context.Background(), db, Options{Users: 3, Posts: 5, MaxComments: 6, Seed: 7, FastHash: true})
	require.NoError(t, err)

	var mismatched int64
	require.NoError(t, db.Table("comments AS c").
		Joins("JOIN comments AS p ON p.id = c.parent_id").
		Where("p.post_id <> c.post_id").
		Count(&mismatched).Error)
	assert.Zero(t, mismatched)
}

func TestDemo_RerunAvoidsCollisions(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	opts := Options{Users: 2, Posts: 3, Seed: 99, FastHash: true}

	_, err := Demo(ctx, db, opts)
	require.NoError(t, err)
	sum, err := Demo(ctx, db, opts)
	require.NoError(t, err)
	assert.Zero(t, sum.Tags)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.EqualValues(t, 4, users)
}

func TestDemo_Clean(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "Old Author")
	testutil.CreatePost(t, db, author, "Old post", true)

	_, err := Demo(ctx, db, Options{Users: 2, Posts: 1, Clean: true, FastHash: true})
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", author.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Post{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestDemo_Rejects(t *testing.T) {
	db := testutil.NewDB(t)

	_, err := Demo(context.Background(), db, Options{Users: 0, Posts: 1})
	assert.Error(t, err)
	_, err = Demo(context.Background(), db, Options{Users: 1, Posts: -1})
	assert.Error(t, err)
}

func TestFactory_CreateFollowRejectsSelf(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "Solo")

	err := NewFactory(db, 1, 0).CreateFollow(u, u)
	assert.Error(t, err)
}
