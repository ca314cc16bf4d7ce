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

func postIDs(posts []*models.Post) []uint {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestRecommendationService_Authorization(t *testing.T) {
	f := newFixture(t)
	svc := NewRecommendationService(f.posts, f.tags, f.social)
	ctx := context.Background()

	_, err := svc.Recommend(ctx, session.Anonymous(), 1)
	assertAppError(t, err, models.CodeUnauthorized)
	_, err = svc.Recommend(ctx, session.User(2), 1)
	assertAppError(t, err, models.CodeForbidden)
}

func TestRecommendationService_ExcludesSeenAndTopsUp(t *testing.T) {
	f := newFixture(t)
	svc := NewRecommendationService(f.posts, f.tags, f.social)
	ctx := context.Background()

	reader := testutil.CreateUser(t, f.db, "Reader")
	writer := testutil.CreateUser(t, f.db, "Writer")
	stranger := testutil.CreateUser(t, f.db, "Stranger")
	goTag := testutil.CreateTag(t, f.db, "Go", "go")

	liked := testutil.CreatePost(t, f.db, stranger, "Liked", true, goTag)
	bookmarked := testutil.CreatePost(t, f.db, stranger, "Bookmarked", true)
	require.NoError(t, f.social.AddLike(ctx, liked.ID, reader.ID))
	require.NoError(t, f.social.AddBookmark(ctx, bookmarked.ID, reader.ID))
	require.NoError(t, f.social.AddFollow(ctx, reader.ID, writer.ID))

	byWriter := testutil.CreatePost(t, f.db, writer, "By writer", true)
	sameTag := testutil.CreatePost(t, f.db, stranger, "Same tag", true, goTag)
	testutil.CreatePost(t, f.db, writer, "Writer draft", false)

	var filler []uint
	for i := 0; i < 12; i++ {
		filler = append(filler, testutil.CreatePost(t, f.db, stranger, "Filler", true).ID)
	}

	recs, err := svc.Recommend(ctx, session.User(reader.ID), reader.ID)
	require.NoError(t, err)
	assert.True(t, recs.HasFollowing)
	assert.True(t, recs.HasInterests)
	assert.Equal(t, 10, recs.Count)

	ids := postIDs(recs.Posts)
	assert.NotContains(t, ids, liked.ID)
	assert.NotContains(t, ids, bookmarked.ID)
	assert.ElementsMatch(t, []uint{byWriter.ID, sameTag.ID}, ids[:2])

	seen := map[uint]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate recommendation %d", id)
		seen[id] = true
	}
	for _, id := range ids[2:] {
		assert.Contains(t, filler, id)
	}
}

func TestRecommendationService_CapsMatchesAtTwenty(t *testing.T) {
	f := newFixture(t)
	svc := NewRecommendationService(f.posts, f.tags, f.social)
	ctx := context.Background()

	reader := testutil.CreateUser(t, f.db, "Reader")
	writer := testutil.CreateUser(t, f.db, "Writer")
	require.NoError(t, f.social.AddFollow(ctx, reader.ID, writer.ID))
	for i := 0; i < 25; i++ {
		testutil.CreatePost(t, f.db, writer, "Prolific", true)
	}

	recs, err := svc.Recommend(ctx, session.User(reader.ID), reader.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, recs.Count)
	assert.False(t, recs.HasInterests)
}

func TestRecommendationService_NoSignalsFallsBackToTrending(t *testing.T) {
	f := newFixture(t)
	svc := NewRecommendationService(f.posts, f.tags, f.social)
	ctx := context.Background()

	reader := testutil.CreateUser(t, f.db, "Reader")
	writer := testutil.CreateUser(t, f.db, "Writer")
	fan := testutil.CreateUser(t, f.db, "Fan")
	popular := testutil.CreatePost(t, f.db, writer, "Popular", true)
	testutil.CreatePost(t, f.db, writer, "Quiet", true)
	require.NoError(t, f.social.AddLike(ctx, popular.ID, fan.ID))

	recs, err := svc.Recommend(ctx, session.User(reader.ID), reader.ID)
	require.NoError(t, err)
	assert.False(t, recs.HasFollowing)
	assert.False(t, recs.HasInterests)
	require.Equal(t, 2, recs.Count)
	assert.Equal(t, popular.ID, recs.Posts[0].ID)
}
