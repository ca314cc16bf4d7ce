package repository

import (
	"context"
	"regexp"
	"testing"

	"quill/internal/cache"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestUserRepository_GetByID_Postgres(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
			WithArgs(1, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(1, "Ada", "ada@example.com"))

		user, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Ada", user.Name)
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
			WithArgs(2, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.GetByID(ctx, 2)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_CreateAndGetBySlug(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "Ada")
	goTag := testutil.CreateTag(t, db, "Go", "go")
	dbTag := testutil.CreateTag(t, db, "Databases", "databases")

	post := &models.Post{
		Title: "Hello", Slug: "hello", Content: "body", Excerpt: "ex",
		ContentFormat: models.ContentFormatHTML, ReadingTime: 1, Published: true, AuthorID: author.ID,
	}
	require.NoError(t, repo.Create(ctx, post, []uint{goTag.ID, dbTag.ID, goTag.ID}))

	exists, err := repo.SlugExists(ctx, "hello")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := repo.GetBySlug(ctx, "hello")
	require.NoError(t, err)
	require.NotNil(t, got.Author)
	assert.Equal(t, "Ada", got.Author.Name)
	assert.Empty(t, got.Author.Email, "author card must not expose email")
	require.Len(t, got.Tags, 2)
	assert.Equal(t, "Databases", got.Tags[0].Name)

	_, err = repo.GetBySlug(ctx, "missing")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestPostRepository_ListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	ada := testutil.CreateUser(t, db, "Ada")
	bob := testutil.CreateUser(t, db, "Bob")
	goTag := testutil.CreateTag(t, db, "Go", "go")

	testutil.CreatePost(t, db, ada, "Concurrency in Go", true, goTag)
	testutil.CreatePost(t, db, ada, "Draft about GO", false, goTag)
	testutil.CreatePost(t, db, bob, "Gardening", true)

	tests := []struct {
		name   string
		filter PostFilter
		want   int64
	}{
		{"all published", PostFilter{Limit: 10}, 2},
		{"by tag", PostFilter{TagSlug: "go", Limit: 10}, 1},
		{"search is case insensitive", PostFilter{Search: "CONCURRENCY", Limit: 10}, 1},
		{"search matches excerpt", PostFilter{Search: "excerpt", Limit: 10}, 2},
		{"by author", PostFilter{AuthorID: bob.ID, Limit: 10}, 1},
		{"unknown tag", PostFilter{TagSlug: "rust", Limit: 10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Total)
			assert.Len(t, page.Posts, int(tt.want))
		})
	}
}

func TestPostRepository_SearchMatchesWildcardsLiterally(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	ada := testutil.CreateUser(t, db, "Ada")
	testutil.CreatePost(t, db, ada, "100% coverage", true)
	testutil.CreatePost(t, db, ada, "Top 10 editors", true)
	testutil.CreatePost(t, db, ada, "snake_case tips", true)
	testutil.CreatePost(t, db, ada, `C:\path notes`, true)

	tests := []struct {
		search string
		want   []string
	}{
		{"0%", []string{"100% coverage"}},
		{"e_c", []string{"snake_case tips"}},
		{"%", []string{"100% coverage"}},
		{`c:\p`, []string{`C:\path notes`}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			page, err := repo.List(ctx, PostFilter{Search: tt.search, Limit: 10})
			require.NoError(t, err)
			var titles []string
			for _, p := range page.Posts {
				titles = append(titles, p.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestPostRepository_GetBySlugReadsFreshAuthorCard(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	ada := testutil.CreateUser(t, db, "Ada")
	post := testutil.CreatePost(t, db, ada, "Cached", true)

	first, err := repo.GetBySlug(ctx, post.Slug)
	require.NoError(t, err)
	require.NotNil(t, first.Author)
	assert.Equal(t, "Ada", first.Author.Name)
	require.True(t, mr.Exists(cache.PostKey(post.Slug)))

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", ada.ID).
		Updates(map[string]any{"name": "Ada Lovelace", "bio": "Analyst"}).Error)

	second, err := repo.GetBySlug(ctx, post.Slug)
	require.NoError(t, err)
	require.NotNil(t, second.Author)
	assert.Equal(t, "Ada Lovelace", second.Author.Name)
	assert.Equal(t, "Analyst", second.Author.Bio)
	assert.Empty(t, second.Author.Email)
}

func TestPostRepository_UpdateWithTagsReplacesLinks(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "Ada")
	a := testutil.CreateTag(t, db, "A", "a")
	b := testutil.CreateTag(t, db, "B", "b")
	post := testutil.CreatePost(t, db, author, "Title", true, a)

	post.Title = "New title"
	post.Published = false
	require.NoError(t, repo.UpdateWithTags(ctx, post, []uint{b.ID}))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.False(t, got.Published)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, b.ID, got.Tags[0].ID)
}

func TestPostRepository_DeleteRemovesDependents(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	social := NewSocialRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "Ada")
	reader := testutil.CreateUser(t, db, "Bob")
	tag := testutil.CreateTag(t, db, "A", "a")
	post := testutil.CreatePost(t, db, author, "Doomed", true, tag)

	parent := &models.Comment{Content: "top", PostID: post.ID, AuthorID: reader.ID}
	require.NoError(t, comments.Create(ctx, parent))
	for i := 0; i < 2; i++ {
		require.NoError(t, comments.Create(ctx, &models.Comment{Content: "reply", PostID: post.ID, AuthorID: author.ID, ParentID: &parent.ID}))
	}
	require.NoError(t, social.AddLike(ctx, post.ID, reader.ID))
	require.NoError(t, social.AddLike(ctx, post.ID, author.ID))
	require.NoError(t, social.AddBookmark(ctx, post.ID, reader.ID))

	require.NoError(t, repo.Delete(ctx, post))

	for _, model := range []any{&models.Post{}, &models.Comment{}, &models.Like{}, &models.Bookmark{}, &models.PostTag{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T rows left behind", model)
	}
	var tags int64
	require.NoError(t, db.Model(&models.Tag{}).Count(&tags).Error)
	assert.Equal(t, int64(1), tags, "tags outlive posts")
}

func TestPostRepository_MatchingAndTrending(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	social := NewSocialRepository(db)
	ctx := context.Background()

	ada := testutil.CreateUser(t, db, "Ada")
	bob := testutil.CreateUser(t, db, "Bob")
	carl := testutil.CreateUser(t, db, "Carl")
	goTag := testutil.CreateTag(t, db, "Go", "go")

	byBob := testutil.CreatePost(t, db, bob, "Bob writes", true)
	tagged := testutil.CreatePost(t, db, carl, "Tagged", true, goTag)
	other := testutil.CreatePost(t, db, carl, "Other", true)
	testutil.CreatePost(t, db, bob, "Bob draft", false)

	matching, err := repo.ListMatching(ctx, []uint{bob.ID}, []uint{goTag.ID}, nil, 20)
	require.NoError(t, err)
	ids := []uint{}
	for _, p := range matching {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []uint{byBob.ID, tagged.ID}, ids)

	matching, err = repo.ListMatching(ctx, []uint{bob.ID}, nil, []uint{byBob.ID}, 20)
	require.NoError(t, err)
	assert.Empty(t, matching)

	require.NoError(t, social.AddLike(ctx, other.ID, ada.ID))
	require.NoError(t, social.AddLike(ctx, other.ID, bob.ID))
	require.NoError(t, social.AddLike(ctx, tagged.ID, ada.ID))

	trending, err := repo.ListTrending(ctx, []uint{byBob.ID}, 10)
	require.NoError(t, err)
	require.Len(t, trending, 2)
	assert.Equal(t, other.ID, trending[0].ID)
	assert.Equal(t, 2, trending[0].LikesCount)
}

func TestCommentRepository_TreeAndDeleteTree(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "Ada")
	post := testutil.CreatePost(t, db, author, "Post", true)

	var parentID *uint
	chain := make([]*models.Comment, 0, 4)
	for depth := 0; depth < 4; depth++ {
		c := &models.Comment{Content: "level", PostID: post.ID, AuthorID: author.ID, ParentID: parentID}
		require.NoError(t, repo.Create(ctx, c))
		require.NotNil(t, c.Author)
		chain = append(chain, c)
		parentID = &c.ID
	}
	sibling := &models.Comment{Content: "other thread", PostID: post.ID, AuthorID: author.ID}
	require.NoError(t, repo.Create(ctx, sibling))

	tree, err := repo.ListTree(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	root := tree[1]
	require.Equal(t, chain[0].ID, root.ID)
	require.Len(t, root.Replies, 1)
	require.Len(t, root.Replies[0].Replies, 1)
	assert.NotNil(t, root.Replies[0].Replies[0].Author)

	deleted, err := repo.DeleteTree(ctx, chain[0])
	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestSocialRepository_UniqueViolations(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSocialRepository(db)
	ctx := context.Background()

	ada := testutil.CreateUser(t, db, "Ada")
	bob := testutil.CreateUser(t, db, "Bob")
	post := testutil.CreatePost(t, db, ada, "Post", true)

	require.NoError(t, repo.AddLike(ctx, post.ID, bob.ID))
	assert.True(t, database.IsUniqueViolation(repo.AddLike(ctx, post.ID, bob.ID)))

	require.NoError(t, repo.AddFollow(ctx, bob.ID, ada.ID))
	assert.True(t, database.IsUniqueViolation(repo.AddFollow(ctx, bob.ID, ada.ID)))

	followers, err := repo.Followers(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, bob.ID, followers[0].ID)
	assert.True(t, followers[0].NotifyOnNewPost)

	removed, err := repo.RemoveLike(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	removed, err = repo.RemoveLike(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestNotificationRepository_ReadStateAndSubscriptions(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	ada := testutil.CreateUser(t, db, "Ada")
	bob := testutil.CreateUser(t, db, "Bob")

	var ids []uint
	for i := 0; i < 3; i++ {
		n := &models.Notification{UserID: ada.ID, Type: models.NotificationTypeLike, Title: "t", Message: "m", SenderID: &bob.ID}
		require.NoError(t, repo.Create(ctx, n))
		ids = append(ids, n.ID)
	}
	foreign := &models.Notification{UserID: bob.ID, Type: models.NotificationTypeFollow, Title: "t", Message: "m"}
	require.NoError(t, repo.Create(ctx, foreign))

	updated, err := repo.MarkRead(ctx, ada.ID, []uint{ids[0], foreign.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	unread, total, err := repo.List(ctx, NotificationFilter{UserID: ada.ID, UnreadOnly: true, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, unread, 2)
	require.NotNil(t, unread[0].Sender)
	assert.Equal(t, "Bob", unread[0].Sender.Name)

	_, err = repo.SetRead(ctx, ada.ID, foreign.ID, true)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	all, err := repo.MarkAllRead(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all)

	sub := &models.PushSubscription{UserID: ada.ID, Endpoint: "https://push.example/1", P256dh: "k1", Auth: "a1"}
	created, err := repo.SaveSubscription(ctx, sub)
	require.NoError(t, err)
	assert.True(t, created)

	again := &models.PushSubscription{UserID: ada.ID, Endpoint: "https://push.example/1", P256dh: "k2", Auth: "a2"}
	created, err = repo.SaveSubscription(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sub.ID, again.ID)

	subs, err := repo.ListSubscriptions(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "k2", subs[0].P256dh)

	removed, err := repo.DeleteSubscription(ctx, ada.ID, "https://push.example/1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestTagRepository_ListAndEnsure(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewTagRepository(db)
	ctx := context.Background()

	created, err := repo.EnsureAll(ctx, []models.Tag{{Name: "Technology", Slug: "technology"}, {Name: "Finance", Slug: "finance"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created)

	created, err = repo.EnsureAll(ctx, []models.Tag{{Name: "Technology", Slug: "technology"}})
	require.NoError(t, err)
	assert.Zero(t, created)

	author := testutil.CreateUser(t, db, "Ada")
	tags, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "Finance", tags[0].Name)
	testutil.CreatePost(t, db, author, "Money", true, tags[0])

	tags, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tags[0].PostsCount)

	taken, err := repo.NameOrSlugTaken(ctx, "finance", "nope")
	require.NoError(t, err)
	assert.True(t, taken)

	existing, err := repo.ExistingIDs(ctx, []uint{tags[0].ID, 999})
	require.NoError(t, err)
	assert.Equal(t, []uint{tags[0].ID}, existing)
}
