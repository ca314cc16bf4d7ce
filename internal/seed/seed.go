// Package seed loads the built-in tag catalog and generates demo content for
// development databases.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"quill/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every generated demo account.
const DemoPassword = "password123"

// Options configures Demo.
type Options struct {
	Users          int
	Posts          int
	MaxComments    int // per post
	MaxLikes       int // per post
	FollowsPerUser int
	MaxDays        int
	Seed           int64
	Clean          bool
	// FastHash stores bcrypt hashes at MinCost. Only for throwaway databases.
	FastHash bool
}

// Summary counts the records Demo created.
type Summary struct {
	Tags     int `json:"tags"`
	Users    int `json:"users"`
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
	Likes    int `json:"likes"`
	Follows  int `json:"follows"`
}

func (o Options) withDefaults() Options {
	if o.MaxComments < 0 {
		o.MaxComments = 0
	}
	if o.MaxLikes < 0 {
		o.MaxLikes = 0
	}
	if o.FollowsPerUser <= 0 {
		o.FollowsPerUser = 3
	}
	return o
}

// Demo fills db with fake users, posts, comments, likes and follows inside a
// single transaction. Built-in tags are seeded first so posts can carry them.
func Demo(ctx context.Context, db *gorm.DB, opts Options) (Summary, error) {
	var sum Summary
	if opts.Users < 1 {
		return sum, errors.New("seed: at least one user is required")
	}
	if opts.Posts < 0 {
		return sum, errors.New("seed: post count cannot be negative")
	}
	opts = opts.withDefaults()

	cost := bcrypt.DefaultCost
	if opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return sum, fmt.Errorf("hash demo password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.Clean {
			if err := Clean(ctx, tx); err != nil {
				return err
			}
		}

		created, err := Tags(ctx, tx)
		if err != nil {
			return err
		}
		sum.Tags = created

		var tags []models.Tag
		if err := tx.Find(&tags).Error; err != nil {
			return fmt.Errorf("load tags: %w", err)
		}

		f := NewFactory(tx, opts.Seed, opts.MaxDays)

		users := make([]*models.User, 0, opts.Users)
		for i := 0; i < opts.Users; i++ {
			u, err := f.CreateUser(string(hash))
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			users = append(users, u)
		}
		sum.Users = len(users)

		for _, follower := range users {
			followed := 0
			for _, i := range f.perm(len(users)) {
				if followed == opts.FollowsPerUser {
					break
				}
				if users[i].ID == follower.ID {
					continue
				}
				if err := f.CreateFollow(follower, users[i]); err != nil {
					return fmt.Errorf("create follow: %w", err)
				}
				followed++
			}
			sum.Follows += followed
		}

		for i := 0; i < opts.Posts; i++ {
			author := users[f.faker.Number(0, len(users)-1)]
			post, err := f.CreatePost(author, tags)
			if err != nil {
				return fmt.Errorf("create post: %w", err)
			}
			sum.Posts++

			n, err := demoComments(f, users, post, f.faker.Number(0, opts.MaxComments))
			if err != nil {
				return err
			}
			sum.Comments += n

			likes := f.faker.Number(0, min(opts.MaxLikes, len(users)))
			for _, j := range f.perm(len(users))[:likes] {
				if err := f.CreateLike(users[j], post); err != nil {
					return fmt.Errorf("create like: %w", err)
				}
				sum.Likes++
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	slog.InfoContext(ctx, "demo data seeded",
		slog.Int("tags", sum.Tags),
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("likes", sum.Likes),
		slog.Int("follows", sum.Follows),
	)
	return sum, nil
}

// demoComments writes n comments on post. Roughly a third reply to an earlier
// comment on the same post.
func demoComments(f *Factory, users []*models.User, post *models.Post, n int) (int, error) {
	thread := make([]*models.Comment, 0, n)
	for i := 0; i < n; i++ {
		var parent *models.Comment
		if len(thread) > 0 && f.faker.Number(1, 3) == 1 {
			parent = thread[f.faker.Number(0, len(thread)-1)]
		}
		c, err := f.CreateComment(users[f.faker.Number(0, len(users)-1)], post, parent)
		if err != nil {
			return i, fmt.Errorf("create comment: %w", err)
		}
		thread = append(thread, c)
	}
	return n, nil
}

// Clean removes all user generated content. Tags are kept.
func Clean(ctx context.Context, db *gorm.DB) error {
	tx := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{
		&models.PushSubscription{},
		&models.Notification{},
		&models.Like{},
		&models.Bookmark{},
		&models.Follow{},
		&models.Comment{},
		&models.PostTag{},
		&models.Post{},
		&models.User{},
	} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clean %T: %w", model, err)
		}
	}
	return nil
}
