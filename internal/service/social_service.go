package service

import (
	"context"

	"quill/internal/cache"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/session"
)

// SocialService implements likes, bookmarks and follows.
type SocialService struct {
	posts    repository.PostRepository
	users    repository.UserRepository
	social   repository.SocialRepository
	notifier Notifier
}

// LikeResult is the state of a like after a toggle or status check.
type LikeResult struct {
	Liked     bool   `json:"liked"`
	LikeCount int64  `json:"likeCount"`
	Message   string `json:"message,omitempty"`
}

// BookmarkResult is the state of a bookmark after a toggle or status check.
type BookmarkResult struct {
	Bookmarked bool   `json:"bookmarked"`
	Message    string `json:"message,omitempty"`
}

// FollowResult is the state of a follow after a toggle or status check.
type FollowResult struct {
	Following      bool   `json:"following"`
	FollowerCount  int64  `json:"followerCount"`
	FollowingCount *int64 `json:"followingCount,omitempty"`
	Message        string `json:"message,omitempty"`
}

// BookmarkList is a user's saved posts, newest bookmark first.
type BookmarkList struct {
	Posts []*models.Post `json:"posts"`
	Count int            `json:"count"`
}

func NewSocialService(
	posts repository.PostRepository,
	users repository.UserRepository,
	social repository.SocialRepository,
	notifier Notifier,
) *SocialService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &SocialService{posts: posts, users: users, social: social, notifier: notifier}
}

// post loads a post the actor may interact with.
func (s *SocialService) post(ctx context.Context, actor session.Actor, slug string) (*models.Post, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !post.Published && !actor.Is(post.AuthorID) {
		return nil, models.NewNotFoundError("Post", nil)
	}
	return post, nil
}

// ToggleLike flips the actor's like on the post. A concurrent duplicate
// insert is reported as liked.
func (s *SocialService) ToggleLike(ctx context.Context, actor session.Actor, slug string) (*LikeResult, error) {
	userID, err := actor.Require()
	if err != nil {
		return nil, err
	}
	post, err := s.post(ctx, actor, slug)
	if err != nil {
		return nil, err
	}

	liked, err := s.social.HasLiked(ctx, post.ID, userID)
	if err != nil {
		return nil, err
	}

	res := &LikeResult{}
	if liked {
		if _, err := s.social.RemoveLike(ctx, post.ID, userID); err != nil {
			return nil, err
		}
		res.Message = "Post unliked"
	} else {
		err := s.social.AddLike(ctx, post.ID, userID)
		switch {
		case err == nil:
			s.notifier.NotifyLike(ctx, userID, post)
		case !database.IsUniqueViolation(err):
			return nil, err
		}
		res.Liked = true
		res.Message = "Post liked"
	}
	cache.InvalidatePost(ctx, post.Slug)

	if res.LikeCount, err = s.social.CountLikes(ctx, post.ID); err != nil {
		return nil, err
	}
	return res, nil
}

// LikeStatus works for anonymous actors, who never have a like.
func (s *SocialService) LikeStatus(ctx context.Context, actor session.Actor, slug string) (*LikeResult, error) {
	post, err := s.post(ctx, actor, slug)
	if err != nil {
		return nil, err
	}

	res := &LikeResult{}
	if userID, ok := actor.ID(); ok {
		if res.Liked, err = s.social.HasLiked(ctx, post.ID, userID); err != nil {
			return nil, err
		}
	}
	if res.LikeCount, err = s.social.CountLikes(ctx, post.ID); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SocialService) ToggleBookmark(ctx context.Context, actor session.Actor, slug string) (*BookmarkResult, error) {
	userID, err := actor.Require()
	if err != nil {
		return nil, err
	}
	post, err := s.post(ctx, actor, slug)
	if err != nil {
		return nil, err
	}

	bookmarked, err := s.social.HasBookmarked(ctx, post.ID, userID)
	if err != nil {
		return nil, err
	}
	if bookmarked {
		if _, err := s.social.RemoveBookmark(ctx, post.ID, userID); err != nil {
			return nil, err
		}
		return &BookmarkResult{Bookmarked: false, Message: "Bookmark removed"}, nil
	}
	if err := s.social.AddBookmark(ctx, post.ID, userID); err != nil && !database.IsUniqueViolation(err) {
		return nil, err
	}
	return &BookmarkResult{Bookmarked: true, Message: "Post bookmarked"}, nil
}

func (s *SocialService) BookmarkStatus(ctx context.Context, actor session.Actor, slug string) (*BookmarkResult, error) {
	userID, err := actor.Require()
	if err != nil {
		return nil, err
	}
	post, err := s.post(ctx, actor, slug)
	if err != nil {
		return nil, err
	}
	bookmarked, err := s.social.HasBookmarked(ctx, post.ID, userID)
	if err != nil {
		return nil, err
	}
	return &BookmarkResult{Bookmarked: bookmarked}, nil
}

// ListBookmarks returns the actor's own bookmarks.
func (s *SocialService) ListBookmarks(ctx context.Context, actor session.Actor, userID uint) (*BookmarkList, error) {
	if err := actor.Authorize(userID); err != nil {
		return nil, err
	}
	posts, err := s.posts.ListBookmarked(ctx, userID)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	for _, p := range posts {
		render(ctx, p)
	}
	return &BookmarkList{Posts: posts, Count: len(posts)}, nil
}

// followTarget checks the actor may follow targetID and that the user exists.
func (s *SocialService) followTarget(ctx context.Context, actor session.Actor, targetID uint) (uint, error) {
	userID, err := actor.Require()
	if err != nil {
		return 0, err
	}
	if userID == targetID {
		return 0, models.NewValidationError("Cannot follow yourself")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return 0, err
	}
	return userID, nil
}

func (s *SocialService) ToggleFollow(ctx context.Context, actor session.Actor, targetID uint) (*FollowResult, error) {
	userID, err := s.followTarget(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}

	following, err := s.social.IsFollowing(ctx, userID, targetID)
	if err != nil {
		return nil, err
	}

	res := &FollowResult{}
	if following {
		if _, err := s.social.RemoveFollow(ctx, userID, targetID); err != nil {
			return nil, err
		}
		res.Message = "Unfollowed user"
	} else {
		err := s.social.AddFollow(ctx, userID, targetID)
		switch {
		case err == nil:
			s.notifier.NotifyFollow(ctx, userID, targetID)
		case !database.IsUniqueViolation(err):
			return nil, err
		}
		res.Following = true
		res.Message = "Following user"
	}

	if res.FollowerCount, err = s.social.CountFollowers(ctx, targetID); err != nil {
		return nil, err
	}
	return res, nil
}

// Unfollow removes the follow if present.
func (s *SocialService) Unfollow(ctx context.Context, actor session.Actor, targetID uint) (*FollowResult, error) {
	userID, err := s.followTarget(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}
	if _, err := s.social.RemoveFollow(ctx, userID, targetID); err != nil {
		return nil, err
	}
	res := &FollowResult{Message: "Unfollowed user"}
	if res.FollowerCount, err = s.social.CountFollowers(ctx, targetID); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SocialService) FollowStatus(ctx context.Context, actor session.Actor, targetID uint) (*FollowResult, error) {
	userID, err := actor.Require()
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	res := &FollowResult{}
	if userID != targetID {
		if res.Following, err = s.social.IsFollowing(ctx, userID, targetID); err != nil {
			return nil, err
		}
	}
	if res.FollowerCount, err = s.social.CountFollowers(ctx, targetID); err != nil {
		return nil, err
	}
	followingCount, err := s.social.CountFollowing(ctx, targetID)
	if err != nil {
		return nil, err
	}
	res.FollowingCount = &followingCount
	return res, nil
}
