package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"
	"quill/internal/session"

	"go.opentelemetry.io/otel/attribute"
)

const (
	recommendationSignalWindow = 50
	recommendationMatchLimit   = 20
	recommendationMinimum      = 10
)

// RecommendationService composes a personal reading list from a user's
// likes, bookmarks and follows.
type RecommendationService struct {
	posts  repository.PostRepository
	tags   repository.TagRepository
	social repository.SocialRepository
}

// Recommendations is the composed reading list.
type Recommendations struct {
	Posts        []*models.Post `json:"posts"`
	Count        int            `json:"count"`
	HasFollowing bool           `json:"hasFollowing"`
	HasInterests bool           `json:"hasInterests"`
}

func NewRecommendationService(
	posts repository.PostRepository,
	tags repository.TagRepository,
	social repository.SocialRepository,
) *RecommendationService {
	return &RecommendationService{posts: posts, tags: tags, social: social}
}

// Recommend returns posts by followed authors or carrying tags the user
// engaged with, topped up with trending posts. Posts the user already liked
// or bookmarked are never returned.
func (s *RecommendationService) Recommend(ctx context.Context, actor session.Actor, userID uint) (_ *Recommendations, err error) {
	if err := actor.Authorize(userID); err != nil {
		return nil, err
	}

	span, ctx := observability.NewSpan(ctx, "recommendations.compose")
	defer func() {
		span.SetError(err)
		span.End()
	}()

	liked, err := s.social.RecentLikedPostIDs(ctx, userID, recommendationSignalWindow)
	if err != nil {
		return nil, err
	}
	bookmarked, err := s.social.RecentBookmarkedPostIDs(ctx, userID, recommendationSignalWindow)
	if err != nil {
		return nil, err
	}
	seen := unionIDs(liked, bookmarked)

	interests, err := s.tags.IDsForPosts(ctx, seen)
	if err != nil {
		return nil, err
	}
	following, err := s.social.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts.ListMatching(ctx, following, interests, seen, recommendationMatchLimit)
	if err != nil {
		return nil, err
	}
	matched := len(posts)

	if len(posts) < recommendationMinimum {
		exclude := append([]uint{}, seen...)
		for _, p := range posts {
			exclude = append(exclude, p.ID)
		}
		trending, err := s.posts.ListTrending(ctx, exclude, recommendationMinimum-len(posts))
		if err != nil {
			return nil, err
		}
		posts = append(posts, trending...)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	for _, p := range posts {
		render(ctx, p)
	}

	span.AddAttributes(
		attribute.Int("recommendations.seen", len(seen)),
		attribute.Int("recommendations.following", len(following)),
		attribute.Int("recommendations.interests", len(interests)),
		attribute.Int("recommendations.matched", matched),
		attribute.Int("recommendations.total", len(posts)),
	)

	return &Recommendations{
		Posts:        posts,
		Count:        len(posts),
		HasFollowing: len(following) > 0,
		HasInterests: len(interests) > 0,
	}, nil
}

func unionIDs(lists ...[]uint) []uint {
	seen := map[uint]bool{}
	var out []uint
	for _, list := range lists {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
