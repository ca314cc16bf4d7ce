package service

import (
	"context"
	"strings"
	"time"

	"quill/internal/cache"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/session"
	"quill/internal/validation"
)

type UserService struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	social repository.SocialRepository
}

type UpdateProfileInput struct {
	Name   *string
	Bio    *string
	Avatar *string
}

func NewUserService(users repository.UserRepository, posts repository.PostRepository, social repository.SocialRepository) *UserService {
	return &UserService{users: users, posts: posts, social: social}
}

func (s *UserService) Me(ctx context.Context, actor session.Actor) (*models.User, error) {
	userID, err := actor.Require()
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile changes the fields present in the input.
func (s *UserService) UpdateProfile(ctx context.Context, actor session.Actor, in UpdateProfileInput) (*models.User, error) {
	user, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if err := validation.ValidateName(*in.Name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Bio != nil {
		if err := validation.ValidateBio(*in.Bio); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.Bio = *in.Bio
	}
	if in.Avatar != nil {
		user.Avatar = strings.TrimSpace(*in.Avatar)
	}
	user.UpdatedAt = time.Now()

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	// Listings embed the author card; single posts load it per request.
	cache.InvalidatePostsList(ctx)
	return user, nil
}

func (s *UserService) Settings(ctx context.Context, actor session.Actor) (*models.NotificationSettings, error) {
	user, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}
	settings := user.Settings()
	return &settings, nil
}

func (s *UserService) UpdateSettings(ctx context.Context, actor session.Actor, settings models.NotificationSettings) (*models.NotificationSettings, error) {
	userID, err := actor.Require()
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateSettings(ctx, userID, settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Profile returns the public view of a user. Email is only shown to the
// user themselves.
func (s *UserService) Profile(ctx context.Context, actor session.Actor, userID uint) (*models.UserProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !actor.Is(userID) {
		user.Email = ""
	}

	profile := &models.UserProfile{User: *user}
	if profile.FollowerCount, err = s.social.CountFollowers(ctx, userID); err != nil {
		return nil, err
	}
	if profile.FollowingCount, err = s.social.CountFollowing(ctx, userID); err != nil {
		return nil, err
	}
	if profile.PostCount, err = s.posts.CountPublishedByAuthor(ctx, userID); err != nil {
		return nil, err
	}
	return profile, nil
}
