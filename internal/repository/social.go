package repository

import (
	"context"

	"quill/internal/models"

	"gorm.io/gorm"
)

// SocialRepository persists likes, bookmarks and follows. Adds surface unique
// violations to the caller; removes report how many rows went away.
type SocialRepository interface {
	AddLike(ctx context.Context, postID, userID uint) error
	RemoveLike(ctx context.Context, postID, userID uint) (int64, error)
	HasLiked(ctx context.Context, postID, userID uint) (bool, error)
	CountLikes(ctx context.Context, postID uint) (int64, error)
	RecentLikedPostIDs(ctx context.Context, userID uint, limit int) ([]uint, error)

	AddBookmark(ctx context.Context, postID, userID uint) error
	RemoveBookmark(ctx context.Context, postID, userID uint) (int64, error)
	HasBookmarked(ctx context.Context, postID, userID uint) (bool, error)
	CountBookmarks(ctx context.Context, userID uint) (int64, error)
	RecentBookmarkedPostIDs(ctx context.Context, userID uint, limit int) ([]uint, error)

	AddFollow(ctx context.Context, followerID, followingID uint) error
	RemoveFollow(ctx context.Context, followerID, followingID uint) (int64, error)
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	CountFollowers(ctx context.Context, userID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
	FollowingIDs(ctx context.Context, userID uint) ([]uint, error)
	Followers(ctx context.Context, userID uint) ([]models.User, error)
}

type socialRepository struct {
	db *gorm.DB
}

// NewSocialRepository returns a new SocialRepository implementation.
func NewSocialRepository(db *gorm.DB) SocialRepository {
	return &socialRepository{db: db}
}

func (r *socialRepository) exists(ctx context.Context, model any, where string, args ...any) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(model).Where(where, args...).Limit(1).Count(&count).Error
	return count > 0, err
}

func (r *socialRepository) count(ctx context.Context, model any, where string, args ...any) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(model).Where(where, args...).Count(&count).Error
	return count, err
}

func (r *socialRepository) recentPostIDs(ctx context.Context, model any, userID uint, limit int) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(model).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Pluck("post_id", &ids).Error
	return ids, err
}

func (r *socialRepository) AddLike(ctx context.Context, postID, userID uint) error {
	return r.db.WithContext(ctx).Create(&models.Like{PostID: postID, UserID: userID}).Error
}

func (r *socialRepository) RemoveLike(ctx context.Context, postID, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
	return res.RowsAffected, res.Error
}

func (r *socialRepository) HasLiked(ctx context.Context, postID, userID uint) (bool, error) {
	return r.exists(ctx, &models.Like{}, "post_id = ? AND user_id = ?", postID, userID)
}

func (r *socialRepository) CountLikes(ctx context.Context, postID uint) (int64, error) {
	return r.count(ctx, &models.Like{}, "post_id = ?", postID)
}

func (r *socialRepository) RecentLikedPostIDs(ctx context.Context, userID uint, limit int) ([]uint, error) {
	return r.recentPostIDs(ctx, &models.Like{}, userID, limit)
}

func (r *socialRepository) AddBookmark(ctx context.Context, postID, userID uint) error {
	return r.db.WithContext(ctx).Create(&models.Bookmark{PostID: postID, UserID: userID}).Error
}

func (r *socialRepository) RemoveBookmark(ctx context.Context, postID, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Bookmark{})
	return res.RowsAffected, res.Error
}

func (r *socialRepository) HasBookmarked(ctx context.Context, postID, userID uint) (bool, error) {
	return r.exists(ctx, &models.Bookmark{}, "post_id = ? AND user_id = ?", postID, userID)
}

func (r *socialRepository) CountBookmarks(ctx context.Context, userID uint) (int64, error) {
	return r.count(ctx, &models.Bookmark{}, "user_id = ?", userID)
}

func (r *socialRepository) RecentBookmarkedPostIDs(ctx context.Context, userID uint, limit int) ([]uint, error) {
	return r.recentPostIDs(ctx, &models.Bookmark{}, userID, limit)
}

func (r *socialRepository) AddFollow(ctx context.Context, followerID, followingID uint) error {
	return r.db.WithContext(ctx).Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error
}

func (r *socialRepository) RemoveFollow(ctx context.Context, followerID, followingID uint) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	return res.RowsAffected, res.Error
}

func (r *socialRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	return r.exists(ctx, &models.Follow{}, "follower_id = ? AND following_id = ?", followerID, followingID)
}

func (r *socialRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return r.count(ctx, &models.Follow{}, "following_id = ?", userID)
}

func (r *socialRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	return r.count(ctx, &models.Follow{}, "follower_id = ?", userID)
}

func (r *socialRepository) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("following_id", &ids).Error
	return ids, err
}

// Followers returns the users following userID, including their
// notification toggles.
func (r *socialRepository) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.following_id = ?", userID).
		Order("users.id").
		Find(&users).Error
	return users, err
}
