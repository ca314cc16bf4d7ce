package server

import (
	"quill/internal/session"

	"github.com/gofiber/fiber/v2"
)

// ToggleLike handles POST /api/posts/:slug/like
// @Summary Toggle like
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Post slug"
// @Success 200 {object} service.LikeResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{slug}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	res, err := s.socialService.ToggleLike(c.UserContext(), session.FromFiber(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetLikeStatus handles GET /api/posts/:slug/like. Anonymous callers get
// liked=false with the current count.
// @Summary Get like status
// @Tags Social
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} service.LikeResult
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{slug}/like [get]
func (s *Server) GetLikeStatus(c *fiber.Ctx) error {
	res, err := s.socialService.LikeStatus(c.UserContext(), session.FromFiber(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// ToggleBookmark handles POST /api/posts/:slug/bookmark
// @Summary Toggle bookmark
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Post slug"
// @Success 200 {object} service.BookmarkResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{slug}/bookmark [post]
func (s *Server) ToggleBookmark(c *fiber.Ctx) error {
	res, err := s.socialService.ToggleBookmark(c.UserContext(), session.FromFiber(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetBookmarkStatus handles GET /api/posts/:slug/bookmark
// @Summary Get bookmark status
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Post slug"
// @Success 200 {object} service.BookmarkResult
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{slug}/bookmark [get]
func (s *Server) GetBookmarkStatus(c *fiber.Ctx) error {
	res, err := s.socialService.BookmarkStatus(c.UserContext(), session.FromFiber(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetUserBookmarks handles GET /api/users/:id/bookmarks
// @Summary List the caller's bookmarks
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} service.BookmarkList
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{id}/bookmarks [get]
func (s *Server) GetUserBookmarks(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.socialService.ListBookmarks(c.UserContext(), session.FromFiber(c), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// ToggleFollow handles POST /api/users/:id/follow
// @Summary Toggle follow
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} service.FollowResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/follow [post]
func (s *Server) ToggleFollow(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.socialService.ToggleFollow(c.UserContext(), session.FromFiber(c), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// Unfollow handles DELETE /api/users/:id/follow
// @Summary Unfollow a user
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} service.FollowResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/{id}/follow [delete]
func (s *Server) Unfollow(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.socialService.Unfollow(c.UserContext(), session.FromFiber(c), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetFollowStatus handles GET /api/users/:id/follow
// @Summary Get follow status
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} service.FollowResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/{id}/follow [get]
func (s *Server) GetFollowStatus(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.socialService.FollowStatus(c.UserContext(), session.FromFiber(c), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetRecommendations handles GET /api/users/:id/recommendations
// @Summary Get recommended posts
// @Tags Social
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} service.Recommendations
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /users/{id}/recommendations [get]
func (s *Server) GetRecommendations(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.recommendations.Recommend(c.UserContext(), session.FromFiber(c), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
