package server

import (
	"quill/internal/models"
	"quill/internal/service"
	"quill/internal/session"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/users/:id
// @Summary Get a user profile
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.UserProfile
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	profile, err := s.userService.Profile(c.UserContext(), session.FromFiber(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetMyProfile handles GET /api/users/me
// @Summary Get my account
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.Me(c.UserContext(), session.FromFiber(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update my profile
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body object{name=string,bio=string,avatar=string} true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Name   *string `json:"name"`
		Bio    *string `json:"bio"`
		Avatar *string `json:"avatar"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), session.FromFiber(c), service.UpdateProfileInput{
		Name:   req.Name,
		Bio:    req.Bio,
		Avatar: req.Avatar,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetNotificationSettings handles GET /api/users/me/notification-settings
// @Summary Get notification settings
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.NotificationSettings
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me/notification-settings [get]
func (s *Server) GetNotificationSettings(c *fiber.Ctx) error {
	settings, err := s.userService.Settings(c.UserContext(), session.FromFiber(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(settings)
}

// UpdateNotificationSettings handles PUT /api/users/me/notification-settings.
// The body replaces every toggle.
// @Summary Update notification settings
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param settings body models.NotificationSettings true "Settings"
// @Success 200 {object} models.NotificationSettings
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me/notification-settings [put]
func (s *Server) UpdateNotificationSettings(c *fiber.Ctx) error {
	var req models.NotificationSettings
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	settings, err := s.userService.UpdateSettings(c.UserContext(), session.FromFiber(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(settings)
}
