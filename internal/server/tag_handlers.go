package server

import (
	"quill/internal/session"

	"github.com/gofiber/fiber/v2"
)

// GetTags handles GET /api/tags
// @Summary List tags
// @Tags Tags
// @Produce json
// @Success 200 {array} models.Tag
// @Router /tags [get]
func (s *Server) GetTags(c *fiber.Ctx) error {
	tags, err := s.tagService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}

// CreateTag handles POST /api/tags
// @Summary Create a tag
// @Tags Tags
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param tag body object{name=string} true "Tag data"
// @Success 201 {object} models.Tag
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /tags [post]
func (s *Server) CreateTag(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	tag, err := s.tagService.Create(c.UserContext(), session.FromFiber(c), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}
