package server

import (
	"quill/internal/models"
	"quill/internal/service"
	"quill/internal/session"

	"github.com/gofiber/fiber/v2"
)

// Upload handles POST /api/upload (multipart field "file")
// @Summary Upload an image
// @Tags Uploads
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image file (png, jpeg, gif or webp)"
// @Success 201 {object} service.UploadResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /upload [post]
func (s *Server) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	res, err := s.uploadService.Upload(c.UserContext(), session.FromFiber(c), service.UploadInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Size:        file.Size,
		Body:        src,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}
