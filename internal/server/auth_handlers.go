package server

import (
	"errors"
	"strings"

	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /api/auth/register
// @Summary Register an account
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body object{name=string,email=string,password=string} true "Signup request"
// @Success 201 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Name, email, and password are required"))
	}
	for _, err := range []error{
		validation.ValidateName(req.Name),
		validation.ValidateEmail(req.Email),
		validation.ValidatePassword(req.Password),
	} {
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError(err.Error()))
		}
	}

	ctx := c.UserContext()
	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewConflictError("User already exists"))
	} else if models.ErrorCode(err) != models.CodeNotFound {
		return respondError(c, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return models.RespondWithError(c, fiber.StatusConflict,
				models.NewConflictError("User already exists"))
		}
		return respondError(c, err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(authResponse{Token: token, User: user})
}

// Login handles POST /api/auth/login
// @Summary Log in
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Credentials"
// @Success 200 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and password are required"))
	}

	invalid := models.NewUnauthorizedError("Invalid credentials")
	user, err := s.userRepo.GetByEmail(c.UserContext(), req.Email)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return models.RespondWithError(c, fiber.StatusUnauthorized, invalid)
		}
		return respondError(c, err)
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, invalid)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	return c.JSON(authResponse{Token: token, User: user})
}
