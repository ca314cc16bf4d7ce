package server

import (
	"quill/internal/service"
	"quill/internal/session"

	"github.com/gofiber/fiber/v2"
)

// postRequest is the JSON body of post create and update calls.
type postRequest struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	Excerpt       string  `json:"excerpt"`
	CoverImage    *string `json:"cover_image"`
	Tags          []uint  `json:"tags"`
	Published     *bool   `json:"published"`
	ContentFormat string  `json:"content_format"`
}

func (r postRequest) input() service.PostInput {
	return service.PostInput{
		Title:         r.Title,
		Content:       r.Content,
		Excerpt:       r.Excerpt,
		CoverImage:    r.CoverImage,
		Tags:          r.Tags,
		Published:     r.Published,
		ContentFormat: r.ContentFormat,
	}
}

// ListPosts handles GET /api/posts?page=&limit=&tag=&search=
// @Summary List published posts
// @Tags Posts
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size"
// @Param tag query string false "Tag slug"
// @Param search query string false "Search text"
// @Success 200 {object} service.PostList
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page := parsePage(c)
	list, err := s.postService.List(c.UserContext(), service.ListPostsInput{
		Page:   page.Page,
		Limit:  page.Limit,
		Tag:    c.Query("tag"),
		Search: c.Query("search"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// GetFeaturedPost handles GET /api/posts/featured
// @Summary Get the featured post
// @Tags Posts
// @Produce json
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/featured [get]
func (s *Server) GetFeaturedPost(c *fiber.Ctx) error {
	post, err := s.postService.Featured(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// GetPost handles GET /api/posts/:slug
// @Summary Get post by slug
// @Tags Posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{slug} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.Get(c.UserContext(), session.FromFiber(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags Posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param post body postRequest true "Post data"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Create(c.UserContext(), session.FromFiber(c), req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:slug
// @Summary Update a post
// @Tags Posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Post slug"
// @Param post body postRequest true "Post data"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{slug} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Update(c.UserContext(), session.FromFiber(c), c.Params("slug"), req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:slug
// @Summary Delete a post
// @Tags Posts
// @Produce json
// @Security BearerAuth
// @Param slug path string true "Post slug"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{slug} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.postService.Delete(c.UserContext(), session.FromFiber(c), c.Params("slug")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// GetUserPosts handles GET /api/users/:id/posts
// @Summary List a user's published posts
// @Tags Posts
// @Produce json
// @Param id path int true "User ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size"
// @Success 200 {object} service.PostList
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/posts [get]
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePage(c)
	list, err := s.postService.List(c.UserContext(), service.ListPostsInput{
		Page:     page.Page,
		Limit:    page.Limit,
		AuthorID: userID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}
