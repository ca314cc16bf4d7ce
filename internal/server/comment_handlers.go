package server

import (
	"quill/internal/service"
	"quill/internal/session"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/comments?postId=
// @Summary Get comment thread
// @Tags Comments
// @Produce json
// @Param postId query int true "Post ID"
// @Success 200 {array} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID := c.QueryInt("postId", 0)
	if postID < 0 {
		postID = 0
	}
	comments, err := s.commentService.List(c.UserContext(), uint(postID))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/comments
// @Summary Create a comment or reply
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param comment body object{content=string,postId=int,parentId=int} true "Comment data"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req struct {
		Content  string `json:"content"`
		PostID   uint   `json:"postId"`
		ParentID *uint  `json:"parentId"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.Create(c.UserContext(), session.FromFiber(c), service.CreateCommentInput{
		Content:  req.Content,
		PostID:   req.PostID,
		ParentID: req.ParentID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/comments/:id
// @Summary Edit a comment
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Param comment body object{content=string} true "Comment data"
// @Success 200 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.Update(c.UserContext(), session.FromFiber(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id. Replies are removed with
// their parent.
// @Summary Delete a comment and its replies
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	deleted, err := s.commentService.Delete(c.UserContext(), session.FromFiber(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted", "deleted": deleted})
}
