package server

import (
	"quill/internal/models"
	"quill/internal/service"
	"quill/internal/session"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications?page=&limit=&unread=true
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size"
// @Param unread query bool false "Only unread"
// @Success 200 {object} service.Inbox
// @Failure 401 {object} models.ErrorResponse
// @Router /notifications [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	page := parsePage(c)
	inbox, err := s.notificationService.List(c.UserContext(), session.FromFiber(c), service.ListNotificationsInput{
		Page:       page.Page,
		Limit:      page.Limit,
		UnreadOnly: c.QueryBool("unread", false),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(inbox)
}

// MarkNotificationsRead handles POST /api/notifications with {ids: []}
// @Summary Mark notifications read
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{ids=[]int} true "Notification IDs"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /notifications [post]
func (s *Server) MarkNotificationsRead(c *fiber.Ctx) error {
	var req struct {
		IDs []uint `json:"ids"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	updated, err := s.notificationService.MarkRead(c.UserContext(), session.FromFiber(c), req.IDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": updated})
}

// UpdateNotification handles PATCH /api/notifications/:id with {read: bool}
// @Summary Set read state
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Param request body object{read=bool} true "Read state"
// @Success 200 {object} models.Notification
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /notifications/{id} [patch]
func (s *Server) UpdateNotification(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Read *bool `json:"read"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Read == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("read is required"))
	}

	n, err := s.notificationService.SetRead(c.UserContext(), session.FromFiber(c), id, *req.Read)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(n)
}

// MarkAllNotificationsRead handles POST /api/notifications/mark-all-read
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Router /notifications/mark-all-read [post]
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	updated, err := s.notificationService.MarkAllRead(c.UserContext(), session.FromFiber(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": updated})
}

// Subscribe handles POST /api/notifications/subscribe. A new endpoint
// answers 201, a known one 200.
// @Summary Save a push subscription
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subscription body service.SubscriptionInput true "Push subscription"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /notifications/subscribe [post]
func (s *Server) Subscribe(c *fiber.Ctx) error {
	var req service.SubscriptionInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid subscription data"))
	}

	sub, created, err := s.notificationService.Subscribe(c.UserContext(), session.FromFiber(c), req)
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"message": "Subscription saved", "subscription": sub})
}

// Unsubscribe handles DELETE /api/notifications/subscribe with {endpoint}
// @Summary Remove a push subscription
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{endpoint=string} true "Endpoint"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /notifications/subscribe [delete]
func (s *Server) Unsubscribe(c *fiber.Ctx) error {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	if err := s.notificationService.Unsubscribe(c.UserContext(), session.FromFiber(c), req.Endpoint); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Subscription removed"})
}

// GetPushSubscriptions handles GET /api/notifications/subscribe
// @Summary List push subscriptions
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Router /notifications/subscribe [get]
func (s *Server) GetPushSubscriptions(c *fiber.Ctx) error {
	subs, err := s.notificationService.Subscriptions(c.UserContext(), session.FromFiber(c))
	if err != nil {
		return respondError(c, err)
	}
	if subs == nil {
		subs = []models.PushSubscription{}
	}
	return c.JSON(fiber.Map{"subscriptions": subs, "count": len(subs)})
}

// GetVAPIDPublicKey handles GET /api/notifications/vapid-public-key
// @Summary Get the VAPID public key
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /notifications/vapid-public-key [get]
func (s *Server) GetVAPIDPublicKey(c *fiber.Ctx) error {
	key, err := s.notificationService.VAPIDPublicKey()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"publicKey": key})
}
