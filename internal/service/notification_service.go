package service

import (
	"context"
	"net/url"
	"strings"

	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/session"
)

const (
	defaultInboxPageSize = 20
	maxInboxPageSize     = 100
	maxEndpointLen       = 2048
)

// NotificationService implements the in-app inbox and push subscription
// management.
type NotificationService struct {
	notifications  repository.NotificationRepository
	vapidPublicKey string
}

// InboxPagination describes one page of the inbox.
type InboxPagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// Inbox is one page of a user's notifications.
type Inbox struct {
	Notifications []models.Notification `json:"notifications"`
	Pagination    InboxPagination       `json:"pagination"`
	UnreadCount   int64                 `json:"unreadCount"`
}

type ListNotificationsInput struct {
	Page       int
	Limit      int
	UnreadOnly bool
}

// SubscriptionInput mirrors the browser PushSubscription JSON.
type SubscriptionInput struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func NewNotificationService(notifications repository.NotificationRepository, vapidPublicKey string) *NotificationService {
	return &NotificationService{notifications: notifications, vapidPublicKey: vapidPublicKey}
}

func (s *NotificationService) List(ctx context.Context, actor session.Actor, in ListNotificationsInput) (*Inbox, error) {
	userID, err := actor.Require()
	if err != nil {
		return nil, err
	}
	page, limit, offset := pageWindow(in.Page, in.Limit, defaultInboxPageSize, maxInboxPageSize)

	items, total, err := s.notifications.List(ctx, repository.NotificationFilter{
		UserID:     userID,
		UnreadOnly: in.UnreadOnly,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}
	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Inbox{
		Notifications: items,
		Pagination:    InboxPagination{Page: page, Limit: limit, Total: total, Pages: totalPages(total, limit)},
		UnreadCount:   unread,
	}, nil
}

// MarkRead marks the given notifications of the actor read.
func (s *NotificationService) MarkRead(ctx context.Context, actor session.Actor, ids []uint) (int64, error) {
	userID, err := actor.Require()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, models.NewValidationError("ids must list at least one notification")
	}
	return s.notifications.MarkRead(ctx, userID, ids)
}

func (s *NotificationService) SetRead(ctx context.Context, actor session.Actor, id uint, read bool) (*models.Notification, error) {
	userID, err := actor.Require()
	if err != nil {
		return nil, err
	}
	return s.notifications.SetRead(ctx, userID, id, read)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor session.Actor) (int64, error) {
	userID, err := actor.Require()
	if err != nil {
		return 0, err
	}
	return s.notifications.MarkAllRead(ctx, userID)
}

// Subscribe registers a push endpoint for the actor and reports whether it
// was new. Re-subscribing refreshes the keys.
func (s *NotificationService) Subscribe(ctx context.Context, actor session.Actor, in SubscriptionInput) (*models.PushSubscription, bool, error) {
	userID, err := actor.Require()
	if err != nil {
		return nil, false, err
	}
	endpoint := strings.TrimSpace(in.Endpoint)
	if !validEndpoint(endpoint) || in.Keys.P256dh == "" || in.Keys.Auth == "" {
		return nil, false, models.NewValidationError("Invalid subscription data")
	}

	sub := &models.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   in.Keys.P256dh,
		Auth:     in.Keys.Auth,
	}
	created, err := s.notifications.SaveSubscription(ctx, sub)
	if err != nil {
		return nil, false, err
	}
	return sub, created, nil
}

func (s *NotificationService) Unsubscribe(ctx context.Context, actor session.Actor, endpoint string) error {
	userID, err := actor.Require()
	if err != nil {
		return err
	}
	if strings.TrimSpace(endpoint) == "" {
		return models.NewValidationError("Endpoint required")
	}
	_, err = s.notifications.DeleteSubscription(ctx, userID, strings.TrimSpace(endpoint))
	return err
}

func (s *NotificationService) Subscriptions(ctx context.Context, actor session.Actor) ([]models.PushSubscription, error) {
	userID, err := actor.Require()
	if err != nil {
		return nil, err
	}
	return s.notifications.ListSubscriptions(ctx, userID)
}

// VAPIDPublicKey returns the application server key browsers subscribe with.
func (s *NotificationService) VAPIDPublicKey() (string, error) {
	if s.vapidPublicKey == "" {
		return "", models.NewNotFoundError("VAPID public key", nil)
	}
	return s.vapidPublicKey, nil
}

func validEndpoint(endpoint string) bool {
	if endpoint == "" || len(endpoint) > maxEndpointLen {
		return false
	}
	u, err := url.Parse(endpoint)
	return err == nil && u.Scheme == "https" && u.Host != ""
}
