package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"quill/internal/models"

	webpush "github.com/SherClockHolmes/webpush-go"
)

const (
	pushIcon = "/icons/icon-192x192.png"
	pushTTL  = 24 * 60 * 60
)

// ErrPushDisabled is returned by senders that have no VAPID credentials.
var ErrPushDisabled = errors.New("web push is not configured")

// PushSender delivers one payload to one browser subscription. It returns
// the push service's HTTP status when a response was received.
type PushSender interface {
	Send(ctx context.Context, sub models.PushSubscription, payload []byte) (int, error)
}

// PushPayload is the JSON document the service worker receives.
type PushPayload struct {
	Title string          `json:"title"`
	Body  string          `json:"body"`
	Icon  string          `json:"icon"`
	Badge string          `json:"badge"`
	Data  PushPayloadData `json:"data"`
}

type PushPayloadData struct {
	URL            string                  `json:"url"`
	NotificationID uint                    `json:"notificationId"`
	Type           models.NotificationType `json:"type"`
}

// NewPushPayload builds the push document for a stored notification.
func NewPushPayload(n *models.Notification) ([]byte, error) {
	url := n.URL
	if url == "" {
		url = "/"
	}
	return json.Marshal(PushPayload{
		Title: n.Title,
		Body:  n.Message,
		Icon:  pushIcon,
		Badge: pushIcon,
		Data:  PushPayloadData{URL: url, NotificationID: n.ID, Type: n.Type},
	})
}

// VAPIDConfig holds the application server credentials.
type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// WebPushSender sends encrypted payloads with VAPID authentication.
type WebPushSender struct {
	cfg    VAPIDConfig
	client *http.Client
}

// NewPushSender returns a WebPushSender, or a sender that always reports
// ErrPushDisabled when the key pair is incomplete.
func NewPushSender(cfg VAPIDConfig, client *http.Client) PushSender {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return disabledSender{}
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &WebPushSender{cfg: cfg, client: client}
}

func (s *WebPushSender) Send(ctx context.Context, sub models.PushSubscription, payload []byte) (int, error) {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.cfg.Subject,
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             pushTTL,
	})
	if err != nil {
		return 0, fmt.Errorf("send web push: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, fmt.Errorf("push service responded %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

type disabledSender struct{}

func (disabledSender) Send(context.Context, models.PushSubscription, []byte) (int, error) {
	return 0, ErrPushDisabled
}

// GenerateVAPIDKeys returns a new public/private VAPID key pair.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	privateKey, publicKey, err = webpush.GenerateVAPIDKeys()
	return publicKey, privateKey, err
}

// subscriptionGone reports whether the push service says the subscription
// no longer exists.
func subscriptionGone(status int) bool {
	return status == http.StatusNotFound || status == http.StatusGone
}
