package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"quill/internal/content"
	"quill/internal/featureflags"
	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	commentPreviewLen  = 100
	defaultConcurrency = 8
)

// Publisher pushes a serialized notification to a user's realtime channel.
type Publisher interface {
	PublishUser(ctx context.Context, userID uint, payload string) error
}

// CreateInput describes one notification for one recipient.
type CreateInput struct {
	UserID   uint
	Type     models.NotificationType
	Title    string
	Message  string
	URL      string
	SenderID uint
}

// DispatcherConfig tunes push delivery.
type DispatcherConfig struct {
	Concurrency int
	RatePerSec  float64
}

// Dispatcher turns social events into stored notifications, realtime
// messages and browser push deliveries.
type Dispatcher struct {
	users         repository.UserRepository
	social        repository.SocialRepository
	notifications repository.NotificationRepository
	publisher     Publisher
	push          PushSender
	flags         *featureflags.Manager
	limiter       *rate.Limiter
	concurrency   int
	tasks         Tasks
}

// NewDispatcher wires a Dispatcher. publisher and push may be nil.
func NewDispatcher(
	users repository.UserRepository,
	social repository.SocialRepository,
	notifications repository.NotificationRepository,
	publisher Publisher,
	push PushSender,
	flags *featureflags.Manager,
	cfg DispatcherConfig,
) *Dispatcher {
	if push == nil {
		push = disabledSender{}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
		burst = max(1, int(cfg.RatePerSec))
	}
	return &Dispatcher{
		users:         users,
		social:        social,
		notifications: notifications,
		publisher:     publisher,
		push:          push,
		flags:         flags,
		limiter:       rate.NewLimiter(limit, burst),
		concurrency:   cfg.Concurrency,
	}
}

// NotifyNewPost tells every follower of the author who opted in.
func (d *Dispatcher) NotifyNewPost(ctx context.Context, post *models.Post) {
	if post == nil {
		return
	}
	p := *post
	d.tasks.Go(ctx, "notify.new_post", func(ctx context.Context) {
		if err := d.fanOutNewPost(ctx, &p); err != nil {
			observability.LogAsyncOperationError(ctx, "notify.new_post", err, map[string]any{"post_id": p.ID})
		}
	})
}

// NotifyComment tells the post author about a new comment.
func (d *Dispatcher) NotifyComment(ctx context.Context, comment *models.Comment, post *models.Post) {
	if comment == nil || post == nil || comment.AuthorID == post.AuthorID {
		return
	}
	c, p := *comment, *post
	d.tasks.Go(ctx, "notify.comment", func(ctx context.Context) {
		actor := d.senderName(ctx, c.AuthorID)
		url := fmt.Sprintf("/blog/%s#comment-%d", p.Slug, c.ID)
		d.notifyUser(ctx, p.AuthorID, CreateInput{
			Type:     models.NotificationTypeComment,
			Title:    actor + " commented on your post",
			Message:  content.Truncate(c.Content, commentPreviewLen),
			URL:      url,
			SenderID: c.AuthorID,
		})
	})
}

// NotifyLike tells the post author about a new like.
func (d *Dispatcher) NotifyLike(ctx context.Context, actorID uint, post *models.Post) {
	if post == nil || actorID == post.AuthorID {
		return
	}
	p := *post
	d.tasks.Go(ctx, "notify.like", func(ctx context.Context) {
		d.notifyUser(ctx, p.AuthorID, CreateInput{
			Type:     models.NotificationTypeLike,
			Title:    d.senderName(ctx, actorID) + " liked your post",
			Message:  p.Title,
			URL:      "/blog/" + p.Slug,
			SenderID: actorID,
		})
	})
}

// NotifyFollow tells a user about a new follower.
func (d *Dispatcher) NotifyFollow(ctx context.Context, followerID, followingID uint) {
	if followerID == followingID {
		return
	}
	d.tasks.Go(ctx, "notify.follow", func(ctx context.Context) {
		d.notifyUser(ctx, followingID, CreateInput{
			Type:     models.NotificationTypeFollow,
			Title:    d.senderName(ctx, followerID) + " started following you",
			Message:  "Check out their profile to see their posts",
			URL:      "/profile/" + strconv.FormatUint(uint64(followerID), 10),
			SenderID: followerID,
		})
	})
}

// Wait blocks until in-flight notification tasks finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	return d.tasks.Wait(ctx)
}

func (d *Dispatcher) fanOutNewPost(ctx context.Context, post *models.Post) error {
	followers, err := d.social.Followers(ctx, post.AuthorID)
	if err != nil {
		return fmt.Errorf("load followers: %w", err)
	}
	if len(followers) == 0 {
		return nil
	}

	author := "a user"
	if u, err := d.users.GetByID(ctx, post.AuthorID); err == nil {
		author = u.DisplayName(author)
	}
	in := CreateInput{
		Type:     models.NotificationTypeNewPost,
		Title:    "New post from " + author,
		Message:  post.Title,
		URL:      "/blog/" + post.Slug,
		SenderID: post.AuthorID,
	}

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i := range followers {
		follower := &followers[i]
		if follower.ID == post.AuthorID || !follower.Wants(in.Type) {
			continue
		}
		g.Go(func() error {
			one := in
			one.UserID = follower.ID
			if _, err := d.Create(ctx, one); err != nil {
				observability.LogAsyncOperationError(ctx, "notify.new_post", err, map[string]any{
					"post_id":     post.ID,
					"follower_id": follower.ID,
				})
			}
			return nil
		})
	}
	return g.Wait()
}

// notifyUser checks the recipient's preference before creating.
func (d *Dispatcher) notifyUser(ctx context.Context, recipientID uint, in CreateInput) {
	recipient, err := d.users.GetByID(ctx, recipientID)
	if err != nil {
		observability.LogAsyncOperationError(ctx, "notify."+string(in.Type), err, map[string]any{"recipient_id": recipientID})
		return
	}
	if !recipient.Wants(in.Type) {
		return
	}
	in.UserID = recipientID
	if _, err := d.Create(ctx, in); err != nil {
		observability.LogAsyncOperationError(ctx, "notify."+string(in.Type), err, map[string]any{"recipient_id": recipientID})
	}
}

func (d *Dispatcher) senderName(ctx context.Context, userID uint) string {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return "Someone"
	}
	return u.DisplayName("Someone")
}

// Create stores a notification and delivers it in realtime and by push.
// Delivery failures are logged and never undo the stored row.
func (d *Dispatcher) Create(ctx context.Context, in CreateInput) (*models.Notification, error) {
	if in.UserID == 0 || in.Type == "" {
		return nil, errors.New("notification recipient and type are required")
	}
	n := &models.Notification{
		UserID:  in.UserID,
		Type:    in.Type,
		Title:   in.Title,
		Message: in.Message,
		URL:     in.URL,
	}
	if in.SenderID != 0 {
		sender := in.SenderID
		n.SenderID = &sender
	}
	if err := d.notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	observability.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()

	d.publish(ctx, n)
	d.deliverPush(ctx, n)
	return n, nil
}

func (d *Dispatcher) publish(ctx context.Context, n *models.Notification) {
	if d.publisher == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "failed to encode notification", slog.String("error", err.Error()))
		return
	}
	if err := d.publisher.PublishUser(ctx, n.UserID, string(payload)); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "failed to publish notification",
			slog.Uint64("user_id", uint64(n.UserID)),
			slog.String("error", err.Error()),
		)
	}
}

func (d *Dispatcher) deliverPush(ctx context.Context, n *models.Notification) {
	if !d.flags.Enabled(featureflags.WebPush, n.UserID) {
		return
	}
	subs, err := d.notifications.ListSubscriptions(ctx, n.UserID)
	if err != nil {
		observability.LogAsyncOperationError(ctx, "push.list_subscriptions", err, map[string]any{"user_id": n.UserID})
		return
	}
	if len(subs) == 0 {
		return
	}
	payload, err := NewPushPayload(n)
	if err != nil {
		observability.LogAsyncOperationError(ctx, "push.encode", err, map[string]any{"notification_id": n.ID})
		return
	}

	for _, sub := range subs {
		if err := d.limiter.Wait(ctx); err != nil {
			observability.PushDeliveries.WithLabelValues(observability.PushSkipped).Inc()
			return
		}
		status, err := d.push.Send(ctx, sub, payload)
		switch {
		case errors.Is(err, ErrPushDisabled):
			observability.PushDeliveries.WithLabelValues(observability.PushSkipped).Inc()
			return
		case subscriptionGone(status):
			observability.PushDeliveries.WithLabelValues(observability.PushPruned).Inc()
			if err := d.notifications.DeleteSubscriptionByID(ctx, sub.ID); err != nil {
				observability.LogAsyncOperationError(ctx, "push.prune", err, map[string]any{"subscription_id": sub.ID})
			}
		case err != nil:
			observability.PushDeliveries.WithLabelValues(observability.PushFailed).Inc()
			observability.GlobalLogger.WarnContext(ctx, "push delivery failed",
				slog.Uint64("subscription_id", uint64(sub.ID)),
				slog.Int("status", status),
				slog.String("error", err.Error()),
			)
		default:
			observability.PushDeliveries.WithLabelValues(observability.PushDelivered).Inc()
		}
	}
}
