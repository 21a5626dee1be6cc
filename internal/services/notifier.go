package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/planadapt-backend/internal/clients/redis"
	"github.com/yungbote/planadapt-backend/internal/data/repos"
	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/clock"
	"github.com/yungbote/planadapt-backend/internal/platform/dbctx"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

// =========================
// Notifier
// =========================

// Notifier delivers user-facing messages. Callers treat it as fire-and-forget:
// a failure is logged and counted here and must never undo the caller's write.
type Notifier interface {
	Notify(ctx context.Context, n *types.Notification) error
}

type notifier struct {
	log     *logger.Logger
	repo    repos.NotificationRepo
	bus     redis.NotificationBus
	clk     clock.Clock
	metrics *observability.Metrics
}

// NewNotifier persists an in-app row and, when bus is non-nil, publishes it.
func NewNotifier(log *logger.Logger, repo repos.NotificationRepo, bus redis.NotificationBus, clk clock.Clock, metrics *observability.Metrics) Notifier {
	return &notifier{
		log:     log.With("service", "Notifier"),
		repo:    repo,
		bus:     bus,
		clk:     clk,
		metrics: metrics,
	}
}

func (n *notifier) Notify(ctx context.Context, msg *types.Notification) error {
	if n == nil || msg == nil || msg.UserID == uuid.Nil {
		return nil
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = clock.Now(n.clk)
	}
	if err := n.repo.Create(dbctx.Background(ctx), msg); err != nil {
		n.metrics.IncNotification("failed")
		n.log.Warn("notification persist failed", "user_id", msg.UserID, "ref_type", msg.RefType, "error", err)
		return fmt.Errorf("persist notification: %w", err)
	}
	if n.bus != nil {
		if err := n.bus.Publish(ctx, msg); err != nil {
			n.metrics.IncNotification("publish_failed")
			n.log.Warn("notification publish failed", "user_id", msg.UserID, "notification_id", msg.ID, "error", err)
			return nil
		}
	}
	n.metrics.IncNotification("sent")
	return nil
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(ctx context.Context, n *types.Notification) error

func (f NotifyFunc) Notify(ctx context.Context, n *types.Notification) error { return f(ctx, n) }
