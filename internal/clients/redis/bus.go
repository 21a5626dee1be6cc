package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/planadapt-backend/internal/domain"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

// NotificationBus fans in-app notifications out to connected frontends.
type NotificationBus interface {
	Publish(ctx context.Context, n *types.Notification) error
	Subscribe(ctx context.Context, onMsg func(n *types.Notification)) error
}

type notificationBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewNotificationBus(log *logger.Logger, rdb *goredis.Client, channel string) NotificationBus {
	if channel == "" {
		channel = "notifications"
	}
	return &notificationBus{
		log:     log.With("service", "RedisNotificationBus"),
		rdb:     rdb,
		channel: channel,
	}
}

func (b *notificationBus) Publish(ctx context.Context, n *types.Notification) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis notification bus not initialized")
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// Subscribe forwards messages to onMsg until ctx ends.
func (b *notificationBus) Subscribe(ctx context.Context, onMsg func(n *types.Notification)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis notification bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var n types.Notification
				if err := json.Unmarshal([]byte(m.Payload), &n); err != nil {
					b.log.Warn("bad redis notification payload", "error", err)
					continue
				}
				onMsg(&n)
			}
		}
	}()
	return nil
}
