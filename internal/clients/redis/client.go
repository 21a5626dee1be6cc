package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/planadapt-backend/internal/platform/envutil"
	"github.com/yungbote/planadapt-backend/internal/platform/logger"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// ConfigFromEnv reads REDIS_*; an empty Addr means Redis is not configured.
func ConfigFromEnv() Config {
	return Config{
		Addr:     strings.TrimSpace(envutil.String("REDIS_ADDR", "")),
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
		Channel:  envutil.String("REDIS_CHANNEL", "notifications"),
	}
}

// NewClient dials and pings Redis.
func NewClient(log *logger.Logger, cfg Config) (*goredis.Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	log.Info("redis connected", "addr", cfg.Addr, "db", cfg.DB)
	return rdb, nil
}
