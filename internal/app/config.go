package app

import (
	"time"

	"github.com/yungbote/planadapt-backend/internal/clients/redis"
	"github.com/yungbote/planadapt-backend/internal/jobs/scheduler"
	"github.com/yungbote/planadapt-backend/internal/observability"
	"github.com/yungbote/planadapt-backend/internal/platform/envutil"
	"github.com/yungbote/planadapt-backend/internal/temporalx"
)

type Config struct {
	LogMode    string
	HTTPAddr   string
	DBDriver   string
	SQLitePath string
	ParamsFile string

	MetricsEnabled bool
	// LockTTL is the Redis lease length; a held lease is renewed until release.
	LockTTL time.Duration

	Redis     redis.Config
	Temporal  temporalx.Config
	Scheduler scheduler.Config
	Otel      observability.OtelConfig
}

func LoadConfig() Config {
	return Config{
		LogMode:    envutil.String("LOG_MODE", "development"),
		HTTPAddr:   envutil.String("HTTP_ADDR", ":8080"),
		DBDriver:   envutil.String("DB_DRIVER", "postgres"),
		SQLitePath: envutil.String("SQLITE_PATH", "planadapt.db"),
		ParamsFile: envutil.String("ADAPTATION_PARAMS_FILE", ""),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true),
		LockTTL:        envutil.Duration("USER_LOCK_TTL", 2*time.Minute),

		Redis:     redis.ConfigFromEnv(),
		Temporal:  temporalx.LoadConfig(),
		Scheduler: scheduler.ConfigFromEnv(),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "planadapt"),
			Environment: envutil.String("OTEL_ENVIRONMENT", "development"),
			Version:     envutil.String("OTEL_SERVICE_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			SampleRatio: envutil.Float("OTEL_TRACES_SAMPLER_RATIO", 1),
		},
	}
}
