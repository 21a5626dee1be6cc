package temporalx

import (
	"time"

	"github.com/yungbote/planadapt-backend/internal/platform/envutil"
)

// Config drives the optional Temporal integration. An empty Address leaves
// scheduling to the in-process ticker.
type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	DialTimeout    time.Duration
	DialMaxWait    time.Duration
	DialBackoff    time.Duration
	DialBackoffMax time.Duration

	AutoRegisterNamespace bool
	RetentionDays         int
	WorkerConcurrency     int
}

func (c Config) Enabled() bool { return c.Address != "" }

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "planadapt"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "planadapt-sweeps"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		DialTimeout:    envutil.Duration("TEMPORAL_DIAL_TIMEOUT", 5*time.Second),
		DialMaxWait:    envutil.Duration("TEMPORAL_DIAL_MAX_WAIT", time.Minute),
		DialBackoff:    envutil.Duration("TEMPORAL_DIAL_BACKOFF", 250*time.Millisecond),
		DialBackoffMax: envutil.Duration("TEMPORAL_DIAL_BACKOFF_MAX", 5*time.Second),

		AutoRegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		RetentionDays:         envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7),
		WorkerConcurrency:     envutil.Int("TEMPORAL_WORKER_CONCURRENCY", 4),
	}
}
