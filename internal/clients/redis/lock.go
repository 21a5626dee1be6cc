package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the key.
var ErrLockHeld = errors.New("lock held")

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker is a single-instance advisory lock over SET NX PX. A held lock is
// renewed every ttl/3 until it is released, so ttl bounds how long a crashed
// holder blocks others, not how long a run may take.
type Locker struct {
	rdb    goredis.Cmdable
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func NewLocker(rdb goredis.Cmdable, prefix string, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Locker{rdb: rdb, prefix: prefix, ttl: ttl, retry: 100 * time.Millisecond}
}

// TryLock acquires key once. The returned func stops renewal and releases
// only our own token; calling it more than once is harmless.
func (l *Locker) TryLock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	full := l.prefix + key
	ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", full, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.renew(full, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.rdb, []string{full}, token).Err()
		})
	}, nil
}

// renew extends the lease until stop closes or the token is gone. A failed
// call is retried on the next tick while the lease may still be alive.
func (l *Locker) renew(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	every := l.ttl / 3
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), every)
			n, err := extendScript.Run(ctx, l.rdb, []string{key}, token, l.ttl.Milliseconds()).Int64()
			cancel()
			if err == nil && n == 0 {
				return
			}
		}
	}
}

// Lock retries TryLock until it succeeds or ctx ends.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	for {
		release, err := l.TryLock(ctx, key)
		if err == nil {
			return release, nil
		}
		if !errors.Is(err, ErrLockHeld) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}
