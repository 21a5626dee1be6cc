package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type lease struct {
	token   string
	expires time.Time
}

// memRedis implements the few commands the locker sends, with real expiry.
type memRedis struct {
	goredis.Cmdable

	mu      sync.Mutex
	keys    map[string]lease
	extends int
}

func newMemRedis() *memRedis { return &memRedis{keys: map[string]lease{}} }

func (m *memRedis) live(key string) (lease, bool) {
	l, ok := m.keys[key]
	if !ok || !time.Now().Before(l.expires) {
		return lease{}, false
	}
	return l, true
}

func (m *memRedis) SetNX(_ context.Context, key string, value interface{}, exp time.Duration) *goredis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return goredis.NewBoolResult(false, nil)
	}
	m.keys[key] = lease{token: value.(string), expires: time.Now().Add(exp)}
	return goredis.NewBoolResult(true, nil)
}

func (m *memRedis) EvalSha(_ context.Context, sha string, keys []string, args ...interface{}) *goredis.Cmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.live(keys[0])
	owned := ok && l.token == args[0].(string)
	switch sha {
	case releaseScript.Hash():
		if !owned {
			return goredis.NewCmdResult(int64(0), nil)
		}
		delete(m.keys, keys[0])
		return goredis.NewCmdResult(int64(1), nil)
	case extendScript.Hash():
		if !owned {
			return goredis.NewCmdResult(int64(0), nil)
		}
		l.expires = time.Now().Add(time.Duration(args[1].(int64)) * time.Millisecond)
		m.keys[keys[0]] = l
		m.extends++
		return goredis.NewCmdResult(int64(1), nil)
	}
	return goredis.NewCmdResult(nil, errors.New("NOSCRIPT no matching script"))
}

func (m *memRedis) extendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extends
}

func TestLocker_RenewsWhileHeld(t *testing.T) {
	rdb := newMemRedis()
	l := NewLocker(rdb, "test:", 90*time.Millisecond)
	ctx := context.Background()

	release, err := l.TryLock(ctx, "user-1")
	require.NoError(t, err)

	// well past the original ttl
	time.Sleep(300 * time.Millisecond)
	_, err = l.TryLock(ctx, "user-1")
	require.ErrorIs(t, err, ErrLockHeld)
	require.Positive(t, rdb.extendCount())

	release()
	release()
	again, err := l.TryLock(ctx, "user-1")
	require.NoError(t, err)
	again()
}

func TestLocker_StopsRenewingALostLease(t *testing.T) {
	rdb := newMemRedis()
	l := NewLocker(rdb, "test:", 60*time.Millisecond)
	ctx := context.Background()

	release, err := l.TryLock(ctx, "user-2")
	require.NoError(t, err)

	rdb.mu.Lock()
	delete(rdb.keys, "test:user-2")
	rdb.mu.Unlock()

	other, err := l.TryLock(ctx, "user-2")
	require.NoError(t, err)
	time.Sleep(150 * time.Millisecond)

	// the first holder neither extends nor deletes the new owner's lease
	release()
	_, err = l.TryLock(ctx, "user-2")
	require.ErrorIs(t, err, ErrLockHeld)
	other()
}

func TestLocker_LockWaitsForRelease(t *testing.T) {
	l := NewLocker(newMemRedis(), "test:", time.Second)
	l.retry = 5 * time.Millisecond
	ctx := context.Background()

	release, err := l.TryLock(ctx, "user-3")
	require.NoError(t, err)
	go func() {
		time.Sleep(30 * time.Millisecond)
		release()
	}()

	got, err := l.Lock(ctx, "user-3")
	require.NoError(t, err)
	got()

	held, err := l.TryLock(ctx, "user-3")
	require.NoError(t, err)
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(short, "user-3")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	held()
}
