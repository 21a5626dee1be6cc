package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/planadapt-backend/internal/clients/redis"
)

// UserLocker serializes work for one user across the scheduler and API paths.
type UserLocker interface {
	Lock(ctx context.Context, userID uuid.UUID) (unlock func(), err error)
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// localUserLocker is an in-process keyed mutex. Entries are dropped once no
// goroutine holds or waits on them.
type localUserLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyedLock
}

func NewLocalUserLocker() UserLocker {
	return &localUserLocker{locks: map[uuid.UUID]*keyedLock{}}
}

func (l *localUserLocker) Lock(ctx context.Context, userID uuid.UUID) (func(), error) {
	l.mu.Lock()
	k, ok := l.locks[userID]
	if !ok {
		k = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[userID] = k
	}
	k.refs++
	l.mu.Unlock()

	select {
	case k.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(userID, k)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-k.ch
			l.drop(userID, k)
		})
	}, nil
}

func (l *localUserLocker) drop(userID uuid.UUID, k *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k.refs--
	if k.refs == 0 {
		delete(l.locks, userID)
	}
}

type redisUserLocker struct {
	locker *redis.Locker
}

// NewRedisUserLocker shares the per-user lock across processes.
func NewRedisUserLocker(locker *redis.Locker) UserLocker {
	return &redisUserLocker{locker: locker}
}

func (l *redisUserLocker) Lock(ctx context.Context, userID uuid.UUID) (func(), error) {
	return l.locker.Lock(ctx, "user:"+userID.String())
}
