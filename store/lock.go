package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"bvstock/models"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Locker serialises writers that touch the same stock items across
// processes. The returned release func is always non-nil.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (release func(), err error)
}

type NoopLocker struct{}

func (NoopLocker) Lock(context.Context, ...string) (func(), error) {
	return func() {}, nil
}

// lockTTL outlives a whole reconciliation, which may run several store
// operations each bounded by opTimeout.
const (
	lockTTL     = 3 * opTimeout
	lockWait    = 2 * time.Second
	lockBackoff = 50 * time.Millisecond
)

// RedisLocker takes one redislock lock per key, in sorted order so two
// writers never wait on each other crosswise. Redis being unreachable is
// logged and otherwise ignored; the store's guarded writes still hold.
type RedisLocker struct {
	client *redislock.Client
	logger *logrus.Logger
}

func NewRedisLocker(rdb *redis.Client, logger *logrus.Logger) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), logger: logger}
}

func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = uniqueSorted(keys)
	held := make([]*redislock.Lock, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.WithField("key", held[i].Key()).Warn("failed to release redis lock: " + err.Error())
			}
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()
	for _, key := range keys {
		lock, err := l.client.Obtain(waitCtx, "stock:"+key, lockTTL, &redislock.Options{
			RetryStrategy: redislock.LinearBackoff(lockBackoff),
		})
		if ctx.Err() != nil {
			release()
			return func() {}, ctx.Err()
		}
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			release()
			return func() {}, models.ErrConflict
		}
		if err != nil {
			l.logger.WithField("key", key).Warn("error obtaining redis lock; proceeding without it: " + err.Error())
			continue
		}
		held = append(held, lock)
	}
	return release, nil
}

func uniqueSorted(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
