package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockPrefix = "urban-issues:lock:"

// releaseScript deletes the lock only while owner still holds it
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// LockClient is the part of a redis client the lock uses
type LockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Lock is a lease shared by every API instance through redis
type Lock struct {
	client LockClient
}

// NewLock returns a redis backed lock
func NewLock(client LockClient) *Lock {
	return &Lock{client: client}
}

// TryAcquire takes the named lock for owner unless someone else holds it. The lease
// expires after ttl so a crashed holder does not block the job forever.
func (l *Lock) TryAcquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, lockPrefix+name, owner, ttl).Result()
}

// Release gives up the named lock if owner still holds it
func (l *Lock) Release(ctx context.Context, name, owner string) error {
	return l.client.Eval(ctx, releaseScript, []string{lockPrefix + name}, owner).Err()
}
