// Package lock provides short-lived named locks used to keep two imports
// into the same workspace from running at once.
//
// The Redis implementation is advisory: it narrows the race between two
// imports reading the same set of existing emails. Uniqueness itself is
// guaranteed by the database index.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired is returned when the lock is held by someone else.
var ErrNotAcquired = errors.New("lock is held by another owner")

// Locker hands out named locks.
type Locker interface {
	// Acquire takes key for at most ttl. It does not wait.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
	// Extend pushes the expiry out to ttl from now. It returns
	// ErrNotAcquired once the lease has expired or been taken over.
	Extend(ctx context.Context, ttl time.Duration) error
}

// Redis locks with SET NX PX and a random owner token. Release and Extend
// only act when the caller still owns the key.
type Redis struct {
	client *redis.Client
	prefix string
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// NewRedis returns a Locker storing keys as "<prefix><key>".
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "lock:"
	}
	return &Redis{client: client, prefix: prefix}
}

// Acquire implements Locker.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	full := r.prefix + key
	ok, err := r.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", full, err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &redisLease{client: r.client, key: full, token: token}, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
}

func (l *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}

func (l *redisLease) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", l.key, err)
	}
	if n == 0 {
		return ErrNotAcquired
	}
	return nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Nop grants every lock. It is used when Redis is not configured.
type Nop struct{}

// Acquire implements Locker.
func (Nop) Acquire(context.Context, string, time.Duration) (Lease, error) {
	return nopLease{}, nil
}

type nopLease struct{}

func (nopLease) Release(context.Context) error                { return nil }
func (nopLease) Extend(context.Context, time.Duration) error { return nil }
