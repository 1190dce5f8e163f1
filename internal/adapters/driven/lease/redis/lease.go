// Package redis provides a RefreshLease shared by every process that talks
// to the same Redis server.
package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/delegate/internal/core/ports/driven"
	"github.com/custodia-labs/delegate/internal/logger"
)

// Ensure Lease implements the interface.
var _ driven.RefreshLease = (*Lease)(nil)

const (
	// DefaultTTL bounds how long a crashed holder can block a key. A live
	// holder renews the key every TTL/3 until it releases.
	DefaultTTL = 45 * time.Second
	// DefaultRetryDelay is the polling interval while the key is held elsewhere.
	DefaultRetryDelay = 50 * time.Millisecond
	// DefaultPrefix namespaces lease keys.
	DefaultPrefix = "delegate:lease:"
)

// releaseScript deletes the key only if it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the key's TTL only if it still carries our token.
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Config configures the Redis lease.
type Config struct {
	TTL        time.Duration
	RetryDelay time.Duration
	Prefix     string
}

// Lease implements driven.RefreshLease with SET NX PX.
type Lease struct {
	client     goredis.UniversalClient
	ttl        time.Duration
	retryDelay time.Duration
	prefix     string
}

// NewLease creates a Redis-backed lease. Zero config values take defaults.
func NewLease(client goredis.UniversalClient, cfg Config) *Lease {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	return &Lease{
		client:     client,
		ttl:        cfg.TTL,
		retryDelay: cfg.RetryDelay,
		prefix:     cfg.Prefix,
	}
}

// Acquire polls until the key is set by this caller or ctx is done.
func (l *Lease) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(l.retryDelay)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lease %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	renewCtx, stopRenew := context.WithCancel(context.WithoutCancel(ctx))
	renewed := make(chan struct{})
	go l.renew(renewCtx, key, redisKey, token, renewed)

	var once sync.Once
	return func() {
		once.Do(func() {
			stopRenew()
			<-renewed

			// Release even when the holder's context is already done.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
			if err != nil && !errors.Is(err, goredis.Nil) {
				logger.Warn("Release of lease %s failed: %v", key, err)
			}
		})
	}, nil
}

// renew extends the key's TTL until ctx is cancelled or the key is lost.
func (l *Lease) renew(ctx context.Context, key, redisKey, token string, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := renewScript.Run(ctx, l.client, []string{redisKey}, token, l.ttl.Milliseconds()).Int()
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			logger.Warn("Renewal of lease %s failed: %v", key, err)
		case n == 0:
			logger.Warn("Lease %s was lost before release", key)
			return
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lease token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
