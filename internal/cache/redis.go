// Package cache wraps the optional redis collaborator. A nil *Redis is valid
// and turns every operation into a no-op, so deployments without redis still
// work with a single process.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

func New(ctx context.Context, addr, password string, db int, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &Redis{client: client, logger: logger.With("component", "cache")}, nil
}

func sessionLockKey(sessionID string) string {
	return "bankchat:lock:session:" + sessionID
}

// AcquireSessionLock takes a short exclusive lock on a session so that two
// concurrent requests cannot interleave turns of the same conversation. The
// returned release function is safe to call exactly once; the TTL bounds the
// lock if the process dies mid-turn.
func (r *Redis) AcquireSessionLock(ctx context.Context, sessionID string, ttl time.Duration) (release func(), ok bool) {
	if r == nil {
		return func() {}, true
	}
	key := sessionLockKey(sessionID)
	token := uuid.NewString()

	set, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		r.logger.Warn("session lock unavailable, proceeding without", "session_id", sessionID, "error", err)
		return func() {}, true
	}
	if !set {
		return nil, false
	}
	return func() {
		// Only release a lock we still hold; an expired lock may belong to
		// another request by now.
		val, err := r.client.Get(context.Background(), key).Result()
		if err != nil || val != token {
			return
		}
		if err := r.client.Del(context.Background(), key).Err(); err != nil {
			r.logger.Warn("release session lock", "session_id", sessionID, "error", err)
		}
	}, true
}

func (r *Redis) Close() {
	if r == nil {
		return
	}
	if err := r.client.Close(); err != nil {
		r.logger.Warn("close redis", "error", err)
	}
}
