// Package cache keeps nickname profile lookups in Redis in front of the
// persistent store.
//
//	Key:   profile:<nickname>
//	Value: <profile url>
//	TTL:   configured profile TTL
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/johndosdos/chatroom/internal/chat"
	"github.com/redis/go-redis/v9"
)

// ProfilePrefix is the Redis key prefix for cached profiles.
const ProfilePrefix = "profile:"

// ProfileCache is a chat.Store that serves GetProfile from Redis when it can.
// Every other call goes straight to the wrapped store. Redis failures are
// logged and fall through to the store.
type ProfileCache struct {
	chat.Store
	client *redis.Client
	ttl    time.Duration
}

func NewProfileCache(next chat.Store, client *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{Store: next, client: client, ttl: ttl}
}

func (c *ProfileCache) GetProfile(ctx context.Context, nickname string) (string, bool, error) {
	key := ProfilePrefix + nickname

	url, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return url, true, nil
	}
	if !errors.Is(err, redis.Nil) {
		slog.WarnContext(ctx, "profile cache read failed",
			"error", err,
			"nickname", nickname)
	}

	url, found, err := c.Store.GetProfile(ctx, nickname)
	if err != nil || !found {
		return url, found, err
	}

	if err := c.client.Set(ctx, key, url, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "profile cache write failed",
			"error", err,
			"nickname", nickname)
	}
	return url, true, nil
}

func (c *ProfileCache) UpsertProfile(ctx context.Context, nickname, url string) error {
	if err := c.Store.UpsertProfile(ctx, nickname, url); err != nil {
		// A stale entry would outlive the failed write.
		c.client.Del(ctx, ProfilePrefix+nickname)
		return err
	}

	if err := c.client.Set(ctx, ProfilePrefix+nickname, url, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "profile cache write failed",
			"error", err,
			"nickname", nickname)
	}
	return nil
}
