package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"acumen/internal/model"
)

// SessionCache holds the hot copy of an active session. Mongo stays
// authoritative; a cache miss is answered from the repository and the
// TTL only has to outlive the fatigue window.
type SessionCache interface {
	Set(ctx context.Context, session *model.AdaptiveSession) error
	Get(ctx context.Context, id string) (*model.AdaptiveSession, error)
	Delete(ctx context.Context, id string) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    time.Hour,
	}
}

func (c *sessionCache) Set(ctx context.Context, session *model.AdaptiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "session:"+session.ID, data, c.ttl).Err()
}

func (c *sessionCache) Get(ctx context.Context, id string) (*model.AdaptiveSession, error) {
	data, err := c.client.Get(ctx, "session:"+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session model.AdaptiveSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *sessionCache) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, "session:"+id).Err()
}
