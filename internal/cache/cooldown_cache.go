package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CooldownCache tracks when a user last answered each bank item, as a
// ZSET scored by answer time. It is the hot path for repeat-exposure
// filtering during question selection; the response collection remains
// the authoritative record.
type CooldownCache interface {
	MarkAnswered(ctx context.Context, userID, objectiveID, questionID string, at time.Time) error

	// RecentlyAnswered returns the question ids the user answered at or
	// after the cutoff.
	RecentlyAnswered(ctx context.Context, userID, objectiveID string, cutoff time.Time) ([]string, error)

	// Prune drops entries older than the cutoff so the set stays
	// bounded by the cooldown window.
	Prune(ctx context.Context, userID, objectiveID string, cutoff time.Time) error
}

type cooldownCache struct {
	client *redis.Client
}

// NewCooldownCache creates a new cooldown cache
func NewCooldownCache(client *redis.Client) CooldownCache {
	return &cooldownCache{
		client: client,
	}
}

func (c *cooldownCache) key(userID, objectiveID string) string {
	return fmt.Sprintf("cooldown:%s:%s", userID, objectiveID)
}

func (c *cooldownCache) MarkAnswered(ctx context.Context, userID, objectiveID, questionID string, at time.Time) error {
	return c.client.ZAdd(ctx, c.key(userID, objectiveID), redis.Z{
		Score:  float64(at.Unix()),
		Member: questionID,
	}).Err()
}

func (c *cooldownCache) RecentlyAnswered(ctx context.Context, userID, objectiveID string, cutoff time.Time) ([]string, error) {
	return c.client.ZRangeByScore(ctx, c.key(userID, objectiveID), &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff.Unix(), 10),
		Max: "+inf",
	}).Result()
}

func (c *cooldownCache) Prune(ctx context.Context, userID, objectiveID string, cutoff time.Time) error {
	max := strconv.FormatInt(cutoff.Unix()-1, 10)
	return c.client.ZRemRangeByScore(ctx, c.key(userID, objectiveID), "-inf", max).Err()
}
