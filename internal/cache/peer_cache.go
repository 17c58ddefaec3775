package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"acumen/internal/model"
)

const (
	peerPoolKey         = "peers:calibration"
	peerDistributionKey = "peers:distribution"
)

// PeerCache handles Redis state for the anonymous peer comparison pool:
// a ZSET of per-user calibration correlations and a JSON snapshot of
// the derived distribution. The snapshot expires so a stalled refresh
// worker cannot serve stale comparisons forever.
type PeerCache interface {
	SetCorrelation(ctx context.Context, userID string, correlation float64) error
	RemoveUser(ctx context.Context, userID string) error
	PoolSize(ctx context.Context) (int64, error)

	// GetCorrelations returns every pooled correlation value, ascending.
	GetCorrelations(ctx context.Context) ([]float64, error)

	SetDistribution(ctx context.Context, dist *model.PeerDistribution) error
	GetDistribution(ctx context.Context) (*model.PeerDistribution, error)
}

type peerCache struct {
	client      *redis.Client
	snapshotTTL time.Duration
}

// NewPeerCache creates a new peer pool cache
func NewPeerCache(client *redis.Client) PeerCache {
	return &peerCache{
		client:      client,
		snapshotTTL: 24 * time.Hour,
	}
}

func (c *peerCache) SetCorrelation(ctx context.Context, userID string, correlation float64) error {
	return c.client.ZAdd(ctx, peerPoolKey, redis.Z{
		Score:  correlation,
		Member: userID,
	}).Err()
}

func (c *peerCache) RemoveUser(ctx context.Context, userID string) error {
	return c.client.ZRem(ctx, peerPoolKey, userID).Err()
}

func (c *peerCache) PoolSize(ctx context.Context) (int64, error) {
	return c.client.ZCard(ctx, peerPoolKey).Result()
}

func (c *peerCache) GetCorrelations(ctx context.Context) ([]float64, error) {
	results, err := c.client.ZRangeWithScores(ctx, peerPoolKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	correlations := make([]float64, len(results))
	for i, z := range results {
		correlations[i] = z.Score
	}
	return correlations, nil
}

func (c *peerCache) SetDistribution(ctx context.Context, dist *model.PeerDistribution) error {
	data, err := json.Marshal(dist)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, peerDistributionKey, data, c.snapshotTTL).Err()
}

func (c *peerCache) GetDistribution(ctx context.Context) (*model.PeerDistribution, error) {
	data, err := c.client.Get(ctx, peerDistributionKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var dist model.PeerDistribution
	if err := json.Unmarshal([]byte(data), &dist); err != nil {
		return nil, err
	}
	return &dist, nil
}
