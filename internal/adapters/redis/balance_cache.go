// Package redis caches balance snapshots in front of the Postgres store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/recharge-service/internal/config"
	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/kevin07696/recharge-service/internal/domain/ports"
	"github.com/kevin07696/recharge-service/pkg/resilience"
	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix       = "recharge:balance:"
	connectAttempts = 3
)

// NewClient connects to a single Redis node, retrying the first ping
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("no Redis address provided")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := resilience.Retry(pingCtx, connectAttempts, resilience.ConnectBackoff(), nil,
		func(ctx context.Context) error { return client.Ping(ctx).Err() })
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// BalanceCache is a read-through, write-through cache over a
// ports.BalanceSnapshotStore. Cache failures never fail the call; the store
// stays the source of truth.
type BalanceCache struct {
	client goredis.Cmdable
	store  ports.BalanceSnapshotStore
	ttl    time.Duration
	logger ports.Logger
}

var _ ports.BalanceSnapshotStore = (*BalanceCache)(nil)

// NewBalanceCache wraps store with a Redis cache
func NewBalanceCache(client goredis.Cmdable, store ports.BalanceSnapshotStore, ttl time.Duration, logger ports.Logger) *BalanceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &BalanceCache{client: client, store: store, ttl: ttl, logger: logger}
}

// UpdateBalanceSnapshot writes the store first and refreshes the cache only
// when a row changed
func (c *BalanceCache) UpdateBalanceSnapshot(ctx context.Context, snapshot *domain.BalanceSnapshot) (int64, error) {
	rows, err := c.store.UpdateBalanceSnapshot(ctx, snapshot)
	if err != nil || rows == 0 {
		c.invalidate(ctx, snapshot.RetailerCode)
		return rows, err
	}
	c.set(ctx, snapshot)
	return rows, nil
}

// GetBalanceSnapshot serves from Redis, falling back to the store on a miss
func (c *BalanceCache) GetBalanceSnapshot(ctx context.Context, retailerCode string) (*domain.BalanceSnapshot, error) {
	data, err := c.client.Get(ctx, key(retailerCode)).Bytes()
	switch {
	case err == nil:
		var snapshot domain.BalanceSnapshot
		if jsonErr := json.Unmarshal(data, &snapshot); jsonErr == nil {
			return &snapshot, nil
		}
		c.logger.Warn("discarding unreadable cached balance", ports.String("retailer_code", retailerCode))
	case errors.Is(err, goredis.Nil):
	default:
		c.logger.Warn("balance cache read failed",
			ports.String("retailer_code", retailerCode),
			ports.Err(err))
	}

	snapshot, err := c.store.GetBalanceSnapshot(ctx, retailerCode)
	if err != nil {
		return nil, err
	}
	c.set(ctx, snapshot)
	return snapshot, nil
}

func (c *BalanceCache) set(ctx context.Context, snapshot *domain.BalanceSnapshot) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(snapshot.RetailerCode), data, c.ttl).Err(); err != nil {
		c.logger.Warn("balance cache write failed",
			ports.String("retailer_code", snapshot.RetailerCode),
			ports.Err(err))
	}
}

func (c *BalanceCache) invalidate(ctx context.Context, retailerCode string) {
	if err := c.client.Del(ctx, key(retailerCode)).Err(); err != nil {
		c.logger.Debug("balance cache invalidate failed",
			ports.String("retailer_code", retailerCode),
			ports.Err(err))
	}
}

func key(retailerCode string) string {
	return keyPrefix + retailerCode
}
