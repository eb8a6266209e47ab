package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MedCatGit/catalog_api/internal/utils"
)

const reportKey = "catalog:import:last_report"

// ReportCache keeps the most recent import pass report available to the API.
type ReportCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewReportCache creates a ReportCache. Reports are retained for ttl; zero
// means keep until overwritten.
func NewReportCache(redis *RedisClient, ttl time.Duration) *ReportCache {
	return &ReportCache{redis: redis, ttl: ttl}
}

// Store serializes and stores the report as the latest one.
func (c *ReportCache) Store(ctx context.Context, report any) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, reportKey, string(payload), c.ttl)
}

// Load reads the latest report into out. Returns utils.ErrNoReport when no
// pass has completed yet.
func (c *ReportCache) Load(ctx context.Context, out any) error {
	raw, err := c.redis.Get(ctx, reportKey)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return utils.ErrNoReport
		}
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}
