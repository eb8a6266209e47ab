package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MedCatGit/catalog_api/internal/utils"
)

// PassLock serializes import passes over one product store. Two overlapping
// passes would race each other's find-or-create reads, so the scheduler entry
// point must hold this lock for the duration of a pass. The lock is advisory
// and keyed by store name, which also covers multiple deployments sharing a
// database.
type PassLock struct {
	redis *RedisClient
	key   string
	ttl   time.Duration
	token string
}

// NewPassLock creates a PassLock scoped to the named store. TTL bounds how
// long a crashed process can keep the store locked.
func NewPassLock(redis *RedisClient, storeName string, ttl time.Duration) *PassLock {
	return &PassLock{
		redis: redis,
		key:   fmt.Sprintf("catalog:import:lock:%s", storeName),
		ttl:   ttl,
	}
}

// Acquire takes the lock. It returns utils.ErrPassInProgress when another
// pass already holds it.
func (l *PassLock) Acquire(ctx context.Context) error {
	token := uuid.New().String()
	ok, err := l.redis.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return fmt.Errorf("pass lock acquire: %w", err)
	}
	if !ok {
		return utils.ErrPassInProgress
	}
	l.token = token
	return nil
}

// Release frees the lock if this instance still owns it. A lock that expired
// and was re-acquired elsewhere is left alone.
func (l *PassLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	current, err := l.redis.Get(ctx, l.key)
	if err != nil {
		return nil // expired or unreachable; nothing to release
	}
	if current != l.token {
		return nil
	}
	l.token = ""
	return l.redis.Delete(ctx, l.key)
}
