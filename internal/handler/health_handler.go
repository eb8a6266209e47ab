package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/MedCatGit/catalog_api/internal/cache"
	"github.com/MedCatGit/catalog_api/internal/utils"
)

// HealthHandler reports service and dependency health.
type HealthHandler struct {
	db    *sqlx.DB
	redis *cache.RedisClient
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *sqlx.DB, redis *cache.RedisClient) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// GetHealth pings the database and Redis and reports per-dependency status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	dbStatus := "ok"
	if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "unreachable"
	}
	redisStatus := "ok"
	if err := h.redis.Ping(ctx); err != nil {
		redisStatus = "unreachable"
	}

	code := 200
	if dbStatus != "ok" || redisStatus != "ok" {
		code = 503
	}
	utils.Success(c, code, "Health check", gin.H{
		"database": dbStatus,
		"redis":    redisStatus,
	})
}
