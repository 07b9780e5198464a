package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"dayflow/internal/database"
	"dayflow/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db    *database.MongoDB
	redis *services.RedisService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.MongoDB, redis *services.RedisService) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	mongoStatus := "ok"
	if h.db == nil {
		mongoStatus = "disabled"
	} else if err := h.db.Ping(ctx); err != nil {
		mongoStatus = "unreachable"
	}

	redisStatus := "ok"
	if h.redis == nil {
		redisStatus = "disabled"
	} else if err := h.redis.Ping(ctx); err != nil {
		redisStatus = "unreachable"
	}

	status := "healthy"
	if mongoStatus == "unreachable" || redisStatus == "unreachable" {
		status = "degraded"
	}

	return c.JSON(fiber.Map{
		"status":    status,
		"mongodb":   mongoStatus,
		"redis":     redisStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
