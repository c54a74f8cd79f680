package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const checkTimeout = 5 * time.Second

// ModelChecker reports whether the model service can take requests
type ModelChecker interface {
	Ready(ctx context.Context) error
}

// dependency is one component the run relies on. A nil check means the
// component is not configured for this run.
type dependency struct {
	name     string
	reason   string
	required bool
	check    func(ctx context.Context) error
}

// HealthHandler reports on the model service and the optional sinks
type HealthHandler struct {
	deps []dependency
}

// NewHealthHandler creates a new health handler. Any dependency may be nil.
func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, model ModelChecker) *HealthHandler {
	h := &HealthHandler{}

	modelDep := dependency{name: "model_service", reason: "model service unavailable", required: true}
	if model != nil {
		modelDep.check = model.Ready
	}

	dbDep := dependency{name: "database", reason: "database unreachable", required: true}
	if db != nil {
		dbDep.check = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}

	// The cache is best effort, so it never blocks readiness
	cacheDep := dependency{name: "redis", reason: "cache unreachable"}
	if redisClient != nil {
		cacheDep.check = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	h.deps = []dependency{modelDep, dbDep, cacheDep}
	return h
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	components := make(map[string]string, len(h.deps))
	healthy := true

	for _, dep := range h.deps {
		if dep.check == nil {
			components[dep.name] = "not configured"
			continue
		}
		if err := dep.check(ctx); err != nil {
			components[dep.name] = "error: " + err.Error()
			healthy = false
			continue
		}
		components[dep.name] = "ok"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthStatus{
		Status:     status,
		Components: components,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	for _, dep := range h.deps {
		if !dep.required || dep.check == nil {
			continue
		}
		if err := dep.check(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": dep.reason})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
