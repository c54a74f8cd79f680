package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ressKim-io/stance-classifier/internal/adapter/http/handler"
	"github.com/ressKim-io/stance-classifier/internal/adapter/http/middleware"
	"github.com/ressKim-io/stance-classifier/internal/usecase"
)

// Dependencies are the components the status listener reports on.
// Every field except State and Registry may be nil.
type Dependencies struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Model    handler.ModelChecker
	State    *usecase.RunState
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// Setup creates the Gin router of the status listener
func Setup(deps Dependencies) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))

	// Health endpoints
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Redis, deps.Model)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// Run status
	statusHandler := handler.NewStatusHandler(deps.State)
	router.GET("/status", statusHandler.Status)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	router.NoRoute(handler.NotFound)

	return router
}
