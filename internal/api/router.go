package api

import (
	"fmt"
	"time"

	"recipe-importer/internal/api/handlers/health"
	recipeHandler "recipe-importer/internal/api/handlers/recipe"
	"recipe-importer/internal/api/middleware"
	"recipe-importer/internal/core/ai/cache"
	"recipe-importer/internal/core/queue"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由所需的服務
type Dependencies struct {
	Importer recipeHandler.Importer
	Queue    *queue.Manager
	Saver    recipeHandler.Saver      // 可為 nil
	Cache    cache.Store              // 可為 nil
	Dedup    *middleware.Deduplicator // 可為 nil
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Importer == nil || deps.Queue == nil {
		return nil, fmt.Errorf("importer and queue are required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))

	// 注入設定與狀態來源，供健康檢查使用
	router.Use(func(c *gin.Context) {
		c.Set("config", cfg)
		c.Set("import_queue", deps.Queue)
		if stats, ok := deps.Cache.(health.CacheStatsProvider); ok {
			c.Set("completion_cache", stats)
		}
		c.Next()
	})

	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	handler := recipeHandler.NewHandler(deps.Importer, deps.Queue, deps.Saver, cfg.Import.MaxBatchSize, cfg.App.Debug)

	api := router.Group("/api/v1")
	api.Use(middleware.RateLimit(cfg.RateLimit))
	api.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	{
		recipeGroup := api.Group("/recipes")
		{
			recipeGroup.POST("/classify", handler.HandleClassify)

			importGroup := recipeGroup.Group("/import")
			if deps.Dedup != nil {
				importGroup.Use(deps.Dedup.Middleware())
			}
			importGroup.POST("", handler.HandleImport)
			importGroup.POST("/batch", handler.HandleBatchImport)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("saver_configured", deps.Saver != nil),
		zap.Bool("cache_enabled", deps.Cache != nil),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("request_timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}
