package health

import (
	"net/http"
	"runtime"
	"time"

	"recipe-importer/internal/core/queue"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// QueueStatusProvider 提供隊列狀態
type QueueStatusProvider interface {
	GetQueueStatus() *queue.Status
}

// CacheStatsProvider 提供緩存統計
type CacheStatsProvider interface {
	GetStats() map[string]interface{}
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Version    string                 `json:"version"`
	Completion string                 `json:"completion_provider"`
	Runtime    map[string]interface{} `json:"runtime"`
	Queue      *queue.Status          `json:"queue,omitempty"`
	Cache      map[string]interface{} `json:"cache,omitempty"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	cfg, ok := configFromContext(c)
	if !ok {
		common.LogError("Configuration not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Configuration not found",
		})
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:     "ok",
		Timestamp:  time.Now(),
		Version:    cfg.App.Version,
		Completion: cfg.Completion.Provider,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	if v, exists := c.Get("import_queue"); exists {
		if q, ok := v.(QueueStatusProvider); ok {
			response.Queue = q.GetQueueStatus()
		}
	}
	if v, exists := c.Get("completion_cache"); exists {
		if stats, ok := v.(CacheStatsProvider); ok {
			response.Cache = stats.GetStats()
		}
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器，匯入隊列已滿時回報未就緒
func ReadinessCheck(c *gin.Context) {
	if v, exists := c.Get("import_queue"); exists {
		if q, ok := v.(QueueStatusProvider); ok {
			status := q.GetQueueStatus()
			if status.MaxQueueSize > 0 && status.QueueLength >= status.MaxQueueSize {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "busy",
					"queue":  status,
				})
				return
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func configFromContext(c *gin.Context) (*config.Config, bool) {
	v, exists := c.Get("config")
	if !exists {
		return nil, false
	}
	cfg, ok := v.(*config.Config)
	return cfg, ok
}
