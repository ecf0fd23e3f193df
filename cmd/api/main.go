package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-importer/internal/api"
	"recipe-importer/internal/api/middleware"
	"recipe-importer/internal/core/ai/service"
	"recipe-importer/internal/core/queue"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/core/storage"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("completion_provider", cfg.Completion.Provider),
		zap.String("openrouter_api_key", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	aiService, cacheStore, err := service.NewFromConfig(cfg, service.WithValidator(recipe.ValidateAIResponse))
	if err != nil {
		common.LogFatal("Failed to initialize AI service", zap.Error(err))
	}
	if cacheStore != nil {
		defer cacheStore.Close()
	}

	importer, err := recipe.NewImportService(recipe.NewPageFetcher(cfg.Fetch), aiService, cfg.Import.MaxPromptChars)
	if err != nil {
		common.LogFatal("Failed to initialize import service", zap.Error(err))
	}

	importQueue := queue.NewManager(cfg.Queue, importer.Import)
	defer importQueue.Close()

	deps := api.Dependencies{
		Importer: importer,
		Queue:    importQueue,
		Cache:    cacheStore,
	}
	if cfg.Storage.BaseURL != "" {
		storageClient, err := storage.NewClient(cfg.Storage)
		if err != nil {
			common.LogFatal("Failed to initialize storage client", zap.Error(err))
		}
		deps.Saver = storageClient
	}
	if cfg.DedupWindow > 0 {
		dedup := middleware.NewDeduplicator(cfg.DedupWindow)
		defer dedup.Close()
		deps.Dedup = dedup
	}

	router, err := api.SetupRouter(cfg, deps)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}
