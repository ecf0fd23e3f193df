package service

import (
	"fmt"

	"recipe-importer/internal/core/ai/cache"
	"recipe-importer/internal/core/ai/openrouter"
	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/core/ai/proxy"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// NewProvider 依 completion.provider 建立補全後端
func NewProvider(cfg *config.Config) (provider.Completer, error) {
	switch cfg.Completion.Provider {
	case config.ProviderOpenRouter, "":
		if cfg.OpenRouter.APIKey == "" {
			return nil, fmt.Errorf("openrouter api key is required")
		}
		return openrouter.NewClient(cfg.OpenRouter), nil
	case config.ProviderProxy:
		if cfg.Completion.ProxyURL == "" {
			return nil, fmt.Errorf("completion proxy URL is required")
		}
		return proxy.NewClient(cfg.Completion.ProxyURL), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Completion.Provider)
	}
}

// NewFromConfig 建立補全後端、快取與 AI 服務
// 返回的快取由呼叫端負責關閉，未啟用時為 nil
func NewFromConfig(cfg *config.Config, opts ...Option) (*Service, cache.Store, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing completion cache: %w", err)
	}

	svc, err := NewService(p, store, cfg.Completion.Timeout, opts...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}

	common.LogInfo("AI 服務已初始化",
		zap.String("provider", p.Name()),
		zap.Bool("cache_enabled", store != nil),
		zap.Duration("timeout", cfg.Completion.Timeout),
	)
	return svc, store, nil
}
