package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-importer/internal/core/ai/cache"
	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// Service AI 服務：為補全提供者加上逾時與快取
type Service struct {
	provider provider.Completer
	cache    cache.Store
	timeout  time.Duration
	validate Validator
}

// Validator 檢查補全內容是否可用，未通過的內容不寫入快取
type Validator func(content string) error

// Option 調整 Service 設定
type Option func(*Service)

// WithValidator 只快取通過驗證的補全內容
func WithValidator(v Validator) Option {
	return func(s *Service) {
		s.validate = v
	}
}

// NewService 創建 AI 服務，cacheStore 可為 nil
func NewService(p provider.Completer, cacheStore cache.Store, timeout time.Duration, opts ...Option) (*Service, error) {
	if p == nil {
		return nil, errors.New("completion provider is required")
	}
	s := &Service{
		provider: p,
		cache:    cacheStore,
		timeout:  timeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name 返回底層提供者名稱
func (s *Service) Name() string {
	return s.provider.Name()
}

// Complete 統一對外方法
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt is empty")
	}

	key := cache.Key(s.provider.Name(), prompt)

	// 檢查緩存
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key); err == nil && val != "" {
			common.LogDebug("補全快取命中", zap.String("provider", s.provider.Name()))
			return val, nil
		} else if err != nil && !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("補全快取讀取失敗", zap.Error(err))
		}
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	content, err := s.provider.Complete(callCtx, prompt)
	if err != nil {
		return "", common.ErrAIServiceError.Wrap(fmt.Errorf("%s: %w", s.provider.Name(), err))
	}

	s.store(ctx, key, content)
	return content, nil
}

// store 寫入快取；驗證失敗的內容不快取，下次請求會重新呼叫提供者
func (s *Service) store(ctx context.Context, key, content string) {
	if s.cache == nil {
		return
	}
	if s.validate != nil {
		if err := s.validate(content); err != nil {
			common.LogDebug("補全內容未通過驗證，略過快取",
				zap.String("provider", s.provider.Name()),
				zap.Error(err),
			)
			return
		}
	}
	if err := s.cache.Set(ctx, key, content); err != nil {
		common.LogWarn("補全快取寫入失敗", zap.Error(err))
	}
}
