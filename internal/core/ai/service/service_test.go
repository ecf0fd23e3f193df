package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"recipe-importer/internal/core/ai/cache"
	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_RequiresProvider(t *testing.T) {
	_, err := NewService(nil, nil, time.Second)
	assert.Error(t, err)
}

func TestService_CachesCompletions(t *testing.T) {
	var calls atomic.Int32
	p := provider.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		calls.Add(1)
		return "result for " + prompt, nil
	})

	store := cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Minute})
	defer store.Close()

	svc, err := NewService(p, store, time.Second)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := svc.Complete(context.Background(), "  hello ")
		require.NoError(t, err)
		assert.Equal(t, "result for hello", got)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestService_WrapsProviderErrors(t *testing.T) {
	p := provider.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("rate limited")
	})
	svc, err := NewService(p, nil, time.Second)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "hi")
	assert.True(t, errors.Is(err, common.ErrAIServiceError))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestService_AppliesTimeout(t *testing.T) {
	p := provider.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	svc, err := NewService(p, nil, 20*time.Millisecond)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "slow")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, errors.Is(err, common.ErrAIServiceError))
}

func TestService_EmptyPrompt(t *testing.T) {
	svc, err := NewService(provider.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		t.Fatal("provider must not be called")
		return "", nil
	}), nil, 0)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), "   ")
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.Completion.Provider = config.ProviderProxy
	cfg.Completion.ProxyURL = "http://localhost:3000/api/gemini"
	p, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "proxy:http://localhost:3000/api/gemini", p.Name())

	cfg.Completion.Provider = config.ProviderOpenRouter
	cfg.OpenRouter.Model = "m"
	_, err = NewProvider(cfg)
	assert.Error(t, err, "missing api key")

	cfg.OpenRouter.APIKey = "sk-test"
	p, err = NewProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, "openrouter:m", p.Name())

	cfg.Completion.Provider = "carrier-pigeon"
	_, err = NewProvider(cfg)
	assert.Error(t, err)
}

func TestService_SkipsCacheForRejectedContent(t *testing.T) {
	responses := []string{"Sorry, I cannot help with that.", `{"title":"Soup"}`}
	var calls atomic.Int32
	p := provider.CompleterFunc(func(ctx context.Context, prompt string) (string, error) {
		n := calls.Add(1)
		return responses[n-1], nil
	})

	store := cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 10, TTL: time.Minute})
	defer store.Close()

	validate := func(content string) error {
		if content == "" || content[0] != '{' {
			return errors.New("not a JSON object")
		}
		return nil
	}
	svc, err := NewService(p, store, time.Second, WithValidator(validate))
	require.NoError(t, err)

	got, err := svc.Complete(context.Background(), "soup")
	require.NoError(t, err)
	assert.Equal(t, responses[0], got)

	_, err = store.Get(context.Background(), cache.Key(p.Name(), "soup"))
	assert.True(t, errors.Is(err, common.ErrCacheMiss))

	for i := 0; i < 2; i++ {
		got, err = svc.Complete(context.Background(), "soup")
		require.NoError(t, err)
		assert.Equal(t, responses[1], got)
	}
	assert.Equal(t, int32(2), calls.Load())
}
