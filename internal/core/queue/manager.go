package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// Handler 處理單一匯入輸入
type Handler func(ctx context.Context, input string) (*common.ImportedRecipe, error)

// Request 隊列請求
type Request struct {
	Context context.Context
	Input   string
	Result  chan Result
}

// Result 處理結果
type Result struct {
	Input  string
	Recipe *common.ImportedRecipe
	Error  error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	FailedCount    int64 `json:"failed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager 匯入隊列管理器，固定數量的 worker 依序處理請求
type Manager struct {
	config    config.QueueConfig
	handler   Handler
	queue     chan *Request
	done      chan struct{}
	processed int64
	failed    int64
	closed    bool
	mu        sync.RWMutex
	wg        sync.WaitGroup
}

// NewManager 創建新的隊列管理器並啟動 worker
func NewManager(cfg config.QueueConfig, handler Handler) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = cfg.Workers
	}

	m := &Manager{
		config:  cfg,
		handler: handler,
		queue:   make(chan *Request, cfg.MaxSize),
		done:    make(chan struct{}),
	}

	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	common.LogInfo("匯入隊列已啟動",
		zap.Int("workers", cfg.Workers),
		zap.Int("max_queue_size", cfg.MaxSize),
	)
	return m
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case req := <-m.queue:
			m.process(id, req)
		}
	}
}

func (m *Manager) process(id int, req *Request) {
	// 等待期間呼叫端已取消就不再處理
	if err := req.Context.Err(); err != nil {
		atomic.AddInt64(&m.failed, 1)
		atomic.AddInt64(&m.processed, 1)
		req.Result <- Result{Input: req.Input, Error: err}
		return
	}

	recipe, err := m.handler(req.Context, req.Input)
	if err != nil {
		atomic.AddInt64(&m.failed, 1)
		common.LogDebug("隊列請求失敗", zap.Int("worker", id), zap.Error(err))
	}
	atomic.AddInt64(&m.processed, 1)
	req.Result <- Result{Input: req.Input, Recipe: recipe, Error: err}
}

// Enqueue 將請求加入隊列，隊列已滿時立即返回 ErrQueueFull
func (m *Manager) Enqueue(ctx context.Context, input string) (<-chan Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, common.ErrServiceUnavailable.Wrap(fmt.Errorf("queue manager is closed"))
	}

	req := &Request{
		Context: ctx,
		Input:   input,
		Result:  make(chan Result, 1),
	}

	select {
	case m.queue <- req:
		common.LogDebug("Request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
		return req.Result, nil
	default:
		return nil, common.ErrQueueFull
	}
}

// ImportAll 將多個輸入送入隊列並依輸入順序返回結果
// 無法加入隊列的輸入會在對應位置帶回錯誤
func (m *Manager) ImportAll(ctx context.Context, inputs []string) []Result {
	results := make([]Result, len(inputs))
	pending := make([]<-chan Result, len(inputs))

	for i, input := range inputs {
		ch, err := m.Enqueue(ctx, input)
		if err != nil {
			results[i] = Result{Input: input, Error: err}
			continue
		}
		pending[i] = ch
	}

	for i, ch := range pending {
		if ch == nil {
			continue
		}
		select {
		case res := <-ch:
			results[i] = res
		case <-ctx.Done():
			results[i] = Result{Input: inputs[i], Error: ctx.Err()}
		}
	}
	return results
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: atomic.LoadInt64(&m.processed),
		FailedCount:    atomic.LoadInt64(&m.failed),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
	}
}

// Close 停止 worker，尚未處理的請求以 ErrServiceUnavailable 結束
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	m.wg.Wait()

	for {
		select {
		case req := <-m.queue:
			req.Result <- Result{Input: req.Input, Error: common.ErrServiceUnavailable}
		default:
			return
		}
	}
}
