package provider

import (
	"context"
)

// Completer 定義文字補全服務介面
// 實作必須可供多個 goroutine 同時使用
type Completer interface {
	// Complete 送出 prompt 並回傳模型產生的文字
	Complete(ctx context.Context, prompt string) (string, error)

	// Name 返回提供者與模型名稱（用於日誌與快取鍵）
	Name() string
}

// CompleterFunc 讓普通函式實作 Completer
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete 實現 Completer 介面
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Name 實現 Completer 介面
func (f CompleterFunc) Name() string {
	return "func"
}
