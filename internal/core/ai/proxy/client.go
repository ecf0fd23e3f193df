package proxy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client 以 {prompt} -> {result} 協定呼叫外部補全服務
type Client struct {
	endpoint string
	client   *resty.Client
}

// Request 補全請求
type Request struct {
	Prompt string `json:"prompt"`
}

// Response 補全回應
type Response struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// NewClient 創建補全代理客戶端
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		client:   resty.New().SetHeader("Content-Type", "application/json"),
	}
}

// Name 返回提供者名稱
func (c *Client) Name() string {
	return "proxy:" + c.endpoint
}

// Complete 送出 prompt 並取得 result
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	var out Response
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(Request{Prompt: prompt}).
		SetResult(&out).
		SetError(&out).
		Post(c.endpoint)
	if err != nil {
		common.LogAICall(c.Name(), time.Since(start), err, "")
		return "", fmt.Errorf("failed to send request to completion proxy: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		msg := out.Error
		if msg == "" {
			msg = common.TruncateRunes(resp.String(), 300)
		}
		err := fmt.Errorf("completion proxy returned status %d: %s", resp.StatusCode(), msg)
		common.LogAICall(c.Name(), time.Since(start), err, "")
		return "", err
	}

	if strings.TrimSpace(out.Result) == "" {
		return "", fmt.Errorf("empty result from completion proxy")
	}

	common.LogAICall(c.Name(), time.Since(start), nil, "")
	common.LogDebug("Completion proxy response", zap.Int("result_length", len(out.Result)))
	return out.Result, nil
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
