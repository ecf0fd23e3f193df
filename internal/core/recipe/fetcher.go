package recipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// Page 抓取到的頁面
type Page struct {
	URL        string
	StatusCode int
	HTML       string
}

// Fetcher 取得頁面原始內容
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// StatusError 非 2xx 回應，與傳輸層錯誤區分
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// PageFetcher 以單次 HTTP GET 取得頁面，不重試
type PageFetcher struct {
	client       *resty.Client
	timeout      time.Duration
	maxBodyBytes int64
}

// NewPageFetcher 創建頁面抓取器
func NewPageFetcher(cfg config.FetchConfig) *PageFetcher {
	client := resty.New().
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetHeader("Accept-Language", "en-US,en;q=0.8")

	return &PageFetcher{
		client:       client,
		timeout:      cfg.Timeout,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Fetch 取得頁面內容，傳輸失敗或非 2xx 皆回傳 ErrNetwork
func (f *PageFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, common.ErrNetwork.Wrap(fmt.Errorf("fetching %s: %w", url, err))
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, common.ErrNetwork.Wrap(&StatusError{URL: url, StatusCode: resp.StatusCode()})
	}

	reader := io.Reader(body)
	if f.maxBodyBytes > 0 {
		reader = io.LimitReader(body, f.maxBodyBytes)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, common.ErrNetwork.Wrap(fmt.Errorf("reading response body: %w", err))
	}

	html := decodeBody(raw, resp.Header().Get("Content-Type"))

	common.LogDebug("頁面抓取完成",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode()),
		zap.Int("bytes", len(raw)),
	)

	return &Page{
		URL:        url,
		StatusCode: resp.StatusCode(),
		HTML:       html,
	}, nil
}

// decodeBody 將回應內容轉為 UTF-8
// Content-Type 未指定 charset 時以 chardet 偵測
func decodeBody(raw []byte, contentType string) string {
	if !hasCharset(contentType) {
		detected := "utf-8"
		if result, err := chardet.NewHtmlDetector().DetectBest(raw); err == nil && result != nil && result.Charset != "" {
			detected = strings.ToLower(result.Charset)
		}
		contentType = "text/html; charset=" + detected
	}

	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return string(raw)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

func hasCharset(contentType string) bool {
	if contentType == "" {
		return false
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return params["charset"] != ""
}
