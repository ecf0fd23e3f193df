package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DefaultMaxPromptChars 送往 AI 的頁面文字預設上限（字元）
const DefaultMaxPromptChars = 12000

// PageMeta 頁面 meta 標籤中的基本資訊
type PageMeta struct {
	Title       string
	Description string
	ImageURL    string
}

// MetaSelector 從頁面讀取 meta 資訊，各來源讀取的標籤不同
type MetaSelector func(doc *goquery.Document) PageMeta

// sourceStrategy 抓取頁面後的擷取策略
type sourceStrategy struct {
	kind       common.SourceType
	selectMeta MetaSelector
	// structured 是否先嘗試 JSON-LD
	structured bool
	// minimalFallback AI 無結果時是否以 meta 組出最小食譜
	minimalFallback bool
	// aiInput 決定送往 AI 的文字
	aiInput func(page *Page, meta PageMeta, maxChars int) string
}

// videoStrategy 影片平台只有 og 描述可用
func videoStrategy(kind common.SourceType) sourceStrategy {
	return sourceStrategy{
		kind:            kind,
		selectMeta:      OpenGraphMeta,
		minimalFallback: true,
		aiInput: func(_ *Page, meta PageMeta, maxChars int) string {
			return common.TruncateRunes(meta.Description, maxChars)
		},
	}
}

var (
	// webStrategy 結構化資料與 AI 擷取的結果都標記為 web
	// 來源類型只有 web/youtube/tiktok/text，不另設 manual
	webStrategy = sourceStrategy{
		kind:       common.SourceWeb,
		selectMeta: WebPageMeta,
		structured: true,
		aiInput: func(page *Page, _ PageMeta, maxChars int) string {
			return ExtractPageText(page.HTML, page.URL, maxChars)
		},
	}

	strategies = map[common.SourceType]sourceStrategy{
		common.SourceYouTube: videoStrategy(common.SourceYouTube),
		common.SourceTikTok:  videoStrategy(common.SourceTikTok),
		common.SourceWeb:     webStrategy,
	}
)

// OpenGraphMeta 讀取 og:title、og:description、og:image
func OpenGraphMeta(doc *goquery.Document) PageMeta {
	return PageMeta{
		Title:       metaContent(doc, `meta[property="og:title"]`),
		Description: metaContent(doc, `meta[property="og:description"]`),
		ImageURL:    metaContent(doc, `meta[property="og:image"]`),
	}
}

// WebPageMeta 先讀 Open Graph，缺少時退回 <title> 與 description meta
func WebPageMeta(doc *goquery.Document) PageMeta {
	meta := OpenGraphMeta(doc)
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if meta.Description == "" {
		meta.Description = metaContent(doc, `meta[name="description"]`)
	}
	return meta
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// ImportService 匯入流程：分類、抓取、結構化擷取、AI 擷取
// 不持有可變狀態，可同時處理多個匯入
type ImportService struct {
	fetcher        Fetcher
	extractor      *AIExtractor
	maxPromptChars int
}

// NewImportService 創建匯入服務
func NewImportService(fetcher Fetcher, completer provider.Completer, maxPromptChars int) (*ImportService, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if maxPromptChars <= 0 {
		maxPromptChars = DefaultMaxPromptChars
	}
	return &ImportService{
		fetcher:        fetcher,
		extractor:      NewAIExtractor(completer),
		maxPromptChars: maxPromptChars,
	}, nil
}

// Import 匯入單一輸入（URL 或純文字）
// 失敗時回傳 *ImportError，其中包含失敗階段與原因
func (s *ImportService) Import(ctx context.Context, input string) (*common.ImportedRecipe, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, newImportError(StageClassify, common.SourceText, common.ErrUnsupportedInput.Wrap(errors.New("input is empty")))
	}

	kind := ClassifySource(input)
	common.LogDebug("來源分類完成", zap.String("source_type", string(kind)))

	if kind == common.SourceText {
		return s.importText(ctx, input)
	}

	strategy, ok := strategies[kind]
	if !ok {
		return nil, newImportError(StageClassify, kind, common.ErrUnsupportedInput.Wrap(fmt.Errorf("no strategy for %s", kind)))
	}
	return s.importURL(ctx, input, strategy)
}

func (s *ImportService) importText(ctx context.Context, text string) (*common.ImportedRecipe, error) {
	recipe, err := s.extractor.Extract(ctx, common.TruncateRunes(text, s.maxPromptChars))
	common.LogImportStage(string(StageAIExtraction), common.SourceText, err)
	if err != nil {
		return nil, newImportError(StageAIExtraction, common.SourceText, err)
	}
	recipe.SourceURL = ""
	recipe.SourceType = common.SourceText
	return recipe, nil
}

func (s *ImportService) importURL(ctx context.Context, url string, strategy sourceStrategy) (*common.ImportedRecipe, error) {
	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		common.LogImportStage(string(StageFetch), strategy.kind, err, zap.String("url", url))
		return nil, newImportError(StageFetch, strategy.kind, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, newImportError(StageMetadata, strategy.kind, common.ErrParse.Wrap(fmt.Errorf("parsing HTML: %w", err)))
	}
	meta := strategy.selectMeta(doc)

	if strategy.structured {
		recipe, err := extractStructuredFromDocument(doc)
		common.LogImportStage(string(StageStructuredData), strategy.kind, err, zap.String("url", url))
		if err == nil {
			return finalize(recipe, url, strategy.kind, meta), nil
		}
	}

	failStage, failErr := StagePageText, error(common.ErrImportFailed.Wrap(errors.New("no text available for extraction")))
	if text := strategy.aiInput(page, meta, s.maxPromptChars); strings.TrimSpace(text) != "" {
		recipe, err := s.extractor.Extract(ctx, text)
		common.LogImportStage(string(StageAIExtraction), strategy.kind, err, zap.String("url", url))
		if err == nil {
			return finalize(recipe, url, strategy.kind, meta), nil
		}
		failStage, failErr = StageAIExtraction, err
	}

	if strategy.minimalFallback {
		recipe := common.NewImportedRecipe(meta.Title)
		recipe.Description = meta.Description
		return finalize(recipe, url, strategy.kind, meta), nil
	}

	return nil, newImportError(failStage, strategy.kind, failErr)
}

// finalize 設定來源資訊，並以 meta 補上缺少的圖片
func finalize(recipe *common.ImportedRecipe, url string, kind common.SourceType, meta PageMeta) *common.ImportedRecipe {
	recipe.SourceURL = url
	recipe.SourceType = kind
	if recipe.ImageURL == "" {
		recipe.ImageURL = meta.ImageURL
	}
	return recipe
}
