package recipe

import (
	"net/url"
	"strings"

	"recipe-importer/internal/pkg/common"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// minReadableLength readability 輸出低於此長度時視為失敗
const minReadableLength = 200

// noiseSelectors 擷取 body 文字前移除的元素
var noiseSelectors = []string{
	"script", "style", "noscript", "template",
	"nav", "footer", "header", "aside",
	"iframe", "svg", "canvas", "form",
}

// ExtractPageText 取得頁面主要可見文字，超過 maxChars 時截斷（maxChars <= 0 表示不限制）
// 先以 readability 找出主內容並轉為 Markdown 保留清單結構，失敗時退回整個 body 的文字
func ExtractPageText(html, pageURL string, maxChars int) string {
	text := readableText(html, pageURL)
	if text == "" {
		text = bodyText(html)
	}
	return common.TruncateRunes(text, maxChars)
}

func readableText(html, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		common.LogDebug("readability 擷取失敗", zap.String("url", pageURL), zap.Error(err))
		return ""
	}
	if len(strings.TrimSpace(article.TextContent)) < minReadableLength {
		return ""
	}

	markdown, err := htmltomarkdown.ConvertString(article.Content)
	if err != nil || strings.TrimSpace(markdown) == "" {
		return common.NormalizeWhitespace(article.TextContent)
	}

	text := strings.TrimSpace(markdown)
	if title := strings.TrimSpace(article.Title); title != "" && !strings.Contains(text, title) {
		text = "# " + title + "\n\n" + text
	}
	return text
}

func bodyText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	body := common.NormalizeWhitespace(doc.Find("body").Text())
	if title != "" && !strings.Contains(body, title) {
		return title + "\n" + body
	}
	return body
}
