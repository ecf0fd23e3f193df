package recipe

import (
	"net/url"
	"strings"

	"recipe-importer/internal/pkg/common"
)

// ClassifySource 判斷輸入的來源類型
// 無法解析為絕對 URL 的輸入一律視為純文字
func ClassifySource(input string) common.SourceType {
	u, ok := parseAbsoluteURL(input)
	if !ok {
		return common.SourceText
	}

	host := strings.ToLower(u.Host)
	switch {
	case strings.Contains(host, "youtube.com"), strings.Contains(host, "youtu.be"):
		return common.SourceYouTube
	case strings.Contains(host, "tiktok.com"):
		return common.SourceTikTok
	default:
		return common.SourceWeb
	}
}

// parseAbsoluteURL 解析含 scheme 與 host 的 URL
func parseAbsoluteURL(input string) (*url.URL, bool) {
	input = strings.TrimSpace(input)
	if input == "" || strings.ContainsAny(input, " \t\r\n") {
		return nil, false
	}
	u, err := url.Parse(input)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, false
	}
	return u, true
}
