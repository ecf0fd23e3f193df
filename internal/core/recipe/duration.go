package recipe

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	isoDurationPattern  = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?`)
	textDurationPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(hour|hr|minute|min)`)
)

// ParseDuration 將時間表示轉換為分鐘數
// 支援 ISO-8601 的 PT#H#M 與 "45 minutes"、"1.5 hr" 等文字格式，無法辨識時返回 0
// 文字格式只取第一個數量，"1 hour 30 minutes" 得到 60
func ParseDuration(expr string) int {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0
	}

	// 單獨的 "PT" 也會匹配，跳過兩個群組皆空的結果
	for _, m := range isoDurationPattern.FindAllStringSubmatch(expr, -1) {
		if m[1] != "" || m[2] != "" {
			return atoiOrZero(m[1])*60 + atoiOrZero(m[2])
		}
	}

	if m := textDurationPattern.FindStringSubmatch(expr); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		if strings.HasPrefix(strings.ToLower(m[2]), "h") {
			value *= 60
		}
		return int(math.Round(value))
	}

	return 0
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
