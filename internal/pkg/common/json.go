package common

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ParseJSON 解析 JSON 字符串到結構體，數字保留為 json.Number，不允許多餘資料
func ParseJSON(data string, v interface{}) error {
	return decodeJSON(strings.NewReader(data), v)
}

func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	for {
		t, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		// 若讀到額外 token，視為錯誤
		if t != nil {
			return fmt.Errorf("unexpected extra JSON data")
		}
	}
}

var unquotedKeyPattern = regexp.MustCompile(`([{\[,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號，字串值內的文字保持不變
func QuoteJSONKeys(raw string) string {
	var sb strings.Builder
	sb.Grow(len(raw))

	start := 0
	inString, escaped := false, false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				sb.WriteString(raw[start : i+1])
				start = i + 1
			}
			continue
		}
		if c == '"' {
			sb.WriteString(quoteBareKeys(raw[start:i]))
			start = i
			inString = true
		}
	}

	// 未閉合的字串原樣保留
	if inString {
		sb.WriteString(raw[start:])
	} else {
		sb.WriteString(quoteBareKeys(raw[start:]))
	}
	return sb.String()
}

func quoteBareKeys(segment string) string {
	return unquotedKeyPattern.ReplaceAllString(segment, `$1"$2":`)
}

var (
	codeFenceOpenPattern = regexp.MustCompile("```[A-Za-z0-9_-]*\\n?")
	codeFencePattern     = regexp.MustCompile("```")
)

// StripCodeFence 移除 AI 回應中的 markdown 程式碼區塊標記
// 對已無標記的內容重複呼叫結果不變
func StripCodeFence(raw string) string {
	cleaned := codeFenceOpenPattern.ReplaceAllString(raw, "")
	cleaned = codeFencePattern.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// ExtractJSONObject 取第一個 { 到最後一個 } 之間的內容
func ExtractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end != -1 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// ToIndentedJSON 將結構體轉換為縮排後的 JSON 字符串
func ToIndentedJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
