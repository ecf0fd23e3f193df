package recipe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"recipe-importer/internal/pkg/common"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoStructuredData 頁面沒有可用的 JSON-LD Recipe 節點
var ErrNoStructuredData = errors.New("no JSON-LD recipe found")

const jsonLDSelector = `script[type="application/ld+json"]`

// ExtractStructuredRecipe 從 HTML 中的 JSON-LD 區塊解析 schema.org Recipe
func ExtractStructuredRecipe(html string) (*common.ImportedRecipe, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, common.ErrParse.Wrap(fmt.Errorf("parsing HTML: %w", err))
	}
	return extractStructuredFromDocument(doc)
}

// extractStructuredFromDocument 依文件順序掃描所有 JSON-LD 區塊
// 只有全部區塊都無法解析時才回傳 ErrParse
func extractStructuredFromDocument(doc *goquery.Document) (*common.ImportedRecipe, error) {
	blocks := doc.Find(jsonLDSelector)
	if blocks.Length() == 0 {
		return nil, ErrNoStructuredData
	}

	var parseErr error
	parsed := 0
	var found map[string]interface{}

	blocks.EachWithBreak(func(i int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &data); err != nil {
			parseErr = err
			return true
		}
		parsed++
		if node := findRecipeNode(data); node != nil {
			found = node
			return false
		}
		return true
	})

	if found != nil {
		return mapStructuredRecipe(found), nil
	}
	if parsed == 0 && parseErr != nil {
		return nil, common.ErrParse.Wrap(fmt.Errorf("malformed JSON-LD: %w", parseErr))
	}
	return nil, ErrNoStructuredData
}

// findRecipeNode 找出 @type 為 Recipe 的節點
func findRecipeNode(data interface{}) map[string]interface{} {
	switch v := data.(type) {
	case []interface{}:
		for _, item := range v {
			if node := findRecipeNode(item); node != nil {
				return node
			}
		}
	case map[string]interface{}:
		if isRecipeType(v["@type"]) {
			return v
		}
		// WordPress 等網站常用 @graph 包裝
		if graph, ok := v["@graph"].([]interface{}); ok {
			return findRecipeNode(graph)
		}
	}
	return nil
}

func isRecipeType(t interface{}) bool {
	switch v := t.(type) {
	case string:
		return v == "Recipe"
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

// mapStructuredRecipe 將 schema.org Recipe 欄位對應到 ImportedRecipe
func mapStructuredRecipe(node map[string]interface{}) *common.ImportedRecipe {
	recipe := common.NewImportedRecipe(stringValue(node["name"]))
	recipe.Description = stringValue(node["description"])
	recipe.Cuisine = joinedString(node["recipeCuisine"])
	recipe.ImageURL = imageValue(node["image"])

	for _, ing := range stringList(node["recipeIngredient"]) {
		recipe.Ingredients = append(recipe.Ingredients, common.Ingredient{Name: ing})
	}

	for i, instruction := range instructionList(node["recipeInstructions"]) {
		recipe.Steps = append(recipe.Steps, common.Step{
			Order:       i + 1,
			Instruction: instruction,
		})
	}

	if total, ok := node["totalTime"].(string); ok && total != "" {
		if minutes := ParseDuration(total); minutes > 0 {
			recipe.CookingTime = common.IntPtr(minutes)
		}
	} else {
		minutes := ParseDuration(stringValue(node["prepTime"])) + ParseDuration(stringValue(node["cookTime"]))
		if minutes > 0 {
			recipe.CookingTime = common.IntPtr(minutes)
		}
	}

	if servings, ok := parseYield(node["recipeYield"]); ok {
		recipe.Servings = common.IntPtr(servings)
	}

	return recipe
}

// instructionList 攤平字串、HowToStep 與 HowToSection
func instructionList(v interface{}) []string {
	var out []string
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = append(out, s)
		}
	case []interface{}:
		for _, item := range val {
			out = append(out, instructionList(item)...)
		}
	case map[string]interface{}:
		if items, ok := val["itemListElement"]; ok {
			return instructionList(items)
		}
		text := stringValue(val["text"])
		if text == "" {
			text = stringValue(val["name"])
		}
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}

// parseYield 取 recipeYield 開頭的整數，非數字則放棄
func parseYield(v interface{}) (int, bool) {
	switch val := v.(type) {
	case float64:
		if n := int(val); n > 0 {
			return n, true
		}
	case string:
		return leadingInt(val)
	case []interface{}:
		if len(val) > 0 {
			return parseYield(val[0])
		}
	}
	return 0, false
}

// leadingInt 解析字串開頭的正整數，例如 "4 servings"
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return ""
}

func stringList(v interface{}) []string {
	var out []string
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			out = append(out, s)
		}
	case []interface{}:
		for _, item := range val {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func joinedString(v interface{}) string {
	return strings.Join(stringList(v), ", ")
}

// imageValue 支援字串、ImageObject 與陣列
func imageValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]interface{}:
		return stringValue(val["url"])
	case []interface{}:
		for _, item := range val {
			if s := imageValue(item); s != "" {
				return s
			}
		}
	}
	return ""
}
