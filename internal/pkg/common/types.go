package common

import (
	"fmt"
	"strings"
)

// SourceType 食譜來源類型
type SourceType string

const (
	SourceWeb     SourceType = "web"
	SourceYouTube SourceType = "youtube"
	SourceTikTok  SourceType = "tiktok"
	SourceText    SourceType = "text"
)

// DefaultRecipeTitle 無標題時的預設名稱
const DefaultRecipeTitle = "Untitled Recipe"

// Ingredient 食材
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount,omitempty"`
	Unit   string `json:"unit,omitempty"`
}

// Step 食譜步驟
type Step struct {
	Order       int    `json:"order"`
	Instruction string `json:"instruction"`
}

// ImportedRecipe 匯入後的標準化食譜
// ingredients 與 steps 一律為非 nil 切片，序列化時輸出 []
type ImportedRecipe struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []Step       `json:"steps"`
	CookingTime *int         `json:"cookingTime,omitempty"` // 分鐘
	Servings    *int         `json:"servings,omitempty"`
	Difficulty  string       `json:"difficulty,omitempty"`
	Cuisine     string       `json:"cuisine,omitempty"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	SourceURL   string       `json:"sourceUrl"`
	SourceType  SourceType   `json:"sourceType"`
}

// NewImportedRecipe 建立帶有空食材與步驟列表的食譜
func NewImportedRecipe(title string) *ImportedRecipe {
	if strings.TrimSpace(title) == "" {
		title = DefaultRecipeTitle
	}
	return &ImportedRecipe{
		Title:       title,
		Ingredients: []Ingredient{},
		Steps:       []Step{},
	}
}

// IntPtr 返回整數指標
func IntPtr(v int) *int {
	return &v
}

// FormatIngredients 格式化食材列表
func FormatIngredients(ingredients []Ingredient) string {
	var sb strings.Builder
	for _, ing := range ingredients {
		line := strings.TrimSpace(strings.Join([]string{ing.Amount, ing.Unit, ing.Name}, " "))
		sb.WriteString(fmt.Sprintf("- %s\n", strings.Join(strings.Fields(line), " ")))
	}
	return sb.String()
}

// FormatSteps 格式化步驟列表
func FormatSteps(steps []Step) string {
	var sb strings.Builder
	for _, step := range steps {
		sb.WriteString(fmt.Sprintf("%d. %s\n", step.Order, step.Instruction))
	}
	return sb.String()
}
