package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"recipe-importer/internal/core/ai/provider"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

const extractionPrompt = `Extract recipe information from the following text and return it as a JSON object with this structure:
{
  "title": "Recipe title",
  "description": "Brief description",
  "ingredients": [{"name": "ingredient name", "amount": "quantity", "unit": "unit"}],
  "steps": [{"order": 1, "instruction": "step instruction"}],
  "cookingTime": 30,
  "servings": 4,
  "difficulty": "easy|medium|hard",
  "cuisine": "cuisine type"
}
Rules:
1. Return only the JSON object, no commentary.
2. cookingTime is the total time in minutes as an integer.
3. servings is a positive integer.
4. Omit fields that cannot be determined from the text; never invent ingredients or steps.
Text: %s`

// AIExtractor 透過文字補全服務將非結構化文字轉為食譜
type AIExtractor struct {
	completer provider.Completer
}

// NewAIExtractor 創建 AI 擷取器
func NewAIExtractor(completer provider.Completer) *AIExtractor {
	return &AIExtractor{completer: completer}
}

// BuildPrompt 組裝擷取用的 prompt
func BuildPrompt(text string) string {
	return fmt.Sprintf(extractionPrompt, strings.TrimSpace(text))
}

// Extract 呼叫補全服務並解析結果
// 補全失敗回傳 ErrAIServiceError，回應無法解析回傳 ErrParse，缺少 title 回傳 ErrSchema
func (e *AIExtractor) Extract(ctx context.Context, text string) (*common.ImportedRecipe, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.ErrParse.Wrap(errors.New("no text to extract from"))
	}

	content, err := e.completer.Complete(ctx, BuildPrompt(text))
	if err != nil {
		if errors.Is(err, common.ErrAIServiceError) {
			return nil, err
		}
		return nil, common.ErrAIServiceError.Wrap(err)
	}

	common.LogDebug("AI 回應內容",
		zap.String("provider", e.completer.Name()),
		zap.Int("ai_response_length", len(content)),
	)

	return ParseAIResponse(content)
}

// aiRecipe 寬鬆版中繼結構，容許數字與字串混用
type aiRecipe struct {
	Title       *string         `json:"title"`
	Description string          `json:"description"`
	Ingredients []aiIngredient  `json:"ingredients"`
	Steps       []aiStep        `json:"steps"`
	CookingTime json.RawMessage `json:"cookingTime"`
	Servings    json.RawMessage `json:"servings"`
	Difficulty  string          `json:"difficulty"`
	Cuisine     string          `json:"cuisine"`
}

type aiIngredient struct {
	Name   string          `json:"name"`
	Amount json.RawMessage `json:"amount"`
	Unit   string          `json:"unit"`
}

type aiStep struct {
	Order       json.RawMessage `json:"order"`
	Instruction string          `json:"instruction"`
}

// ParseAIResponse 去除 code fence 後解析 AI 回應
func ParseAIResponse(content string) (*common.ImportedRecipe, error) {
	cleaned := common.StripCodeFence(content)
	if cleaned == "" {
		return nil, common.ErrParse.Wrap(errors.New("empty AI response"))
	}
	cleaned = common.ExtractJSONObject(cleaned)

	var raw aiRecipe
	if err := common.ParseJSON(cleaned, &raw); err != nil {
		// 部分模型會輸出未加引號的鍵
		raw = aiRecipe{}
		if retryErr := common.ParseJSON(common.QuoteJSONKeys(cleaned), &raw); retryErr != nil {
			return nil, common.ErrParse.Wrap(fmt.Errorf("invalid JSON in AI response: %w", err))
		}
	}

	if raw.Title == nil || strings.TrimSpace(*raw.Title) == "" {
		return nil, common.ErrSchema.Wrap(errors.New("title is missing"))
	}

	recipe := common.NewImportedRecipe(strings.TrimSpace(*raw.Title))
	recipe.Description = strings.TrimSpace(raw.Description)
	recipe.Difficulty = strings.ToLower(strings.TrimSpace(raw.Difficulty))
	recipe.Cuisine = strings.TrimSpace(raw.Cuisine)

	for _, ing := range raw.Ingredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			continue
		}
		recipe.Ingredients = append(recipe.Ingredients, common.Ingredient{
			Name:   name,
			Amount: rawString(ing.Amount),
			Unit:   strings.TrimSpace(ing.Unit),
		})
	}

	recipe.Steps = normalizeSteps(raw.Steps)

	if minutes, ok := rawMinutes(raw.CookingTime); ok {
		recipe.CookingTime = common.IntPtr(minutes)
	}
	if servings, ok := rawPositiveInt(raw.Servings); ok {
		recipe.Servings = common.IntPtr(servings)
	}

	return recipe, nil
}

// ValidateAIResponse 檢查 AI 回應能否解析為食譜
func ValidateAIResponse(content string) error {
	_, err := ParseAIResponse(content)
	return err
}

// normalizeSteps 依 order 排序；order 缺漏、非正數或重複時依位置重新編號
func normalizeSteps(raw []aiStep) []common.Step {
	steps := make([]common.Step, 0, len(raw))
	seen := make(map[int]bool, len(raw))
	renumber := false

	for _, s := range raw {
		instruction := strings.TrimSpace(s.Instruction)
		if instruction == "" {
			continue
		}
		order, ok := rawPositiveInt(s.Order)
		if !ok || seen[order] {
			renumber = true
		}
		seen[order] = true
		steps = append(steps, common.Step{Order: order, Instruction: instruction})
	}

	if renumber {
		for i := range steps {
			steps[i].Order = i + 1
		}
		return steps
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
	return steps
}

// rawString 將字串或數字轉為字串
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawPositiveInt 接受數字或以數字開頭的字串
func rawPositiveInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if n := int(f); n > 0 {
			return n, true
		}
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return leadingInt(s)
	}
	return 0, false
}

// rawMinutes 接受分鐘數或時間表示字串
func rawMinutes(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f < 0 {
			return 0, false
		}
		return int(f), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n >= 0 {
			return n, true
		}
		if minutes := ParseDuration(s); minutes > 0 {
			return minutes, true
		}
	}
	return 0, false
}
