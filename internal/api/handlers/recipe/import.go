package recipe

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"recipe-importer/internal/core/queue"
	recipeService "recipe-importer/internal/core/recipe"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Importer 匯入單一輸入
type Importer interface {
	Import(ctx context.Context, input string) (*common.ImportedRecipe, error)
}

// BatchImporter 批次匯入，結果依輸入順序返回
type BatchImporter interface {
	ImportAll(ctx context.Context, inputs []string) []queue.Result
}

// Saver 將食譜交給儲存服務
type Saver interface {
	Create(ctx context.Context, recipe *common.ImportedRecipe) (string, error)
}

// ImportRequest 匯入請求
type ImportRequest struct {
	Input string `json:"input" binding:"required"` // URL 或食譜文字
	Save  bool   `json:"save,omitempty"`           // 匯入成功後是否儲存
}

// ImportResponse 匯入結果
type ImportResponse struct {
	Recipe    *common.ImportedRecipe `json:"recipe"`
	SavedID   string                 `json:"saved_id,omitempty"`
	SaveError *common.ErrorResponse  `json:"save_error,omitempty"`
}

// BatchImportRequest 批次匯入請求
type BatchImportRequest struct {
	Inputs []string `json:"inputs" binding:"required"`
}

// BatchItem 批次中單一輸入的結果
type BatchItem struct {
	Input  string                 `json:"input"`
	Recipe *common.ImportedRecipe `json:"recipe,omitempty"`
	Error  *common.ErrorResponse  `json:"error,omitempty"`
}

// BatchImportResponse 批次匯入結果
type BatchImportResponse struct {
	BatchID   string      `json:"batch_id"`
	Results   []BatchItem `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// ClassifyRequest 來源分類請求
type ClassifyRequest struct {
	Input string `json:"input" binding:"required"`
}

// ClassifyResponse 來源分類結果
type ClassifyResponse struct {
	SourceType common.SourceType `json:"source_type"`
}

// Handler 食譜匯入處理程序
type Handler struct {
	importer     Importer
	batch        BatchImporter
	saver        Saver
	maxBatchSize int
	debug        bool
}

// NewHandler 創建新的匯入處理程序，saver 為 nil 時不支援 save
func NewHandler(importer Importer, batch BatchImporter, saver Saver, maxBatchSize int, debug bool) *Handler {
	return &Handler{
		importer:     importer,
		batch:        batch,
		saver:        saver,
		maxBatchSize: maxBatchSize,
		debug:        debug,
	}
}

// HandleImport 匯入單一 URL 或文字
func (h *Handler) HandleImport(c *gin.Context) {
	requestID := requestid.Get(c)

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Input) == "" {
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		h.writeError(c, common.ErrInvalidRequest.Wrap(errors.New("input is required")))
		return
	}
	if req.Save && h.saver == nil {
		h.writeError(c, common.ErrServiceUnavailable.Wrap(errors.New("storage is not configured")))
		return
	}

	sourceType := recipeService.ClassifySource(req.Input)
	common.LogInfo("開始處理食譜匯入請求",
		zap.String("request_id", requestID),
		zap.String("source_type", string(sourceType)),
		zap.Bool("save", req.Save),
	)

	recipe, err := h.importer.Import(c.Request.Context(), req.Input)
	if err != nil {
		common.LogWarn("食譜匯入失敗", zap.Error(err), zap.String("request_id", requestID))
		h.writeError(c, err)
		return
	}

	resp := ImportResponse{Recipe: recipe}
	if req.Save {
		id, err := h.saver.Create(c.Request.Context(), recipe)
		if err != nil {
			common.LogError("食譜儲存失敗", zap.Error(err), zap.String("request_id", requestID))
			resp.SaveError = h.errorResponse(err)
		} else {
			resp.SavedID = id
		}
	}

	common.LogInfo("食譜匯入完成",
		zap.String("request_id", requestID),
		zap.String("title", recipe.Title),
		zap.Int("ingredients", len(recipe.Ingredients)),
		zap.Int("steps", len(recipe.Steps)),
	)
	c.JSON(http.StatusOK, resp)
}

// HandleBatchImport 透過匯入隊列平行處理多個輸入
func (h *Handler) HandleBatchImport(c *gin.Context) {
	requestID := requestid.Get(c)

	var req BatchImportRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Inputs) == 0 {
		common.LogWarn("請求格式無效", zap.Error(err), zap.String("request_id", requestID))
		h.writeError(c, common.ErrInvalidRequest.Wrap(errors.New("inputs must be a non-empty array")))
		return
	}
	if h.maxBatchSize > 0 && len(req.Inputs) > h.maxBatchSize {
		h.writeError(c, common.NewValidationError("too many inputs in one batch"))
		return
	}

	batchID := common.GenerateUUID()
	common.LogInfo("開始批次匯入",
		zap.String("request_id", requestID),
		zap.String("batch_id", batchID),
		zap.Int("inputs", len(req.Inputs)),
	)
	results := h.batch.ImportAll(c.Request.Context(), req.Inputs)

	resp := BatchImportResponse{BatchID: batchID, Results: make([]BatchItem, 0, len(results))}
	for _, res := range results {
		item := BatchItem{Input: res.Input}
		if res.Error != nil {
			item.Error = h.errorResponse(res.Error)
			resp.Failed++
		} else {
			item.Recipe = res.Recipe
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, item)
	}

	common.LogInfo("批次匯入完成",
		zap.String("request_id", requestID),
		zap.String("batch_id", batchID),
		zap.Int("succeeded", resp.Succeeded),
		zap.Int("failed", resp.Failed),
	)
	c.JSON(http.StatusOK, resp)
}

// HandleClassify 只判斷來源類型，不抓取內容
func (h *Handler) HandleClassify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, common.ErrInvalidRequest.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, ClassifyResponse{SourceType: recipeService.ClassifySource(req.Input)})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	resp := h.errorResponse(err)
	c.JSON(statusFor(err), resp)
}

// errorResponse 將錯誤轉為 API 錯誤格式，開發模式附上完整原因
func (h *Handler) errorResponse(err error) *common.ErrorResponse {
	resp := &common.ErrorResponse{
		Code:    common.ErrCodeInternalError,
		Message: common.ErrInternalError.Message,
	}

	var customErr *common.CustomError
	switch {
	case errors.As(err, &customErr):
		resp.Code = customErr.Code
		resp.Message = customErr.Message
	case common.IsValidationError(err):
		resp.Code = common.ErrCodeInvalidRequest
		resp.Message = err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		resp.Code = common.ErrCodeGatewayTimeout
		resp.Message = common.ErrGatewayTimeout.Message
	}

	if importErr := recipeService.AsImportError(err); importErr != nil {
		resp.Stage = string(importErr.Stage)
		resp.SourceType = string(importErr.Source)
	}
	if h.debug {
		resp.Details = err.Error()
	}
	return resp
}

func statusFor(err error) int {
	var customErr *common.CustomError
	switch {
	case errors.As(err, &customErr) && customErr.Status != 0:
		return customErr.Status
	case common.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
