package common

import (
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Code       string `json:"code"`                  // 錯誤代碼
	Message    string `json:"error"`                 // 錯誤信息
	Stage      string `json:"stage,omitempty"`       // 失敗的匯入階段
	SourceType string `json:"source_type,omitempty"` // 來源類型
	Details    string `json:"details,omitempty"`     // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap 返回原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 errors.Is 可以匹配預定義錯誤
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap 以相同代碼包裝原始錯誤
func (e *CustomError) Wrap(err error) *CustomError {
	return &CustomError{
		Code:    e.Code,
		Message: e.Message,
		Status:  e.Status,
		Err:     err,
	}
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"   // 400
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS" // 429
	ErrCodeUnsupportedInput = "UNSUPPORTED_INPUT" // 400

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
	ErrCodeGatewayTimeout     = "GATEWAY_TIMEOUT"     // 504

	// 匯入流程錯誤
	ErrCodeNetwork      = "NETWORK_ERROR"
	ErrCodeParse        = "PARSE_ERROR"
	ErrCodeSchema       = "SCHEMA_ERROR"
	ErrCodeImportFailed = "IMPORT_FAILED"
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "請求過於頻繁", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "服務暫時不可用", http.StatusServiceUnavailable, nil)
	ErrGatewayTimeout     = NewError(ErrCodeGatewayTimeout, "網關超時", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrCacheFull      = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
	ErrCacheMiss      = NewError("CACHE_MISS", "緩存未命中", http.StatusNotFound, nil)
	ErrAIServiceError = NewError("AI_SERVICE_ERROR", "AI 服務錯誤", http.StatusServiceUnavailable, nil)
	ErrQueueFull      = NewError("QUEUE_FULL", "匯入隊列已滿", http.StatusServiceUnavailable, nil)
	ErrStorageError   = NewError("STORAGE_ERROR", "食譜儲存失敗", http.StatusBadGateway, nil)

	// 匯入錯誤
	ErrNetwork          = NewError(ErrCodeNetwork, "無法取得頁面內容", http.StatusBadGateway, nil)
	ErrParse            = NewError(ErrCodeParse, "內容解析失敗", http.StatusUnprocessableEntity, nil)
	ErrSchema           = NewError(ErrCodeSchema, "食譜缺少必要欄位", http.StatusUnprocessableEntity, nil)
	ErrUnsupportedInput = NewError(ErrCodeUnsupportedInput, "不支援的輸入", http.StatusBadRequest, nil)
	ErrImportFailed     = NewError(ErrCodeImportFailed, "無法從來源擷取食譜", http.StatusUnprocessableEntity, nil)
)
