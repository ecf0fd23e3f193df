package recipe

import (
	"errors"
	"fmt"

	"recipe-importer/internal/pkg/common"
)

// Stage 匯入流程階段
type Stage string

const (
	StageClassify       Stage = "classify"
	StageFetch          Stage = "fetch"
	StageMetadata       Stage = "metadata"
	StageStructuredData Stage = "structured_data"
	StagePageText       Stage = "page_text"
	StageAIExtraction   Stage = "ai_extraction"
)

// ImportError 匯入失敗結果，攜帶失敗階段與原因
type ImportError struct {
	Stage  Stage
	Source common.SourceType
	Err    error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import %s failed at %s: %v", e.Source, e.Stage, e.Err)
}

// Unwrap 返回原始錯誤
func (e *ImportError) Unwrap() error {
	return e.Err
}

// AsImportError 取出 ImportError，非匯入錯誤返回 nil
func AsImportError(err error) *ImportError {
	var importErr *ImportError
	if errors.As(err, &importErr) {
		return importErr
	}
	return nil
}

func newImportError(stage Stage, source common.SourceType, err error) *ImportError {
	return &ImportError{Stage: stage, Source: source, Err: err}
}
