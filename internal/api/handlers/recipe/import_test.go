package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"recipe-importer/internal/core/queue"
	recipeService "recipe-importer/internal/core/recipe"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type importerFunc func(ctx context.Context, input string) (*common.ImportedRecipe, error)

func (f importerFunc) Import(ctx context.Context, input string) (*common.ImportedRecipe, error) {
	return f(ctx, input)
}

// syncBatch 依序呼叫 importer，不經過隊列
type syncBatch struct{ importer Importer }

func (b syncBatch) ImportAll(ctx context.Context, inputs []string) []queue.Result {
	results := make([]queue.Result, 0, len(inputs))
	for _, in := range inputs {
		r, err := b.importer.Import(ctx, in)
		results = append(results, queue.Result{Input: in, Recipe: r, Error: err})
	}
	return results
}

type fakeSaver struct {
	id  string
	err error
}

func (s *fakeSaver) Create(ctx context.Context, recipe *common.ImportedRecipe) (string, error) {
	return s.id, s.err
}

func textImporter(ctx context.Context, input string) (*common.ImportedRecipe, error) {
	if input == "fail" {
		return nil, &recipeService.ImportError{
			Stage:  recipeService.StageAIExtraction,
			Source: common.SourceText,
			Err:    common.ErrSchema.Wrap(errors.New("title is missing")),
		}
	}
	if input == "https://down.example.com" {
		return nil, &recipeService.ImportError{
			Stage:  recipeService.StageFetch,
			Source: common.SourceWeb,
			Err:    common.ErrNetwork.Wrap(&recipeService.StatusError{URL: input, StatusCode: 500}),
		}
	}
	r := common.NewImportedRecipe("Imported " + input)
	r.SourceType = common.SourceText
	return r, nil
}

func setupRouter(saver Saver, debug bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(importerFunc(textImporter), syncBatch{importer: importerFunc(textImporter)}, saver, 3, debug)

	r := gin.New()
	r.Use(requestid.New())
	r.POST("/import", h.HandleImport)
	r.POST("/import/batch", h.HandleBatchImport)
	r.POST("/classify", h.HandleClassify)
	return r
}

func doJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleImport_Success(t *testing.T) {
	w := doJSON(setupRouter(nil, false), "/import", ImportRequest{Input: "pasta"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Recipe)
	assert.Equal(t, "Imported pasta", resp.Recipe.Title)
	assert.Empty(t, resp.SavedID)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHandleImport_Failures(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		status int
		code   string
		stage  string
	}{
		{"schema failure", "fail", http.StatusUnprocessableEntity, common.ErrCodeSchema, "ai_extraction"},
		{"network failure", "https://down.example.com", http.StatusBadGateway, common.ErrCodeNetwork, "fetch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(setupRouter(nil, true), "/import", ImportRequest{Input: tt.input})
			require.Equal(t, tt.status, w.Code)

			var resp common.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.stage, resp.Stage)
			assert.NotEmpty(t, resp.SourceType)
			assert.NotEmpty(t, resp.Details)
		})
	}
}

func TestHandleImport_InvalidRequest(t *testing.T) {
	r := setupRouter(nil, false)

	w := doJSON(r, "/import", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "/import", ImportRequest{Input: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, common.ErrCodeInvalidRequest, resp.Code)
	assert.Empty(t, resp.Details)
}

func TestHandleImport_Save(t *testing.T) {
	t.Run("saved", func(t *testing.T) {
		w := doJSON(setupRouter(&fakeSaver{id: "rec_1"}, false), "/import", ImportRequest{Input: "soup", Save: true})
		require.Equal(t, http.StatusOK, w.Code)

		var resp ImportResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "rec_1", resp.SavedID)
		assert.Nil(t, resp.SaveError)
	})

	t.Run("storage failure keeps recipe", func(t *testing.T) {
		w := doJSON(setupRouter(&fakeSaver{err: common.ErrStorageError}, false), "/import", ImportRequest{Input: "soup", Save: true})
		require.Equal(t, http.StatusOK, w.Code)

		var resp ImportResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Recipe)
		require.NotNil(t, resp.SaveError)
		assert.Equal(t, "STORAGE_ERROR", resp.SaveError.Code)
	})

	t.Run("storage not configured", func(t *testing.T) {
		w := doJSON(setupRouter(nil, false), "/import", ImportRequest{Input: "soup", Save: true})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHandleBatchImport(t *testing.T) {
	r := setupRouter(nil, false)

	w := doJSON(r, "/import/batch", BatchImportRequest{Inputs: []string{"a", "fail", "b"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp BatchImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	assert.Len(t, resp.BatchID, 36)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, "Imported a", resp.Results[0].Recipe.Title)
	assert.Equal(t, "fail", resp.Results[1].Input)
	require.NotNil(t, resp.Results[1].Error)
	assert.Equal(t, common.ErrCodeSchema, resp.Results[1].Error.Code)
	assert.Nil(t, resp.Results[1].Recipe)

	w = doJSON(r, "/import/batch", BatchImportRequest{Inputs: []string{"1", "2", "3", "4"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, "/import/batch", BatchImportRequest{Inputs: []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleClassify(t *testing.T) {
	r := setupRouter(nil, false)

	tests := map[string]common.SourceType{
		"https://youtu.be/x":        common.SourceYouTube,
		"https://www.tiktok.com/@a": common.SourceTikTok,
		"https://example.com/pie":   common.SourceWeb,
		"two eggs and flour":        common.SourceText,
	}
	for input, want := range tests {
		w := doJSON(r, "/classify", ClassifyRequest{Input: input})
		require.Equal(t, http.StatusOK, w.Code)

		var resp ClassifyResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, want, resp.SourceType, input)
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(common.ErrQueueFull))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusBadRequest, statusFor(common.NewValidationError("bad")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
