package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// createRequest 儲存服務的建立請求
type createRequest struct {
	RecipeData *common.ImportedRecipe `json:"recipeData"`
	UserID     string                 `json:"userId"`
}

// createResponse 儲存服務的建立回應
type createResponse struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// Client 食譜儲存服務客戶端
type Client struct {
	client *resty.Client
	userID string
}

// NewClient 創建儲存服務客戶端
func NewClient(cfg config.StorageConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("storage base URL is required")
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	userID := cfg.UserID
	if userID == "" {
		userID = "public"
	}

	return &Client{client: client, userID: userID}, nil
}

// Create 儲存食譜並返回新建立的 ID
func (c *Client) Create(ctx context.Context, recipe *common.ImportedRecipe) (string, error) {
	if recipe == nil {
		return "", common.ErrInvalidRequest.Wrap(errors.New("recipe is nil"))
	}

	start := time.Now()
	var result createResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(createRequest{RecipeData: recipe, UserID: c.userID}).
		SetResult(&result).
		SetError(&result).
		Post("/api/recipes")
	if err != nil {
		return "", common.ErrStorageError.Wrap(fmt.Errorf("sending request: %w", err))
	}

	if resp.StatusCode() != http.StatusCreated {
		msg := result.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return "", common.ErrStorageError.Wrap(fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), msg))
	}
	if result.ID == "" {
		return "", common.ErrStorageError.Wrap(errors.New("response has no id"))
	}

	common.LogInfo("食譜已儲存",
		zap.String("recipe_id", result.ID),
		zap.String("source_type", string(recipe.SourceType)),
		zap.Duration("耗時", time.Since(start)),
	)
	return result.ID, nil
}
