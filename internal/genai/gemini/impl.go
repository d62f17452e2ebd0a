package gemini

import (
	"context"
	"fmt"
	"time"

	"navidad-ai/common"
	"navidad-ai/internal/editor"
)

var _ editor.Editor = (*Client)(nil)

// NewClientFromConfig 从应用配置创建 Gemini 客户端
func NewClientFromConfig(ctx context.Context, cfg *common.Config) (*Client, error) {
	client, err := NewClient(ctx, Config{
		APIKey:             cfg.GenAIAPIKey,
		BaseURL:            cfg.GenAIBaseURL,
		ModelName:          cfg.GenAIEditModelName,
		Timeout:            time.Duration(cfg.GenAITimeoutSeconds) * time.Second,
		RateLimitPerMinute: cfg.GenAIRateLimitPerMinute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}
