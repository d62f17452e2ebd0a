package gemini

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"navidad-ai/common"
	"navidad-ai/internal/editor"
	"navidad-ai/internal/utils"
)

// contentGenerator 抽象 genai 的 GenerateContent 调用，便于测试替换
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client Gemini 图片编辑客户端
type Client struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// Config Gemini 客户端配置
type Config struct {
	APIKey    string // API Key
	BaseURL   string // 自定义 Base URL，如果为空则使用默认值
	ModelName string // 模型名称，例如：gemini-2.5-flash-image
	// 单次请求超时时间，0 表示不设置
	Timeout time.Duration
	// 每分钟请求上限，0 表示不限流
	RateLimitPerMinute int
}

// NewClient 创建新的 Gemini 客户端
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newClient(client.Models, cfg), nil
}

func newClient(models contentGenerator, cfg Config) *Client {
	model := cfg.ModelName
	if model == "" {
		model = common.DefaultEditModelName
	}

	c := &Client{
		models:  models,
		model:   model,
		timeout: cfg.Timeout,
	}
	if cfg.RateLimitPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimitPerMinute)), 1)
	}
	return c
}

// Model 返回使用的模型名称
func (c *Client) Model() string {
	return c.model
}

// EditImage 发送一张图片和一条指令，返回模型生成的第一张图片
func (c *Client) EditImage(ctx context.Context, req editor.EditRequest) (*editor.EditResult, error) {
	fields := map[string]interface{}{
		"model":       c.model,
		"mime_type":   req.MIMEType,
		"size":        len(req.Image),
		"instruction": utils.TruncateForLog(req.Instruction, 80),
	}
	common.WithFields(fields).Debug("Starting image editing")

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			common.Warnf("Rate limiter wait aborted for model %s: %v", c.model, err)
			return nil, &editor.RemoteError{Err: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{
					InlineData: &genai.Blob{
						Data:     req.Image,
						MIMEType: req.MIMEType,
					},
				},
				{Text: req.Instruction},
			},
		},
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		common.WithError(err).WithFields(fields).Error("Gemini API Error")
		return nil, &editor.RemoteError{Err: err}
	}

	result, err := decodeResponse(resp)
	if err != nil {
		common.WithError(err).WithFields(fields).Warn("Gemini response did not contain an image")
		return nil, err
	}

	common.WithFields(map[string]interface{}{
		"model":    c.model,
		"size":     len(result.Data),
		"duration": time.Since(start).String(),
	}).Debug("Image edited successfully")
	return result, nil
}

// decodeResponse 按顺序解析响应：
// 无内容 -> ErrEmptyResponse；第一个内联图片 -> 结果（统一标记为 PNG）；
// 仅有文本 -> RefusalError；其他 -> ErrNoImageProduced
func decodeResponse(resp *genai.GenerateContentResponse) (*editor.EditResult, error) {
	parts := firstCandidateParts(resp)
	if len(parts) == 0 {
		return nil, editor.ErrEmptyResponse
	}

	for _, part := range parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return &editor.EditResult{
				Data:     part.InlineData.Data,
				MIMEType: editor.ResultMIMEType,
			}, nil
		}
	}

	for _, part := range parts {
		if part != nil && part.Text != "" {
			return nil, &editor.RefusalError{Text: part.Text}
		}
	}

	return nil, editor.ErrNoImageProduced
}

func firstCandidateParts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil
	}
	return candidate.Content.Parts
}
