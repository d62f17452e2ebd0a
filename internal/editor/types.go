package editor

import (
	"context"
	"encoding/base64"
)

// ResultMIMEType 模型输出统一按 PNG 标记，与输入格式无关
const ResultMIMEType = "image/png"

// Status 会话状态
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusProcessing Status = "PROCESSING"
	StatusSuccess    Status = "SUCCESS"
	StatusError      Status = "ERROR"
)

// SourceImage 用户上传的原始图片，仅保存在内存中
type SourceImage struct {
	Data     []byte
	MIMEType string
	Name     string
}

// EditRequest 单次编辑请求
type EditRequest struct {
	Image       []byte
	MIMEType    string
	Instruction string
}

// EditResult 编辑成功后的图片
type EditResult struct {
	Data     []byte
	MIMEType string
}

// DataURI 返回可直接展示的 data URI
func (r *EditResult) DataURI() string {
	return "data:" + r.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Editor 图片编辑适配器接口，由 gemini 客户端实现
type Editor interface {
	EditImage(ctx context.Context, req EditRequest) (*EditResult, error)
}

// EditorFunc 允许普通函数充当 Editor
type EditorFunc func(ctx context.Context, req EditRequest) (*EditResult, error)

func (f EditorFunc) EditImage(ctx context.Context, req EditRequest) (*EditResult, error) {
	return f(ctx, req)
}
