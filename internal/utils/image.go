package utils

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// ErrImageTooLarge 下载的图片超过允许的大小
var ErrImageTooLarge = errors.New("image exceeds size limit")

var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

// ParseDataURI 解析 data:<mime>;base64,<data> 格式的字符串
func ParseDataURI(uri string) ([]byte, string, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, "", fmt.Errorf("not a data URI")
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("invalid data URI format")
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}
	mimeType := strings.TrimSuffix(header, ";base64")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64 data: %w", err)
	}
	return data, DetectMIMEType(data, mimeType), nil
}

// LoadImage 从 data URI 或 http(s) URL 读取图片，最多读取 maxBytes 字节
func LoadImage(ctx context.Context, ref string, maxBytes int64) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		data, mimeType, err := ParseDataURI(ref)
		if err != nil {
			return nil, "", err
		}
		if int64(len(data)) > maxBytes {
			return nil, "", ErrImageTooLarge
		}
		return data, mimeType, nil
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return DownloadImageFromURL(ctx, ref, maxBytes)
	default:
		return nil, "", fmt.Errorf("unsupported image reference: expected data URI or http(s) URL")
	}
}

// DownloadImageFromURL 从 URL 下载图片，返回图片数据和 MIME 类型
func DownloadImageFromURL(ctx context.Context, url string, maxBytes int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download image: status code %d", resp.StatusCode)
	}

	// 多读一个字节用于判断是否超限
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxBytes {
		return nil, "", ErrImageTooLarge
	}

	return data, DetectMIMEType(data, resp.Header.Get("Content-Type")), nil
}

// DetectMIMEType 优先使用声明的 image/* 类型，否则根据内容嗅探
func DetectMIMEType(data []byte, declared string) string {
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	return mimetype.Detect(data).String()
}

// DownloadFileName 生成下载文件名：navidad-ai-{毫秒时间戳}.png
func DownloadFileName(t time.Time) string {
	return fmt.Sprintf("navidad-ai-%d.png", t.UnixMilli())
}

// TruncateForLog 截断长字符串用于日志，避免打印过长内容（如 base64）
func TruncateForLog(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
