package editor

import (
	"context"
	"strings"
	"sync"
	"time"

	"navidad-ai/common"
	"navidad-ai/internal/utils"
)

// Displayed 当前展示的是哪张图片
type Displayed string

const (
	DisplayNone     Displayed = ""
	DisplayOriginal Displayed = "original"
	DisplayResult   Displayed = "result"
)

// Snapshot 会话状态的只读副本
type Snapshot struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	HasSource      bool      `json:"hasSource"`
	SourceName     string    `json:"sourceName,omitempty"`
	SourceMIMEType string    `json:"sourceMimeType,omitempty"`
	SourceSize     int       `json:"sourceSize"`
	HasResult      bool      `json:"hasResult"`
	Result         string    `json:"result,omitempty"`
	Error          string    `json:"error,omitempty"`
	ErrorKind      ErrorKind `json:"errorKind,omitempty"`
	Instruction    string    `json:"instruction,omitempty"`
	Comparing      bool      `json:"comparing"`
	Displayed      Displayed `json:"displayed"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// SessionOption 会话可选配置
type SessionOption func(*Session)

// WithMaxUploadBytes 设置上传大小上限
func WithMaxUploadBytes(n int64) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithClock 替换时间来源（用于测试）
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session 单个用户的交互状态机：
// Idle -upload-> Idle, {Idle,Success,Error} -generate-> Processing -> Success|Error, * -reset-> Idle
type Session struct {
	id             string
	editor         Editor
	maxUploadBytes int64
	now            func() time.Time

	mu          sync.Mutex
	status      Status
	source      *SourceImage
	result      *EditResult
	errMsg      string
	errKind     ErrorKind
	instruction string
	comparing   bool
	updatedAt   time.Time

	// epoch 每次 generate/reset 递增，用于识别过期的编辑结果
	epoch  uint64
	cancel context.CancelFunc
}

// NewSession 创建空会话，editor 由调用方注入
func NewSession(id string, editor Editor, opts ...SessionOption) *Session {
	s := &Session{
		id:             id,
		editor:         editor,
		maxUploadBytes: common.DefaultMaxUploadBytes,
		now:            time.Now,
		status:         StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.updatedAt = s.now()
	return s
}

// ID 返回会话 ID
func (s *Session) ID() string {
	return s.id
}

// Upload 设置原始图片。超过大小上限时返回 ErrFileTooLarge，会话保持不变。
// 调用方交出 img.Data 的所有权。
func (s *Session) Upload(img SourceImage) error {
	size := int64(len(img.Data))
	if size > s.maxUploadBytes {
		return FileTooLargeError(size, s.maxUploadBytes)
	}
	if size == 0 {
		return ErrEmptyImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusProcessing {
		return ErrBusy
	}

	s.source = &img
	s.result = nil
	s.errMsg = ""
	s.errKind = KindNone
	s.comparing = false
	s.status = StatusIdle
	s.touch()

	common.WithFields(map[string]interface{}{
		"session":   s.id,
		"mime_type": img.MIMEType,
		"size":      size,
	}).Debug("Source image uploaded")
	return nil
}

// Generate 使用给定指令编辑当前图片。
// 前置条件不满足时（无图片、指令为空、正在处理）返回对应错误且不改变状态；
// 适配器失败时会话进入 Error 状态，并同时返回该错误。
func (s *Session) Generate(ctx context.Context, instruction string) (Snapshot, error) {
	s.mu.Lock()
	switch {
	case s.status == StatusProcessing:
		s.mu.Unlock()
		return s.Snapshot(), ErrBusy
	case s.source == nil:
		s.mu.Unlock()
		return s.Snapshot(), ErrNoSource
	case strings.TrimSpace(instruction) == "":
		s.mu.Unlock()
		return s.Snapshot(), ErrBlankInstruction
	}

	s.epoch++
	epoch := s.epoch
	callCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.status = StatusProcessing
	s.errMsg = ""
	s.errKind = KindNone
	s.instruction = instruction
	s.touch()
	req := EditRequest{
		Image:       s.source.Data,
		MIMEType:    s.source.MIMEType,
		Instruction: instruction,
	}
	s.mu.Unlock()

	result, err := s.editor.EditImage(callCtx, req)
	cancel()

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		common.WithField("session", s.id).Info("Discarding edit result after session reset")
		return s.Snapshot(), ErrDiscarded
	}
	s.cancel = nil

	if err == nil && result == nil {
		err = ErrNoImageProduced
	}
	if err != nil {
		s.status = StatusError
		s.errMsg = UserMessage(err)
		s.errKind = Kind(err)
		s.touch()
		s.mu.Unlock()

		common.WithError(err).WithFields(map[string]interface{}{
			"session": s.id,
			"kind":    Kind(err),
		}).Warn("Image edit failed")
		return s.Snapshot(), err
	}

	s.result = result
	s.status = StatusSuccess
	s.comparing = false
	s.touch()
	s.mu.Unlock()

	common.WithFields(map[string]interface{}{
		"session": s.id,
		"size":    len(result.Data),
	}).Info("Image edited successfully")
	return s.Snapshot(), nil
}

// GeneratePreset 使用预设指令编辑图片
func (s *Session) GeneratePreset(ctx context.Context, presetID string) (Snapshot, error) {
	p, ok := FindPreset(presetID)
	if !ok {
		return s.Snapshot(), ErrUnknownPreset
	}
	return s.Generate(ctx, p.Instruction)
}

// Reset 从任意状态回到 Idle 并清空所有临时数据，同时取消进行中的请求
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.epoch++
	s.status = StatusIdle
	s.source = nil
	s.result = nil
	s.errMsg = ""
	s.errKind = KindNone
	s.instruction = ""
	s.comparing = false
	s.touch()
}

// SetComparing 设置“按住对比”状态，没有结果时始终为 false
func (s *Session) SetComparing(on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comparing = on && s.result != nil
	return s.comparing
}

// DisplayedImage 返回当前应展示的图片数据和 MIME 类型
func (s *Session) DisplayedImage() ([]byte, string, Displayed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.displayed() {
	case DisplayResult:
		return s.result.Data, s.result.MIMEType, DisplayResult
	case DisplayOriginal:
		return s.source.Data, s.source.MIMEType, DisplayOriginal
	default:
		return nil, "", DisplayNone
	}
}

// Source 返回原始图片
func (s *Session) Source() (*SourceImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source, s.source != nil
}

// Result 返回当前结果以及带时间戳的下载文件名
func (s *Session) Result() (*EditResult, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil, "", ErrNoResult
	}
	return s.result, utils.DownloadFileName(s.now()), nil
}

// Snapshot 返回当前状态的副本
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:          s.id,
		Status:      s.status,
		HasSource:   s.source != nil,
		HasResult:   s.result != nil,
		Error:       s.errMsg,
		ErrorKind:   s.errKind,
		Instruction: s.instruction,
		Comparing:   s.comparing,
		Displayed:   s.displayed(),
		UpdatedAt:   s.updatedAt,
	}
	if s.source != nil {
		snap.SourceName = s.source.Name
		snap.SourceMIMEType = s.source.MIMEType
		snap.SourceSize = len(s.source.Data)
	}
	if s.result != nil {
		snap.Result = s.result.DataURI()
	}
	return snap
}

func (s *Session) displayed() Displayed {
	switch {
	case s.result != nil && !s.comparing:
		return DisplayResult
	case s.source != nil:
		return DisplayOriginal
	default:
		return DisplayNone
	}
}

func (s *Session) touch() {
	s.updatedAt = s.now()
}
