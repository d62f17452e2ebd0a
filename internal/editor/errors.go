package editor

import (
	"errors"
	"fmt"
)

// ErrorKind 错误分类，对外以字符串形式暴露
type ErrorKind string

const (
	KindNone                   ErrorKind = ""
	KindFileTooLarge           ErrorKind = "FileTooLarge"
	KindEmptyResponse          ErrorKind = "EmptyResponse"
	KindRefusalOrTextOnly      ErrorKind = "RefusalOrTextOnly"
	KindNoImageProduced        ErrorKind = "NoImageProduced"
	KindNetworkOrRemoteFailure ErrorKind = "NetworkOrRemoteFailure"
	KindPrecondition           ErrorKind = "Precondition"
)

// FallbackMessage 没有具体错误信息时展示给用户的文本
const FallbackMessage = "Ocurrió un error al procesar la imagen. Inténtalo de nuevo."

var (
	// ErrFileTooLarge 上传文件超过大小上限
	ErrFileTooLarge = errors.New("La imagen es demasiado grande. Máximo 5MB.")
	// ErrEmptyImage 上传内容为空
	ErrEmptyImage = errors.New("La imagen está vacía.")
	// ErrEmptyResponse 模型响应中没有任何内容
	ErrEmptyResponse = errors.New("No content generated")
	// ErrNoImageProduced 响应中既没有图片也没有文本
	ErrNoImageProduced = errors.New("No se generó ninguna imagen válida.")

	// 以下错误表示操作未被执行，会话状态保持不变
	ErrNoSource         = errors.New("no source image uploaded")
	ErrBlankInstruction = errors.New("instruction must not be blank")
	ErrBusy             = errors.New("an edit is already in progress")
	ErrUnknownPreset    = errors.New("unknown preset")
	ErrNoResult         = errors.New("no edited image available")
	// ErrDiscarded 编辑请求返回前会话已被重置，结果被丢弃
	ErrDiscarded = errors.New("edit discarded because the session was reset")
)

// RefusalError 模型只返回了文本（通常是拒绝说明）
type RefusalError struct {
	Text string
}

func (e *RefusalError) Error() string {
	return "Gemini respondió solo con texto: " + e.Text
}

// RemoteError 网络层或远端服务返回的错误
type RemoteError struct {
	Err error
}

func (e *RemoteError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// FileTooLargeError 生成带具体大小信息的超限错误，可用 errors.Is(err, ErrFileTooLarge) 判断
func FileTooLargeError(size, limit int64) error {
	return fmt.Errorf("%w (%d > %d bytes)", ErrFileTooLarge, size, limit)
}

// Kind 对任意错误进行分类
func Kind(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var refusal *RefusalError
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return KindFileTooLarge
	case errors.Is(err, ErrEmptyResponse):
		return KindEmptyResponse
	case errors.As(err, &refusal):
		return KindRefusalOrTextOnly
	case errors.Is(err, ErrNoImageProduced):
		return KindNoImageProduced
	case errors.Is(err, ErrNoSource), errors.Is(err, ErrBlankInstruction),
		errors.Is(err, ErrBusy), errors.Is(err, ErrUnknownPreset),
		errors.Is(err, ErrEmptyImage), errors.Is(err, ErrNoResult),
		errors.Is(err, ErrDiscarded):
		return KindPrecondition
	default:
		return KindNetworkOrRemoteFailure
	}
}

// UserMessage 返回展示给用户的错误文本
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrFileTooLarge) {
		return ErrFileTooLarge.Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackMessage
}
