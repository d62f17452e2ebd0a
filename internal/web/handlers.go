package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"navidad-ai/internal/editor"
	"navidad-ai/internal/utils"
)

const sessionKey = "session"

// generateRequest 预设 ID 与自定义指令二选一，预设优先
type generateRequest struct {
	PresetID    string `json:"presetId"`
	Instruction string `json:"instruction"`
}

type compareRequest struct {
	Comparing bool `json:"comparing"`
}

type errorResponse struct {
	Error string           `json:"error"`
	Kind  editor.ErrorKind `json:"kind,omitempty"`
}

func respondError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, errorResponse{
		Error: editor.UserMessage(err),
		Kind:  editor.Kind(err),
	})
}

func session(c *gin.Context) *editor.Session {
	return c.MustGet(sessionKey).(*editor.Session)
}

func (s *Server) loadSession(c *gin.Context) {
	sess, ok := s.store.Get(c.Param("id"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, errorResponse{Error: "session not found"})
		return
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func (s *Server) listPresets(c *gin.Context) {
	c.JSON(http.StatusOK, editor.Presets())
}

func (s *Server) createSession(c *gin.Context) {
	c.JSON(http.StatusCreated, s.store.Create().Snapshot())
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, session(c).Snapshot())
}

func (s *Server) resetSession(c *gin.Context) {
	sess := session(c)
	sess.Reset()
	c.JSON(http.StatusOK, sess.Snapshot())
}

// uploadImage 接收 multipart 表单中的 image 字段
func (s *Server) uploadImage(c *gin.Context) {
	// 多留 1 MiB 给表单其他部分，真正的大小校验在 Session.Upload 中
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes+1<<20)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, http.StatusRequestEntityTooLarge, editor.ErrFileTooLarge)
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "missing image file"})
		return
	}
	defer file.Close()

	if header.Size > s.maxUploadBytes {
		respondError(c, http.StatusRequestEntityTooLarge, editor.FileTooLargeError(header.Size, s.maxUploadBytes))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "failed to read image file"})
		return
	}

	sess := session(c)
	err = sess.Upload(editor.SourceImage{
		Data:     data,
		MIMEType: utils.DetectMIMEType(data, header.Header.Get("Content-Type")),
		Name:     header.Filename,
	})
	switch {
	case errors.Is(err, editor.ErrFileTooLarge):
		respondError(c, http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, editor.ErrBusy):
		respondError(c, http.StatusConflict, err)
	case err != nil:
		respondError(c, http.StatusBadRequest, err)
	default:
		c.JSON(http.StatusOK, sess.Snapshot())
	}
}

// generate 同步执行一次编辑；适配器失败时返回 200，错误体现在会话状态中
func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	sess := session(c)
	// 客户端断开不取消请求，只有重置会话才会取消
	ctx := context.WithoutCancel(c.Request.Context())
	var (
		snap editor.Snapshot
		err  error
	)
	if req.PresetID != "" {
		snap, err = sess.GeneratePreset(ctx, req.PresetID)
	} else {
		snap, err = sess.Generate(ctx, req.Instruction)
	}

	switch {
	case errors.Is(err, editor.ErrBusy), errors.Is(err, editor.ErrDiscarded):
		respondError(c, http.StatusConflict, err)
	case editor.Kind(err) == editor.KindPrecondition:
		respondError(c, http.StatusBadRequest, err)
	default:
		c.JSON(http.StatusOK, snap)
	}
}

func (s *Server) compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	sess := session(c)
	sess.SetComparing(req.Comparing)
	c.JSON(http.StatusOK, sess.Snapshot())
}

// image 返回原图、结果或当前展示的图片，variant 默认为 display
func (s *Server) image(c *gin.Context) {
	sess := session(c)

	var (
		data     []byte
		mimeType string
	)
	switch c.DefaultQuery("variant", "display") {
	case "original":
		src, ok := sess.Source()
		if !ok {
			respondError(c, http.StatusNotFound, editor.ErrNoSource)
			return
		}
		data, mimeType = src.Data, src.MIMEType
	case "result":
		res, _, err := sess.Result()
		if err != nil {
			respondError(c, http.StatusNotFound, err)
			return
		}
		data, mimeType = res.Data, res.MIMEType
	case "display":
		var shown editor.Displayed
		data, mimeType, shown = sess.DisplayedImage()
		if shown == editor.DisplayNone {
			respondError(c, http.StatusNotFound, editor.ErrNoSource)
			return
		}
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "unknown variant"})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mimeType, data)
}

func (s *Server) download(c *gin.Context) {
	res, name, err := session(c).Result()
	if err != nil {
		respondError(c, http.StatusNotFound, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Length", strconv.Itoa(len(res.Data)))
	c.Data(http.StatusOK, res.MIMEType, res.Data)
}
