package web

import (
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"navidad-ai/common"
	"navidad-ai/internal/editor"
)

//go:embed static
var staticFS embed.FS

// Server 提供页面和会话 API
type Server struct {
	store          *editor.Store
	maxUploadBytes int64
}

// NewServer 创建 HTTP 服务
func NewServer(store *editor.Store, maxUploadBytes int64) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = common.DefaultMaxUploadBytes
	}
	return &Server{
		store:          store,
		maxUploadBytes: maxUploadBytes,
	}
}

// Handler 构建 gin 路由
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), securityHeaders())

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	r.GET("/", func(c *gin.Context) {
		c.FileFromFS("/", http.FS(static))
	})

	api := r.Group("/api")
	api.GET("/presets", s.listPresets)
	api.POST("/sessions", s.createSession)

	sess := api.Group("/sessions/:id", s.loadSession)
	sess.GET("", s.getSession)
	sess.DELETE("", s.resetSession)
	sess.POST("/image", s.uploadImage)
	sess.POST("/generate", s.generate)
	sess.PUT("/compare", s.compare)
	sess.GET("/image", s.image)
	sess.GET("/download", s.download)

	return r
}

// NewHTTPServer 用给定地址包装成 http.Server
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
