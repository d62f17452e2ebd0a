package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"navidad-ai/common"
	"navidad-ai/internal/editor"
	"navidad-ai/internal/genai/gemini"
	"navidad-ai/internal/tools"
	"navidad-ai/internal/web"
)

var rootCmd = &cobra.Command{
	Use:   "navidad-ai",
	Short: "Christmas photo editor powered by Gemini image editing",
	Long: `navidad-ai serves a small web app that uploads a photo, applies a preset
or free-text instruction through Gemini and lets you compare and download the result.

Configuration is read from .env and environment variables (GENAI_API_KEY, SERVER_PORT, ...).

Examples:
  navidad-ai serve
  navidad-ai serve --port 9090
  navidad-ai mcp`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the editor as MCP tools over stdio",
	RunE:  runMCP,
}

var portFlag string

func init() {
	serveCmd.Flags().StringVarP(&portFlag, "port", "p", "", "Port to listen on (overrides SERVER_PORT)")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup 加载配置并创建 Gemini 客户端，进程内只创建一次并注入各处
func setup(ctx context.Context) (*common.Config, *gemini.Client, error) {
	config, err := common.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	common.WithFields(map[string]interface{}{
		"base_url": config.GenAIBaseURL,
		"model":    config.GenAIEditModelName,
		"api_key":  common.MaskAPIKey(config.GenAIAPIKey),
		"timeout":  config.GenAITimeoutSeconds,
	}).Info("Configuration loaded")

	client, err := gemini.NewClientFromConfig(ctx, config)
	if err != nil {
		return nil, nil, err
	}
	common.Infof("Gemini client ready, model %s", client.Model())
	return config, client, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, client, err := setup(ctx)
	if err != nil {
		return err
	}
	if portFlag != "" {
		config.ServerPort = portFlag
	}

	if common.GetLogger().IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	store := editor.NewStore(client,
		time.Duration(config.SessionTTLMinutes)*time.Minute,
		editor.WithMaxUploadBytes(config.MaxUploadBytes),
	)
	srv := web.NewServer(store, config.MaxUploadBytes).NewHTTPServer(config.GetServerAddr())

	errCh := make(chan error, 1)
	go func() {
		common.Infof("Starting web server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.Errorf("Web server stopped: %v", err)
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	common.Infof("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout 留给 MCP 协议
	if os.Getenv("LOG_OUTPUT") == "" {
		if err := os.Setenv("LOG_OUTPUT", "stderr"); err != nil {
			return fmt.Errorf("failed to redirect logs to stderr: %w", err)
		}
	}
	config, client, err := setup(context.Background())
	if err != nil {
		return err
	}

	s := server.NewMCPServer(
		"NavidadAI Editor",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	if err := tools.RegisterEditorTools(s, client, config.MaxUploadBytes); err != nil {
		return fmt.Errorf("failed to register editor tools: %w", err)
	}

	return server.ServeStdio(s)
}
