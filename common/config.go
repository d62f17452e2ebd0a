package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultEditModelName 默认使用的图片编辑模型
const DefaultEditModelName = "gemini-2.5-flash-image"

// DefaultMaxUploadBytes 上传图片大小上限（5 MiB）
const DefaultMaxUploadBytes = 5 * 1024 * 1024

// Config 应用配置结构
type Config struct {
	// GenAI 配置
	GenAIBaseURL       string
	GenAIAPIKey        string
	GenAIEditModelName string
	// GenAI 请求超时时间（秒），0 表示不设置超时
	GenAITimeoutSeconds int
	// 每分钟允许发往 GenAI 的请求数，0 表示不限流
	GenAIRateLimitPerMinute int

	ServerAddress string
	ServerPort    string
	// 单张上传图片的大小上限（字节），固定为 DefaultMaxUploadBytes，与错误提示中的 5MB 保持一致
	MaxUploadBytes int64
	// 会话空闲多久后被回收（分钟）
	SessionTTLMinutes int

	// 日志配置
	LogLevel  string // 日志级别: debug, info, warn, error
	LogFormat string // 日志格式: json, text
	LogOutput string // 输出位置: stdout, stderr, file
	LogFile   string // 日志文件路径（当 LogOutput 为 file 时）
}

// LoadConfig 从 .env 文件和环境变量加载配置，并初始化日志
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
	}

	config := ConfigFromEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logConfig := &LogConfig{
		Level:    config.LogLevel,
		Format:   config.LogFormat,
		Output:   config.LogOutput,
		FilePath: config.LogFile,
	}
	if err := InitLogger(logConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return config, nil
}

// ConfigFromEnv 只读取环境变量，不做校验
func ConfigFromEnv() *Config {
	return &Config{
		GenAIBaseURL:            getEnv("GENAI_BASE_URL", ""),
		GenAIAPIKey:             firstEnv("GENAI_API_KEY", "GEMINI_API_KEY", "API_KEY"),
		GenAIEditModelName:      getEnv("GENAI_EDIT_MODEL_NAME", DefaultEditModelName),
		GenAITimeoutSeconds:     getEnvInt("GENAI_TIMEOUT_SECONDS", 0),
		GenAIRateLimitPerMinute: getEnvInt("GENAI_RATE_LIMIT_PER_MINUTE", 0),
		ServerAddress:           getEnv("SERVER_ADDRESS", "0.0.0.0"),
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		MaxUploadBytes:          DefaultMaxUploadBytes,
		SessionTTLMinutes:       getEnvInt("SESSION_TTL_MINUTES", 60),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "text"),
		LogOutput:               getEnv("LOG_OUTPUT", "stdout"),
		LogFile:                 getEnv("LOG_FILE", ""),
	}
}

// Validate 校验必需的配置项
func (c *Config) Validate() error {
	if c.GenAIAPIKey == "" {
		return fmt.Errorf("GENAI_API_KEY is required")
	}
	if c.GenAIEditModelName == "" {
		return fmt.Errorf("GENAI_EDIT_MODEL_NAME must not be empty")
	}
	if c.GenAITimeoutSeconds < 0 {
		return fmt.Errorf("GENAI_TIMEOUT_SECONDS must not be negative, got %d", c.GenAITimeoutSeconds)
	}
	if c.GenAIRateLimitPerMinute < 0 {
		return fmt.Errorf("GENAI_RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.GenAIRateLimitPerMinute)
	}
	return nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// firstEnv 按顺序返回第一个非空的环境变量
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

// getEnvInt 获取整型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	return defaultValue
}

// GetServerAddr 返回完整的服务器地址
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.ServerAddress, c.ServerPort)
}

// MaskAPIKey 隐藏 API Key 的敏感部分
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
