// Package config contains everything related to configuration
package config

import "time"

// Vendor endpoints and models used when the environment does not override them.
const (
	DefaultOllamaBaseURL = "http://localhost:11434"
	DefaultOllamaModel   = "qwen2.5:7b"

	DefaultQwenBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DefaultQwenModel   = "qwen-plus"

	DefaultErnieBaseURL  = "https://aip.baidubce.com/rpc/2.0/ai_custom/v1/wenxinworkshop/chat"
	DefaultErnieTokenURL = "https://aip.baidubce.com/oauth/2.0/token"
	DefaultErnieModel    = "ernie-4.0-8k"

	DefaultGeminiModel = "gemini-1.5-flash"
)

// Dispatch defaults.
const (
	defaultMaxRetries     = 3
	defaultRetryDelay     = time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultLogLevel       = "info"
	defaultRetention      = 30 * 24 * time.Hour
)

// appDirName is the directory under ~/.config holding state files.
const appDirName = "aid"
