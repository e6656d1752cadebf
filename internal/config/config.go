package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache" validate:"required"`
	Uploads  UploadsConfig  `mapstructure:"uploads" validate:"required"`
	Tasks    TasksConfig    `mapstructure:"tasks" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" validate:"required,gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL     string `mapstructure:"url" validate:"required,url"`
	Migrate bool   `mapstructure:"migrate"`
}

// LLMConfig contains the task generation client settings.
type LLMConfig struct {
	Provider           string        `mapstructure:"provider" validate:"required,oneof=gemini openai"`
	GeminiAPIKey       string        `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	GeminiModel        string        `mapstructure:"gemini_model" validate:"required_if=Provider gemini"`
	OpenAIAPIKey       string        `mapstructure:"openai_api_key" validate:"required_if=Provider openai"`
	OpenAIModel        string        `mapstructure:"openai_model" validate:"required_if=Provider openai"`
	BaseURL            string        `mapstructure:"base_url" validate:"omitempty,url"`
	PromptTemplatePath string        `mapstructure:"prompt_template_path"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout" validate:"required,gt=0"`
	DefaultTaskCount   int           `mapstructure:"default_task_count" validate:"required,gt=0,lte=100"`
	Temperature        float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens          int           `mapstructure:"max_tokens" validate:"required,gt=0"`
	MaxRetries         uint64        `mapstructure:"max_retries" validate:"lte=10"`
	RetryBaseDelay     time.Duration `mapstructure:"retry_base_delay" validate:"required,gt=0"`
}

// CacheConfig selects and configures the generation cache backend.
type CacheConfig struct {
	Backend    string        `mapstructure:"backend" validate:"required,oneof=memory file redis"`
	Dir        string        `mapstructure:"dir" validate:"required_if=Backend file"`
	RedisURL   string        `mapstructure:"redis_url" validate:"required_if=Backend redis"`
	TTL        time.Duration `mapstructure:"ttl" validate:"required,gt=0"`
	MemorySize int           `mapstructure:"memory_size" validate:"required_if=Backend memory,gte=0"`
}

// UploadsConfig contains settings for the raw upload store.
type UploadsConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// TasksConfig contains settings for the background task runner.
type TasksConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"required,gt=0"`
}
