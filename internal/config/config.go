package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ent0n29/interviewer/internal/storage"
)

// Config contains all runtime settings for the interviewer service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	LogLevel         string
	APIKey           string
	AllowAnyOrigin   bool

	// InterviewDuration is the wall-clock budget of every interview.
	InterviewDuration time.Duration
	AllowEmptyContext bool
	HistoryLimit      int

	Store storage.Config

	LLMProvider string
	LLMTimeout  time.Duration

	GroqAPIKey  string
	GroqModel   string
	GroqBaseURL string

	OllamaBaseURL string
	OllamaModel   string

	OpenAIAPIKey string
	OpenAIModel  string

	AnthropicAPIKey string
	AnthropicModel  string

	GeminiAPIKey string
	GeminiModel  string

	AzureOpenAIEndpoint   string
	AzureOpenAIAPIKey     string
	AzureOpenAIDeployment string

	LLMHTTPURL string

	AzureSpeechKey    string
	AzureSpeechRegion string
}

// LoadEnvFile merges a dotenv file into the process environment. Variables that
// are already set win. A missing default file is not an error.
func LoadEnvFile(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "interviewer"),
		LogLevel:         envOrDefault("APP_LOG_LEVEL", "info"),
		APIKey:           stringsTrimSpace("APP_API_KEY"),
		ShutdownTimeout:  15 * time.Second,
		LLMProvider:      envOrDefault("LLM_PROVIDER", "auto"),
		LLMTimeout:       60 * time.Second,
		GroqAPIKey:       stringsTrimSpace("GROQ_API_KEY"),
		GroqModel:        envOrDefault("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL:      envOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		// Ollama exposes an OpenAI-compatible endpoint under /v1.
		OllamaBaseURL:         envOrDefault("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		OllamaModel:           envOrDefault("OLLAMA_MODEL", "llama3.1"),
		OpenAIAPIKey:          stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIModel:           envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey:       stringsTrimSpace("ANTHROPIC_API_KEY"),
		AnthropicModel:        envOrDefault("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		GeminiAPIKey:          stringsTrimSpace("GEMINI_API_KEY"),
		GeminiModel:           envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		AzureOpenAIEndpoint:   stringsTrimSpace("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIAPIKey:     stringsTrimSpace("AZURE_OPENAI_API_KEY"),
		AzureOpenAIDeployment: envOrDefault("AZURE_OPENAI_DEPLOYMENT", "gpt-4o"),
		LLMHTTPURL:            stringsTrimSpace("LLM_HTTP_URL"),
		AzureSpeechKey:        stringsTrimSpace("AZURE_SPEECH_KEY"),
		AzureSpeechRegion:     stringsTrimSpace("AZURE_SPEECH_REGION"),
		Store: storage.Config{
			DatabaseURL: stringsTrimSpace("DATABASE_URL"),
			SQLitePath:  stringsTrimSpace("SQLITE_PATH"),
			RedisURL:    stringsTrimSpace("REDIS_URL"),
		},
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTimeout, err = durationFromEnv("LLM_TIMEOUT", cfg.LLMTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", false)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowEmptyContext, err = boolFromEnv("INTERVIEW_ALLOW_EMPTY_CONTEXT", false)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("INTERVIEW_HISTORY_LIMIT", 0)
	if err != nil {
		return Config{}, err
	}

	minutes, err := intFromEnv("INTERVIEW_DURATION", 30)
	if err != nil {
		return Config{}, err
	}
	if minutes <= 0 {
		return Config{}, fmt.Errorf("INTERVIEW_DURATION must be a positive number of minutes")
	}
	cfg.InterviewDuration = time.Duration(minutes) * time.Minute

	if cfg.HistoryLimit < 0 {
		return Config{}, fmt.Errorf("INTERVIEW_HISTORY_LIMIT must be >= 0")
	}
	if cfg.LLMTimeout <= 0 {
		return Config{}, fmt.Errorf("LLM_TIMEOUT must be positive")
	}

	cfg.Store.Backend, err = storage.ParseBackend(envOrDefault("STORE_BACKEND", "auto"))
	if err != nil {
		return Config{}, fmt.Errorf("STORE_BACKEND: %w", err)
	}
	cfg.Store, err = cfg.Store.Resolve()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
