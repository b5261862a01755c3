package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	StoreLocal = "local"
	StoreS3    = "s3"

	defaultGeminiModel = "gemini-2.0-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

// ErrMissingCredential is returned when the model API key is not configured.
var ErrMissingCredential = errors.New("missing model API credential")

// ErrMissingSetting is returned when a required companion setting is absent.
var ErrMissingSetting = errors.New("required setting is empty")

// Error is a fatal configuration problem detected at startup.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string
	LLMProvider     string
	LLMModel        string
	LLMTimeout      time.Duration
	GeminiAPIKey    string
	OpenAIAPIKey    string
	MaxUploadBytes  int64
	SessionTTL      time.Duration
	SearchEnabled   bool
}

// Load reads configuration from environment variables with sensible defaults.
// A missing credential for the selected provider yields a *Error.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:8080")),
		ObjectStoreType: normalizeStore(getEnv("OBJECT_STORE", StoreLocal)),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", filepath.Join(os.TempDir(), "medscan")),
		AWSRegion:       strings.TrimSpace(os.Getenv("AWS_REGION")),
		S3Bucket:        strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Prefix:        getEnv("S3_PREFIX", "scratch/"),
		SSEKMSKeyID:     strings.TrimSpace(os.Getenv("S3_SSE_KMS_KEY_ID")),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LLMProvider:     normalizeProvider(getEnv("LLM_PROVIDER", ProviderGemini)),
		LLMModel:        strings.TrimSpace(os.Getenv("LLM_MODEL")),
		LLMTimeout:      time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
		GeminiAPIKey:    strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		OpenAIAPIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		MaxUploadBytes:  int64(getEnvInt("MAX_UPLOAD_BYTES", 20<<20)),
		SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
		SearchEnabled:   getEnvBool("SEARCH_ENABLED", true),
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModel(cfg.LLMProvider)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	// The Google client libraries look for GOOGLE_API_KEY.
	if cfg.LLMProvider == ProviderGemini {
		_ = os.Setenv("GOOGLE_API_KEY", cfg.GeminiAPIKey)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return &Error{Key: "OPENAI_API_KEY", Err: ErrMissingCredential}
		}
	default:
		if c.GeminiAPIKey == "" {
			return &Error{Key: "GEMINI_API_KEY", Err: ErrMissingCredential}
		}
	}
	if c.ObjectStoreType == StoreS3 && c.S3Bucket == "" {
		return &Error{Key: "S3_BUCKET", Err: ErrMissingSetting}
	}
	return nil
}

// APIKey returns the credential for the configured provider.
func (c Config) APIKey() string {
	if c.LLMProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ProviderOpenAI:
		return ProviderOpenAI
	default:
		return ProviderGemini
	}
}

func normalizeStore(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), StoreS3) {
		return StoreS3
	}
	return StoreLocal
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return defaultOpenAIModel
	}
	return defaultGeminiModel
}
