package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Provider kinds accepted for PROVIDER_A / PROVIDER_B.
const (
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"
)

// Config holds application configuration
type Config struct {
	Port        string `validate:"required,numeric"`
	Env         string `validate:"required"`
	LogLevel    string `validate:"oneof=debug info warn warning error"`
	DatabaseURL string

	RedisAddr           string
	RedisPassword       string
	RedisTLS            bool
	CustomReplyCacheTTL time.Duration `validate:"gte=0"`

	// Reply pipeline gateways. An empty kind leaves that stage unconfigured.
	ProviderA       string        `validate:"omitempty,oneof=openai gemini bedrock"`
	ProviderB       string        `validate:"omitempty,oneof=openai gemini bedrock"`
	ProviderTimeout time.Duration `validate:"gt=0"`
	// Per-call generation limits passed to both gateways.
	ProviderMaxTokens   int     `validate:"gte=0,lte=32768"`
	ProviderTemperature float64 `validate:"gte=0,lte=2"`

	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	GeminiAPIKey   string
	GeminiModel    string
	BedrockModelID string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	VideoBucket   string
	VideoMaxBytes int64 `validate:"gt=0"`

	AdminJWTSecret string
	AdminTokenTTL  time.Duration `validate:"gt=0"`

	// Seed admin created on startup when the admins table is empty.
	BootstrapAdminUsername string
	BootstrapAdminPassword string `validate:"omitempty,min=8"`

	CORSAllowedOrigins []string
	ChatRateLimit      float64 `validate:"gte=0"`
	ChatRateBurst      int     `validate:"gte=1"`
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisTLS:            getEnvAsBool("REDIS_TLS", false),
		CustomReplyCacheTTL: getEnvAsDuration("CUSTOM_REPLY_CACHE_TTL", 5*time.Minute),

		ProviderA:       strings.ToLower(strings.TrimSpace(getEnv("PROVIDER_A", ProviderOpenAI))),
		ProviderB:       strings.ToLower(strings.TrimSpace(getEnv("PROVIDER_B", ProviderGemini))),
		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", 20*time.Second),

		ProviderMaxTokens:   getEnvAsInt("PROVIDER_MAX_TOKENS", 512),
		ProviderTemperature: getEnvAsFloat("PROVIDER_TEMPERATURE", 0.4),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		VideoBucket:   getEnv("VIDEO_BUCKET", ""),
		VideoMaxBytes: int64(getEnvAsInt("VIDEO_MAX_BYTES", 200<<20)),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		AdminTokenTTL:  getEnvAsDuration("ADMIN_TOKEN_TTL", 12*time.Hour),

		BootstrapAdminUsername: getEnv("ADMIN_BOOTSTRAP_USERNAME", ""),
		BootstrapAdminPassword: getEnv("ADMIN_BOOTSTRAP_PASSWORD", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		ChatRateLimit:      getEnvAsFloat("CHAT_RATE_LIMIT", 1),
		ChatRateBurst:      getEnvAsInt("CHAT_RATE_BURST", 5),
	}
}

// Validate checks struct constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.ProviderA != "" && c.ProviderA == c.ProviderB {
		return fmt.Errorf("config: PROVIDER_A and PROVIDER_B must differ, both are %q", c.ProviderA)
	}
	if c.Env == "production" {
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required in production")
		}
		if c.AdminJWTSecret == "" {
			return fmt.Errorf("config: ADMIN_JWT_SECRET is required in production")
		}
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
