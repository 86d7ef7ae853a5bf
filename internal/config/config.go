package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Host     string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"SERVER_HTTP_PORT" default:"8080"`

	Environment string `envconfig:"SERVER_ENV" default:"development"`

	// Timeouts
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"30s"`
	FeedbackTimeout time.Duration `envconfig:"FEEDBACK_TIMEOUT" default:"45s"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// LLM
	LLMProvider   string `envconfig:"LLM_PROVIDER" default:"openai"`
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// SpeechAce
	SpeechAceAPIKey   string `envconfig:"SPEECHACE_API_KEY"`
	SpeechAceEndpoint string `envconfig:"SPEECHACE_API_ENDPOINT" default:"https://api.speechace.co"`

	// ElevenLabs
	ElevenLabsAPIKey   string `envconfig:"ELEVENLABS_API_KEY"`
	ElevenLabsBaseURL  string `envconfig:"ELEVENLABS_BASE_URL" default:"https://api.elevenlabs.io"`
	ElevenLabsVoiceID  string `envconfig:"ELEVENLABS_VOICE_ID" default:"pNInz6obpgDQGcFmaJgB"`
	ElevenLabsTTSModel string `envconfig:"ELEVENLABS_TTS_MODEL" default:"eleven_multilingual_v2"`
	ElevenLabsSTTModel string `envconfig:"ELEVENLABS_STT_MODEL" default:"scribe_v1"`

	// Redis
	RedisURL      string        `envconfig:"REDIS_URL"`
	AudioCacheTTL time.Duration `envconfig:"AUDIO_CACHE_TTL" default:"720h"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Object storage
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"r2"`

	// Cloudflare R2
	CloudflareAccessKeyID string `envconfig:"CLOUDFLARE_ACCESS_KEY_ID"`
	CloudflareSecretKey   string `envconfig:"CLOUDFLARE_SECRET_ACCESS_KEY"`
	CloudflareR2Endpoint  string `envconfig:"CLOUDFLARE_R2_ENDPOINT"`
	CloudflarePublicURL   string `envconfig:"CLOUDFLARE_PUBLIC_URL"`
	CloudflareBucketName  string `envconfig:"CLOUDFLARE_BUCKET_NAME"`

	// Google Cloud Storage
	GCSBucketName      string `envconfig:"GCS_BUCKET_NAME"`
	GCSCredentialsFile string `envconfig:"GCS_CREDENTIALS_FILE"`

	// Audio download
	AudioAllowedHosts []string `envconfig:"AUDIO_ALLOWED_HOSTS"`

	// Auth
	JWTSecret string `envconfig:"AUTH_JWT_SECRET"`

	// CORS
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	CORSAllowedMethods []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,DELETE,OPTIONS"`
	CORSAllowedHeaders []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Accept,Authorization,Content-Type,X-Request-ID"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q (use openai or gemini)", c.LLMProvider)
	}
	switch c.StorageBackend {
	case "r2", "gcs":
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q (use r2 or gcs)", c.StorageBackend)
	}
	return nil
}

// HTTPAddress returns the HTTP server address.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// AuthEnabled reports whether bearer tokens are required on /api routes.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// R2Configured reports whether every Cloudflare R2 setting is present.
func (c *Config) R2Configured() bool {
	return c.CloudflareAccessKeyID != "" && c.CloudflareSecretKey != "" &&
		c.CloudflareR2Endpoint != "" && c.CloudflareBucketName != ""
}

// AudioHosts lists the hosts learner audio may be downloaded from. It is empty
// (any public host) unless AUDIO_ALLOWED_HOSTS is set, in which case the
// configured object store host is added.
func (c *Config) AudioHosts() []string {
	if len(c.AudioAllowedHosts) == 0 {
		return nil
	}
	hosts := append([]string(nil), c.AudioAllowedHosts...)
	switch c.StorageBackend {
	case "gcs":
		hosts = append(hosts, "storage.googleapis.com")
	default:
		if u, err := url.Parse(c.CloudflarePublicURL); err == nil && u.Hostname() != "" {
			hosts = append(hosts, u.Hostname())
		}
	}
	return hosts
}
