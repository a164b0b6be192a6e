package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the complete server configuration
type Config struct {
	Server     ServerConfig
	Logging    LoggingConfig
	Session    SessionConfig
	Speech     SpeechConfig
	Synthesis  SynthesisConfig
	Auth       AuthConfig
	PhraseFile string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port      string
	StaticDir string
	IndexFile string
}

// LoggingConfig selects the zap logger
type LoggingConfig struct {
	Env   string // "development" picks the development logger
	Level string
}

// SessionConfig bounds one connection's turns
type SessionConfig struct {
	MaxBytes        int
	ChunkMode       string
	TurnTimeout     time.Duration
	ProviderTimeout time.Duration
}

// SpeechConfig selects and tunes the transcription provider
type SpeechConfig struct {
	Provider     string
	Language     string
	Encoding     string
	SampleRate   int
	GeminiAPIKey string
	GeminiModel  string
}

// SynthesisConfig selects and tunes the speech synthesis provider
type SynthesisConfig struct {
	Provider     string
	APIKey       string
	APIBaseURL   string
	ModelID      string
	OutputFormat string
	Stability    float64
	Clarity      float64
}

// AuthConfig enables the /ws token gate when Secret is set
type AuthConfig struct {
	Secret string
}

// Load reads .env files (the working directory's .env when none are given)
// and then the process environment. A missing default .env is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env files: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var errs []error
	config := &Config{
		Server: ServerConfig{
			Port:      getString("PORT", "8080"),
			StaticDir: getString("STATIC_DIR", "static"),
			IndexFile: getString("INDEX_FILE", "templates/index.html"),
		},
		Logging: LoggingConfig{
			Env:   getString("APP_ENV", "production"),
			Level: strings.ToLower(getString("LOG_LEVEL", "info")),
		},
		Session: SessionConfig{
			MaxBytes:        getInt("SESSION_MAX_BYTES", 10*1024*1024, &errs),
			ChunkMode:       strings.ToLower(getString("SESSION_CHUNK_MODE", "first")),
			TurnTimeout:     getDuration("TURN_TIMEOUT", 45*time.Second, &errs),
			ProviderTimeout: getDuration("PROVIDER_TIMEOUT", 15*time.Second, &errs),
		},
		Speech: SpeechConfig{
			Provider:     strings.ToLower(getString("STT_PROVIDER", "google")),
			Language:     getString("STT_LANGUAGE", "en-US"),
			Encoding:     getString("STT_ENCODING", "LINEAR16"),
			SampleRate:   getInt("STT_SAMPLE_RATE", 0, &errs),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  getString("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Synthesis: SynthesisConfig{
			Provider:     strings.ToLower(getString("TTS_PROVIDER", "elevenlabs")),
			APIKey:       os.Getenv("ELEVEN_LABS_API_KEY"),
			APIBaseURL:   os.Getenv("ELEVEN_LABS_API_BASE_URL"),
			ModelID:      getString("ELEVEN_LABS_MODEL_ID", "eleven_monolingual_v1"),
			OutputFormat: getString("ELEVEN_LABS_OUTPUT_FORMAT", "mp3_44100_128"),
			Stability:    getFloat("ELEVEN_LABS_STABILITY", 0.5, &errs),
			Clarity:      getFloat("ELEVEN_LABS_CLARITY", 0.75, &errs),
		},
		Auth: AuthConfig{
			Secret: os.Getenv("AUTH_SECRET"),
		},
		PhraseFile: os.Getenv("PHRASES_FILE"),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Speech.Validate(); err != nil {
		return fmt.Errorf("speech config: %w", err)
	}

	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	port, err := strconv.Atoi(s.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %q", s.Port)
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level %q", l.Level)
	}
}

// Validate validates session configuration
func (s *SessionConfig) Validate() error {
	if s.MaxBytes < 1 {
		return fmt.Errorf("max bytes must be positive, got %d", s.MaxBytes)
	}

	if s.ChunkMode != "first" && s.ChunkMode != "concat" {
		return fmt.Errorf("chunk mode must be first or concat, got %q", s.ChunkMode)
	}

	if s.TurnTimeout <= 0 {
		return fmt.Errorf("turn timeout must be positive, got %s", s.TurnTimeout)
	}

	if s.ProviderTimeout <= 0 || s.ProviderTimeout > s.TurnTimeout {
		return fmt.Errorf("provider timeout must be positive and at most the turn timeout, got %s", s.ProviderTimeout)
	}

	return nil
}

// Validate validates speech provider configuration
func (s *SpeechConfig) Validate() error {
	switch s.Provider {
	case "google", "mock":
	case "gemini":
		if s.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown speech provider %q", s.Provider)
	}

	if s.SampleRate < 0 {
		return fmt.Errorf("sample rate cannot be negative, got %d", s.SampleRate)
	}

	return nil
}

// Validate validates synthesis provider configuration
func (s *SynthesisConfig) Validate() error {
	switch s.Provider {
	case "mock":
		return nil
	case "elevenlabs":
		if s.APIKey == "" {
			return fmt.Errorf("ELEVEN_LABS_API_KEY is required for the elevenlabs provider")
		}
	default:
		return fmt.Errorf("unknown synthesis provider %q", s.Provider)
	}

	if s.Stability < 0 || s.Stability > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %f", s.Stability)
	}

	if s.Clarity < 0 || s.Clarity > 1 {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", s.Clarity)
	}

	return nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
