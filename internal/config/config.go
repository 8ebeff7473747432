package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/kode4food/atelier/pkg/util"
)

type (
	// Config holds configuration settings for the flow service
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Generative backend
		Model ModelConfig

		// Document collaborator
		Docs         RedisConfig
		ShareBaseURL string

		ShutdownTimeout time.Duration
	}

	// ModelConfig selects the generative backend and its models
	ModelConfig struct {
		BaseURL    string
		APIKey     string
		TextModel  string
		ImageModel string
		Timeout    time.Duration
	}

	// RedisConfig locates a Redis database
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
)

const (
	DefaultShutdownTimeout = 10 * time.Second
	DefaultModelTimeout    = 60 * time.Second

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535
	DefaultRedisDB = 0
	MaxRedisDB     = 15

	DefaultModelBaseURL = "https://api.openai.com/v1"
	DefaultTextModel    = "gpt-4o-mini"
	DefaultImageModel   = "gpt-image-1"

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "atelier"
	DefaultShareBaseURL  = "http://localhost:8080"

	MaxModelTimeout    = 10 * time.Minute
	MaxShutdownTimeout = 5 * time.Minute
)

var (
	ErrInvalidAPIPort         = errors.New("invalid API port")
	ErrInvalidModelURL        = errors.New("invalid model base URL")
	ErrModelNameEmpty         = errors.New("model name empty")
	ErrInvalidModelTimeout    = errors.New("model timeout must be positive")
	ErrInvalidShutdownTimeout = errors.New(
		"shutdown timeout must be positive",
	)
	ErrRedisAddrEmpty  = errors.New("docs redis address empty")
	ErrInvalidRedisDB  = errors.New("invalid docs redis database")
	ErrInvalidShareURL = errors.New("invalid share base URL")
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrInvalidEnvValue = errors.New("invalid environment value")
	ErrEnvOutOfRange   = errors.New("environment value out of range")
)

var (
	validLogLevels  = util.SetOf("debug", "info", "warn", "error")
	validURLSchemes = util.SetOf("http", "https")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// API server, backend and document store
func NewDefaultConfig() *Config {
	return &Config{
		APIPort:  DefaultAPIPort,
		APIHost:  DefaultAPIHost,
		LogLevel: "info",
		Model: ModelConfig{
			BaseURL:    DefaultModelBaseURL,
			TextModel:  DefaultTextModel,
			ImageModel: DefaultImageModel,
			Timeout:    DefaultModelTimeout,
		},
		Docs: RedisConfig{
			Addr:   DefaultRedisEndpoint,
			DB:     DefaultRedisDB,
			Prefix: DefaultRedisPrefix,
		},
		ShareBaseURL:    DefaultShareBaseURL,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadDotEnv loads variables from the given .env files (".env" by default)
// into the process environment without overriding variables already set.
// Missing files are ignored
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		err := godotenv.Load(p)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	loadEnvString("API_HOST", &c.APIHost)
	loadEnvString("LOG_LEVEL", &c.LogLevel)
	loadEnvString("MODEL_BASE_URL", &c.Model.BaseURL)
	loadEnvString("MODEL_API_KEY", &c.Model.APIKey)
	loadEnvString("TEXT_MODEL", &c.Model.TextModel)
	loadEnvString("IMAGE_MODEL", &c.Model.ImageModel)
	loadEnvString("SHARE_BASE_URL", &c.ShareBaseURL)
	LoadRedisConfigFromEnv(&c.Docs, "DOCS")

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"DOCS_REDIS_DB", &c.Docs.DB, -1, MaxRedisDB,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"MODEL_TIMEOUT", &c.Model.Timeout, MaxModelTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvDuration(
		"SHUTDOWN_TIMEOUT", &c.ShutdownTimeout, MaxShutdownTimeout,
	); err != nil {
		return err
	}
	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if !validLogLevels.Contains(c.LogLevel) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}

	if !validURL(c.Model.BaseURL) {
		return fmt.Errorf("%w: %q", ErrInvalidModelURL, c.Model.BaseURL)
	}

	if c.Model.TextModel == "" || c.Model.ImageModel == "" {
		return ErrModelNameEmpty
	}

	if c.Model.Timeout <= 0 {
		return ErrInvalidModelTimeout
	}

	if c.Docs.Addr == "" {
		return ErrRedisAddrEmpty
	}

	if c.Docs.DB < 0 || c.Docs.DB > MaxRedisDB {
		return fmt.Errorf("%w: %d", ErrInvalidRedisDB, c.Docs.DB)
	}

	if !validURL(c.ShareBaseURL) {
		return fmt.Errorf("%w: %q", ErrInvalidShareURL, c.ShareBaseURL)
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// LoadRedisConfigFromEnv loads Redis connection settings from environment
// variables with the given prefix (e.g., "DOCS")
func LoadRedisConfigFromEnv(r *RedisConfig, prefix string) {
	loadEnvString(prefix+"_REDIS_ADDR", &r.Addr)
	loadEnvString(prefix+"_REDIS_PASSWORD", &r.Password)
	loadEnvString(prefix+"_REDIS_PREFIX", &r.Prefix)
}

func loadEnvString(key string, dst *string) {
	if s := os.Getenv(key); s != "" {
		*dst = s
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s: %q", ErrInvalidEnvValue, key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("%w: %s: %d not in [%d, %d]",
			ErrEnvOutOfRange, key, tv, min+1, max)
	}
	*dst = tv
	return nil
}

// loadEnvDuration accepts Go duration strings ("90s") or a plain number of
// seconds
func loadEnvDuration(
	key string, dst *time.Duration, max time.Duration,
) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		secs, serr := strconv.ParseInt(s, 10, 64)
		if serr != nil {
			return fmt.Errorf("%w: %s: %q", ErrInvalidEnvValue, key, s)
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 || d > max {
		return fmt.Errorf("%w: %s: %s not in (0, %s]",
			ErrEnvOutOfRange, key, d, max)
	}
	*dst = d
	return nil
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return validURLSchemes.Contains(u.Scheme)
}
