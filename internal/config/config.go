package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Raster     RasterConfig     `yaml:"raster" mapstructure:"raster"`
	Prefill    PrefillConfig    `yaml:"prefill" mapstructure:"prefill"`
	Blob       BlobConfig       `yaml:"blob" mapstructure:"blob"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Review     ReviewConfig     `yaml:"review" mapstructure:"review"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	AutoMigrate bool   `yaml:"auto_migrate" mapstructure:"auto_migrate"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key               string `yaml:"key" mapstructure:"key"`
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	Model             string `yaml:"model" mapstructure:"model"`
	MaxTokens         int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerMinute int    `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	CacheTTL          string `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// RasterConfig configures page rendering.
type RasterConfig struct {
	// PdftoppmPath is the poppler binary. Empty searches PATH once per process.
	PdftoppmPath    string  `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
	ExtractionScale float64 `yaml:"extraction_scale" mapstructure:"extraction_scale"`
	ThumbnailScale  float64 `yaml:"thumbnail_scale" mapstructure:"thumbnail_scale"`
	JPEGQuality     int     `yaml:"jpeg_quality" mapstructure:"jpeg_quality"`
	MaxPages        int     `yaml:"max_pages" mapstructure:"max_pages"`
	TempDir         string  `yaml:"temp_dir" mapstructure:"temp_dir"`
	// SkipFailedPages drops pages that fail to render instead of failing
	// the whole document.
	SkipFailedPages bool `yaml:"skip_failed_pages" mapstructure:"skip_failed_pages"`
}

// PrefillConfig configures the form-field matcher.
type PrefillConfig struct {
	// RulesPath optionally replaces the built-in rule table.
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// BlobConfig configures PDF storage.
type BlobConfig struct {
	Provider      string      `yaml:"provider" mapstructure:"provider"`
	LocalDir      string      `yaml:"local_dir" mapstructure:"local_dir"`
	PublicBaseURL string      `yaml:"public_base_url" mapstructure:"public_base_url"`
	Minio         MinioConfig `yaml:"minio" mapstructure:"minio"`
}

// MinioConfig holds S3-compatible storage settings.
type MinioConfig struct {
	Endpoint          string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey         string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey         string `yaml:"secret_key" mapstructure:"secret_key"`
	Bucket            string `yaml:"bucket" mapstructure:"bucket"`
	Region            string `yaml:"region" mapstructure:"region"`
	UseSSL            bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
	PresignExpiryMins int    `yaml:"presign_expiry_mins" mapstructure:"presign_expiry_mins"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	MaxUploadMB    int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	// AuthHeader carries the user id set by the authenticating proxy.
	AuthHeader string `yaml:"auth_header" mapstructure:"auth_header"`
	// NameHeader optionally carries the display name used for edit
	// attribution.
	NameHeader string `yaml:"name_header" mapstructure:"name_header"`
}

// ReviewConfig configures review sessions.
type ReviewConfig struct {
	SessionIdleMins       int `yaml:"session_idle_mins" mapstructure:"session_idle_mins"`
	ExtractionTimeoutSecs int `yaml:"extraction_timeout_secs" mapstructure:"extraction_timeout_secs"`
}

// ResilienceConfig configures the extraction circuit breaker and blob
// upload retries.
type ResilienceConfig struct {
	CircuitThreshold    int `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs    int `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
	BlobRetryAttempts   int `yaml:"blob_retry_attempts" mapstructure:"blob_retry_attempts"`
	BlobRetryBackoffMs  int `yaml:"blob_retry_backoff_ms" mapstructure:"blob_retry_backoff_ms"`
	BlobRetryMaxBackoff int `yaml:"blob_retry_max_backoff_ms" mapstructure:"blob_retry_max_backoff_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (if present) and environment.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from path and environment. An empty path
// falls back to an optional ./config.yaml; a named file must exist.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetConfigType("yaml")

	// Environment
	v.SetEnvPrefix("INSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "inspections.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.auto_migrate", true)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.timeout_secs", 120)
	v.SetDefault("anthropic.requests_per_minute", 0)
	v.SetDefault("anthropic.cache_ttl", "1h")
	v.SetDefault("raster.pdftoppm_path", "")
	v.SetDefault("raster.extraction_scale", 2.0)
	v.SetDefault("raster.thumbnail_scale", 0.4)
	v.SetDefault("raster.jpeg_quality", 92)
	v.SetDefault("raster.max_pages", 20)
	v.SetDefault("raster.skip_failed_pages", true)
	v.SetDefault("prefill.rules_path", "")
	v.SetDefault("blob.provider", "local")
	v.SetDefault("blob.local_dir", "data/pdfs")
	v.SetDefault("blob.public_base_url", "http://localhost:8080/files")
	v.SetDefault("blob.minio.bucket", "inspections")
	v.SetDefault("blob.minio.region", "us-east-1")
	v.SetDefault("blob.minio.presign_expiry_mins", 7*24*60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 25)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.auth_header", "X-User-ID")
	v.SetDefault("server.name_header", "X-User-Name")
	v.SetDefault("review.session_idle_mins", 120)
	v.SetDefault("review.extraction_timeout_secs", 180)
	v.SetDefault("resilience.circuit_threshold", 5)
	v.SetDefault("resilience.circuit_reset_secs", 30)
	v.SetDefault("resilience.blob_retry_attempts", 3)
	v.SetDefault("resilience.blob_retry_backoff_ms", 500)
	v.SetDefault("resilience.blob_retry_max_backoff_ms", 5000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes:
// "serve", "extract", "store" and "render".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateAnthropic()...)
		errs = append(errs, c.validateBlob()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.AuthHeader == "" {
			errs = append(errs, "server.auth_header is required")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
	case "extract":
		errs = append(errs, c.validateAnthropic()...)
	case "store":
		errs = append(errs, c.validateStore()...)
	case "render":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode != "store" {
		if c.Raster.JPEGQuality < 1 || c.Raster.JPEGQuality > 100 {
			errs = append(errs, "raster.jpeg_quality must be between 1 and 100")
		}
		if c.Raster.ExtractionScale <= 0 || c.Raster.ThumbnailScale <= 0 {
			errs = append(errs, "raster scales must be > 0")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return []string{"store.sqlite_path is required"}
		}
	default:
		return []string{"store.driver must be sqlite or postgres"}
	}
	return nil
}

func (c *Config) validateAnthropic() []string {
	var errs []string
	if c.Anthropic.Key == "" {
		errs = append(errs, "anthropic.key is required")
	}
	if c.Anthropic.Model == "" {
		errs = append(errs, "anthropic.model is required")
	}
	return errs
}

func (c *Config) validateBlob() []string {
	switch c.Blob.Provider {
	case "local":
		if c.Blob.LocalDir == "" {
			return []string{"blob.local_dir is required"}
		}
	case "minio":
		var errs []string
		if c.Blob.Minio.Endpoint == "" {
			errs = append(errs, "blob.minio.endpoint is required")
		}
		if c.Blob.Minio.Bucket == "" {
			errs = append(errs, "blob.minio.bucket is required")
		}
		return errs
	default:
		return []string{"blob.provider must be local or minio"}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
