package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "inspections.db", cfg.Store.SQLitePath)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Server.MaxUploadMB)
	assert.Equal(t, "X-User-ID", cfg.Server.AuthHeader)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, int64(8192), cfg.Anthropic.MaxTokens)
	assert.InDelta(t, 2.0, cfg.Raster.ExtractionScale, 0.001)
	assert.InDelta(t, 0.4, cfg.Raster.ThumbnailScale, 0.001)
	assert.Equal(t, 92, cfg.Raster.JPEGQuality)
	assert.True(t, cfg.Raster.SkipFailedPages)
	assert.Empty(t, cfg.Raster.PdftoppmPath)
	assert.Equal(t, "local", cfg.Blob.Provider)
	assert.Equal(t, "inspections", cfg.Blob.Minio.Bucket)
	assert.Equal(t, 5, cfg.Resilience.CircuitThreshold)
	assert.Equal(t, 120, cfg.Review.SessionIdleMins)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/inspections
log:
  level: debug
  format: console
server:
  port: 9090
  allowed_origins:
    - https://forms.example.com
blob:
  provider: minio
  minio:
    endpoint: minio:9000
raster:
  max_pages: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://forms.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "minio", cfg.Blob.Provider)
	assert.Equal(t, "minio:9000", cfg.Blob.Minio.Endpoint)
	assert.Equal(t, 5, cfg.Raster.MaxPages)
	// Defaults still apply for unset values
	assert.Equal(t, "inspections", cfg.Blob.Minio.Bucket)
	assert.Equal(t, 92, cfg.Raster.JPEGQuality)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("INSPECT_STORE_DRIVER", "postgres")
	t.Setenv("INSPECT_LOG_LEVEL", "warn")
	t.Setenv("INSPECT_ANTHROPIC_KEY", "sk-ant-key")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "sk-ant-key", cfg.Anthropic.Key)
}

func TestLoadFrom_NamedFile(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "inspect.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoadFrom_MissingNamedFile(t *testing.T) {
	chdirTemp(t)
	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the defaults validation depends on.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "inspections.db"
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Anthropic.Model = "claude-sonnet-4-5-20250929"
	cfg.Raster.ExtractionScale = 2.0
	cfg.Raster.ThumbnailScale = 0.4
	cfg.Raster.JPEGQuality = 92
	cfg.Blob.Provider = "local"
	cfg.Blob.LocalDir = "data/pdfs"
	cfg.Server.Port = 8080
	cfg.Server.MaxUploadMB = 25
	cfg.Server.AuthHeader = "X-User-ID"
	return cfg
}

func TestValidateServe_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
}

func TestValidateServe_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	cfg.Server.AuthHeader = ""
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "server.auth_header is required")
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidatePostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/inspections"
	assert.NoError(t, cfg.Validate("store"))
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidateMinio(t *testing.T) {
	cfg := validDefaults()
	cfg.Blob.Provider = "minio"

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blob.minio.endpoint is required")
	assert.Contains(t, err.Error(), "blob.minio.bucket is required")

	cfg.Blob.Minio.Endpoint = "minio:9000"
	cfg.Blob.Minio.Bucket = "inspections"
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateExtractIgnoresStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = ""
	assert.NoError(t, cfg.Validate("extract"))

	cfg.Anthropic.Key = ""
	assert.Error(t, cfg.Validate("extract"))
	assert.NoError(t, cfg.Validate("render"))
}

func TestValidateRasterBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Raster.JPEGQuality = 0
	err := cfg.Validate("render")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jpeg_quality")

	cfg.Raster.JPEGQuality = 92
	cfg.Raster.ExtractionScale = 0
	assert.Error(t, cfg.Validate("render"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
