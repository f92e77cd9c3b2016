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
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "monuments.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.InDelta(t, 100, cfg.Match.MapProvider.HighM, 0.001)
	assert.InDelta(t, 500, cfg.Match.MapProvider.MediumM, 0.001)
	assert.InDelta(t, 2000, cfg.Match.Encyclopedia.MediumM, 0.001)
	assert.InDelta(t, 500, cfg.Match.PointsOfInterest.MediumM, 0.001)
	assert.InDelta(t, 0.92, cfg.Match.HighSimilarity, 0.001)
	assert.InDelta(t, 0.80, cfg.Match.MediumSimilarity, 0.001)
	assert.InDelta(t, 2000, cfg.Match.RedirectToleranceM, 0.001)
	assert.Equal(t, "anthropic", cfg.Adjudication.Provider)
	assert.Equal(t, 4000, cfg.Adjudication.IntervalMS)
	assert.Equal(t, 30, cfg.Adjudication.TimeoutSecs)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, "gemini-1.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "https://en.wikipedia.org", cfg.Fetch.EncyclopediaURL)
	assert.InDelta(t, 1.0, cfg.Fetch.RequestsPerSecond, 0.001)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Empty(t, cfg.Merge.PolicyFile)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/monuments
log:
  level: debug
  format: console
match:
  map_provider:
    high_m: 50
adjudication:
  provider: static
  verdicts_file: verdicts.json
server:
  port: 9090
batch:
  concurrency: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/monuments", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 50, cfg.Match.MapProvider.HighM, 0.001)
	assert.Equal(t, "static", cfg.Adjudication.Provider)
	assert.Equal(t, "verdicts.json", cfg.Adjudication.VerdictsFile)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	// Defaults still apply for unset values
	assert.InDelta(t, 500, cfg.Match.MapProvider.MediumM, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("MONUMENT_STORE_DRIVER", "postgres")
	t.Setenv("MONUMENT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("MONUMENT_SERVER_PORT", "3000")
	t.Setenv("MONUMENT_ANTHROPIC_KEY", "sk-ant-test")
	t.Setenv("MONUMENT_MATCH_ENCYCLOPEDIA_MEDIUM_M", "1500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
	assert.InDelta(t, 1500, cfg.Match.Encyclopedia.MediumM, 0.001)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
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

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "monuments.db"
	cfg.Batch.Concurrency = 4
	cfg.Server.Port = 8080
	cfg.Match.MapProvider = DistanceConfig{HighM: 100, MediumM: 500}
	cfg.Match.PointsOfInterest = DistanceConfig{HighM: 100, MediumM: 500}
	cfg.Match.Encyclopedia = DistanceConfig{HighM: 100, MediumM: 2000}
	cfg.Match.HighSimilarity = 0.92
	cfg.Match.MediumSimilarity = 0.80
	cfg.Adjudication.Provider = "none"
	cfg.Fetch.EncyclopediaURL = "https://en.wikipedia.org"
	cfg.Fetch.RequestsPerSecond = 1
	return cfg
}

func TestValidate_Modes(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"migrate", "import", "quality", "export", "reconcile", "fetch", "serve"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateReconcile_Adjudication(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		set      func(*Config)
		wantErr  string
	}{
		{name: "anthropic without key", provider: "anthropic", wantErr: "anthropic.key is required"},
		{name: "anthropic with key", provider: "anthropic", set: func(c *Config) { c.Anthropic.Key = "k" }},
		{name: "gemini without key", provider: "gemini", wantErr: "gemini.key is required"},
		{name: "static without file", provider: "static", wantErr: "verdicts_file"},
		{name: "static with file", provider: "static", set: func(c *Config) { c.Adjudication.VerdictsFile = "v.json" }},
		{name: "unknown", provider: "oracle", wantErr: "adjudication.provider must be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			cfg.Adjudication.Provider = tt.provider
			if tt.set != nil {
				tt.set(cfg)
			}
			err := cfg.Validate("reconcile")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateReconcile_Thresholds(t *testing.T) {
	cfg := validDefaults()
	cfg.Match.MapProvider = DistanceConfig{HighM: 600, MediumM: 500}
	cfg.Match.MediumSimilarity = 0.95

	err := cfg.Validate("reconcile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match.map_provider requires")
	assert.Contains(t, err.Error(), "medium_similarity <= high_similarity")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateFetch(t *testing.T) {
	cfg := validDefaults()
	cfg.Fetch.RequestsPerSecond = 0

	err := cfg.Validate("fetch")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requests_per_second")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Batch.Concurrency = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "batch.concurrency must be between 1 and 64")

	cfg.Batch.Concurrency = 65
	assert.Error(t, cfg.Validate("serve"))

	cfg.Batch.Concurrency = 64
	assert.NoError(t, cfg.Validate("serve"))
}
