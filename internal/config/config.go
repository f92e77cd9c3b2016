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
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Match        MatchConfig        `yaml:"match" mapstructure:"match"`
	Adjudication AdjudicationConfig `yaml:"adjudication" mapstructure:"adjudication"`
	Anthropic    AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini       GeminiConfig       `yaml:"gemini" mapstructure:"gemini"`
	Fetch        FetchConfig        `yaml:"fetch" mapstructure:"fetch"`
	Batch        BatchConfig        `yaml:"batch" mapstructure:"batch"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Merge        MergeConfig        `yaml:"merge" mapstructure:"merge"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DistanceConfig holds the distance cutoffs in meters for one source.
type DistanceConfig struct {
	HighM   float64 `yaml:"high_m" mapstructure:"high_m"`
	MediumM float64 `yaml:"medium_m" mapstructure:"medium_m"`
}

// MatchConfig configures candidate matching and redirect verification.
type MatchConfig struct {
	MapProvider        DistanceConfig `yaml:"map_provider" mapstructure:"map_provider"`
	Encyclopedia       DistanceConfig `yaml:"encyclopedia" mapstructure:"encyclopedia"`
	PointsOfInterest   DistanceConfig `yaml:"points_of_interest" mapstructure:"points_of_interest"`
	HighSimilarity     float64        `yaml:"high_similarity" mapstructure:"high_similarity"`
	MediumSimilarity   float64        `yaml:"medium_similarity" mapstructure:"medium_similarity"`
	TieToleranceM      float64        `yaml:"tie_tolerance_m" mapstructure:"tie_tolerance_m"`
	RedirectToleranceM float64        `yaml:"redirect_tolerance_m" mapstructure:"redirect_tolerance_m"`
}

// AdjudicationConfig configures escalation of ambiguous decisions.
type AdjudicationConfig struct {
	// Provider is one of anthropic, gemini, static or none.
	Provider            string `yaml:"provider" mapstructure:"provider"`
	IntervalMS          int    `yaml:"interval_ms" mapstructure:"interval_ms"`
	TimeoutSecs         int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts         int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	BreakerThreshold    int    `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int    `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
	VerdictsFile        string `yaml:"verdicts_file" mapstructure:"verdicts_file"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// FetchConfig configures the encyclopedia fetcher.
type FetchConfig struct {
	EncyclopediaURL   string  `yaml:"encyclopedia_url" mapstructure:"encyclopedia_url"`
	QuerySuffix       string  `yaml:"query_suffix" mapstructure:"query_suffix"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// MergeConfig configures the field merge policy.
type MergeConfig struct {
	PolicyFile string `yaml:"policy_file" mapstructure:"policy_file"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MONUMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "monuments.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("match.map_provider.high_m", 100.0)
	v.SetDefault("match.map_provider.medium_m", 500.0)
	v.SetDefault("match.points_of_interest.high_m", 100.0)
	v.SetDefault("match.points_of_interest.medium_m", 500.0)
	v.SetDefault("match.encyclopedia.high_m", 100.0)
	v.SetDefault("match.encyclopedia.medium_m", 2000.0)
	v.SetDefault("match.high_similarity", 0.92)
	v.SetDefault("match.medium_similarity", 0.80)
	v.SetDefault("match.tie_tolerance_m", 1.0)
	v.SetDefault("match.redirect_tolerance_m", 2000.0)
	v.SetDefault("adjudication.provider", "anthropic")
	v.SetDefault("adjudication.interval_ms", 4000)
	v.SetDefault("adjudication.timeout_secs", 30)
	v.SetDefault("adjudication.max_attempts", 3)
	v.SetDefault("adjudication.breaker_threshold", 5)
	v.SetDefault("adjudication.breaker_cooldown_secs", 30)
	v.SetDefault("adjudication.verdicts_file", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("fetch.encyclopedia_url", "https://en.wikipedia.org")
	v.SetDefault("fetch.query_suffix", "")
	v.SetDefault("fetch.user_agent", "monument-cli/1.0 (data reconciliation)")
	v.SetDefault("fetch.requests_per_second", 1.0)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.concurrency", 2)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("merge.policy_file", "")

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

// Validate checks the settings a command mode depends on. All problems are
// reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "migrate", "import", "quality", "export":
	case "reconcile":
		errs = append(errs, c.validateMatch()...)
		errs = append(errs, c.validateAdjudication()...)
	case "fetch":
		if c.Fetch.EncyclopediaURL == "" {
			errs = append(errs, "fetch.encyclopedia_url is required")
		}
		if c.Fetch.RequestsPerSecond <= 0 {
			errs = append(errs, "fetch.requests_per_second must be > 0")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
		errs = append(errs, "batch.concurrency must be between 1 and 64")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateMatch() []string {
	var errs []string
	m := c.Match
	for _, d := range []struct {
		name string
		cfg  DistanceConfig
	}{
		{"map_provider", m.MapProvider},
		{"encyclopedia", m.Encyclopedia},
		{"points_of_interest", m.PointsOfInterest},
	} {
		if d.cfg.HighM <= 0 || d.cfg.MediumM < d.cfg.HighM {
			errs = append(errs, "match."+d.name+" requires 0 < high_m <= medium_m")
		}
	}
	if m.MediumSimilarity <= 0 || m.HighSimilarity > 1 || m.MediumSimilarity > m.HighSimilarity {
		errs = append(errs, "match similarity thresholds require 0 < medium_similarity <= high_similarity <= 1")
	}
	return errs
}

func (c *Config) validateAdjudication() []string {
	switch c.Adjudication.Provider {
	case "none":
	case "static":
		if c.Adjudication.VerdictsFile == "" {
			return []string{"adjudication.verdicts_file is required for the static provider"}
		}
	case "anthropic":
		if c.Anthropic.Key == "" {
			return []string{"anthropic.key is required"}
		}
	case "gemini":
		if c.Gemini.Key == "" {
			return []string{"gemini.key is required"}
		}
	default:
		return []string{"adjudication.provider must be anthropic, gemini, static or none"}
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
