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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Scan      ScanConfig      `yaml:"scan" mapstructure:"scan"`
	Trust     TrustConfig     `yaml:"trust" mapstructure:"trust"`
	Feed      FeedConfig      `yaml:"feed" mapstructure:"feed"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RegistryConfig locates the brand registry file.
type RegistryConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// FetchConfig configures the shared HTTP fetcher.
type FetchConfig struct {
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int `yaml:"max_retries" mapstructure:"max_retries"`
}

// ScanConfig configures batch scan behavior.
type ScanConfig struct {
	MaxConcurrentBrands int     `yaml:"max_concurrent_brands" mapstructure:"max_concurrent_brands"`
	SweepDelayMinMS     int     `yaml:"sweep_delay_min_ms" mapstructure:"sweep_delay_min_ms"`
	SweepDelayMaxMS     int     `yaml:"sweep_delay_max_ms" mapstructure:"sweep_delay_max_ms"`
	GridStepDegrees     float64 `yaml:"grid_step_degrees" mapstructure:"grid_step_degrees"`

	// RegionShapefile restricts sweep grids to a territory boundary
	// instead of the contiguous-US default.
	RegionShapefile string `yaml:"region_shapefile" mapstructure:"region_shapefile"`
}

// TrustConfig configures the pre-persistence trust gate for
// low-confidence (static parse) strategies.
type TrustConfig struct {
	MinLocations  int     `yaml:"min_locations" mapstructure:"min_locations"`
	MinStateRatio float64 `yaml:"min_state_ratio" mapstructure:"min_state_ratio"`
}

// FeedConfig configures retailer feed imports.
type FeedConfig struct {
	FTPHost string `yaml:"ftp_host" mapstructure:"ftp_host"`
	FTPUser string `yaml:"ftp_user" mapstructure:"ftp_user"`
	FTPPass string `yaml:"ftp_pass" mapstructure:"ftp_pass"`
}

// NotionConfig holds the optional territory-change digest destination.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	DigestDB string `yaml:"digest_db" mapstructure:"digest_db"`
}

// AnthropicConfig holds settings for the offline discovery advisor.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SHELFWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("registry.path", "brands.yaml")
	v.SetDefault("fetch.timeout_secs", 20)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("scan.max_concurrent_brands", 5)
	v.SetDefault("scan.sweep_delay_min_ms", 350)
	v.SetDefault("scan.sweep_delay_max_ms", 750)
	v.SetDefault("scan.grid_step_degrees", 1.5)
	v.SetDefault("trust.min_locations", 5)
	v.SetDefault("trust.min_state_ratio", 0.6)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("server.port", 8080)
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

// Validate checks that the settings a subsystem requires are present.
func (c *Config) Validate(subsystem string) error {
	switch subsystem {
	case "store":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required")
		}
	case "feed":
		if c.Feed.FTPHost == "" {
			return eris.New("config: feed.ftp_host is required")
		}
	case "notion":
		if c.Notion.Token == "" || c.Notion.DigestDB == "" {
			return eris.New("config: notion.token and notion.digest_db are required")
		}
	case "discovery":
		if c.Anthropic.Key == "" {
			return eris.New("config: anthropic.key is required")
		}
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
