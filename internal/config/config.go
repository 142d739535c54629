// Package config loads and validates countpkg's runtime configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/countpkg/internal/logger"
)

// Config is the top-level configuration structure.
type Config struct {
	Language     string             `mapstructure:"language"`
	Credentials  CredentialsConfig  `mapstructure:"credentials"`
	SearchPeriod SearchPeriodConfig `mapstructure:"search_period"`
	SearchRepo   SearchRepoConfig   `mapstructure:"search_repo_params"`
	Store        StoreConfig        `mapstructure:"store"`
	Database     DBConfig           `mapstructure:"database"`
	Server       ServerConfig       `mapstructure:"server"`
	Logging      logger.Config      `mapstructure:"logging"`
}

// CredentialToken is a personal-access-token credential: one worker per entry.
type CredentialToken struct {
	Name  string `mapstructure:"name"`
	Token string `mapstructure:"token"`
}

// CredentialApp is a GitHub App installation credential.
type CredentialApp struct {
	AppID          int64  `mapstructure:"app_id"`
	InstallationID int64  `mapstructure:"installation_id"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
}

// CredentialsConfig enumerates worker identities. At most one of Tokens/Apps
// need be populated; Anonymous selects an unauthenticated pool of a fixed size.
type CredentialsConfig struct {
	Tokens    []CredentialToken `mapstructure:"tokens"`
	Apps      []CredentialApp   `mapstructure:"apps"`
	Anonymous int               `mapstructure:"anonymous_workers"`
}

// WorkerCount returns how many workers the configured credentials imply.
func (c CredentialsConfig) WorkerCount() int {
	return len(c.Tokens) + len(c.Apps) + c.Anonymous
}

// SearchPeriodConfig controls the time-slice planner (spec §4.5).
type SearchPeriodConfig struct {
	Period      string `mapstructure:"period"`
	Slice       string `mapstructure:"slice"`
	NewestFirst bool   `mapstructure:"newest_first"`
}

// SearchRepoConfig controls the `q` composition and request params for
// repository search (spec §6).
type SearchRepoConfig struct {
	Keyword    string            `mapstructure:"keyword"`
	Sort       string            `mapstructure:"sort"`
	Order      string            `mapstructure:"order"`
	PerPage    int               `mapstructure:"per_page"`
	Timeout    time.Duration     `mapstructure:"timeout"`
	Qualifiers map[string]string `mapstructure:"qualifiers"`
}

// StoreConfig connects to the hash-capable key-value backing store (C1).
type StoreConfig struct {
	Addr            string        `mapstructure:"addr"`
	Password        string        `mapstructure:"password"`
	DB              int           `mapstructure:"db"`
	SnapshotPrefix  string        `mapstructure:"snapshot_prefix"`
	SnapshotEvery   time.Duration `mapstructure:"snapshot_interval"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
}

// DBConfig configures the ambient crawl-run audit database.
type DBConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// ServerConfig configures the read-only HTTP query surface.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// Validate checks cross-field invariants that viper's tags can't express.
func (c *Config) Validate() error {
	if c.Language == "" {
		return errors.New("language must be set")
	}
	if c.Credentials.WorkerCount() == 0 {
		return errors.New("no worker identity configured: set credentials.tokens, " +
			"credentials.apps, or credentials.anonymous_workers")
	}
	if c.SearchPeriod.Period == "" || c.SearchPeriod.Slice == "" {
		return errors.New("search_period.period and search_period.slice must be set")
	}
	for _, t := range c.Credentials.Tokens {
		if strings.TrimSpace(t.Token) == "" {
			return fmt.Errorf("credentials.tokens entry %q has an empty token", t.Name)
		}
	}
	for i, a := range c.Credentials.Apps {
		if a.AppID == 0 || a.InstallationID == 0 || a.PrivateKeyPath == "" {
			return fmt.Errorf("credentials.apps[%d] is missing app_id/installation_id/private_key_path", i)
		}
	}
	return nil
}

// Load reads configuration from (in precedence order) flags-free defaults,
// a config file, and environment variables prefixed COUNTPKG_.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("countpkg")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/countpkg")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("language", "python")
	v.SetDefault("search_period.period", "30d")
	v.SetDefault("search_period.slice", "1d")
	v.SetDefault("search_period.newest_first", false)
	v.SetDefault("search_repo_params.sort", "")
	v.SetDefault("search_repo_params.order", "")
	v.SetDefault("search_repo_params.per_page", 100)
	v.SetDefault("search_repo_params.timeout", "15s")
	v.SetDefault("store.addr", "localhost:6379")
	v.SetDefault("store.db", 0)
	v.SetDefault("store.snapshot_prefix", "countpkg")
	v.SetDefault("store.snapshot_interval", "5m")
	v.SetDefault("store.retry_attempts", 5)
	v.SetDefault("store.retry_delay", "5s")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "15m")
	v.SetDefault("server.port", "8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
}
