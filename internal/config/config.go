package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Snapshot    SnapshotConfig `mapstructure:"snapshot"`
	Fetch       FetchConfig    `mapstructure:"fetch"`
	Arbitrage   ArbitrageConfig `mapstructure:"arbitrage"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
	Sources     []SourceConfig `mapstructure:"sources"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      string `mapstructure:"ttl"`
}

type SnapshotConfig struct {
	DownloadDir string `mapstructure:"download_dir"`
	ResultsDir  string `mapstructure:"results_dir"`
}

type FetchConfig struct {
	Timeout string `mapstructure:"timeout"`
}

type ArbitrageConfig struct {
	MinProfit float64 `mapstructure:"min_profit"`
	TopN      int     `mapstructure:"top_n"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// SourceConfig declares one marketplace adapter. The commission rate
// configured here is the single source of truth: the adapter applies it
// at fetch time and the ingestion engine copies it onto the sources row,
// never recomputing listing prices.
type SourceConfig struct {
	Name       string  `mapstructure:"name"`
	Enabled    bool    `mapstructure:"enabled"`
	Commission float64 `mapstructure:"commission"`
	Token      string  `mapstructure:"token"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvPrefix("arbiter")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config file falls back to defaults and environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.Environment = strings.ToLower(cfg.Environment)
	return &cfg, nil
}

// Validate rejects configurations that would violate pipeline invariants
// before any side effect happens.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if s.Name == "" {
			return fmt.Errorf("source with empty name in configuration")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate source %q in configuration", s.Name)
		}
		seen[s.Name] = true
		if s.Commission < 0 || s.Commission >= 1 {
			return fmt.Errorf("source %q: commission rate %v outside [0,1)", s.Name, s.Commission)
		}
	}
	if c.Arbitrage.MinProfit < 0 {
		return fmt.Errorf("arbitrage.min_profit must not be negative")
	}
	return nil
}

// CommissionRates returns the configured source name -> commission rate
// mapping used by both the adapter registry and the ingestion engine.
func (c *Config) CommissionRates() map[string]decimal.Decimal {
	rates := make(map[string]decimal.Decimal, len(c.Sources))
	for _, s := range c.Sources {
		rates[s.Name] = decimal.NewFromFloat(s.Commission)
	}
	return rates
}

// DefaultSources mirrors the historically deployed adapter set. Skinwallet
// ships disabled; enabling it is a configuration choice.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{Name: "csdeals", Enabled: true, Commission: 0.02},
		{Name: "shadowpay", Enabled: true, Commission: 0.05},
		{Name: "skinport", Enabled: true, Commission: 0.12},
		{Name: "skinwallet", Enabled: false, Commission: 0.05},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "arbiter")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "1h")

	v.SetDefault("snapshot.download_dir", "sites_download")
	v.SetDefault("snapshot.results_dir", "sites_results")

	v.SetDefault("fetch.timeout", "30s")

	v.SetDefault("arbitrage.min_profit", 0.0)
	v.SetDefault("arbitrage.top_n", 10)
}
