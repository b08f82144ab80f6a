package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"xrp-invest-bot/internal/logging"
)

// Storage backend identifiers accepted in storage.backend.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Quote    QuoteConfig    `mapstructure:"quote"`
	Watcher  WatcherConfig  `mapstructure:"watcher"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Server   ServerConfig   `mapstructure:"server"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// TelegramConfig captures Bot API connectivity.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	APIBase        string        `mapstructure:"api_base"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// QuoteConfig parameterises the spot price provider.
type QuoteConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	CoinID         string        `mapstructure:"coin_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// WatcherConfig governs the poll-and-broadcast loop.
type WatcherConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	ThresholdPct float64       `mapstructure:"threshold_pct"`
}

// StorageConfig selects and parameterises the persistence backend.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	File     FileConfig     `mapstructure:"file"`
	Postgres DatabaseConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// FileConfig locates the JSON snapshot store.
type FileConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig encapsulates Redis connectivity.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Namespace string `mapstructure:"namespace"`
}

// ServerConfig controls the liveness HTTP endpoint.
type ServerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Greeting   string `mapstructure:"greeting"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("XRPBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnv(v,
		"telegram.bot_token",
		"storage.postgres.dsn",
		"storage.redis.password",
	)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "xrpbot")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telegram.api_base", "https://api.telegram.org")
	v.SetDefault("telegram.poll_timeout", "30s")
	v.SetDefault("telegram.request_timeout", "10s")

	v.SetDefault("quote.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("quote.coin_id", "ripple")
	v.SetDefault("quote.request_timeout", "10s")
	v.SetDefault("quote.user_agent", "xrpbot/1.0")

	v.SetDefault("watcher.interval", "10s")
	v.SetDefault("watcher.threshold_pct", 3.0)

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.file.path", "XRP_invest_db.json")
	v.SetDefault("storage.postgres.max_open_conns", 10)
	v.SetDefault("storage.postgres.max_idle_conns", 5)
	v.SetDefault("storage.postgres.conn_max_lifetime", "30m")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.namespace", "xrpbot")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.greeting", "Hello, I am alive.")
}

// bindEnv registers keys that carry no default. AutomaticEnv only
// resolves environment values for keys viper already knows about, so
// secrets have to be bound explicitly.
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Watcher.Interval <= 0 {
		return fmt.Errorf("watcher.interval must be greater than zero")
	}
	if c.Watcher.ThresholdPct <= 0 {
		return fmt.Errorf("watcher.threshold_pct must be greater than zero")
	}
	if c.Quote.CoinID == "" {
		return fmt.Errorf("quote.coin_id is required")
	}
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.File.Path == "" {
			return fmt.Errorf("storage.file.path is required for the file backend")
		}
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres backend")
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of file, postgres, redis")
	}
	if c.Server.Enabled && c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required when server.enabled is true")
	}
	return nil
}
