package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load with defaults should succeed: %v", err)
	}

	if cfg.Watcher.Interval != 10*time.Second {
		t.Fatalf("default interval should be 10s, got %s", cfg.Watcher.Interval)
	}
	if cfg.Watcher.ThresholdPct != 3.0 {
		t.Fatalf("default threshold should be 3, got %v", cfg.Watcher.ThresholdPct)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Fatalf("default backend should be file, got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.File.Path != "XRP_invest_db.json" {
		t.Fatalf("default snapshot path wrong: %q", cfg.Storage.File.Path)
	}
	if cfg.Quote.CoinID != "ripple" {
		t.Fatalf("default coin id wrong: %q", cfg.Quote.CoinID)
	}
}

func TestLoadSecretsFromEnvironment(t *testing.T) {
	t.Setenv("XRPBOT_TELEGRAM_BOT_TOKEN", "123456:secret")
	t.Setenv("XRPBOT_STORAGE_POSTGRES_DSN", "postgres://bot@localhost/xrp")
	t.Setenv("XRPBOT_STORAGE_REDIS_PASSWORD", "hunter2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Telegram.BotToken != "123456:secret" {
		t.Fatalf("bot token not taken from environment, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Storage.Postgres.DSN != "postgres://bot@localhost/xrp" {
		t.Fatalf("postgres dsn not taken from environment, got %q", cfg.Storage.Postgres.DSN)
	}
	if cfg.Storage.Redis.Password != "hunter2" {
		t.Fatalf("redis password not taken from environment, got %q", cfg.Storage.Redis.Password)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Watcher.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero interval must be rejected")
	}

	cfg = base()
	cfg.Storage.Backend = "mongodb"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown backend must be rejected")
	}

	cfg = base()
	cfg.Storage.Backend = BackendPostgres
	if err := cfg.Validate(); err == nil {
		t.Fatal("postgres backend without dsn must be rejected")
	}
}
