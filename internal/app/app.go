package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"xrp-invest-bot/internal/bot"
	"xrp-invest-bot/internal/config"
	"xrp-invest-bot/internal/quote"
	"xrp-invest-bot/internal/server"
	"xrp-invest-bot/internal/storage"
	"xrp-invest-bot/internal/storage/filestore"
	"xrp-invest-bot/internal/storage/postgres"
	"xrp-invest-bot/internal/storage/redisstore"
	"xrp-invest-bot/internal/telegram"
	"xrp-invest-bot/internal/watcher"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() quote.Fetcher {
	return quote.NewCoinGecko(quote.CoinGeckoOptions{
		BaseURL:   a.Config.Quote.BaseURL,
		CoinID:    a.Config.Quote.CoinID,
		Timeout:   a.Config.Quote.RequestTimeout,
		UserAgent: a.Config.Quote.UserAgent,
	}, a.Logger)
}

func (a *App) newTelegramClient() (*telegram.Client, error) {
	if a.Config.Telegram.BotToken == "" {
		return nil, errors.New("telegram.bot_token is not configured")
	}
	return telegram.NewClient(telegram.Options{
		BotToken:       a.Config.Telegram.BotToken,
		APIBase:        a.Config.Telegram.APIBase,
		RequestTimeout: a.Config.Telegram.RequestTimeout,
		PollTimeout:    a.Config.Telegram.PollTimeout,
	}, a.Logger), nil
}

func (a *App) openStore(ctx context.Context) (storage.Store, func(), error) {
	switch a.Config.Storage.Backend {
	case config.BackendFile:
		store, err := filestore.Open(a.Config.Storage.File.Path, a.Logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open file store: %w", err)
		}
		return store, store.Close, nil

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, a.Config.Storage.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store, err := postgres.NewStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, store.Close, nil

	case config.BackendRedis:
		store, err := redisstore.Open(ctx, a.Config.Storage.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", a.Config.Storage.Backend)
	}
}

// Run executes the long-running bot process: the update dispatcher, the
// idle watcher (armed by the first /start), and the optional liveness server.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := a.newTelegramClient()
	if err != nil {
		return err
	}
	fetcher := a.newFetcher()

	watch := watcher.New(watcher.Options{
		Interval:     a.Config.Watcher.Interval,
		ThresholdPct: a.Config.Watcher.ThresholdPct,
	}, fetcher, store, store, client, a.Logger)

	dispatcher := bot.New(client, store, fetcher, watch, a.Logger)

	if a.Config.Server.Enabled {
		srv := server.New(a.Config.Server.ListenAddr, a.Config.Server.Greeting, a.Logger)
		go func() {
			if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error().Err(err).Msg("liveness server terminated")
			}
		}()
	}

	a.Logger.Info().Str("backend", a.Config.Storage.Backend).Msg("starting bot")
	err = dispatcher.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("bot terminated with error")
		return err
	}

	a.Logger.Info().Msg("bot stopped")
	return nil
}
