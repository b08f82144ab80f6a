package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"xrp-invest-bot/internal/quote"
	"xrp-invest-bot/internal/storage"
	"xrp-invest-bot/internal/watcher"
)

// SimulateAlert runs one watcher cycle against a fixed quote and a fixed
// previous reference, broadcasting to the real subscriber list. The stored
// reference price is left untouched.
func (a *App) SimulateAlert(ctx context.Context, previous, price decimal.Decimal) error {
	if previous.IsZero() {
		return errors.New("previous reference price must be greater than zero")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := a.newTelegramClient()
	if err != nil {
		return err
	}

	watch := watcher.New(watcher.Options{
		Interval:     a.Config.Watcher.Interval,
		ThresholdPct: a.Config.Watcher.ThresholdPct,
	}, &staticFetcher{price: price}, store, &staticReference{price: previous}, client, a.Logger)

	return watch.Tick(ctx, time.Now().UTC())
}

type staticFetcher struct {
	price decimal.Decimal
}

func (s *staticFetcher) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	return s.price, nil
}

type staticReference struct {
	mu    sync.Mutex
	price decimal.Decimal
}

func (s *staticReference) Reference(ctx context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.price, nil
}

func (s *staticReference) SetReference(ctx context.Context, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.price = price
	return nil
}

var _ quote.Fetcher = (*staticFetcher)(nil)
var _ storage.ReferenceStore = (*staticReference)(nil)
