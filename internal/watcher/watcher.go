package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"xrp-invest-bot/internal/portfolio"
	"xrp-invest-bot/internal/quote"
	"xrp-invest-bot/internal/scheduler"
	"xrp-invest-bot/internal/storage"
)

const (
	upMarker   = "🟢"
	downMarker = "🔴"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// MessageSender delivers one formatted message to one chat.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Options tune the poll-and-broadcast loop.
type Options struct {
	Interval     time.Duration
	ThresholdPct float64
}

// Service polls the quote source and broadcasts an alert to every subscriber
// when the price moves past the threshold relative to the stored reference.
// It starts idle; the first Arm call registers the timer for the rest of the
// process lifetime.
type Service struct {
	opts        Options
	fetcher     quote.Fetcher
	subscribers storage.SubscriberStore
	reference   storage.ReferenceStore
	sender      MessageSender
	logger      zerolog.Logger

	threshold decimal.Decimal
	armed     atomic.Bool
}

// New constructs the watcher service in the idle state.
func New(opts Options, fetcher quote.Fetcher, subscribers storage.SubscriberStore, reference storage.ReferenceStore, sender MessageSender, logger zerolog.Logger) *Service {
	threshold := decimal.NewFromFloat(opts.ThresholdPct)
	if threshold.IsZero() {
		threshold = decimal.NewFromInt(3)
	}

	return &Service{
		opts:        opts,
		fetcher:     fetcher,
		subscribers: subscribers,
		reference:   reference,
		sender:      sender,
		logger:      logger.With().Str("component", "watcher").Logger(),
		threshold:   threshold,
	}
}

// Armed reports whether the timer loop is running.
func (s *Service) Armed() bool {
	return s.armed.Load()
}

// Arm transitions idle to armed exactly once per process and starts the tick
// loop on a background goroutine bound to ctx. Returns true when this call
// started the loop, false when it was already armed.
func (s *Service) Arm(ctx context.Context) bool {
	if !s.armed.CompareAndSwap(false, true) {
		return false
	}

	sched := scheduler.New(scheduler.Options{Interval: s.opts.Interval}, s.logger)
	go func() {
		if err := sched.Run(ctx, s.Tick); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("watcher loop terminated")
		}
	}()

	s.logger.Info().Dur("interval", s.opts.Interval).Str("threshold_pct", s.threshold.String()).Msg("watcher armed")
	return true
}

// Tick runs one poll cycle: fetch, compare against the reference, and
// broadcast when the change is past the threshold.
func (s *Service) Tick(ctx context.Context, at time.Time) error {
	price, err := s.fetcher.FetchPrice(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("quote fetch failed, skipping cycle")
		return nil
	}
	if price.IsZero() {
		s.logger.Warn().Msg("no usable quote this cycle")
		return nil
	}

	prev, err := s.reference.Reference(ctx)
	if err != nil {
		return fmt.Errorf("load reference price: %w", err)
	}

	if prev.IsZero() {
		if err := s.reference.SetReference(ctx, price); err != nil {
			return fmt.Errorf("bootstrap reference price: %w", err)
		}
		s.logger.Info().Str("price", price.String()).Msg("reference price bootstrapped")
		return nil
	}

	diffPct := price.Div(prev).Sub(one).Mul(hundred)
	if diffPct.GreaterThan(s.threshold) || diffPct.LessThan(s.threshold.Neg()) {
		if err := s.reference.SetReference(ctx, price); err != nil {
			s.logger.Error().Err(err).Msg("failed to update reference price")
		}
		s.Broadcast(ctx, price, diffPct)
		return nil
	}

	s.logger.Debug().
		Str("price", price.String()).
		Str("reference", prev.String()).
		Str("diff_pct", diffPct.String()).
		Msg("change within threshold")
	return nil
}

// Broadcast fans the alert out to every subscriber, best effort per chat.
func (s *Service) Broadcast(ctx context.Context, price, diffPct decimal.Decimal) {
	chatIDs, err := s.subscribers.ListChatIDs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to enumerate subscribers")
		return
	}

	text := AlertText(price, diffPct)
	sent := 0
	for _, chatID := range chatIDs {
		if err := s.sender.SendMessage(ctx, chatID, text); err != nil {
			s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to deliver alert")
			continue
		}
		sent++
	}

	s.logger.Info().
		Str("diff_pct", diffPct.String()).
		Int("subscribers", len(chatIDs)).
		Int("sent", sent).
		Msg("alert broadcast")
}

// AlertText renders the threshold-crossing alert for the given price move.
func AlertText(price, diffPct decimal.Decimal) string {
	marker := upMarker
	if diffPct.IsNegative() {
		marker = downMarker
	}
	return fmt.Sprintf("%s Price has been changed: %s%%%s\nLook at actual information:%s",
		marker, portfolio.Round(diffPct).String(), marker, portfolio.ShortReport(price))
}
