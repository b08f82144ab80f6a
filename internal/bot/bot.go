package bot

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"xrp-invest-bot/internal/portfolio"
	"xrp-invest-bot/internal/quote"
	"xrp-invest-bot/internal/storage"
	"xrp-invest-bot/internal/telegram"
)

// Menu labels and commands understood by the dispatcher.
const (
	CommandStart   = "/start"
	CommandShow    = "/show"
	CommandShowAll = "/show_all"

	ShortStatusLabel = "🤪 Short status"
	FullInfoLabel    = "😎 Get me full information"
)

const pollRetryDelay = 3 * time.Second

// Transport is the slice of the Bot API the dispatcher needs.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard *telegram.ReplyKeyboardMarkup) error
	GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error)
}

// Armer starts the poll-and-broadcast loop on first demand.
type Armer interface {
	Arm(ctx context.Context) bool
}

// Bot maps inbound user actions to replies and subscriber bookkeeping.
type Bot struct {
	transport   Transport
	subscribers storage.SubscriberStore
	fetcher     quote.Fetcher
	watcher     Armer
	logger      zerolog.Logger
	menu        *telegram.ReplyKeyboardMarkup
}

// New constructs the dispatcher.
func New(transport Transport, subscribers storage.SubscriberStore, fetcher quote.Fetcher, watcher Armer, logger zerolog.Logger) *Bot {
	return &Bot{
		transport:   transport,
		subscribers: subscribers,
		fetcher:     fetcher,
		watcher:     watcher,
		logger:      logger.With().Str("component", "bot").Logger(),
		menu:        telegram.SingleColumnKeyboard(ShortStatusLabel, FullInfoLabel),
	}
}

// Run long-polls for updates until ctx is cancelled. Updates are handled
// sequentially, which keeps per-chat ordering without extra coordination.
func (b *Bot) Run(ctx context.Context) error {
	var offset int64
	for {
		updates, err := b.transport.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn().Err(err).Msg("getUpdates failed, retrying")
			if err := sleep(ctx, pollRetryDelay); err != nil {
				return err
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			b.HandleMessage(ctx, update.Message)
		}
	}
}

// HandleMessage dispatches one inbound message. Unknown text is ignored.
func (b *Bot) HandleMessage(ctx context.Context, msg *telegram.Message) {
	switch msg.Text {
	case CommandStart:
		b.handleStart(ctx, msg)
	case ShortStatusLabel:
		b.handleReport(ctx, msg, portfolio.ShortReport, true)
	case FullInfoLabel:
		b.handleReport(ctx, msg, portfolio.FullReport, true)
	case CommandShow:
		b.handleReport(ctx, msg, portfolio.ShortReport, false)
	case CommandShowAll:
		b.handleReport(ctx, msg, portfolio.FullReport, false)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *telegram.Message) {
	if b.watcher != nil && b.watcher.Arm(ctx) {
		b.logger.Info().Int64("chat_id", msg.Chat.ID).Msg("price watcher armed by first start")
	}

	b.bootstrap(ctx, msg)

	// Messages go out with parse_mode=HTML, so the name has to be escaped.
	greeting := fmt.Sprintf("Hello %s, use menu for navigation.", html.EscapeString(msg.From.FirstName))
	b.replyWithMenu(ctx, msg.Chat.ID, greeting)
}

func (b *Bot) handleReport(ctx context.Context, msg *telegram.Message, render func(decimal.Decimal) string, withMenu bool) {
	b.bootstrap(ctx, msg)
	b.countVisit(ctx, msg.Chat.ID)

	text := render(b.fetchOrZero(ctx))
	if withMenu {
		b.replyWithMenu(ctx, msg.Chat.ID, text)
		return
	}
	if err := b.transport.SendMessage(ctx, msg.Chat.ID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to send reply")
	}
}

// bootstrap registers the sender as a subscriber if the chat id is unknown.
// It runs on every entry point, so a chat that never sent /start still ends
// up registered on its first interaction.
func (b *Bot) bootstrap(ctx context.Context, msg *telegram.Message) {
	exists, err := b.subscribers.Exists(ctx, msg.Chat.ID)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("subscriber lookup failed")
	}
	if exists {
		return
	}

	sub := storage.Subscriber{
		ChatID:       msg.Chat.ID,
		UserID:       msg.From.ID,
		IsBot:        msg.From.IsBot,
		FirstName:    msg.From.FirstName,
		Username:     msg.From.Username,
		LanguageCode: msg.From.LanguageCode,
	}
	if err := b.subscribers.Insert(ctx, sub); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to register subscriber")
	}
}

func (b *Bot) countVisit(ctx context.Context, chatID int64) {
	if err := b.subscribers.IncrementVisit(ctx, chatID); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to count visit")
	}
}

// fetchOrZero degrades a failed quote fetch to a zero price; the reply is
// still rendered so the user gets an answer.
func (b *Bot) fetchOrZero(ctx context.Context) decimal.Decimal {
	price, err := b.fetcher.FetchPrice(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("quote fetch failed, rendering zero price")
		return decimal.Zero
	}
	return price
}

func (b *Bot) replyWithMenu(ctx context.Context, chatID int64, text string) {
	if err := b.transport.SendMessageWithKeyboard(ctx, chatID, text, b.menu); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send reply")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
