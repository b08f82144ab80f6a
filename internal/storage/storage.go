package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotConfigured indicates the backing store was not initialised.
var ErrNotConfigured = errors.New("storage: not configured")

// Subscriber identifies one chat that receives broadcasts.
type Subscriber struct {
	ChatID       int64  `json:"chatId"`
	UserID       int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
	RequestCount int    `json:"request_count"`
}

// SubscriberStore persists subscriber records keyed by chat id.
type SubscriberStore interface {
	Exists(ctx context.Context, chatID int64) (bool, error)
	Insert(ctx context.Context, sub Subscriber) error
	IncrementVisit(ctx context.Context, chatID int64) error
	ListChatIDs(ctx context.Context) ([]int64, error)
	ListSubscribers(ctx context.Context) ([]Subscriber, error)
}

// ReferenceStore persists the last price used for comparison. A zero value
// means the reference has never been set.
type ReferenceStore interface {
	Reference(ctx context.Context) (decimal.Decimal, error)
	SetReference(ctx context.Context, price decimal.Decimal) error
}

// Store aggregates both capabilities behind one backend.
type Store interface {
	SubscriberStore
	ReferenceStore
	Close()
}
