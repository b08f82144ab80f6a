package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"xrp-invest-bot/internal/storage"
)

const (
	createUsersSQL = `CREATE TABLE IF NOT EXISTS users (
        chat_id       BIGINT PRIMARY KEY,
        user_id       BIGINT NOT NULL,
        is_bot        BOOLEAN NOT NULL DEFAULT FALSE,
        first_name    TEXT NOT NULL DEFAULT '',
        username      TEXT NOT NULL DEFAULT '',
        language_code TEXT NOT NULL DEFAULT '',
        request_count INTEGER NOT NULL DEFAULT 0,
        created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	createReferenceSQL = `CREATE TABLE IF NOT EXISTS reference_price (
        id    SMALLINT PRIMARY KEY CHECK (id = 1),
        price NUMERIC NOT NULL DEFAULT 0
    );`

	existsSubscriberSQL = `SELECT EXISTS (SELECT 1 FROM users WHERE chat_id = $1);`

	insertSubscriberSQL = `INSERT INTO users (
        chat_id, user_id, is_bot, first_name, username, language_code, request_count
    ) VALUES ($1,$2,$3,$4,$5,$6,$7)
    ON CONFLICT (chat_id) DO NOTHING;`

	incrementVisitSQL = `UPDATE users
    SET request_count = GREATEST(COALESCE(request_count, 0), 0) + 1
    WHERE chat_id = $1;`

	listChatIDsSQL = `SELECT chat_id FROM users;`

	listSubscribersSQL = `SELECT
        chat_id, user_id, is_bot, first_name, username, language_code, request_count
    FROM users
    ORDER BY created_at;`

	getReferenceSQL = `SELECT price FROM reference_price WHERE id = 1;`

	setReferenceSQL = `INSERT INTO reference_price (id, price) VALUES (1, $1)
    ON CONFLICT (id) DO UPDATE SET price = EXCLUDED.price;`
)

// Store persists subscribers and the reference price in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store and ensures the schema exists.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	for _, ddl := range []string{createUsersSQL, createReferenceSQL} {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, storage.ErrNotConfigured
	}
	return s.pool, nil
}

// Exists reports whether a subscriber with the chat id is registered.
func (s *Store) Exists(ctx context.Context, chatID int64) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}
	var exists bool
	if scanErr := pool.QueryRow(ctx, existsSubscriberSQL, chatID).Scan(&exists); scanErr != nil {
		return false, fmt.Errorf("check subscriber: %w", scanErr)
	}
	return exists, nil
}

// Insert registers a subscriber. Conflicting chat ids are left untouched.
func (s *Store) Insert(ctx context.Context, sub storage.Subscriber) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	_, execErr := pool.Exec(ctx, insertSubscriberSQL,
		sub.ChatID,
		sub.UserID,
		sub.IsBot,
		sub.FirstName,
		sub.Username,
		sub.LanguageCode,
		sub.RequestCount,
	)
	if execErr != nil {
		return fmt.Errorf("insert subscriber: %w", execErr)
	}
	return nil
}

// IncrementVisit bumps the request counter. Unknown chat ids are ignored.
func (s *Store) IncrementVisit(ctx context.Context, chatID int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, incrementVisitSQL, chatID); execErr != nil {
		return fmt.Errorf("increment visit: %w", execErr)
	}
	return nil
}

// ListChatIDs enumerates every registered chat id.
func (s *Store) ListChatIDs(ctx context.Context) ([]int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listChatIDsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list chat ids: %w", queryErr)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

// ListSubscribers enumerates every subscriber record.
func (s *Store) ListSubscribers(ctx context.Context) ([]storage.Subscriber, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSubscribersSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list subscribers: %w", queryErr)
	}
	defer rows.Close()

	subs := make([]storage.Subscriber, 0)
	for rows.Next() {
		var sub storage.Subscriber
		if err := rows.Scan(
			&sub.ChatID,
			&sub.UserID,
			&sub.IsBot,
			&sub.FirstName,
			&sub.Username,
			&sub.LanguageCode,
			&sub.RequestCount,
		); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return subs, nil
}

// Reference returns the stored reference price, zero when never set.
func (s *Store) Reference(ctx context.Context) (decimal.Decimal, error) {
	pool, err := s.getPool()
	if err != nil {
		return decimal.Decimal{}, err
	}

	var priceStr string
	scanErr := pool.QueryRow(ctx, getReferenceSQL).Scan(&priceStr)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Decimal{}, fmt.Errorf("get reference price: %w", scanErr)
	}

	price, convErr := decimal.NewFromString(priceStr)
	if convErr != nil {
		return decimal.Decimal{}, fmt.Errorf("parse reference price: %w", convErr)
	}
	return price, nil
}

// SetReference overwrites the stored reference price.
func (s *Store) SetReference(ctx context.Context, price decimal.Decimal) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, setReferenceSQL, price.String()); execErr != nil {
		return fmt.Errorf("set reference price: %w", execErr)
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
