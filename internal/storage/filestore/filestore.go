package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"xrp-invest-bot/internal/storage"
)

// snapshot is the on-disk document. The field names match the original
// lowdb database file, so an existing XRP_invest_db.json keeps working.
type snapshot struct {
	Users    []storage.Subscriber `json:"users"`
	XRPPrice json.Number          `json:"xrpPrice"`
}

// Store keeps subscribers and the reference price in a single JSON file.
// Every mutation rewrites the file through a temp-and-rename cycle; when
// the write fails the in-memory state is rolled back so it never drifts
// from the file.
type Store struct {
	path   string
	logger zerolog.Logger

	mu   sync.Mutex
	data snapshot
}

// Open loads the snapshot at path, creating an empty one if absent.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger.With().Str("component", "file_store").Logger(),
		data:   snapshot{Users: []storage.Subscriber{}, XRPPrice: "0"},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := s.persistLocked(); err != nil {
				return nil, err
			}
			return s, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if s.data.Users == nil {
		s.data.Users = []storage.Subscriber{}
	}
	if s.data.XRPPrice == "" {
		s.data.XRPPrice = "0"
	}

	return s, nil
}

// Close is a no-op; every mutation is flushed synchronously.
func (s *Store) Close() {}

// Exists reports whether a subscriber with the chat id is registered.
func (s *Store) Exists(ctx context.Context, chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(chatID) >= 0, nil
}

// Insert registers a subscriber. Inserting an already known chat id is a no-op.
func (s *Store) Insert(ctx context.Context, sub storage.Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(sub.ChatID) >= 0 {
		return nil
	}
	s.data.Users = append(s.data.Users, sub)
	if err := s.persistLocked(); err != nil {
		s.data.Users = s.data.Users[:len(s.data.Users)-1]
		return err
	}
	return nil
}

// IncrementVisit bumps the request counter. Unknown chat ids are ignored.
func (s *Store) IncrementVisit(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(chatID)
	if idx < 0 {
		return nil
	}
	prev := s.data.Users[idx].RequestCount
	if s.data.Users[idx].RequestCount < 0 {
		s.data.Users[idx].RequestCount = 0
	}
	s.data.Users[idx].RequestCount++
	if err := s.persistLocked(); err != nil {
		s.data.Users[idx].RequestCount = prev
		return err
	}
	return nil
}

// ListChatIDs enumerates every registered chat id.
func (s *Store) ListChatIDs(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.data.Users))
	for _, sub := range s.data.Users {
		ids = append(ids, sub.ChatID)
	}
	return ids, nil
}

// ListSubscribers enumerates every subscriber record.
func (s *Store) ListSubscribers(ctx context.Context) ([]storage.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := make([]storage.Subscriber, len(s.data.Users))
	copy(subs, s.data.Users)
	return subs, nil
}

// Reference returns the stored reference price, zero when never set.
func (s *Store) Reference(ctx context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, err := decimal.NewFromString(s.data.XRPPrice.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse stored reference price: %w", err)
	}
	return price, nil
}

// SetReference overwrites the stored reference price.
func (s *Store) SetReference(ctx context.Context, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.XRPPrice
	s.data.XRPPrice = json.Number(price.String())
	if err := s.persistLocked(); err != nil {
		s.data.XRPPrice = prev
		return err
	}
	return nil
}

func (s *Store) indexLocked(chatID int64) int {
	for i, sub := range s.data.Users {
		if sub.ChatID == chatID {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".xrpbot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
