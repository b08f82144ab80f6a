package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"xrp-invest-bot/internal/config"
	"xrp-invest-bot/internal/storage"
)

// Store persists subscribers and the reference price in Redis.
// Layout: a set of chat ids under {ns}:chats, one hash per subscriber under
// {ns}:subscriber:{chatID}, and the reference price under {ns}:reference_price.
type Store struct {
	client    *redis.Client
	namespace string
}

// Open connects to Redis and verifies the connection with a ping.
func Open(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "xrpbot"
	}

	return &Store{client: client, namespace: namespace}, nil
}

// Close releases the underlying client resources.
func (s *Store) Close() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Close()
}

func (s *Store) chatsKey() string {
	return s.namespace + ":chats"
}

func (s *Store) subscriberKey(chatID int64) string {
	return fmt.Sprintf("%s:subscriber:%d", s.namespace, chatID)
}

func (s *Store) referenceKey() string {
	return s.namespace + ":reference_price"
}

// Exists reports whether a subscriber with the chat id is registered.
func (s *Store) Exists(ctx context.Context, chatID int64) (bool, error) {
	member, err := s.client.SIsMember(ctx, s.chatsKey(), chatID).Result()
	if err != nil {
		return false, fmt.Errorf("check subscriber: %w", err)
	}
	return member, nil
}

// Insert registers a subscriber. SADD signals whether the chat id is new, so
// an existing record is never clobbered.
func (s *Store) Insert(ctx context.Context, sub storage.Subscriber) error {
	added, err := s.client.SAdd(ctx, s.chatsKey(), sub.ChatID).Result()
	if err != nil {
		return fmt.Errorf("register chat id: %w", err)
	}
	if added == 0 {
		return nil
	}

	fields := map[string]interface{}{
		"chat_id":       sub.ChatID,
		"user_id":       sub.UserID,
		"is_bot":        strconv.FormatBool(sub.IsBot),
		"first_name":    sub.FirstName,
		"username":      sub.Username,
		"language_code": sub.LanguageCode,
		"request_count": sub.RequestCount,
	}
	if err := s.client.HSet(ctx, s.subscriberKey(sub.ChatID), fields).Err(); err != nil {
		return fmt.Errorf("store subscriber: %w", err)
	}
	return nil
}

// IncrementVisit bumps the request counter. Unknown chat ids are ignored.
func (s *Store) IncrementVisit(ctx context.Context, chatID int64) error {
	member, err := s.client.SIsMember(ctx, s.chatsKey(), chatID).Result()
	if err != nil {
		return fmt.Errorf("check subscriber: %w", err)
	}
	if !member {
		return nil
	}
	if err := s.client.HIncrBy(ctx, s.subscriberKey(chatID), "request_count", 1).Err(); err != nil {
		return fmt.Errorf("increment visit: %w", err)
	}
	return nil
}

// ListChatIDs enumerates every registered chat id.
func (s *Store) ListChatIDs(ctx context.Context) ([]int64, error) {
	members, err := s.client.SMembers(ctx, s.chatsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list chat ids: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, member := range members {
		id, convErr := strconv.ParseInt(member, 10, 64)
		if convErr != nil {
			return nil, fmt.Errorf("parse chat id %q: %w", member, convErr)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ListSubscribers enumerates every subscriber record.
func (s *Store) ListSubscribers(ctx context.Context) ([]storage.Subscriber, error) {
	ids, err := s.ListChatIDs(ctx)
	if err != nil {
		return nil, err
	}

	subs := make([]storage.Subscriber, 0, len(ids))
	for _, id := range ids {
		fields, getErr := s.client.HGetAll(ctx, s.subscriberKey(id)).Result()
		if getErr != nil {
			return nil, fmt.Errorf("load subscriber %d: %w", id, getErr)
		}
		subs = append(subs, subscriberFromFields(id, fields))
	}
	return subs, nil
}

// Reference returns the stored reference price, zero when never set.
func (s *Store) Reference(ctx context.Context) (decimal.Decimal, error) {
	raw, err := s.client.Get(ctx, s.referenceKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, nil
		}
		return decimal.Decimal{}, fmt.Errorf("get reference price: %w", err)
	}

	price, convErr := decimal.NewFromString(raw)
	if convErr != nil {
		return decimal.Decimal{}, fmt.Errorf("parse reference price: %w", convErr)
	}
	return price, nil
}

// SetReference overwrites the stored reference price.
func (s *Store) SetReference(ctx context.Context, price decimal.Decimal) error {
	if err := s.client.Set(ctx, s.referenceKey(), price.String(), 0).Err(); err != nil {
		return fmt.Errorf("set reference price: %w", err)
	}
	return nil
}

func subscriberFromFields(chatID int64, fields map[string]string) storage.Subscriber {
	sub := storage.Subscriber{ChatID: chatID}
	if v, err := strconv.ParseInt(fields["user_id"], 10, 64); err == nil {
		sub.UserID = v
	}
	if v, err := strconv.ParseBool(fields["is_bot"]); err == nil {
		sub.IsBot = v
	}
	sub.FirstName = fields["first_name"]
	sub.Username = fields["username"]
	sub.LanguageCode = fields["language_code"]
	if v, err := strconv.Atoi(fields["request_count"]); err == nil {
		sub.RequestCount = v
	}
	return sub
}

var _ storage.Store = (*Store)(nil)
