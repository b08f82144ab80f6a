package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"xrp-invest-bot/internal/storage"
)

func testSubscriber(chatID int64) storage.Subscriber {
	return storage.Subscriber{
		ChatID:       chatID,
		UserID:       chatID,
		FirstName:    "Alex",
		Username:     "alex",
		LanguageCode: "en",
	}
}

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	store, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store, path
}

func TestInsertIsIdempotent(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testSubscriber(1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Insert(ctx, testSubscriber(1)); err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}

	ids, err := store.ListChatIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("expected exactly one chat id, got %v", ids)
	}

	exists, err := store.Exists(ctx, 1)
	if err != nil || !exists {
		t.Fatalf("subscriber 1 should exist: %v %v", exists, err)
	}
	exists, err = store.Exists(ctx, 2)
	if err != nil || exists {
		t.Fatalf("subscriber 2 should not exist: %v %v", exists, err)
	}
}

func TestIncrementVisit(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	// Unknown chat id is a no-op, not an error.
	if err := store.IncrementVisit(ctx, 9); err != nil {
		t.Fatalf("increment for unknown chat: %v", err)
	}

	if err := store.Insert(ctx, testSubscriber(1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.IncrementVisit(ctx, 1); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	subs, err := store.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if len(subs) != 1 || subs[0].RequestCount != 3 {
		t.Fatalf("expected request count 3, got %+v", subs)
	}
}

func TestReferenceRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	price, err := store.Reference(ctx)
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	if !price.IsZero() {
		t.Fatalf("fresh store must report zero reference, got %s", price)
	}

	if err := store.SetReference(ctx, decimal.RequireFromString("0.624")); err != nil {
		t.Fatalf("set reference: %v", err)
	}
	price, err = store.Reference(ctx)
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("0.624")) {
		t.Fatalf("expected 0.624, got %s", price)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testSubscriber(5)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.IncrementVisit(ctx, 5); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := store.SetReference(ctx, decimal.RequireFromString("0.7")); err != nil {
		t.Fatalf("set reference: %v", err)
	}

	reopened, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	subs, err := reopened.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if len(subs) != 1 || subs[0].ChatID != 5 || subs[0].RequestCount != 1 {
		t.Fatalf("persisted subscriber wrong: %+v", subs)
	}

	price, err := reopened.Reference(ctx)
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("0.7")) {
		t.Fatalf("persisted reference wrong: %s", price)
	}
}

func TestSnapshotShapeMatchesLegacyFile(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()

	if err := store.Insert(ctx, testSubscriber(3)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.SetReference(ctx, decimal.RequireFromString("0.62")); err != nil {
		t.Fatalf("set reference: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if _, ok := doc["users"]; !ok {
		t.Fatal("snapshot must keep the top-level users list")
	}
	if string(doc["xrpPrice"]) != "0.62" {
		t.Fatalf("xrpPrice must be a bare number, got %s", doc["xrpPrice"])
	}
}

func TestMutationsRollBackWhenWriteFails(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	store, err := Open(filepath.Join(dir, "db.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx := context.Background()

	if err := store.Insert(ctx, testSubscriber(1)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Removing the directory makes every subsequent write fail.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}

	if err := store.Insert(ctx, testSubscriber(2)); err == nil {
		t.Fatal("insert with unwritable snapshot must fail")
	}
	exists, err := store.Exists(ctx, 2)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("failed insert must not leave the subscriber in memory")
	}

	if err := store.IncrementVisit(ctx, 1); err == nil {
		t.Fatal("increment with unwritable snapshot must fail")
	}
	subs, err := store.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("list subscribers: %v", err)
	}
	if len(subs) != 1 || subs[0].RequestCount != 0 {
		t.Fatalf("failed increment must not change the counter, got %+v", subs)
	}

	if err := store.SetReference(ctx, decimal.RequireFromString("0.7")); err == nil {
		t.Fatal("set reference with unwritable snapshot must fail")
	}
	price, err := store.Reference(ctx)
	if err != nil {
		t.Fatalf("reference: %v", err)
	}
	if !price.IsZero() {
		t.Fatalf("failed set must keep the previous reference, got %s", price)
	}
}
