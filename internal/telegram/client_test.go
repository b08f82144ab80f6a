package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testClient(baseURL string) *Client {
	return NewClient(Options{
		BotToken:       "token",
		APIBase:        baseURL,
		RequestTimeout: time.Second,
		PollTimeout:    time.Second,
	}, zerolog.Nop())
}

func TestSendMessageSuccess(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/bottoken/sendMessage") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": map[string]any{"message_id": 1}})
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	if err := client.SendMessage(context.Background(), 42, "<b>hi</b>"); err != nil {
		t.Fatalf("send should succeed: %v", err)
	}

	if payload["chat_id"].(float64) != 42 {
		t.Fatalf("chat_id wrong: %#v", payload)
	}
	if payload["text"] != "<b>hi</b>" {
		t.Fatalf("text wrong: %#v", payload)
	}
	if payload["parse_mode"] != "HTML" {
		t.Fatalf("parse_mode must be HTML: %#v", payload)
	}
	if _, ok := payload["reply_markup"]; ok {
		t.Fatalf("plain send must not attach a keyboard: %#v", payload)
	}
}

func TestSendMessageWithKeyboard(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	keyboard := SingleColumnKeyboard("a", "b")
	if err := client.SendMessageWithKeyboard(context.Background(), 42, "hi", keyboard); err != nil {
		t.Fatalf("send should succeed: %v", err)
	}

	markup, ok := payload["reply_markup"].(map[string]any)
	if !ok {
		t.Fatalf("reply_markup missing: %#v", payload)
	}
	rows, ok := markup["keyboard"].([]any)
	if !ok || len(rows) != 2 {
		t.Fatalf("keyboard must have one row per label: %#v", markup)
	}
}

func TestSendMessageNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	err := client.SendMessage(context.Background(), 42, "hi")
	if err == nil {
		t.Fatal("ok=false must surface as an error")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("error should carry the description: %v", err)
	}
}

func TestGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "getUpdates") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("offset"); got != "7" {
			t.Fatalf("offset should be forwarded, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": []map[string]any{
				{
					"update_id": 8,
					"message": map[string]any{
						"message_id": 100,
						"text":       "/start",
						"chat":       map[string]any{"id": 42},
						"from":       map[string]any{"id": 42, "first_name": "Alex"},
					},
				},
			},
		})
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	updates, err := client.GetUpdates(context.Background(), 7)
	if err != nil {
		t.Fatalf("getUpdates failed: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected one update, got %d", len(updates))
	}
	update := updates[0]
	if update.UpdateID != 8 || update.Message == nil || update.Message.Text != "/start" {
		t.Fatalf("update parsed wrong: %+v", update)
	}
	if update.Message.Chat.ID != 42 || update.Message.From.FirstName != "Alex" {
		t.Fatalf("message fields parsed wrong: %+v", update.Message)
	}
}
