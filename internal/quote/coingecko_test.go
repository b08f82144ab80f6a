package quote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFetchMissingCoinID(t *testing.T) {
	c := NewCoinGecko(CoinGeckoOptions{}, noopLogger())
	if _, err := c.FetchPrice(context.Background()); err == nil {
		t.Fatal("missing coin id should return an error")
	}
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/ripple" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "ripple",
			"market_data": map[string]any{
				"current_price": map[string]any{"usd": 0.65, "eur": 0.60},
			},
		})
	}))
	defer srv.Close()

	c := NewCoinGecko(CoinGeckoOptions{
		BaseURL: srv.URL,
		CoinID:  "ripple",
		Timeout: time.Second,
	}, noopLogger())

	price, err := c.FetchPrice(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("0.65")) {
		t.Fatalf("expected 0.65, got %s", price)
	}
}

func TestFetchMissingUSDPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "ripple",
			"market_data": map[string]any{"current_price": map[string]any{"eur": 0.60}},
		})
	}))
	defer srv.Close()

	c := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, CoinID: "ripple", Timeout: time.Second}, noopLogger())
	if _, err := c.FetchPrice(context.Background()); err == nil {
		t.Fatal("missing usd field should return an error")
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": map[string]any{"error_code": 429, "error_message": "rate limited"},
		})
	}))
	defer srv.Close()

	c := NewCoinGecko(CoinGeckoOptions{BaseURL: srv.URL, CoinID: "ripple", Timeout: time.Second}, noopLogger())
	if _, err := c.FetchPrice(context.Background()); err == nil {
		t.Fatal("HTTP 429 should return an error")
	}
}
