package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options parameterise the Bot API client.
type Options struct {
	BotToken       string
	APIBase        string
	RequestTimeout time.Duration
	PollTimeout    time.Duration
}

// Client talks to the Telegram Bot API over HTTP.
type Client struct {
	opts       Options
	logger     zerolog.Logger
	client     *http.Client
	pollClient *http.Client
	baseURL    string
}

// NewClient constructs a Bot API client. The polling client carries a longer
// timeout than the getUpdates long-poll window so the server side closes first.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	pollTimeout := opts.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(opts.APIBase, "/")
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	opts.PollTimeout = pollTimeout
	return &Client{
		opts:       opts,
		logger:     logger.With().Str("component", "telegram_client").Logger(),
		client:     &http.Client{Timeout: requestTimeout},
		pollClient: &http.Client{Timeout: pollTimeout + 5*time.Second},
		baseURL:    baseURL,
	}
}

type sendMessageRequest struct {
	ChatID      int64                `json:"chat_id"`
	Text        string               `json:"text"`
	ParseMode   string               `json:"parse_mode,omitempty"`
	ReplyMarkup *ReplyKeyboardMarkup `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// SendMessage delivers an HTML-formatted message to one chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.send(ctx, sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"})
}

// SendMessageWithKeyboard delivers a message together with a reply keyboard.
func (c *Client) SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, keyboard *ReplyKeyboardMarkup) error {
	return c.send(ctx, sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML", ReplyMarkup: keyboard})
}

func (c *Client) send(ctx context.Context, payload sendMessageRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sendMessage payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.opts.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sendMessage request: %w", err)
	}
	defer resp.Body.Close()

	if _, err := decodeResponse(resp); err != nil {
		return err
	}

	c.logger.Debug().Int64("chat_id", payload.ChatID).Msg("message delivered")
	return nil
}

// GetUpdates long-polls for updates past the given offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(int(c.opts.PollTimeout/time.Second)))
	params.Set("allowed_updates", `["message"]`)

	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?%s", c.baseURL, c.opts.BotToken, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create getUpdates request: %w", err)
	}

	resp, err := c.pollClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll getUpdates: %w", err)
	}
	defer resp.Body.Close()

	result, err := decodeResponse(resp)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("parse updates: %w", err)
	}
	return updates, nil
}

func decodeResponse(resp *http.Response) (json.RawMessage, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiRes apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiRes); err == nil && apiRes.Description != "" {
			return nil, fmt.Errorf("telegram api error (%d): %s", resp.StatusCode, apiRes.Description)
		}
		return nil, fmt.Errorf("telegram api error (%d)", resp.StatusCode)
	}

	var apiRes apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiRes); err != nil {
		return nil, fmt.Errorf("decode telegram response: %w", err)
	}
	if !apiRes.OK {
		if apiRes.Description != "" {
			return nil, fmt.Errorf("telegram returned ok=false: %s", apiRes.Description)
		}
		return nil, errors.New("telegram returned ok=false")
	}
	return apiRes.Result, nil
}
