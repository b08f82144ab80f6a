package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CoinGeckoOptions parameterise the CoinGecko fetcher.
type CoinGeckoOptions struct {
	BaseURL   string
	CoinID    string
	Timeout   time.Duration
	UserAgent string
}

// CoinGecko fetches spot prices from the CoinGecko coins endpoint.
type CoinGecko struct {
	opts    CoinGeckoOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinGecko constructs a CoinGecko fetcher.
func NewCoinGecko(opts CoinGeckoOptions, logger zerolog.Logger) *CoinGecko {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	return &CoinGecko{
		opts:    opts,
		logger:  logger.With().Str("component", "quote_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchPrice retrieves the current USD spot price for the configured coin.
func (c *CoinGecko) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	if c.opts.CoinID == "" {
		return decimal.Decimal{}, errors.New("coin id not configured")
	}

	endpoint := fmt.Sprintf("%s/coins/%s?localization=false&tickers=false&community_data=false&developer_data=false", c.baseURL, c.opts.CoinID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "xrpbot/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return decimal.Decimal{}, parseHTTPError(resp.StatusCode, payload)
	}

	var coin coinResponse
	if err := json.Unmarshal(payload, &coin); err != nil {
		return decimal.Decimal{}, err
	}

	usd := coin.MarketData.CurrentPrice.USD
	if usd == nil {
		return decimal.Decimal{}, errors.New("usd price missing from response")
	}

	return decimal.NewFromFloat(*usd), nil
}

type coinResponse struct {
	ID         string `json:"id"`
	MarketData struct {
		CurrentPrice struct {
			USD *float64 `json:"usd"`
		} `json:"current_price"`
	} `json:"market_data"`
}

type errorResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Error string `json:"error"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Status.ErrorMessage != "" {
			return fmt.Errorf("coingecko api error (%d): %s", status, apiErr.Status.ErrorMessage)
		}
		if apiErr.Error != "" {
			return fmt.Errorf("coingecko api error (%d): %s", status, apiErr.Error)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("coingecko api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("coingecko api error (%d)", status)
}

var _ Fetcher = (*CoinGecko)(nil)
