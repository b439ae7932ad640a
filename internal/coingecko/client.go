package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ClientOptions parameterise the CoinGecko REST client.
type ClientOptions struct {
	BaseURL           string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// Client fetches spot prices from the CoinGecko simple price API. Calls are
// throttled and run through a circuit breaker so a flapping upstream stops
// being hammered; callers keep the previous cache on failure.
type Client struct {
	opts    ClientOptions
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
	baseURL string
}

// NewClient constructs a CoinGecko client.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	componentLogger := logger.With().Str("component", "coingecko").Logger()
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "coingecko",
		Timeout: 30 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			componentLogger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("coingecko breaker state change")
		},
	})

	return &Client{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		breaker: breaker,
		logger:  componentLogger,
		baseURL: baseURL,
	}
}

// FetchPrices retrieves USD prices for the given API ids in one batch call.
// A partial or empty result is not an error; missing ids simply stay absent.
func (c *Client) FetchPrices(ctx context.Context, ids []string) (map[string]Price, error) {
	if len(ids) == 0 {
		return map[string]Price{}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]Price), nil
}

func (c *Client) fetch(ctx context.Context, ids []string) (map[string]Price, error) {
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")
	params.Set("include_last_updated_at", "true")

	endpoint := fmt.Sprintf("%s/simple/price?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded map[string]struct {
		USD           float64 `json:"usd"`
		LastUpdatedAt int64   `json:"last_updated_at"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("parse coingecko response: %w", err)
	}

	prices := make(map[string]Price, len(decoded))
	for id, entry := range decoded {
		updated := time.Now().UTC()
		if entry.LastUpdatedAt > 0 {
			updated = time.Unix(entry.LastUpdatedAt, 0).UTC()
		}
		prices[id] = Price{
			Price:         decimal.NewFromFloat(entry.USD),
			LastUpdatedAt: updated,
		}
	}
	return prices, nil
}
