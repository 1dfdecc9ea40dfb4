package coingecko

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crypto-portfolio-go/internal/config"
	"crypto-portfolio-go/internal/models"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	apiKeyHeader   = "x-cg-demo-api-key"
	vsCurrency     = "usd"
)

// ErrPriceNotFound is returned when the price response has no entry for the requested id.
var ErrPriceNotFound = errors.New("price not found")

// RestClientInterface defines the interface for the CoinGecko REST API client.
type RestClientInterface interface {
	ListCoins(ctx context.Context) ([]models.Coin, error)
	GetPrice(ctx context.Context, id string) (float64, error)
}

// RestClient is a client for the public CoinGecko REST API.
// It implements the RestClientInterface.
type RestClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure RestClient implements the interface
var _ RestClientInterface = (*RestClient)(nil)

// NewRestClient creates a new CoinGecko REST API client.
// A zero rate limit leaves outgoing requests unpaced.
func NewRestClient(cfg *config.CoinGecko, logger *zap.Logger) *RestClient {
	url := cfg.BaseURL
	if url == "" {
		url = defaultBaseURL
	}

	client := resty.New().
		SetBaseURL(url).
		SetHeader("Accept", "application/json")
	if cfg.ApiKey != "" {
		client.SetHeader(apiKeyHeader, cfg.ApiKey)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(time.Duration(cfg.Timeout) * time.Second)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	return &RestClient{
		client:  client,
		logger:  logger.Named("coingecko"),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// doRequest executes a single GET; failures are returned as-is, never retried.
func (c *RestClient) doRequest(ctx context.Context, path string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	c.logger.Debug("Executing request", zap.String("url", c.client.BaseURL+path))
	resp, err := req.
		SetContext(ctx).
		ForceContentType("application/json").
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
	}
	return resp, nil
}

// ListCoins fetches the full catalog of supported coins.
func (c *RestClient) ListCoins(ctx context.Context) ([]models.Coin, error) {
	var coins []models.Coin

	req := c.client.R().SetResult(&coins)
	if _, err := c.doRequest(ctx, "/coins/list", req); err != nil {
		return nil, fmt.Errorf("failed to list coins: %w", err)
	}

	return coins, nil
}

// simplePrice is one entry of the /simple/price response.
type simplePrice struct {
	USD *float64 `json:"usd"`
}

// GetPrice fetches the current USD price for a coin id.
// The id is lower-cased before the request and the response lookup.
func (c *RestClient) GetPrice(ctx context.Context, id string) (float64, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return 0, fmt.Errorf("failed to get price: empty id")
	}

	var prices map[string]simplePrice
	req := c.client.R().
		SetQueryParam("ids", id).
		SetQueryParam("vs_currencies", vsCurrency).
		SetResult(&prices)

	if _, err := c.doRequest(ctx, "/simple/price", req); err != nil {
		return 0, fmt.Errorf("failed to get price for %s: %w", id, err)
	}

	entry, ok := prices[id]
	if !ok || entry.USD == nil {
		return 0, fmt.Errorf("failed to get price for %s: %w", id, ErrPriceNotFound)
	}
	return *entry.USD, nil
}
