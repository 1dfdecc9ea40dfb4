package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"crypto-portfolio-go/internal/config"
	"crypto-portfolio-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestServer creates a new test server and a RestClient configured to use it.
func setupTestServer(handler http.Handler) (*RestClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	rc := NewRestClient(&config.CoinGecko{BaseURL: server.URL, ApiKey: "test_api_key"}, zap.NewNop())
	return rc, server
}

func TestListCoins(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/coins/list", r.URL.Path)
			assert.Equal(t, "test_api_key", r.Header.Get(apiKeyHeader))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[
				{"id":"bitcoin","symbol":"btc","name":"Bitcoin"},
				{"id":"ethereum","symbol":"eth","name":"Ethereum"}
			]`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		coins, err := rc.ListCoins(context.Background())

		require.NoError(t, err)
		assert.Equal(t, []models.Coin{
			{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"},
			{ID: "ethereum", Symbol: "eth", Name: "Ethereum"},
		}, coins)
	})

	t.Run("APIError", func(t *testing.T) {
		calls := 0
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
		})

		rc, server := setupTestServer(handler)
		defer server.Close()

		coins, err := rc.ListCoins(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list coins")
		assert.Nil(t, coins)
		assert.Equal(t, 1, calls, "requests must not be retried")
	})
}

func TestGetPrice(t *testing.T) {
	testCases := []struct {
		name          string
		id            string
		body          string
		status        int
		expectedPrice float64
		expectedErr   string
	}{
		{
			name:          "Success lower-cases the id",
			id:            "BTC",
			body:          `{"btc":{"usd":150}}`,
			status:        http.StatusOK,
			expectedPrice: 150,
		},
		{
			name:        "Missing price key",
			id:          "bitcoin",
			body:        `{}`,
			status:      http.StatusOK,
			expectedErr: "price not found",
		},
		{
			name:        "Missing usd field",
			id:          "bitcoin",
			body:        `{"bitcoin":{}}`,
			status:      http.StatusOK,
			expectedErr: "price not found",
		},
		{
			name:        "Malformed body",
			id:          "bitcoin",
			body:        `not json`,
			status:      http.StatusOK,
			expectedErr: "failed to get price",
		},
		{
			name:        "Rate limited",
			id:          "bitcoin",
			body:        `{"status":{"error_code":429}}`,
			status:      http.StatusTooManyRequests,
			expectedErr: "429",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/simple/price", r.URL.Path)
				assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			rc, server := setupTestServer(handler)
			defer server.Close()

			price, err := rc.GetPrice(context.Background(), tc.id)

			if tc.expectedErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedPrice, price)
		})
	}
}

func TestGetPrice_EmptyID(t *testing.T) {
	rc := NewRestClient(&config.CoinGecko{}, zap.NewNop())

	_, err := rc.GetPrice(context.Background(), "  ")
	assert.Error(t, err)
}

func TestGetPrice_CancelledContext(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":1}}`))
	})
	rc, server := setupTestServer(handler)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rc.GetPrice(ctx, "bitcoin")
	assert.Error(t, err)
}

func TestNewRestClient(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		rc := NewRestClient(&config.CoinGecko{}, zap.NewNop())
		assert.NotNil(t, rc)
		assert.Equal(t, defaultBaseURL, rc.client.BaseURL)
		assert.Empty(t, rc.client.Header.Get(apiKeyHeader))
	})

	t.Run("Configured", func(t *testing.T) {
		rc := NewRestClient(&config.CoinGecko{
			BaseURL:        "http://localhost:1234",
			ApiKey:         "key",
			RateLimit:      5,
			RateLimitBurst: 2,
		}, zap.NewNop())
		assert.Equal(t, "http://localhost:1234", rc.client.BaseURL)
		assert.Equal(t, "key", rc.client.Header.Get(apiKeyHeader))
		assert.Equal(t, 2, rc.limiter.Burst())
	})
}
