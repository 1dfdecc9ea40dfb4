// Package catalog holds the immutable snapshot of coins offered for selection.
package catalog

import (
	"context"
	"strings"

	"crypto-portfolio-go/internal/models"
	"go.uber.org/zap"
)

// Source lists the coins supported by the price provider.
type Source interface {
	ListCoins(ctx context.Context) ([]models.Coin, error)
}

// Option is one entry of the coin selection control.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Catalog is a read-only snapshot of the coin list, fetched once per session.
// The zero value is an empty catalog.
type Catalog struct {
	coins []models.Coin
	byID  map[string]int
}

// New builds a catalog from coins, keeping their order. Later duplicates of an id are ignored.
func New(coins []models.Coin) Catalog {
	c := Catalog{
		coins: make([]models.Coin, 0, len(coins)),
		byID:  make(map[string]int, len(coins)),
	}
	for _, coin := range coins {
		if _, seen := c.byID[coin.ID]; seen || coin.ID == "" {
			continue
		}
		c.byID[coin.ID] = len(c.coins)
		c.coins = append(c.coins, coin)
	}
	return c
}

// Load fetches the catalog once. On failure it logs and returns an empty catalog.
func Load(ctx context.Context, source Source, logger *zap.Logger) Catalog {
	coins, err := source.ListCoins(ctx)
	if err != nil {
		logger.Error("Failed to fetch coin catalog", zap.Error(err))
		return Catalog{}
	}
	c := New(coins)
	if skipped := len(coins) - c.Len(); skipped > 0 {
		logger.Debug("Skipped coins with empty or duplicate id", zap.Int("skipped", skipped))
	}
	logger.Info("Coin catalog loaded", zap.Int("coins", c.Len()))
	return c
}

// Len returns the number of coins.
func (c Catalog) Len() int { return len(c.coins) }

// Coins returns a copy of the coins in catalog order.
func (c Catalog) Coins() []models.Coin {
	out := make([]models.Coin, len(c.coins))
	copy(out, c.coins)
	return out
}

// Find looks up a coin by its catalog id.
func (c Catalog) Find(id string) (models.Coin, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Coin{}, false
	}
	return c.coins[i], true
}

// Options returns one selection entry per coin, labelled "Name (SYMBOL)".
func (c Catalog) Options() []Option {
	return toOptions(c.coins)
}

// Search returns the options whose name, symbol or id contains query, case-insensitively.
// An empty query returns every option.
func (c Catalog) Search(query string) []Option {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c.Options()
	}

	var matches []models.Coin
	for _, coin := range c.coins {
		if strings.Contains(strings.ToLower(coin.Name), query) ||
			strings.Contains(strings.ToLower(coin.Symbol), query) ||
			strings.Contains(coin.ID, query) {
			matches = append(matches, coin)
		}
	}
	return toOptions(matches)
}

func toOptions(coins []models.Coin) []Option {
	options := make([]Option, 0, len(coins))
	for _, coin := range coins {
		options = append(options, Option{Value: coin.ID, Label: coin.Label()})
	}
	return options
}
