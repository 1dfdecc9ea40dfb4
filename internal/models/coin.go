package models

import "strings"

// Coin is one entry of the CoinGecko catalog.
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Label is the text shown in the coin selection control, e.g. "Bitcoin (BTC)".
func (c Coin) Label() string {
	return c.Name + " (" + strings.ToUpper(c.Symbol) + ")"
}
