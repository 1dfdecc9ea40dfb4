package models

// Holding is one persisted portfolio entry.
// CoinID is the catalog identifier, recorded when the holding was added from the catalog.
type Holding struct {
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Cost     float64 `json:"cost"`
	CoinID   string  `json:"id,omitempty"`
}
