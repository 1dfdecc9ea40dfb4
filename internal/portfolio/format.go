package portfolio

import (
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	loadingText = "Loading..."
	errorText   = "Error"
)

// FormatUSD renders an amount as "$" followed by two decimals, e.g. "$-5.00".
func FormatUSD(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// FormatQuantity renders a quantity in its shortest decimal form.
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func profitLabel(d decimal.Decimal) string {
	return "Profit: " + FormatUSD(d)
}
