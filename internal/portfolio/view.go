package portfolio

import "github.com/shopspring/decimal"

// Tone is the presentation hint for the profit/loss cell.
type Tone string

const (
	ToneNone Tone = ""
	ToneGain Tone = "gain"
	ToneLoss Tone = "loss"
)

// TargetView is one rendered price-target slot.
type TargetView struct {
	Slot       int    `json:"slot"`
	Multiplier string `json:"multiplier"`
	Label      string `json:"label"`
}

// RowView is one rendered table row. Every cell is display text.
type RowView struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Symbol       string       `json:"symbol"`
	Quantity     string       `json:"quantity"`
	Cost         string       `json:"cost"`
	CurrentPrice string       `json:"current_price"`
	TotalValue   string       `json:"total_value"`
	ProfitLoss   string       `json:"profit_loss"`
	Tone         Tone         `json:"tone,omitempty"`
	State        PriceState   `json:"state"`
	Targets      []TargetView `json:"targets"`
}

// Table is the rendered portfolio.
type Table struct {
	Rows []RowView `json:"rows"`
}

// Table projects the current rows into display cells.
func (t *Tracker) Table() Table {
	t.mu.Lock()
	defer t.mu.Unlock()

	table := Table{Rows: make([]RowView, 0, len(t.rows))}
	for _, r := range t.rows {
		table.Rows = append(table.Rows, r.view())
	}
	return table
}

func (r *row) view() RowView {
	v := RowView{
		ID:       r.id,
		Name:     r.holding.Name,
		Symbol:   r.holding.Symbol,
		Quantity: FormatQuantity(r.holding.Quantity),
		Cost:     FormatUSD(decimal.NewFromFloat(r.holding.Cost)),
		State:    r.state,
		Targets:  make([]TargetView, 0, TargetSlots),
	}

	switch r.state {
	case StatePopulated:
		quantity := decimal.NewFromFloat(r.holding.Quantity)
		total := quantity.Mul(r.price)
		profit := total.Sub(quantity.Mul(decimal.NewFromFloat(r.holding.Cost)))

		v.CurrentPrice = FormatUSD(r.price)
		v.TotalValue = FormatUSD(total)
		v.ProfitLoss = FormatUSD(profit)
		v.Tone = ToneGain
		if profit.IsNegative() {
			v.Tone = ToneLoss
		}
	case StateError:
		v.CurrentPrice, v.TotalValue, v.ProfitLoss = errorText, errorText, errorText
	default:
		v.CurrentPrice, v.TotalValue, v.ProfitLoss = loadingText, loadingText, loadingText
	}

	for i, tg := range r.targets {
		v.Targets = append(v.Targets, TargetView{Slot: i + 1, Multiplier: tg.input, Label: tg.label})
	}
	return v
}
