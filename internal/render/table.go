// Package render draws the portfolio table for terminals.
package render

import (
	"strconv"

	"crypto-portfolio-go/internal/catalog"
	"crypto-portfolio-go/internal/portfolio"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const profitColumn = 7

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	gainStyle   = cellStyle.Foreground(lipgloss.Color("2"))
	lossStyle   = cellStyle.Foreground(lipgloss.Color("1"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Portfolio renders the rows with their target labels. Rows are numbered from 1;
// profit/loss is green for gains and red for losses.
func Portfolio(t portfolio.Table) string {
	headers := []string{"#", "Name", "Symbol", "Quantity", "Cost", "Current Price", "Total Value", "Profit/Loss"}
	for slot := 1; slot <= portfolio.TargetSlots; slot++ {
		headers = append(headers, "Target "+strconv.Itoa(slot))
	}

	rows := make([][]string, 0, len(t.Rows))
	for i, r := range t.Rows {
		cells := []string{
			strconv.Itoa(i + 1),
			r.Name,
			r.Symbol,
			r.Quantity,
			r.Cost,
			r.CurrentPrice,
			r.TotalValue,
			r.ProfitLoss,
		}
		for _, tg := range r.Targets {
			label := tg.Label
			if tg.Multiplier != "" {
				label = "x" + tg.Multiplier + " " + label
			}
			cells = append(cells, label)
		}
		rows = append(rows, cells)
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == profitColumn && row >= 0 && row < len(t.Rows) {
				switch t.Rows[row].Tone {
				case portfolio.ToneGain:
					return gainStyle
				case portfolio.ToneLoss:
					return lossStyle
				}
			}
			return cellStyle
		}).
		String()
}

// Coins renders catalog options as an id/label table.
func Coins(options []catalog.Option) string {
	rows := make([][]string, 0, len(options))
	for _, o := range options {
		rows = append(rows, []string{o.Value, o.Label})
	}

	return table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("ID", "Coin").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}
