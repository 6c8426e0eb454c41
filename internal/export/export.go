// Package export formats an optimization result for display and download:
// stat summaries, the allocation table, and the CSV export.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/prismfin/prism/internal/core"
	"github.com/prismfin/prism/internal/result"
)

const (
	emptyStat   = "-"
	csvHeader   = "Coin,Allocation (%),Current Amount"
	dateLayout  = "2006-01-02"
	filePattern = "portfolio_optimization_%s.csv"
)

// Stats holds the formatted headline statistics. Empty results render
// every field as "-".
type Stats struct {
	ExpectedReturn string `json:"expected_return"`
	Volatility     string `json:"volatility"`
	SharpeRatio    string `json:"sharpe_ratio"`
	Note           string `json:"note,omitempty"`
}

// Summarize formats the headline statistics of a result.
func Summarize(res *core.OptimizationResult) Stats {
	if !res.HasWeights() {
		s := Stats{ExpectedReturn: emptyStat, Volatility: emptyStat, SharpeRatio: emptyStat}
		if res != nil {
			s.Note = res.Note
		}
		return s
	}
	return Stats{
		ExpectedReturn: fmt.Sprintf("%.2f%%", res.ExpectedReturn*100),
		Volatility:     fmt.Sprintf("%.2f%%", res.Volatility*100),
		SharpeRatio:    fmt.Sprintf("%.2f", res.SharpeRatio),
		Note:           res.Note,
	}
}

// AllocationTable renders the sorted allocation as a text table with the
// user's holding amounts, zero when a symbol has no entered amount.
func AllocationTable(entries []result.Entry, holdings map[string]float64) string {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"Coin", "Allocation (%)", "Current Amount"})
	for _, e := range entries {
		w.AppendRow(table.Row{
			e.Symbol,
			fmt.Sprintf("%.2f", e.Weight*100),
			fmt.Sprintf("%.2f", holdings[e.Symbol]),
		})
	}
	return w.Render()
}

// CSV builds the export file. Rows follow the sorted allocation order,
// then a blank line and the four summary rows. Returns the dated file
// name alongside the content.
func CSV(res *core.OptimizationResult, entries []result.Entry, holdings map[string]float64, now time.Time) (string, []byte) {
	var b strings.Builder
	b.WriteString(csvHeader + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s,%.2f,%.2f\n", e.Symbol, e.Weight*100, holdings[e.Symbol])
	}
	b.WriteString("\n")

	var ret, vol, sharpe float64
	if res != nil {
		ret, vol, sharpe = res.ExpectedReturn, res.Volatility, res.SharpeRatio
	}
	fmt.Fprintf(&b, "Expected Annual Return,%.2f%%\n", ret*100)
	fmt.Fprintf(&b, "Annual Volatility,%.2f%%\n", vol*100)
	fmt.Fprintf(&b, "Sharpe Ratio,%.2f\n", sharpe)
	fmt.Fprintf(&b, "Optimization Date,%s\n", now.Format(dateLayout))

	name := fmt.Sprintf(filePattern, now.Format(dateLayout))
	return name, []byte(b.String())
}
