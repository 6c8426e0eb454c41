package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/prismfin/prism/internal/history"
	"github.com/prismfin/prism/internal/logger"
)

var (
	historyLimit int
	historyPrune bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past optimizations",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max records to show")
	historyCmd.Flags().BoolVar(&historyPrune, "prune", false, "prune records past retention before listing")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.History.DSN, log)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()

	if historyPrune {
		n, err := store.Prune(ctx, cfg.History.RetentionDays)
		if err != nil {
			return err
		}
		fmt.Printf("pruned %d records\n", n)
	}

	records, err := store.List(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no optimizations recorded")
		return nil
	}

	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row{"ID", "Date", "Assets", "Return", "Volatility", "Sharpe", "Lookback"})
	for _, rec := range records {
		w.AppendRow(table.Row{
			rec.ID,
			rec.CreatedAt.Format("2006-01-02 15:04"),
			topAssets(rec.Weights, 3),
			fmt.Sprintf("%.2f%%", rec.ExpectedReturn*100),
			fmt.Sprintf("%.2f%%", rec.Volatility*100),
			fmt.Sprintf("%.2f", rec.SharpeRatio),
			fmt.Sprintf("%dd", rec.LookbackDays),
		})
	}
	w.Render()
	return nil
}

// topAssets summarizes a weights map as its heaviest symbols.
func topAssets(weights map[string]float64, n int) string {
	type kv struct {
		sym string
		w   float64
	}
	entries := make([]kv, 0, len(weights))
	for sym, w := range weights {
		entries = append(entries, kv{sym, w})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].w != entries[j].w {
			return entries[i].w > entries[j].w
		}
		return entries[i].sym < entries[j].sym
	})

	out := ""
	for i, e := range entries {
		if i == n {
			out += fmt.Sprintf(" +%d", len(entries)-n)
			break
		}
		if i > 0 {
			out += " "
		}
		out += e.sym
	}
	return out
}
