package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/prismfin/prism/internal/core"
	"github.com/prismfin/prism/internal/export"
	"github.com/prismfin/prism/internal/logger"
	"github.com/prismfin/prism/internal/render"
	"github.com/prismfin/prism/internal/result"
	"github.com/prismfin/prism/internal/storage/artifact"
)

var (
	renderInput  string
	renderOutput string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render artifacts for a result JSON file in one shot",
	Long: `render reads an optimization result (the service's JSON response) from a
file or stdin and writes every derivable artifact - charts, correlation
table, CSV - into the output directory.`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderInput, "input", "i", "-", "result JSON file, - for stdin")
	renderCmd.Flags().StringVarP(&renderOutput, "out", "o", "artifacts", "output directory")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	res, err := readResult(renderInput)
	if err != nil {
		return err
	}
	if !res.HasWeights() {
		return fmt.Errorf("result carries no allocation: %s", res.Note)
	}

	store, err := artifact.NewLocalFS(renderOutput)
	if err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	archiver := artifact.NewArchiver(store, log)

	renderer := newRenderer(cfg, log)
	generator := newGenerator(cfg, log)
	entries := result.SortedEntries(res.Weights)
	symbols := result.Symbols(entries)
	sessionID := time.Now().Format("150405")
	ctx := context.Background()

	save := func(chart render.Chart, err error) {
		if err != nil {
			log.Warn("chart skipped", zap.Error(err))
			return
		}
		defer chart.Close()
		path, err := archiver.SaveChart(ctx, sessionID, chart.Slot(), chart.ContentType(), chart.Bytes())
		if err != nil {
			log.Warn("chart archive failed", zap.Error(err))
			return
		}
		fmt.Println(path)
	}

	save(renderer.Allocation(entries))
	save(renderer.Frontier(generator.Frontier(res.Volatility, res.ExpectedReturn, res.Lookback(), len(entries))))
	save(renderer.Performance(generator.Series(res.ExpectedReturn, res.Volatility, res.Lookback(), symbols)))
	save(renderer.Correlation(generator.Correlation(symbols)))

	name, data := export.CSV(res, entries, nil, time.Now())
	path, err := archiver.SaveExport(ctx, sessionID, name, data)
	if err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	fmt.Println(path)

	return nil
}

func readResult(input string) (*core.OptimizationResult, error) {
	if input == "-" {
		return result.Decode(os.Stdin)
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return result.Decode(f)
}
