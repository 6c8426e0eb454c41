package synth

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/prismfin/prism/internal/core"
)

const (
	// tradingDays is the annualization base for drift and volatility.
	tradingDays = 252

	// maxPlottedPoints caps the number of samples per series. Longer
	// lookback windows are decimated, not shortened.
	maxPlottedPoints = 200

	// minSeriesDays is the floor for very short lookback windows.
	minSeriesDays = 14

	// floorValue keeps a pathological draw from taking an index negative.
	floorValue = 0.01
)

// Series fabricates a historical performance trajectory for the portfolio
// and one track per asset, modeled as independent discrete geometric random
// walks anchored on the result's annualized return and volatility. All
// tracks are normalized to 1.0 at the oldest displayed date.
//
// An empty asset list yields a portfolio-only series and a warning; it is
// never an error.
func (g *Generator) Series(expectedReturn, volatility float64, lookbackDays int, assets []string) core.SyntheticSeries {
	days := lookbackDays
	if days < minSeriesDays {
		days = minSeriesDays
	}
	step := (days + maxPlottedPoints - 1) / maxPlottedPoints
	count := (days + step - 1) / step

	if len(assets) == 0 {
		g.logger.Warn("synthesizing series without assets",
			zap.Int("lookback_days", lookbackDays))
	}

	drift := expectedReturn / tradingDays * float64(step)
	shockScale := volatility / math.Sqrt(tradingDays) * periodAdjustment(days) * math.Sqrt(float64(step))

	series := core.SyntheticSeries{
		Dates:           make([]string, count),
		PortfolioValues: g.walk(count, drift, shockScale),
		Assets:          append([]string(nil), assets...),
		AssetValues:     make([][]float64, len(assets)),
	}

	start := time.Now().AddDate(0, 0, -(days - 1))
	for i := 0; i < count; i++ {
		series.Dates[i] = start.AddDate(0, 0, i*step).Format("2006-01-02")
	}

	for i := range assets {
		// Independent drift/vol multipliers keep asset tracks visually
		// distinct while staying centered on the portfolio line.
		driftMult := g.uniform(0.8, 1.2)
		volMult := g.uniform(0.8, 1.2)
		series.AssetValues[i] = g.walk(count, drift*driftMult, shockScale*volMult)
	}

	return series
}

// walk produces a multiplicative random walk of the given length starting
// at 1.0.
func (g *Generator) walk(count int, drift, shockScale float64) []float64 {
	values := make([]float64, count)
	v := 1.0
	for i := 0; i < count; i++ {
		if i > 0 {
			v *= 1 + drift + g.shock(shockScale)
			if v < floorValue {
				v = floorValue
			}
		}
		values[i] = v
	}
	return values
}

// periodAdjustment shrinks the displayed volatility for long lookback
// windows so multi-year charts do not look like noise.
func periodAdjustment(days int) float64 {
	base := days
	if base < 30 {
		base = 30
	}
	adj := math.Sqrt(60 / float64(base))
	if days > 365 {
		adj *= 0.7
	}
	return adj
}
