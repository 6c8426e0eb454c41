package synth

import (
	"math"

	"go.uber.org/zap"

	"github.com/prismfin/prism/internal/core"
)

// frontierSteps is the number of intervals on the curve; the curve carries
// frontierSteps+1 samples, inclusive of both ends.
const frontierSteps = 20

// frontierBand holds the period-dependent shape parameters. The volatility
// band tightens and the curvature flattens as the lookback grows.
type frontierBand struct {
	minVolFactor   float64
	maxVolFactor   float64
	riskAdjustment float64
}

func bandFor(lookbackDays int) frontierBand {
	switch {
	case lookbackDays <= 60:
		return frontierBand{0.5, 1.5, 1.2}
	case lookbackDays <= 180:
		return frontierBand{0.6, 1.4, 1.15}
	default:
		return frontierBand{0.7, 1.3, 1.1}
	}
}

// Frontier fabricates an efficient-frontier curve anchored at the
// portfolio's own (volatility, return) point, plus assetCount scattered
// points standing in for individual assets on the same axes. The scatter is
// decorative; it is not derived from real per-asset statistics.
//
// A zero or non-finite portfolio volatility produces a flat curve at the
// portfolio return instead of propagating NaN into the chart.
func (g *Generator) Frontier(portfolioVolatility, portfolioReturn float64, lookbackDays, assetCount int) core.FrontierCurve {
	curve := core.FrontierCurve{
		Portfolio: core.FrontierPoint{Volatility: portfolioVolatility, Return: portfolioReturn},
	}

	if portfolioVolatility <= 0 || math.IsNaN(portfolioVolatility) || math.IsInf(portfolioVolatility, 0) {
		g.logger.Warn("degenerate volatility, flattening frontier",
			zap.Float64("volatility", portfolioVolatility))
		curve.Portfolio.Volatility = 0
		curve.Points = flatCurve(portfolioReturn)
		curve.Assets = g.scatter(flatScatterVol, portfolioReturn, assetCount)
		return curve
	}

	band := bandFor(lookbackDays)
	minVol := portfolioVolatility * band.minVolFactor
	maxVol := portfolioVolatility * band.maxVolFactor

	curve.Points = make([]core.FrontierPoint, frontierSteps+1)
	for i := 0; i <= frontierSteps; i++ {
		vol := minVol + (maxVol-minVol)*float64(i)/frontierSteps
		ret := portfolioReturn * math.Pow(vol/portfolioVolatility, band.riskAdjustment)
		curve.Points[i] = core.FrontierPoint{Volatility: vol, Return: ret}
	}

	curve.Assets = g.scatter(portfolioVolatility, portfolioReturn, assetCount)
	return curve
}

// flatScatterVol anchors the decorative asset scatter when the portfolio
// volatility itself is unusable.
const flatScatterVol = 0.05

func flatCurve(portfolioReturn float64) []core.FrontierPoint {
	points := make([]core.FrontierPoint, frontierSteps+1)
	for i := 0; i <= frontierSteps; i++ {
		points[i] = core.FrontierPoint{
			Volatility: 0.1 * float64(i) / frontierSteps,
			Return:     portfolioReturn,
		}
	}
	return points
}

func (g *Generator) scatter(baseVol, baseReturn float64, count int) []core.FrontierPoint {
	points := make([]core.FrontierPoint, count)
	for i := range points {
		points[i] = core.FrontierPoint{
			Volatility: baseVol * g.uniform(0.7, 1.6),
			Return:     baseReturn * g.uniform(0.5, 1.5),
		}
	}
	return points
}
