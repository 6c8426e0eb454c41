package core

import "encoding/json"

// ChartSlot identifies a logical visualization target. Each slot is bound
// to at most one live chart instance at a time.
type ChartSlot string

const (
	SlotAllocation  ChartSlot = "allocation"
	SlotFrontier    ChartSlot = "frontier"
	SlotPerformance ChartSlot = "performance"
	SlotCorrelation ChartSlot = "correlation"
)

// Slots lists every chart slot in presentation order.
func Slots() []ChartSlot {
	return []ChartSlot{SlotAllocation, SlotFrontier, SlotPerformance, SlotCorrelation}
}

// OptimizationResult is the response of the upstream optimization service.
// It is immutable once received; every presentation artifact derives from it.
type OptimizationResult struct {
	Weights           map[string]float64 `json:"optimized_weights"`
	ExpectedReturn    float64            `json:"expected_return"`
	Volatility        float64            `json:"volatility"`
	SharpeRatio       float64            `json:"sharpe_ratio"`
	LookbackDays      int                `json:"lookback_days"`
	Note              string             `json:"note,omitempty"`
	MissingSymbols    []string           `json:"missing_symbols,omitempty"`
	HistoricalReturns json.RawMessage    `json:"historical_returns,omitempty"`
	RollingMetrics    *RollingMetrics    `json:"rolling_metrics,omitempty"`
}

// HasWeights reports whether the optimizer produced an allocation at all.
func (r *OptimizationResult) HasWeights() bool {
	return r != nil && len(r.Weights) > 0
}

// HasHistory reports whether the service supplied historical return data.
// Presence gates the frontier and performance views.
func (r *OptimizationResult) HasHistory() bool {
	if r == nil || len(r.HistoricalReturns) == 0 {
		return false
	}
	s := string(r.HistoricalReturns)
	return s != "null" && s != "{}" && s != "[]"
}

// Lookback returns the lookback window in days, defaulting to 60.
func (r *OptimizationResult) Lookback() int {
	if r == nil || r.LookbackDays <= 0 {
		return 60
	}
	return r.LookbackDays
}

// RollingMetrics carries the optional rolling volatility/Sharpe series.
type RollingMetrics struct {
	Dates     []string             `json:"dates"`
	Portfolio RollingMetricsSeries `json:"portfolio"`
}

// RollingMetricsSeries holds one rolling series pair.
type RollingMetricsSeries struct {
	Volatility []float64 `json:"volatility"`
	Sharpe     []float64 `json:"sharpe"`
}

// Valid reports whether the rolling series are usable for a chart.
func (m *RollingMetrics) Valid() bool {
	return m != nil && len(m.Dates) > 0 &&
		len(m.Portfolio.Volatility) > 0 && len(m.Portfolio.Sharpe) > 0
}

// SyntheticSeries is a fabricated historical performance trajectory,
// index-normalized to 1.0 at the oldest displayed date. It is recomputed
// per result and never persisted.
type SyntheticSeries struct {
	Dates           []string
	PortfolioValues []float64
	Assets          []string
	AssetValues     [][]float64
}

// Len returns the number of plotted points.
func (s SyntheticSeries) Len() int { return len(s.Dates) }

// FrontierPoint is one (volatility, return) sample.
type FrontierPoint struct {
	Volatility float64 `json:"volatility"`
	Return     float64 `json:"return"`
}

// FrontierCurve is the parametric efficient-frontier curve plus the
// decorative per-asset scatter and the optimized portfolio's own point.
type FrontierCurve struct {
	Points    []FrontierPoint
	Assets    []FrontierPoint
	Portfolio FrontierPoint
}

// CorrelationMatrix is a symmetric matrix with unit diagonal, indexed by
// the sorted allocation order of the result's assets.
type CorrelationMatrix struct {
	Assets []string
	Values [][]float64
}

// Size returns the matrix dimension.
func (m CorrelationMatrix) Size() int { return len(m.Assets) }
