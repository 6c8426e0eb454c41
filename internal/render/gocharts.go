package render

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vicanso/go-charts/v2"
	"go.uber.org/zap"

	"github.com/prismfin/prism/internal/core"
	"github.com/prismfin/prism/internal/result"
)

// Target describes one registered drawing surface.
type Target struct {
	Width  int
	Height int
}

const (
	defaultWidth  = 800
	defaultHeight = 600
)

// ChartRenderer renders slots with go-charts. Each slot must have a
// registered target; rendering into an unregistered slot fails with
// ErrTargetMissing so the caller can skip that visualization and keep the
// rest alive.
type ChartRenderer struct {
	targets map[core.ChartSlot]Target
	logger  *zap.Logger
}

// Option customizes a ChartRenderer.
type Option func(*ChartRenderer)

// WithTarget registers or resizes a slot's drawing surface.
func WithTarget(slot core.ChartSlot, width, height int) Option {
	return func(r *ChartRenderer) {
		r.targets[slot] = Target{Width: width, Height: height}
	}
}

// WithoutTarget removes a slot's drawing surface, disabling that view.
func WithoutTarget(slot core.ChartSlot) Option {
	return func(r *ChartRenderer) {
		delete(r.targets, slot)
	}
}

// NewChartRenderer creates a renderer with every slot registered at the
// default size.
func NewChartRenderer(logger *zap.Logger, opts ...Option) *ChartRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &ChartRenderer{
		targets: make(map[core.ChartSlot]Target, 4),
		logger:  logger,
	}
	for _, slot := range core.Slots() {
		r.targets[slot] = Target{Width: defaultWidth, Height: defaultHeight}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ChartRenderer) target(slot core.ChartSlot) (Target, error) {
	t, ok := r.targets[slot]
	if !ok {
		return Target{}, core.WrapError(core.ErrTargetMissing, fmt.Errorf("slot %s", slot))
	}
	return t, nil
}

// Allocation renders the weight breakdown as a pie chart.
func (r *ChartRenderer) Allocation(entries []result.Entry) (Chart, error) {
	t, err := r.target(core.SlotAllocation)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(entries))
	labels := make([]string, len(entries))
	for i, e := range entries {
		values[i] = e.Weight * 100
		labels[i] = fmt.Sprintf("%s (%.2f%%)", e.Symbol, e.Weight*100)
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc("Optimized Allocation"),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(t.Width),
		charts.HeightOptionFunc(t.Height),
	)
	if err != nil {
		return nil, core.WrapError(core.ErrRenderFailed, err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, core.WrapError(core.ErrRenderFailed, err)
	}
	return newInstance(core.SlotAllocation, ContentTypePNG, buf), nil
}

// Frontier renders the frontier curve as a line with the asset scatter as
// bars on the shared volatility axis. The portfolio's own point sits on the
// curve by construction and is called out in the subtitle.
func (r *ChartRenderer) Frontier(curve core.FrontierCurve) (Chart, error) {
	t, err := r.target(core.SlotFrontier)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(curve.Points))
	curveValues := make([]float64, len(curve.Points))
	for i, p := range curve.Points {
		labels[i] = fmt.Sprintf("%.1f%%", p.Volatility*100)
		curveValues[i] = p.Return * 100
	}

	// Asset points snap to the nearest volatility sample.
	assetValues := make([]float64, len(curve.Points))
	for _, a := range curve.Assets {
		idx := nearestSample(curve.Points, a.Volatility)
		if idx >= 0 {
			assetValues[idx] = a.Return * 100
		}
	}

	seriesList := charts.NewSeriesListDataFromValues([][]float64{curveValues}, charts.ChartTypeLine)
	seriesList[0].Name = "Efficient Frontier"
	assetSeries := charts.NewSeriesListDataFromValues([][]float64{assetValues}, charts.ChartTypeBar)
	assetSeries[0].Name = "Individual Assets"
	seriesList = append(seriesList, assetSeries...)

	subtitle := fmt.Sprintf("Portfolio: %.2f%% return at %.2f%% volatility",
		curve.Portfolio.Return*100, curve.Portfolio.Volatility*100)

	p, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc("Efficient Frontier", subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: 5,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: []string{"Efficient Frontier", "Individual Assets"}}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(t.Width),
		charts.HeightOptionFunc(t.Height),
	)
	if err != nil {
		return nil, core.WrapError(core.ErrRenderFailed, err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, core.WrapError(core.ErrRenderFailed, err)
	}
	return newInstance(core.SlotFrontier, ContentTypePNG, buf), nil
}

// Performance renders the synthetic trajectory: the portfolio line plus one
// line per asset.
func (r *ChartRenderer) Performance(series core.SyntheticSeries) (Chart, error) {
	t, err := r.target(core.SlotPerformance)
	if err != nil {
		return nil, err
	}

	values := make([][]float64, 0, len(series.Assets)+1)
	names := make([]string, 0, len(series.Assets)+1)
	values = append(values, series.PortfolioValues)
	names = append(names, "Portfolio")
	for i, sym := range series.Assets {
		values = append(values, series.AssetValues[i])
		names = append(names, sym)
	}

	yMin, yMax := valueRange(values)

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}

	p, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc("Simulated Historical Performance", "Indexed to 1.0 • illustrative, pending real backend data"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        series.Dates,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: splitFor(len(series.Dates)),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(t.Width),
		charts.HeightOptionFunc(t.Height),
	)
	if err != nil {
		return nil, core.WrapError(core.ErrRenderFailed, err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, core.WrapError(core.ErrRenderFailed, err)
	}
	return newInstance(core.SlotPerformance, ContentTypePNG, buf), nil
}

// RollingMetrics renders rolling volatility and Sharpe on dual axes in the
// performance slot.
func (r *ChartRenderer) RollingMetrics(m *core.RollingMetrics) (Chart, error) {
	t, err := r.target(core.SlotPerformance)
	if err != nil {
		return nil, err
	}
	if !m.Valid() {
		return nil, core.WrapError(core.ErrRenderFailed, fmt.Errorf("rolling metrics missing or empty"))
	}

	names := []string{"Rolling Volatility", "Rolling Sharpe"}
	seriesList := charts.NewSeriesListDataFromValues(
		[][]float64{m.Portfolio.Volatility, m.Portfolio.Sharpe},
		charts.ChartTypeLine,
	)
	for i := range seriesList {
		seriesList[i].Name = names[i]
		seriesList[i].AxisIndex = i
	}

	p, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc("Rolling Metrics", "30-day window, annualized"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        m.Dates,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: splitFor(len(m.Dates)),
		}),
		charts.YAxisOptionFunc(
			charts.YAxisOption{DivideCount: 5},
			charts.YAxisOption{DivideCount: 5, Position: charts.PositionRight},
		),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(t.Width),
		charts.HeightOptionFunc(t.Height),
	)
	if err != nil {
		return nil, core.WrapError(core.ErrRenderFailed, err)
	}
	buf, err := p.Bytes()
	if err != nil {
		return nil, core.WrapError(core.ErrRenderFailed, err)
	}
	return newInstance(core.SlotPerformance, ContentTypePNG, buf), nil
}

// Correlation renders the matrix as a text table; the source view is a
// table, not a drawn chart.
func (r *ChartRenderer) Correlation(m core.CorrelationMatrix) (Chart, error) {
	if _, err := r.target(core.SlotCorrelation); err != nil {
		return nil, err
	}

	w := table.NewWriter()
	w.SetStyle(table.StyleLight)

	header := table.Row{""}
	for _, sym := range m.Assets {
		header = append(header, sym)
	}
	w.AppendHeader(header)

	for i, sym := range m.Assets {
		row := table.Row{sym}
		for j := range m.Assets {
			row = append(row, fmt.Sprintf("%.2f", m.Values[i][j]))
		}
		w.AppendRow(row)
	}

	return newInstance(core.SlotCorrelation, ContentTypeText, []byte(w.Render()+"\n")), nil
}

// Placeholder renders an informational message into a slot.
func (r *ChartRenderer) Placeholder(slot core.ChartSlot, message string) (Chart, error) {
	if _, err := r.target(slot); err != nil {
		return nil, err
	}
	return newInstance(slot, ContentTypeText, []byte(message+"\n")), nil
}

// nearestSample finds the curve sample closest to the given volatility.
func nearestSample(points []core.FrontierPoint, vol float64) int {
	best := -1
	bestDist := math.Inf(1)
	for i, p := range points {
		if d := math.Abs(p.Volatility - vol); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// valueRange computes a padded y-range across all series.
func valueRange(values [][]float64) (float64, float64) {
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for _, vs := range values {
		for _, v := range vs {
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
	}
	if math.IsInf(minVal, 1) {
		return 0, 1
	}
	pad := (maxVal - minVal) * 0.05
	if pad == 0 {
		pad = maxVal * 0.05
	}
	lo := minVal - pad
	if lo < 0 {
		lo = 0
	}
	return lo, maxVal + pad
}

// splitFor picks the x-axis split count for a label count.
func splitFor(n int) int {
	if n <= 30 {
		if n/3 < 3 {
			return 3
		}
		return n / 3
	}
	return 6
}
