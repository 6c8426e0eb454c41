package render

import (
	"errors"
	"strings"
	"testing"

	"github.com/prismfin/prism/internal/core"
	"github.com/prismfin/prism/internal/result"
)

func sampleCurve() core.FrontierCurve {
	points := make([]core.FrontierPoint, 21)
	for i := range points {
		points[i] = core.FrontierPoint{
			Volatility: 0.05 + float64(i)*0.01,
			Return:     0.04 + float64(i)*0.005,
		}
	}
	return core.FrontierCurve{
		Points: points,
		Assets: []core.FrontierPoint{
			{Volatility: 0.12, Return: 0.09},
			{Volatility: 0.2, Return: 0.06},
		},
		Portfolio: core.FrontierPoint{Volatility: 0.15, Return: 0.09},
	}
}

func sampleSeries() core.SyntheticSeries {
	return core.SyntheticSeries{
		Dates:           []string{"2024-01-01", "2024-01-02", "2024-01-03"},
		PortfolioValues: []float64{1.0, 1.01, 1.02},
		Assets:          []string{"BTC", "ETH"},
		AssetValues: [][]float64{
			{1.0, 1.02, 1.03},
			{1.0, 0.99, 1.01},
		},
	}
}

func TestAllocationRendersPNG(t *testing.T) {
	r := NewChartRenderer(nil)
	chart, err := r.Allocation([]result.Entry{
		{Symbol: "BTC", Weight: 0.6},
		{Symbol: "ETH", Weight: 0.4},
	})
	if err != nil {
		t.Fatalf("Allocation() error = %v", err)
	}
	defer chart.Close()

	if chart.Slot() != core.SlotAllocation {
		t.Errorf("Slot() = %v, want %v", chart.Slot(), core.SlotAllocation)
	}
	if chart.ContentType() != ContentTypePNG {
		t.Errorf("ContentType() = %q, want %q", chart.ContentType(), ContentTypePNG)
	}
	if len(chart.Bytes()) == 0 {
		t.Error("Bytes() is empty")
	}
}

func TestFrontierRendersPNG(t *testing.T) {
	r := NewChartRenderer(nil)
	chart, err := r.Frontier(sampleCurve())
	if err != nil {
		t.Fatalf("Frontier() error = %v", err)
	}
	defer chart.Close()

	if chart.Slot() != core.SlotFrontier {
		t.Errorf("Slot() = %v, want %v", chart.Slot(), core.SlotFrontier)
	}
	if len(chart.Bytes()) == 0 {
		t.Error("Bytes() is empty")
	}
}

func TestPerformanceRendersPNG(t *testing.T) {
	r := NewChartRenderer(nil)
	chart, err := r.Performance(sampleSeries())
	if err != nil {
		t.Fatalf("Performance() error = %v", err)
	}
	defer chart.Close()

	if chart.Slot() != core.SlotPerformance {
		t.Errorf("Slot() = %v, want %v", chart.Slot(), core.SlotPerformance)
	}
	if len(chart.Bytes()) == 0 {
		t.Error("Bytes() is empty")
	}
}

func TestRollingMetricsRendersPNG(t *testing.T) {
	r := NewChartRenderer(nil)
	m := &core.RollingMetrics{
		Dates: []string{"2024-01-01", "2024-01-02"},
		Portfolio: core.RollingMetricsSeries{
			Volatility: []float64{0.4, 0.42},
			Sharpe:     []float64{1.1, 1.3},
		},
	}
	chart, err := r.RollingMetrics(m)
	if err != nil {
		t.Fatalf("RollingMetrics() error = %v", err)
	}
	defer chart.Close()

	if chart.Slot() != core.SlotPerformance {
		t.Errorf("Slot() = %v, want %v", chart.Slot(), core.SlotPerformance)
	}
}

func TestRollingMetricsRejectsEmpty(t *testing.T) {
	r := NewChartRenderer(nil)
	if _, err := r.RollingMetrics(&core.RollingMetrics{}); err == nil {
		t.Error("RollingMetrics() with empty data should fail")
	}
}

func TestCorrelationRendersTable(t *testing.T) {
	r := NewChartRenderer(nil)
	m := core.CorrelationMatrix{
		Assets: []string{"BTC", "ETH"},
		Values: [][]float64{
			{1, 0.35},
			{0.35, 1},
		},
	}
	chart, err := r.Correlation(m)
	if err != nil {
		t.Fatalf("Correlation() error = %v", err)
	}
	defer chart.Close()

	if chart.ContentType() != ContentTypeText {
		t.Errorf("ContentType() = %q, want %q", chart.ContentType(), ContentTypeText)
	}
	text := string(chart.Bytes())
	for _, want := range []string{"BTC", "ETH", "1.00", "0.35"} {
		if !strings.Contains(text, want) {
			t.Errorf("table output missing %q:\n%s", want, text)
		}
	}
}

func TestPlaceholder(t *testing.T) {
	r := NewChartRenderer(nil)
	chart, err := r.Placeholder(core.SlotCorrelation, "Data unavailable")
	if err != nil {
		t.Fatalf("Placeholder() error = %v", err)
	}
	defer chart.Close()

	if !strings.Contains(string(chart.Bytes()), "Data unavailable") {
		t.Error("placeholder text missing from output")
	}
}

func TestUnregisteredTarget(t *testing.T) {
	r := NewChartRenderer(nil, WithoutTarget(core.SlotCorrelation))

	_, err := r.Correlation(core.CorrelationMatrix{Assets: []string{"BTC"}, Values: [][]float64{{1}}})
	if !errors.Is(err, core.ErrTargetMissing) {
		t.Errorf("Correlation() error = %v, want ErrTargetMissing", err)
	}
	if _, err := r.Placeholder(core.SlotCorrelation, "x"); !errors.Is(err, core.ErrTargetMissing) {
		t.Errorf("Placeholder() error = %v, want ErrTargetMissing", err)
	}
}

func TestWithTargetResizes(t *testing.T) {
	r := NewChartRenderer(nil, WithTarget(core.SlotAllocation, 400, 300))
	got := r.targets[core.SlotAllocation]
	if got.Width != 400 || got.Height != 300 {
		t.Errorf("target = %+v, want 400x300", got)
	}
}

func TestChartCloseIdempotent(t *testing.T) {
	c := newInstance(core.SlotAllocation, ContentTypePNG, []byte{1, 2, 3})
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if c.Bytes() != nil {
		t.Error("Bytes() after Close() should be nil")
	}
}

func TestNearestSample(t *testing.T) {
	points := []core.FrontierPoint{
		{Volatility: 0.1}, {Volatility: 0.2}, {Volatility: 0.3},
	}
	if got := nearestSample(points, 0.22); got != 1 {
		t.Errorf("nearestSample(0.22) = %d, want 1", got)
	}
	if got := nearestSample(nil, 0.22); got != -1 {
		t.Errorf("nearestSample(empty) = %d, want -1", got)
	}
}

func TestValueRange(t *testing.T) {
	lo, hi := valueRange([][]float64{{1.0, 1.2}, {0.9, 1.1}})
	if lo >= 0.9 {
		t.Errorf("lo = %v, want padding below 0.9", lo)
	}
	if hi <= 1.2 {
		t.Errorf("hi = %v, want padding above 1.2", hi)
	}

	lo, hi = valueRange(nil)
	if lo != 0 || hi != 1 {
		t.Errorf("valueRange(nil) = (%v, %v), want (0, 1)", lo, hi)
	}
}
