package session

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prismfin/prism/internal/core"
	"github.com/prismfin/prism/internal/render"
	"github.com/prismfin/prism/internal/result"
	"github.com/prismfin/prism/internal/synth"
)

type fakeChart struct {
	slot   core.ChartSlot
	data   []byte
	mu     sync.Mutex
	closed bool
}

func (c *fakeChart) Slot() core.ChartSlot { return c.slot }
func (c *fakeChart) ContentType() string  { return "text/plain; charset=utf-8" }
func (c *fakeChart) Bytes() []byte        { return c.data }

func (c *fakeChart) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChart) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeRenderer struct {
	mu      sync.Mutex
	charts  []*fakeChart
	counts  map[string]int
	failing map[core.ChartSlot]bool
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		counts:  make(map[string]int),
		failing: make(map[core.ChartSlot]bool),
	}
}

func (r *fakeRenderer) make(slot core.ChartSlot, kind string) (render.Chart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[kind]++
	if r.failing[slot] {
		return nil, core.WrapError(core.ErrTargetMissing, nil)
	}
	c := &fakeChart{slot: slot, data: []byte(kind)}
	r.charts = append(r.charts, c)
	return c, nil
}

func (r *fakeRenderer) Allocation([]result.Entry) (render.Chart, error) {
	return r.make(core.SlotAllocation, "allocation")
}

func (r *fakeRenderer) Frontier(core.FrontierCurve) (render.Chart, error) {
	return r.make(core.SlotFrontier, "frontier")
}

func (r *fakeRenderer) Performance(core.SyntheticSeries) (render.Chart, error) {
	return r.make(core.SlotPerformance, "performance")
}

func (r *fakeRenderer) RollingMetrics(*core.RollingMetrics) (render.Chart, error) {
	return r.make(core.SlotPerformance, "rolling")
}

func (r *fakeRenderer) Correlation(core.CorrelationMatrix) (render.Chart, error) {
	return r.make(core.SlotCorrelation, "correlation")
}

func (r *fakeRenderer) Placeholder(slot core.ChartSlot, message string) (render.Chart, error) {
	return r.make(slot, "placeholder:"+message)
}

func (r *fakeRenderer) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[kind]
}

func (r *fakeRenderer) allCharts() []*fakeChart {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*fakeChart, len(r.charts))
	copy(out, r.charts)
	return out
}

type countingObserver struct {
	bound    atomic.Int64
	disposed atomic.Int64
	cycles   atomic.Int64
	stale    atomic.Int64
}

func (o *countingObserver) ChartBound(core.ChartSlot)    { o.bound.Add(1) }
func (o *countingObserver) ChartDisposed(core.ChartSlot) { o.disposed.Add(1) }
func (o *countingObserver) PresentCycle()                { o.cycles.Add(1) }
func (o *countingObserver) StaleBuildDropped()           { o.stale.Add(1) }

func fullResult() *core.OptimizationResult {
	return &core.OptimizationResult{
		Weights:           map[string]float64{"BTC": 0.6, "ETH": 0.4},
		ExpectedReturn:    0.20,
		Volatility:        0.35,
		SharpeRatio:       0.57,
		LookbackDays:      90,
		HistoricalReturns: json.RawMessage(`{"BTC":[0.01]}`),
	}
}

func newTestSession(t *testing.T, r render.Renderer, opts ...Option) *Session {
	t.Helper()
	s := New(r, synth.NewSeeded(7, nil), nil, opts...)
	t.Cleanup(func() { s.Close() })
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func slotContent(s *Session, slot core.ChartSlot) string {
	data, _, err := s.Chart(slot)
	if err != nil {
		return ""
	}
	return string(data)
}

func TestPresent_FullResult(t *testing.T) {
	r := newFakeRenderer()
	s := newTestSession(t, r)

	if err := s.Present(fullResult()); err != nil {
		t.Fatalf("Present() error = %v", err)
	}

	if got := slotContent(s, core.SlotAllocation); got != "allocation" {
		t.Errorf("allocation slot = %q", got)
	}
	if got := slotContent(s, core.SlotFrontier); got != "frontier" {
		t.Errorf("frontier slot = %q", got)
	}
	waitFor(t, "deferred performance build", func() bool {
		return slotContent(s, core.SlotPerformance) == "performance"
	})

	// Correlation stays lazy until its tab activates.
	if _, _, err := s.Chart(core.SlotCorrelation); !errors.Is(err, core.ErrSlotUnbound) {
		t.Errorf("correlation slot error = %v, want ErrSlotUnbound", err)
	}
}

func TestPresent_EmptyWeights(t *testing.T) {
	r := newFakeRenderer()
	s := newTestSession(t, r)

	res := &core.OptimizationResult{Note: "No data"}
	if err := s.Present(res); err != nil {
		t.Fatalf("Present() error = %v", err)
	}

	if got := slotContent(s, core.SlotAllocation); !strings.Contains(got, "No optimization result") {
		t.Errorf("allocation slot = %q, want no-result placeholder", got)
	}
	for _, slot := range []core.ChartSlot{core.SlotFrontier, core.SlotPerformance, core.SlotCorrelation} {
		if _, _, err := s.Chart(slot); !errors.Is(err, core.ErrSlotUnbound) {
			t.Errorf("slot %s error = %v, want ErrSlotUnbound", slot, err)
		}
	}
	for _, kind := range []string{"frontier", "performance", "correlation"} {
		if n := r.count(kind); n != 0 {
			t.Errorf("%s built %d times for empty result, want 0", kind, n)
		}
	}
}

func TestPresent_NoHistory(t *testing.T) {
	r := newFakeRenderer()
	s := newTestSession(t, r)

	res := fullResult()
	res.HistoricalReturns = nil
	if err := s.Present(res); err != nil {
		t.Fatalf("Present() error = %v", err)
	}

	for _, slot := range []core.ChartSlot{core.SlotFrontier, core.SlotPerformance, core.SlotCorrelation} {
		if got := slotContent(s, slot); !strings.Contains(got, "historical data") {
			t.Errorf("slot %s = %q, want needs-data placeholder", slot, got)
		}
	}

	// Activating the correlation tab must not synthesize either.
	s.ActivateTab(core.SlotCorrelation)
	if n := r.count("correlation"); n != 0 {
		t.Errorf("correlation built %d times without history, want 0", n)
	}
}

func TestActivateTab_LazyCorrelation(t *testing.T) {
	r := newFakeRenderer()
	s := newTestSession(t, r)

	if err := s.Present(fullResult()); err != nil {
		t.Fatalf("Present() error = %v", err)
	}

	s.ActivateTab(core.SlotCorrelation)
	if got := slotContent(s, core.SlotCorrelation); got != "correlation" {
		t.Errorf("correlation slot = %q after activation", got)
	}

	// Re-activation reuses the cached view.
	s.ActivateTab(core.SlotAllocation)
	s.ActivateTab(core.SlotCorrelation)
	if n := r.count("correlation"); n != 1 {
		t.Errorf("correlation built %d times, want 1", n)
	}
}

func TestPresent_CorrelationTabAlreadyActive(t *testing.T) {
	r := newFakeRenderer()
	s := newTestSession(t, r)

	s.ActivateTab(core.SlotCorrelation)
	if err := s.Present(fullResult()); err != nil {
		t.Fatalf("Present() error = %v", err)
	}

	if got := slotContent(s, core.SlotCorrelation); got != "correlation" {
		t.Errorf("correlation slot = %q, want immediate render on active tab", got)
	}
}

func TestPresent_DisposesPreviousCharts(t *testing.T) {
	r := newFakeRenderer()
	s := newTestSession(t, r)

	if err := s.Present(fullResult()); err != nil {
		t.Fatalf("first Present() error = %v", err)
	}
	waitFor(t, "first performance build", func() bool {
		return slotContent(s, core.SlotPerformance) == "performance"
	})
	first := r.allCharts()

	if err := s.Present(fullResult()); err != nil {
		t.Fatalf("second Present() error = %v", err)
	}
	waitFor(t, "second performance build", func() bool {
		return r.count("performance") == 2 && slotContent(s, core.SlotPerformance) == "performance"
	})

	for _, c := range first {
		if !c.isClosed() {
			t.Errorf("chart %s from first result still live after rebind", c.data)
		}
	}
}

func TestStaleDeferredBuildDropped(t *testing.T) {
	r := newFakeRenderer()
	obs := &countingObserver{}
	s := newTestSession(t, r, WithObserver(obs))

	res := fullResult()
	if err := s.Present(res); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	waitFor(t, "performance build", func() bool {
		return slotContent(s, core.SlotPerformance) == "performance"
	})

	// A build scheduled for a generation that has since been superseded
	// must drop without touching the slot.
	s.buildPerformance(0, res, result.SortedEntries(res.Weights), false)

	if got := obs.stale.Load(); got == 0 {
		t.Error("stale build was not dropped")
	}
	if n := r.count("performance"); n != 1 {
		t.Errorf("performance built %d times, want 1", n)
	}
}

func TestSetShowRolling(t *testing.T) {
	r := newFakeRenderer()
	s := newTestSession(t, r)

	res := fullResult()
	res.RollingMetrics = &core.RollingMetrics{
		Dates: []string{"2024-01-01"},
		Portfolio: core.RollingMetricsSeries{
			Volatility: []float64{0.4},
			Sharpe:     []float64{1.2},
		},
	}
	if err := s.Present(res); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	waitFor(t, "performance build", func() bool {
		return slotContent(s, core.SlotPerformance) == "performance"
	})

	s.SetShowRolling(true)
	if got := slotContent(s, core.SlotPerformance); got != "rolling" {
		t.Errorf("performance slot = %q, want rolling view", got)
	}

	s.SetShowRolling(false)
	if got := slotContent(s, core.SlotPerformance); got != "performance" {
		t.Errorf("performance slot = %q, want synthetic view", got)
	}
}

func TestRenderFailureIsolatedPerSlot(t *testing.T) {
	r := newFakeRenderer()
	r.failing[core.SlotFrontier] = true
	s := newTestSession(t, r)

	if err := s.Present(fullResult()); err != nil {
		t.Fatalf("Present() error = %v", err)
	}

	if got := slotContent(s, core.SlotAllocation); got != "allocation" {
		t.Errorf("allocation slot = %q despite frontier failure", got)
	}
	waitFor(t, "performance build", func() bool {
		return slotContent(s, core.SlotPerformance) == "performance"
	})
	if _, _, err := s.Chart(core.SlotFrontier); !errors.Is(err, core.ErrSlotUnbound) {
		t.Errorf("frontier slot error = %v, want ErrSlotUnbound", err)
	}
}

func TestClose(t *testing.T) {
	r := newFakeRenderer()
	s := New(r, synth.NewSeeded(7, nil), nil)

	if err := s.Present(fullResult()); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	waitFor(t, "performance build", func() bool {
		return slotContent(s, core.SlotPerformance) == "performance"
	})
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, _, err := s.Chart(core.SlotAllocation); !errors.Is(err, core.ErrSessionClosed) {
		t.Errorf("Chart() after close error = %v, want ErrSessionClosed", err)
	}
	if err := s.Present(fullResult()); !errors.Is(err, core.ErrSessionClosed) {
		t.Errorf("Present() after close error = %v, want ErrSessionClosed", err)
	}
	for _, c := range r.allCharts() {
		if !c.isClosed() {
			t.Errorf("chart %s still live after Close", c.data)
		}
	}
}

func TestHoldingsCopied(t *testing.T) {
	r := newFakeRenderer()
	s := newTestSession(t, r)

	in := map[string]float64{"BTC": 2.5}
	s.SetHoldings(in)
	in["BTC"] = 99

	got := s.Holdings()
	if got["BTC"] != 2.5 {
		t.Errorf("Holdings()[BTC] = %v, want 2.5", got["BTC"])
	}
}
