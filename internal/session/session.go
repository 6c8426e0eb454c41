// Package session coordinates the presentation lifecycle for one
// optimization result: it owns the slot→chart bindings, enforces
// dispose-before-rebind, defers the performance build off the request
// path, and materializes the correlation view lazily on first tab
// activation.
package session

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prismfin/prism/internal/core"
	"github.com/prismfin/prism/internal/render"
	"github.com/prismfin/prism/internal/result"
	"github.com/prismfin/prism/internal/synth"
)

const (
	placeholderNoResult  = "No optimization result yet. Submit a portfolio to see the analysis."
	placeholderNeedsData = "More historical data is required for this view. Extend the lookback window and optimize again."
	placeholderBuilding  = "Building performance view..."
)

// Observer receives lifecycle notifications. Implementations must be
// safe for concurrent use.
type Observer interface {
	ChartBound(slot core.ChartSlot)
	ChartDisposed(slot core.ChartSlot)
	PresentCycle()
	StaleBuildDropped()
}

type nopObserver struct{}

func (nopObserver) ChartBound(core.ChartSlot)    {}
func (nopObserver) ChartDisposed(core.ChartSlot) {}
func (nopObserver) PresentCycle()                {}
func (nopObserver) StaleBuildDropped()           {}

// Session owns the live charts derived from at most one optimization
// result at a time. Every Present call fully supersedes the previous
// result; deferred builds scheduled for a superseded result are dropped.
type Session struct {
	ID string

	renderer  render.Renderer
	generator *synth.Generator
	logger    *zap.Logger
	obs       Observer

	mu              sync.Mutex
	slots           map[core.ChartSlot]render.Chart
	result          *core.OptimizationResult
	entries         []result.Entry
	holdings        map[string]float64
	generation      uint64
	correlationDone bool
	showRolling     bool
	activeTab       core.ChartSlot
	closed          bool

	tasks chan func()
	done  chan struct{}
}

// Option customizes a Session.
type Option func(*Session)

// WithObserver attaches a lifecycle observer.
func WithObserver(obs Observer) Option {
	return func(s *Session) {
		if obs != nil {
			s.obs = obs
		}
	}
}

// New creates a session and starts its single build worker.
func New(renderer render.Renderer, generator *synth.Generator, logger *zap.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		ID:        uuid.NewString(),
		renderer:  renderer,
		generator: generator,
		logger:    logger,
		obs:       nopObserver{},
		slots:     make(map[core.ChartSlot]render.Chart, 4),
		holdings:  make(map[string]float64),
		activeTab: core.SlotAllocation,
		tasks:     make(chan func(), 16),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.worker()
	return s
}

func (s *Session) worker() {
	for {
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.done:
			return
		}
	}
}

func (s *Session) schedule(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.done:
	}
}

// Present replaces the session's result and rebuilds every chart slot the
// result supports. It never returns a hard error for an empty allocation;
// that case renders placeholders and stops. Per-slot render failures are
// logged and isolated so one broken visualization cannot take down the rest.
func (s *Session) Present(res *core.OptimizationResult) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return core.ErrSessionClosed
	}
	s.generation++
	gen := s.generation
	s.result = res
	s.entries = nil
	s.correlationDone = false
	s.disposeAllLocked()

	if !res.HasWeights() {
		note := ""
		if res != nil {
			note = res.Note
		}
		s.mu.Unlock()
		s.logger.Info("present: no allocation in result", zap.String("note", note))
		s.bindPlaceholder(gen, core.SlotAllocation, placeholderNoResult)
		s.obs.PresentCycle()
		return nil
	}

	entries := result.SortedEntries(res.Weights)
	s.entries = entries
	activeTab := s.activeTab
	showRolling := s.showRolling
	s.mu.Unlock()

	if chart, err := s.renderer.Allocation(entries); err != nil {
		s.logger.Warn("allocation chart failed", zap.Error(err))
	} else {
		s.bind(gen, chart)
	}

	if !res.HasHistory() {
		// Without history the remaining views stay informational; the
		// correlation tab must not synthesize on activation either.
		s.bindPlaceholder(gen, core.SlotFrontier, placeholderNeedsData)
		s.bindPlaceholder(gen, core.SlotPerformance, placeholderNeedsData)
		s.bindPlaceholder(gen, core.SlotCorrelation, placeholderNeedsData)
		s.mu.Lock()
		if s.generation == gen {
			s.correlationDone = true
		}
		s.mu.Unlock()
		s.obs.PresentCycle()
		return nil
	}

	curve := s.generator.Frontier(res.Volatility, res.ExpectedReturn, res.Lookback(), len(entries))
	if chart, err := s.renderer.Frontier(curve); err != nil {
		s.logger.Warn("frontier chart failed", zap.Error(err))
	} else {
		s.bind(gen, chart)
	}

	s.bindPlaceholder(gen, core.SlotPerformance, placeholderBuilding)
	s.schedule(func() {
		s.buildPerformance(gen, res, entries, showRolling)
	})

	if activeTab == core.SlotCorrelation {
		s.buildCorrelation(gen, entries)
	}

	s.obs.PresentCycle()
	return nil
}

// buildPerformance constructs the performance slot for the given
// generation; stale generations are dropped without touching the slot.
func (s *Session) buildPerformance(gen uint64, res *core.OptimizationResult, entries []result.Entry, showRolling bool) {
	s.mu.Lock()
	stale := s.closed || s.generation != gen
	s.mu.Unlock()
	if stale {
		s.obs.StaleBuildDropped()
		return
	}

	var (
		chart render.Chart
		err   error
	)
	if showRolling && res.RollingMetrics.Valid() {
		chart, err = s.renderer.RollingMetrics(res.RollingMetrics)
	} else {
		series := s.generator.Series(res.ExpectedReturn, res.Volatility, res.Lookback(), result.Symbols(entries))
		chart, err = s.renderer.Performance(series)
	}
	if err != nil {
		s.logger.Warn("performance chart failed", zap.Error(err))
		return
	}
	s.bind(gen, chart)
}

func (s *Session) buildCorrelation(gen uint64, entries []result.Entry) {
	s.mu.Lock()
	if s.closed || s.generation != gen || s.correlationDone {
		s.mu.Unlock()
		return
	}
	s.correlationDone = true
	s.mu.Unlock()

	matrix := s.generator.Correlation(result.Symbols(entries))
	chart, err := s.renderer.Correlation(matrix)
	if err != nil {
		s.logger.Warn("correlation table failed", zap.Error(err))
		return
	}
	s.bind(gen, chart)
}

// ActivateTab records the visible tab and, on the correlation tab's first
// activation for the current result, synthesizes and renders the matrix.
func (s *Session) ActivateTab(tab core.ChartSlot) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.activeTab = tab
	gen := s.generation
	entries := s.entries
	pending := tab == core.SlotCorrelation && !s.correlationDone && len(entries) > 0
	s.mu.Unlock()

	if pending {
		s.buildCorrelation(gen, entries)
	}
}

// SetShowRolling toggles the performance slot between the synthetic
// trajectory and the rolling-metrics view and rebuilds only that slot.
func (s *Session) SetShowRolling(show bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.showRolling = show
	res := s.result
	entries := s.entries
	gen := s.generation
	s.mu.Unlock()

	if !res.HasWeights() || !res.HasHistory() {
		return
	}
	s.buildPerformance(gen, res, entries, show)
}

// Chart returns a copy of the bytes currently bound to a slot along with
// the content type.
func (s *Session) Chart(slot core.ChartSlot) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, "", core.ErrSessionClosed
	}
	c, ok := s.slots[slot]
	if !ok {
		return nil, "", core.WrapError(core.ErrSlotUnbound, nil)
	}
	data := c.Bytes()
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, c.ContentType(), nil
}

// Result returns the currently presented result, or nil.
func (s *Session) Result() *core.OptimizationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Entries returns the sorted allocation entries of the current result.
func (s *Session) Entries() []result.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]result.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// SetHoldings records the user's entered holding amounts for the export.
func (s *Session) SetHoldings(h map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdings = make(map[string]float64, len(h))
	for k, v := range h {
		s.holdings[k] = v
	}
}

// Holdings returns a copy of the recorded holding amounts.
func (s *Session) Holdings() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.holdings))
	for k, v := range s.holdings {
		out[k] = v
	}
	return out
}

// Close disposes every bound chart and stops the build worker. It is safe
// to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.disposeAllLocked()
	close(s.done)
	return nil
}

// bind attaches a chart to its slot, disposing the previous occupant
// first. Charts built for a superseded generation are closed and dropped.
func (s *Session) bind(gen uint64, chart render.Chart) {
	s.mu.Lock()
	if s.closed || s.generation != gen {
		s.mu.Unlock()
		_ = chart.Close()
		s.obs.StaleBuildDropped()
		return
	}
	slot := chart.Slot()
	if prev, ok := s.slots[slot]; ok {
		_ = prev.Close()
		s.obs.ChartDisposed(slot)
	}
	s.slots[slot] = chart
	s.mu.Unlock()
	s.obs.ChartBound(slot)
}

func (s *Session) bindPlaceholder(gen uint64, slot core.ChartSlot, message string) {
	chart, err := s.renderer.Placeholder(slot, message)
	if err != nil {
		s.logger.Warn("placeholder failed", zap.String("slot", string(slot)), zap.Error(err))
		return
	}
	s.bind(gen, chart)
}

func (s *Session) disposeAllLocked() {
	for slot, c := range s.slots {
		_ = c.Close()
		delete(s.slots, slot)
		s.obs.ChartDisposed(slot)
	}
}
