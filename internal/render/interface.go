// Package render is the boundary to the charting library. Everything above
// it hands over plain series data; everything below it is a black box that
// turns that data into bytes.
package render

import (
	"github.com/prismfin/prism/internal/core"
	"github.com/prismfin/prism/internal/result"
)

// Chart is one live rendered artifact bound to a slot. Instances hold the
// rendered buffer until closed; a slot must close its previous instance
// before binding a new one.
type Chart interface {
	// Slot returns the slot this chart was rendered for.
	Slot() core.ChartSlot

	// ContentType returns the MIME type of Bytes.
	ContentType() string

	// Bytes returns the rendered artifact, or nil after Close.
	Bytes() []byte

	// Close releases the instance. It is idempotent.
	Close() error
}

// Renderer builds chart instances for each slot kind.
type Renderer interface {
	// Allocation renders the weight breakdown from sorted entries.
	Allocation(entries []result.Entry) (Chart, error)

	// Frontier renders the efficient-frontier curve with the asset
	// scatter and the portfolio marker.
	Frontier(curve core.FrontierCurve) (Chart, error)

	// Performance renders the synthetic historical trajectory.
	Performance(series core.SyntheticSeries) (Chart, error)

	// RollingMetrics renders the rolling volatility/Sharpe variant of the
	// performance slot.
	RollingMetrics(m *core.RollingMetrics) (Chart, error)

	// Correlation renders the correlation matrix table.
	Correlation(m core.CorrelationMatrix) (Chart, error)

	// Placeholder renders an informational message into a slot, used when
	// a view is gated on data the result does not carry.
	Placeholder(slot core.ChartSlot, message string) (Chart, error)
}
