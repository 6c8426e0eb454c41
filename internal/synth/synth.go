// Package synth fabricates presentation data consistent with the summary
// statistics of an optimization result. The output is deliberately
// illustrative rather than statistically faithful: per-asset noise is
// independent and no real correlation structure is modeled. Real series
// belong to the optimization service, not to this layer.
package synth

import (
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Generator produces synthetic series, frontier curves and correlation
// matrices. It is not deterministic unless seeded; charts are meant to
// differ between runs.
type Generator struct {
	rng    *rand.Rand
	logger *zap.Logger
}

// New creates a time-seeded generator.
func New(logger *zap.Logger) *Generator {
	return NewSeeded(time.Now().UnixNano(), logger)
}

// NewSeeded creates a generator with a fixed seed, for reproducible tests.
func NewSeeded(seed int64, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger,
	}
}

// uniform returns a draw from [lo, hi).
func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.rng.Float64()
}

// shock returns a draw from [-scale, scale).
func (g *Generator) shock(scale float64) float64 {
	return (g.rng.Float64()*2 - 1) * scale
}
