package synth

import "github.com/prismfin/prism/internal/core"

// Correlation fabricates a symmetric correlation matrix over the given
// asset order. The diagonal is fixed at 1; each off-diagonal pair is a
// single draw from [-0.2, 0.8) mirrored across the diagonal, biased
// positive the way crypto assets tend to move together.
func (g *Generator) Correlation(assets []string) core.CorrelationMatrix {
	n := len(assets)
	m := core.CorrelationMatrix{
		Assets: append([]string(nil), assets...),
		Values: make([][]float64, n),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.Values[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := g.uniform(-0.2, 0.8)
			m.Values[i][j] = c
			m.Values[j][i] = c
		}
	}
	return m
}
