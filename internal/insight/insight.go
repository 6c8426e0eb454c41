// Package insight produces optional LLM commentary on an optimization
// result. It never gates presentation: when no provider is configured the
// endpoint reports unavailable and everything else keeps working.
package insight

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/prismfin/prism/internal/core"
	"github.com/prismfin/prism/internal/result"
)

const systemPrompt = `You are a portfolio analytics assistant. Given allocation weights and
summary statistics from a mean-variance optimization, write one short paragraph of
commentary for a non-specialist. The charts shown alongside are illustrative
simulations pending real backend data; do not treat them as measured history.
Do not give financial advice.`

// Service wraps a provider with the commentary prompt.
type Service struct {
	provider Provider
	logger   *zap.Logger
}

// NewService creates the commentary service. A nil provider is allowed
// and reports unavailable on use.
func NewService(provider Provider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{provider: provider, logger: logger}
}

// Available reports whether a provider is configured.
func (s *Service) Available() bool {
	return s != nil && s.provider != nil
}

// Commentary asks the provider for a paragraph about the result.
func (s *Service) Commentary(ctx context.Context, res *core.OptimizationResult, entries []result.Entry) (string, error) {
	if !s.Available() {
		return "", core.ErrInsightUnavailable
	}
	if !res.HasWeights() {
		return "", core.ErrNoResult
	}

	resp, err := s.provider.Chat(ctx, ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     []Message{{Role: "user", Content: buildPrompt(res, entries)}},
		MaxTokens:    512,
		Temperature:  0.4,
	})
	if err != nil {
		return "", core.WrapError(core.ErrInsightFailed, err)
	}
	s.logger.Debug("insight generated",
		zap.String("provider", s.provider.Name()),
		zap.Int("output_tokens", resp.Usage.OutputTokens))
	return strings.TrimSpace(resp.Content), nil
}

func buildPrompt(res *core.OptimizationResult, entries []result.Entry) string {
	var b strings.Builder
	b.WriteString("Optimized allocation:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s: %.2f%%\n", e.Symbol, e.Weight*100)
	}
	fmt.Fprintf(&b, "\nExpected annual return: %.2f%%\n", res.ExpectedReturn*100)
	fmt.Fprintf(&b, "Annual volatility: %.2f%%\n", res.Volatility*100)
	fmt.Fprintf(&b, "Sharpe ratio: %.2f\n", res.SharpeRatio)
	fmt.Fprintf(&b, "Lookback window: %d days\n", res.Lookback())
	if len(res.MissingSymbols) > 0 {
		fmt.Fprintf(&b, "Symbols without price data: %s\n", strings.Join(res.MissingSymbols, ", "))
	}
	if res.Note != "" {
		fmt.Fprintf(&b, "Service note: %s\n", res.Note)
	}
	return b.String()
}
