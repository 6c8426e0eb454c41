// internal/insight/factory/factory.go
package factory

import (
	"fmt"

	"github.com/prismfin/prism/internal/config"
	"github.com/prismfin/prism/internal/insight"
	"github.com/prismfin/prism/internal/insight/claude"
	"github.com/prismfin/prism/internal/insight/openai"
)

// New creates an insight provider based on configuration.
func New(cfg config.InsightConfig) (insight.Provider, error) {
	switch cfg.Provider {
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model)
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	default:
		return nil, fmt.Errorf("unknown insight provider: %s", cfg.Provider)
	}
}
