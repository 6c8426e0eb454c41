// Package optimizer is the HTTP client for the upstream portfolio
// optimization service. The service does the actual mean-variance work;
// this client only speaks its request/response contract.
package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/prismfin/prism/internal/core"
	"github.com/prismfin/prism/internal/result"
)

const defaultTimeout = 120 * time.Second

// Config holds the client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the optimization service.
type Client struct {
	baseURL string
	hc      *http.Client
	logger  *zap.Logger
}

// NewClient creates a client. A zero timeout falls back to the default.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		hc:      &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Request is the optimization submission.
type Request struct {
	Holdings     map[string]float64 `json:"holdings"`
	Risk         string             `json:"risk,omitempty"`
	LookbackDays int                `json:"lookback_days,omitempty"`
	Preferences  []string           `json:"preferences,omitempty"`
}

// DataQuality reports symbol coverage for a requested lookback window.
type DataQuality struct {
	SymbolsAvailable []string `json:"symbols_available"`
	SymbolsMissing   []string `json:"symbols_missing"`
	DaysAvailable    int      `json:"days_available"`
	CoveragePercent  float64  `json:"coverage_percent"`
}

// Optimize submits holdings and decodes the optimization result.
func (c *Client) Optimize(ctx context.Context, req Request) (*core.OptimizationResult, error) {
	body, err := c.post(ctx, "/api/optimize", req)
	if err != nil {
		return nil, err
	}
	res, err := result.DecodeBytes(body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("optimization received",
		zap.Int("assets", len(res.Weights)),
		zap.Int("lookback_days", res.Lookback()))
	return res, nil
}

// Coins fetches the symbols the service supports.
func (c *Client) Coins(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, "/api/coins")
	if err != nil {
		return nil, err
	}
	var out struct {
		Coins []string `json:"coins"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, core.WrapError(core.ErrMalformedResponse, err)
	}
	return out.Coins, nil
}

// CheckDataQuality asks the service how much history backs the given
// symbols over the requested window.
func (c *Client) CheckDataQuality(ctx context.Context, symbols []string, lookbackDays int) (*DataQuality, error) {
	req := struct {
		Symbols      []string `json:"symbols"`
		LookbackDays int      `json:"lookback_days"`
	}{Symbols: symbols, LookbackDays: lookbackDays}

	body, err := c.post(ctx, "/api/data-quality", req)
	if err != nil {
		return nil, err
	}
	var out DataQuality
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, core.WrapError(core.ErrMalformedResponse, err)
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrOptimizerFailed, err)
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, core.WrapError(core.ErrOptimizerFailed, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, core.WrapError(core.ErrOptimizerFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, core.WrapError(core.ErrOptimizerTimeout, err)
		}
		return nil, core.WrapError(core.ErrOptimizerFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, core.WrapError(core.ErrOptimizerFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.WrapError(core.ErrOptimizerFailed, serviceError(resp.StatusCode, body))
	}
	return body, nil
}

// serviceError extracts the service's error message when the body carries
// one, otherwise reports the bare status.
func serviceError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("status %d: %s", status, payload.Error)
	}
	return fmt.Errorf("status %d", status)
}
