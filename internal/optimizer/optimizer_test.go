package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prismfin/prism/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL}, nil)
}

func TestOptimize(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/optimize" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Holdings["BTC"] != 1.5 {
			t.Errorf("holdings[BTC] = %v", req.Holdings["BTC"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"optimized_weights": {"BTC": 0.6, "ETH": 0.4},
			"expected_return": 0.2,
			"volatility": 0.35,
			"sharpe_ratio": 0.57,
			"lookback_days": 90
		}`))
	})

	res, err := c.Optimize(context.Background(), Request{
		Holdings: map[string]float64{"BTC": 1.5, "ETH": 10},
	})
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if res.Weights["BTC"] != 0.6 {
		t.Errorf("Weights[BTC] = %v, want 0.6", res.Weights["BTC"])
	}
	if res.Lookback() != 90 {
		t.Errorf("Lookback() = %d, want 90", res.Lookback())
	}
}

func TestOptimize_ServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "no price data for symbol XYZ"}`))
	})

	_, err := c.Optimize(context.Background(), Request{})
	if !errors.Is(err, core.ErrOptimizerFailed) {
		t.Fatalf("error = %v, want ErrOptimizerFailed", err)
	}
	if got := err.Error(); !strings.Contains(got, "no price data for symbol XYZ") {
		t.Errorf("error message %q missing service detail", got)
	}
}

func TestOptimize_MalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway error</html>`))
	})

	_, err := c.Optimize(context.Background(), Request{})
	if !errors.Is(err, core.ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestCoins(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/coins" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"coins": ["BTC", "ETH", "SOL"]}`))
	})

	coins, err := c.Coins(context.Background())
	if err != nil {
		t.Fatalf("Coins() error = %v", err)
	}
	if len(coins) != 3 || coins[0] != "BTC" {
		t.Errorf("Coins() = %v", coins)
	}
}

func TestCheckDataQuality(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/data-quality" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req struct {
			Symbols      []string `json:"symbols"`
			LookbackDays int      `json:"lookback_days"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.LookbackDays != 90 {
			t.Errorf("lookback_days = %d", req.LookbackDays)
		}
		w.Write([]byte(`{
			"symbols_available": ["BTC"],
			"symbols_missing": ["XYZ"],
			"days_available": 85,
			"coverage_percent": 94.4
		}`))
	})

	q, err := c.CheckDataQuality(context.Background(), []string{"BTC", "XYZ"}, 90)
	if err != nil {
		t.Fatalf("CheckDataQuality() error = %v", err)
	}
	if len(q.SymbolsMissing) != 1 || q.SymbolsMissing[0] != "XYZ" {
		t.Errorf("SymbolsMissing = %v", q.SymbolsMissing)
	}
	if q.DaysAvailable != 85 {
		t.Errorf("DaysAvailable = %d, want 85", q.DaysAvailable)
	}
}
