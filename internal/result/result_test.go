package result

import (
	"errors"
	"strings"
	"testing"

	"github.com/prismfin/prism/internal/core"
)

func TestDecode_FullResponse(t *testing.T) {
	body := `{
		"optimized_weights": {"BTC": 0.6, "ETH": 0.4},
		"expected_return": 0.20,
		"volatility": 0.35,
		"sharpe_ratio": 0.57,
		"lookback_days": 90,
		"historical_returns": {"dates": ["2024-01-01"]},
		"missing_symbols": ["DOGE"]
	}`

	res, err := Decode(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if len(res.Weights) != 2 {
		t.Errorf("expected 2 weights, got %d", len(res.Weights))
	}
	if res.ExpectedReturn != 0.20 {
		t.Errorf("ExpectedReturn = %f, want 0.20", res.ExpectedReturn)
	}
	if res.Lookback() != 90 {
		t.Errorf("Lookback = %d, want 90", res.Lookback())
	}
	if !res.HasHistory() {
		t.Error("expected historical returns to be present")
	}
	if len(res.MissingSymbols) != 1 || res.MissingSymbols[0] != "DOGE" {
		t.Errorf("unexpected missing symbols: %v", res.MissingSymbols)
	}
}

func TestDecode_DefaultLookback(t *testing.T) {
	res, err := Decode(strings.NewReader(`{"optimized_weights": {"BTC": 1.0}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.Lookback() != 60 {
		t.Errorf("Lookback = %d, want default 60", res.Lookback())
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(strings.NewReader("<html>Bad gateway</html>"))
	if err == nil {
		t.Fatal("expected error for non-JSON body")
	}
	if !errors.Is(err, core.ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestDecode_NullWeights(t *testing.T) {
	res, err := Decode(strings.NewReader(`{"optimized_weights": null, "note": "No data"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.HasWeights() {
		t.Error("null weights should decode as absent")
	}
	if res.Note != "No data" {
		t.Errorf("Note = %q, want %q", res.Note, "No data")
	}
}

func TestSortedEntries_Descending(t *testing.T) {
	entries := SortedEntries(map[string]float64{
		"ETH": 0.4,
		"BTC": 0.6,
	})

	if entries[0].Symbol != "BTC" || entries[1].Symbol != "ETH" {
		t.Errorf("unexpected order: %v", entries)
	}
}

func TestSortedEntries_TieBreak(t *testing.T) {
	entries := SortedEntries(map[string]float64{
		"SOL": 0.25,
		"ADA": 0.25,
		"BTC": 0.5,
	})

	want := []string{"BTC", "ADA", "SOL"}
	for i, sym := range want {
		if entries[i].Symbol != sym {
			t.Errorf("entry %d = %s, want %s", i, entries[i].Symbol, sym)
		}
	}
}

func TestSortedEntries_Empty(t *testing.T) {
	if entries := SortedEntries(nil); len(entries) != 0 {
		t.Errorf("expected no entries, got %v", entries)
	}
}

func TestSymbols(t *testing.T) {
	syms := Symbols([]Entry{{Symbol: "BTC", Weight: 0.6}, {Symbol: "ETH", Weight: 0.4}})
	if len(syms) != 2 || syms[0] != "BTC" || syms[1] != "ETH" {
		t.Errorf("unexpected symbols: %v", syms)
	}
}
