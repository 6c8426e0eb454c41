// Package result decodes and orders the optimization service response.
package result

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/prismfin/prism/internal/core"
)

// Entry is one allocation row: a symbol and its portfolio fraction.
type Entry struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

// Decode parses an optimization service response body. A body that is not
// JSON, or not an object, yields ErrMalformedResponse.
func Decode(r io.Reader) (*core.OptimizationResult, error) {
	var res core.OptimizationResult
	dec := json.NewDecoder(r)
	if err := dec.Decode(&res); err != nil {
		return nil, core.WrapError(core.ErrMalformedResponse, err)
	}
	return &res, nil
}

// DecodeBytes parses an optimization service response from a byte slice.
func DecodeBytes(b []byte) (*core.OptimizationResult, error) {
	var res core.OptimizationResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, core.WrapError(core.ErrMalformedResponse, err)
	}
	return &res, nil
}

// SortedEntries returns allocation entries sorted by descending weight.
// Equal weights fall back to symbol order so the result is deterministic.
func SortedEntries(weights map[string]float64) []Entry {
	entries := make([]Entry, 0, len(weights))
	for sym, w := range weights {
		entries = append(entries, Entry{Symbol: sym, Weight: w})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Weight != entries[j].Weight {
			return entries[i].Weight > entries[j].Weight
		}
		return entries[i].Symbol < entries[j].Symbol
	})
	return entries
}

// Symbols extracts the symbols from sorted entries, preserving order.
func Symbols(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Symbol
	}
	return out
}
