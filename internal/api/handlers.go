// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prismfin/prism/internal/api/response"
	"github.com/prismfin/prism/internal/core"
	"github.com/prismfin/prism/internal/export"
	"github.com/prismfin/prism/internal/optimizer"
)

func badRequest(err error) *core.Error {
	return &core.Error{Code: "BAD_REQUEST", Message: "invalid request body", Cause: err}
}

type optimizeRequest struct {
	Holdings     map[string]float64 `json:"holdings"`
	Risk         string             `json:"risk,omitempty"`
	LookbackDays int                `json:"lookback_days,omitempty"`
	Preferences  []string           `json:"preferences,omitempty"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, badRequest(err))
		return
	}
	if len(req.Holdings) == 0 {
		response.Error(w, http.StatusBadRequest, badRequest(fmt.Errorf("holdings are required")))
		return
	}

	start := time.Now()
	res, err := s.optimizer.Optimize(r.Context(), optimizer.Request{
		Holdings:     req.Holdings,
		Risk:         req.Risk,
		LookbackDays: req.LookbackDays,
		Preferences:  req.Preferences,
	})
	duration := time.Since(start).Seconds()
	if err != nil {
		if s.reg != nil {
			s.reg.RecordOptimization("error", duration)
		}
		s.logger.Warn("optimization failed", zap.Error(err))
		status := http.StatusBadGateway
		if errors.Is(err, core.ErrOptimizerTimeout) {
			status = http.StatusGatewayTimeout
		}
		response.Error(w, status, err)
		return
	}
	if s.reg != nil {
		s.reg.RecordOptimization("success", duration)
	}

	s.session.SetHoldings(req.Holdings)
	if err := s.session.Present(res); err != nil {
		response.Error(w, http.StatusConflict, err)
		return
	}

	if s.store != nil && res.HasWeights() {
		if _, err := s.store.Insert(r.Context(), res); err != nil {
			s.logger.Warn("history insert failed", zap.Error(err))
		}
	}

	response.JSON(w, http.StatusOK, res)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	res := s.session.Result()
	if res == nil {
		response.Error(w, http.StatusNotFound, core.ErrNoResult)
		return
	}

	entries := s.session.Entries()
	type entryView struct {
		Symbol  string  `json:"symbol"`
		Weight  float64 `json:"weight"`
		Percent string  `json:"percent"`
	}
	views := make([]entryView, len(entries))
	for i, e := range entries {
		views[i] = entryView{
			Symbol:  e.Symbol,
			Weight:  e.Weight,
			Percent: fmt.Sprintf("%.2f%%", e.Weight*100),
		}
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"stats":           export.Summarize(res),
		"entries":         views,
		"table":           export.AllocationTable(entries, s.session.Holdings()),
		"lookback_days":   res.Lookback(),
		"missing_symbols": res.MissingSymbols,
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("slot")
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".png"), ".txt")
	slot, ok := parseSlot(name)
	if !ok {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrTargetMissing, fmt.Errorf("unknown slot %q", name)))
		return
	}

	// Fetching the correlation view counts as activating its tab.
	if slot == core.SlotCorrelation {
		s.session.ActivateTab(slot)
	}

	data, contentType, err := s.session.Chart(slot)
	if err != nil {
		status := http.StatusNotFound
		if errors.Is(err, core.ErrSessionClosed) {
			status = http.StatusGone
		}
		response.Error(w, status, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleTabActivate(w http.ResponseWriter, r *http.Request) {
	slot, ok := parseSlot(r.PathValue("tab"))
	if !ok {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrTargetMissing, fmt.Errorf("unknown tab %q", r.PathValue("tab"))))
		return
	}
	s.session.ActivateTab(slot)
	response.JSON(w, http.StatusOK, map[string]string{"active": string(slot)})
}

func (s *Server) handleRollingToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, badRequest(err))
		return
	}
	s.session.SetShowRolling(req.Enabled)
	response.JSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	res := s.session.Result()
	if !res.HasWeights() {
		response.Error(w, http.StatusNotFound, core.ErrNoResult)
		return
	}

	name, data := export.CSV(res, s.session.Entries(), s.session.Holdings(), time.Now())

	if s.archiver != nil {
		if _, err := s.archiver.SaveExport(r.Context(), s.session.ID, name, data); err != nil {
			s.logger.Warn("export archive failed", zap.Error(err))
		}
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	if s.insights == nil || !s.insights.Available() {
		response.Error(w, http.StatusServiceUnavailable, core.ErrInsightUnavailable)
		return
	}
	res := s.session.Result()
	if !res.HasWeights() {
		response.Error(w, http.StatusNotFound, core.ErrNoResult)
		return
	}

	text, err := s.insights.Commentary(r.Context(), res, s.session.Entries())
	if err != nil {
		response.Error(w, http.StatusBadGateway, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"insight": text})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		response.Error(w, http.StatusServiceUnavailable,
			core.WrapError(core.ErrHistoryFailed, fmt.Errorf("history store not configured")))
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			response.Error(w, http.StatusBadRequest, badRequest(fmt.Errorf("invalid limit %q", v)))
			return
		}
		limit = n
	}

	records, err := s.store.List(r.Context(), limit)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	response.JSON(w, http.StatusOK, records)
}

func (s *Server) handleCoins(w http.ResponseWriter, r *http.Request) {
	coins, err := s.optimizer.Coins(r.Context())
	if err != nil {
		response.Error(w, http.StatusBadGateway, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string][]string{"coins": coins})
}

func (s *Server) handleDataQuality(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbols      []string `json:"symbols"`
		LookbackDays int      `json:"lookback_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, badRequest(err))
		return
	}
	if len(req.Symbols) == 0 {
		response.Error(w, http.StatusBadRequest, badRequest(fmt.Errorf("symbols are required")))
		return
	}

	quality, err := s.optimizer.CheckDataQuality(r.Context(), req.Symbols, req.LookbackDays)
	if err != nil {
		response.Error(w, http.StatusBadGateway, err)
		return
	}
	response.JSON(w, http.StatusOK, quality)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func parseSlot(name string) (core.ChartSlot, bool) {
	for _, slot := range core.Slots() {
		if string(slot) == name {
			return slot, true
		}
	}
	return "", false
}
