package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/finreport-cli/internal/model"
	"github.com/sells-group/finreport-cli/internal/source"
	"github.com/sells-group/finreport-cli/internal/store"
)

type apiHandler struct {
	env *env
}

type analyzeRequest struct {
	Symbol          string `json:"symbol"`
	ExtractionModel string `json:"extraction_model"`
	AnalysisModel   string `json:"analysis_model"`
}

type analyzeResponse struct {
	Status string            `json:"status"`
	Cached bool              `json:"cached"`
	RunID  string            `json:"run_id"`
	Key    model.AnalysisKey `json:"key"`
	Usage  *model.TokenUsage `json:"usage,omitempty"`
}

type checkResponse struct {
	Exists bool              `json:"exists"`
	RunID  string            `json:"run_id,omitempty"`
	Report string            `json:"report,omitempty"`
	Usage  *model.TokenUsage `json:"usage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// keyFromRequest assembles the analysis key, defaulting both model
// parameters to auto resolution.
func keyFromRequest(symbol, extraction, analysis string) model.AnalysisKey {
	if extraction == "" {
		extraction = "auto"
	}
	if analysis == "" {
		analysis = "auto"
	}
	return model.AnalysisKey{
		Symbol:          strings.ToUpper(strings.TrimSpace(symbol)),
		ExtractionModel: extraction,
		AnalysisModel:   analysis,
	}
}

func (h *apiHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// startAnalysis kicks off (or joins, or short-circuits to cache) a run.
// Cached results return 200 with the summary; live runs return 202.
func (h *apiHandler) startAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	key := keyFromRequest(req.Symbol, req.ExtractionModel, req.AnalysisModel)
	handle, err := h.env.Orchestrator.Start(r.Context(), key)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no statement document for %s", key.Symbol))
			return
		}
		zap.L().Error("start analysis", zap.String("symbol", key.Symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start analysis")
		return
	}

	if handle.Cached {
		led := h.env.Orchestrator.State(handle)
		usage := led.TotalUsage()
		writeJSON(w, http.StatusOK, analyzeResponse{
			Status: string(led.Status),
			Cached: true,
			RunID:  handle.RunID,
			Key:    key,
			Usage:  &usage,
		})
		return
	}

	writeJSON(w, http.StatusAccepted, analyzeResponse{
		Status: string(model.RunStatusRunning),
		RunID:  handle.RunID,
		Key:    key,
	})
}

// checkResult reports whether a cached result exists for the key.
func (h *apiHandler) checkResult(w http.ResponseWriter, r *http.Request) {
	key := keyFromRequest(chi.URLParam(r, "symbol"),
		r.URL.Query().Get("extraction_model"), r.URL.Query().Get("analysis_model"))

	led, err := h.env.Store.Check(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, checkResponse{Exists: false})
			return
		}
		zap.L().Error("check result", zap.String("symbol", key.Symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cache check failed")
		return
	}

	usage := led.TotalUsage()
	writeJSON(w, http.StatusOK, checkResponse{
		Exists: true,
		RunID:  led.RunID,
		Report: led.FinalReport,
		Usage:  &usage,
	})
}

// getResult returns the persisted report for a key, or 404.
func (h *apiHandler) getResult(w http.ResponseWriter, r *http.Request) {
	key := keyFromRequest(chi.URLParam(r, "symbol"),
		r.URL.Query().Get("extraction_model"), r.URL.Query().Get("analysis_model"))

	led, err := h.env.Store.Check(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no result for %s", key.Encode()))
			return
		}
		zap.L().Error("get result", zap.String("symbol", key.Symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cache check failed")
		return
	}

	usage := led.TotalUsage()
	writeJSON(w, http.StatusOK, checkResponse{
		Exists: true,
		RunID:  led.RunID,
		Report: led.FinalReport,
		Usage:  &usage,
	})
}

// streamProgress streams run events as SSE. Joining an in-flight run replays
// its history first, then follows live; a cached result replays a synthetic
// history and closes.
func (h *apiHandler) streamProgress(w http.ResponseWriter, r *http.Request) {
	key := keyFromRequest(chi.URLParam(r, "symbol"),
		r.URL.Query().Get("extraction_model"), r.URL.Query().Get("analysis_model"))

	handle, err := h.env.Orchestrator.Start(r.Context(), key)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no statement document for %s", key.Symbol))
			return
		}
		zap.L().Error("stream analysis", zap.String("symbol", key.Symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start analysis")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := h.env.Orchestrator.Subscribe(handle)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				zap.L().Error("encode event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
