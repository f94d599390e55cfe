package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/internal/pipeline"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// GateReader serves the latest recorded gate for a symbol. A nil gate
// without error means nothing has been recorded yet.
type GateReader interface {
	LatestGate(ctx context.Context, symbol string) (*core.BehaviorGate, error)
}

// Broadcaster pushes completed evaluation bundles to live subscribers
type Broadcaster interface {
	Broadcast(v interface{})
}

// PipelineHandler handles pipeline-related API endpoints
// ⭐ SSOT: pipeline API handlers live on this struct only
type PipelineHandler struct {
	orchestrator *pipeline.Orchestrator
	gates        GateReader
	feed         Broadcaster
	logger       *logger.Logger
}

// NewPipelineHandler creates a new pipeline handler
func NewPipelineHandler(
	orchestrator *pipeline.Orchestrator,
	gates GateReader,
	feed Broadcaster,
	log *logger.Logger,
) *PipelineHandler {
	return &PipelineHandler{
		orchestrator: orchestrator,
		gates:        gates,
		feed:         feed,
		logger:       log,
	}
}

// DetectorInfo describes one registered detector
type DetectorInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Horizon string `json:"horizon"`
}

// ListDetectors returns the registered detectors in evaluation order
// GET /api/v1/detectors
func (h *PipelineHandler) ListDetectors(w http.ResponseWriter, r *http.Request) {
	detectors := h.orchestrator.Detectors()

	items := make([]DetectorInfo, 0, len(detectors))
	for _, d := range detectors {
		items = append(items, DetectorInfo{
			Name:    d.Name(),
			Type:    string(d.Type()),
			Horizon: string(d.Horizon()),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(items),
		"detectors": items,
	})
}

// RunSymbol runs one full evaluation and returns the result bundle
// POST /api/v1/run/{symbol}
func (h *PipelineHandler) RunSymbol(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := mux.Vars(r)["symbol"]

	result, err := h.orchestrator.Run(ctx, symbol)
	if err != nil {
		var perr *core.ProviderError
		if errors.As(err, &perr) {
			h.logger.WithError(err).Warn("Run aborted by provider")
			respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		h.logger.WithError(err).Error("Pipeline run failed")
		respondError(w, http.StatusInternalServerError, "Pipeline run failed")
		return
	}

	if h.feed != nil {
		h.feed.Broadcast(result)
	}

	respondJSON(w, http.StatusOK, result)
}

// GetLatestGate returns the most recent recorded gate for a symbol
// GET /api/v1/gates/{symbol}
func (h *PipelineHandler) GetLatestGate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := mux.Vars(r)["symbol"]

	if h.gates == nil {
		respondError(w, http.StatusNotFound, "No gate recorded for symbol")
		return
	}

	gate, err := h.gates.LatestGate(ctx, symbol)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest gate")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve gate")
		return
	}
	if gate == nil {
		respondError(w, http.StatusNotFound, "No gate recorded for symbol")
		return
	}

	respondJSON(w, http.StatusOK, gate)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
