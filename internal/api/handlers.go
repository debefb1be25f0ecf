package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"finbrief/internal/domain/brief"
	"finbrief/internal/metrics"
	"finbrief/internal/orchestrator"
	"finbrief/pkg/errors"
	"finbrief/pkg/logger"
)

// Caps the accepted audio upload size for voice briefs
const maxAudioBytes = 10 << 20

// briefRequest is the POST /market-brief payload
type briefRequest struct {
	Symbols      []string `json:"symbols"`
	FocusAreas   []string `json:"focus_areas,omitempty"`
	DeadlineMS   int64    `json:"deadline_ms,omitempty"`
	IncludeVoice bool     `json:"include_voice,omitempty"`
}

// errorResponse is the uniform error payload
type errorResponse struct {
	Error string `json:"error"`
}

// BriefHandler serves the market brief endpoints
type BriefHandler struct {
	orch *orchestrator.Orchestrator
	log  *logger.Logger
}

// NewBriefHandler creates the brief endpoint handler
func NewBriefHandler(orch *orchestrator.Orchestrator) *BriefHandler {
	return &BriefHandler{
		orch: orch,
		log:  logger.Get().With("component", "api"),
	}
}

// HandleMarketBrief serves POST /market-brief
func (h *BriefHandler) HandleMarketBrief(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload briefRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		metrics.RecordBrief("invalid", 0)
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	focus := make([]brief.FocusArea, 0, len(payload.FocusAreas))
	for _, f := range payload.FocusAreas {
		focus = append(focus, brief.FocusArea(f))
	}

	req := brief.Request{
		Symbols:      payload.Symbols,
		FocusAreas:   focus,
		Deadline:     time.Duration(payload.DeadlineMS) * time.Millisecond,
		IncludeVoice: payload.IncludeVoice,
		SubmittedAt:  time.Now(),
	}

	result, err := h.orch.ProcessBrief(r.Context(), req)
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleVoiceBrief serves POST /voice-brief with raw audio in the body
func (h *BriefHandler) HandleVoiceBrief(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	audio, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}
	if len(audio) > maxAudioBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "audio payload too large")
		return
	}

	result, query, err := h.orch.ProcessVoiceBrief(r.Context(), audio)
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query": query,
		"brief": result,
	})
}

// writeProcessError maps orchestration errors onto HTTP status codes
func (h *BriefHandler) writeProcessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrInvalidRequest):
		metrics.RecordBrief("invalid", 0)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errors.ErrDependencyUnavailable):
		metrics.RecordBrief("unavailable", 0)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Errorw("Brief request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
