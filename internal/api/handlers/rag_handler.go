package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/caoscope/caoscope/internal/core"
	"github.com/caoscope/caoscope/internal/services"
)

type RagHandler struct {
	rag *services.RagService
	log *zap.Logger
}

func NewRagHandler(rag *services.RagService, log *zap.Logger) *RagHandler {
	return &RagHandler{rag: rag, log: log}
}

type ragRequest struct {
	Question    string  `json:"question"`
	SystemRules string  `json:"system_rules"`
	K           int     `json:"k"`
	CaoID       *string `json:"cao_id"`
}

// Answer generates a cited analysis over retrieved chunks. The response
// includes the source list and whether the answer honors the citation
// contract, so the caller can render a warning on violations.
func (h *RagHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req ragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: invalid request body: %v", core.ErrInvalidConfiguration, err))
		return
	}

	out, err := h.rag.Answer(r.Context(), req.Question, req.SystemRules, req.K, req.CaoID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
