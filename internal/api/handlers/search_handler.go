package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/caoscope/caoscope/internal/core"
	"github.com/caoscope/caoscope/internal/models"
	"github.com/caoscope/caoscope/internal/services"
)

type SearchHandler struct {
	search *services.SearchService
	log    *zap.Logger
}

func NewSearchHandler(search *services.SearchService, log *zap.Logger) *SearchHandler {
	return &SearchHandler{search: search, log: log}
}

type searchRequest struct {
	Query string  `json:"query"`
	K     int     `json:"k"`
	CaoID *string `json:"cao_id"`
}

// Search runs a semantic query over the chunk store.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: invalid request body: %v", core.ErrInvalidConfiguration, err))
		return
	}

	hits, err := h.search.Search(r.Context(), req.Query, req.K, req.CaoID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if hits == nil {
		hits = []models.SearchHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}
