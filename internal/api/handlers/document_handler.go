package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/caoscope/caoscope/internal/core"
	"github.com/caoscope/caoscope/internal/models"
	"github.com/caoscope/caoscope/internal/services"
)

const maxUploadBytes = 64 << 20

type DocumentHandler struct {
	docs *services.DocumentService
	log  *zap.Logger
}

func NewDocumentHandler(docs *services.DocumentService, log *zap.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, log: log}
}

// List returns every tracked document with its processing state.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docs.List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// Chunks returns the chunk count plus a bounded preview for one document.
func (h *DocumentHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	caoID := chi.URLParam(r, "cao_id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, h.log, fmt.Errorf("%w: invalid limit %q", core.ErrInvalidConfiguration, raw))
			return
		}
		limit = parsed
	}

	count, err := h.docs.ChunkCount(r.Context(), caoID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	chunks, err := h.docs.PreviewChunks(r.Context(), caoID, limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if chunks == nil {
		chunks = []models.Chunk{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cao_id":      caoID,
		"chunk_count": count,
		"chunks":      chunks,
	})
}

// Upload ingests a single PDF outside the bulk manifest path.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, h.log, fmt.Errorf("%w: invalid multipart form: %v", core.ErrInvalidConfiguration, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.log, fmt.Errorf("%w: missing file field: %v", core.ErrInvalidConfiguration, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, h.log, fmt.Errorf("read upload: %w", err))
		return
	}

	// Strip any path components a client might send.
	fileName := filepath.Base(header.Filename)
	caoName := r.FormValue("cao_name")

	doc, err := h.docs.Upload(r.Context(), fileName, caoName, data)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	h.log.Info("document uploaded",
		zap.String("cao_id", doc.ID),
		zap.Int64("bytes", doc.FileBytes))
	writeJSON(w, http.StatusCreated, doc)
}
