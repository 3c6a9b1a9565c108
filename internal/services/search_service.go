package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/caoscope/caoscope/internal/core"
	"github.com/caoscope/caoscope/internal/models"
)

const (
	// DefaultMatchCount is the retrieval depth when the caller does not set k.
	DefaultMatchCount = 8

	documentListLimit = 1000
)

// SearchService answers semantic queries over the chunk store: embed the
// question, run the vector match, return ranked hits with page provenance.
type SearchService struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
}

func NewSearchService(db core.DbClient, embedder core.EmbeddingProvider) *SearchService {
	return &SearchService{db: db, embedder: embedder}
}

// Search returns the top-k chunks most similar to the query, optionally
// restricted to a single document.
func (s *SearchService) Search(ctx context.Context, query string, k int, caoID *string) ([]models.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", core.ErrInvalidConfiguration)
	}
	if k <= 0 {
		k = DefaultMatchCount
	}

	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := s.db.MatchChunks(ctx, vec, k, caoID)
	if err != nil {
		return nil, fmt.Errorf("%w: match chunks: %v", core.ErrPersistence, err)
	}
	return hits, nil
}

func (s *SearchService) ListDocuments(ctx context.Context) ([]models.Document, error) {
	return s.db.ListDocuments(ctx, documentListLimit)
}

func (s *SearchService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: expected one query vector, got %d", core.ErrEmbeddingBackend, len(vecs))
	}
	return vecs[0], nil
}
