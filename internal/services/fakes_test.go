package services

import (
	"context"

	"github.com/caoscope/caoscope/internal/core"
	"github.com/caoscope/caoscope/internal/models"
)

// stubDB implements just enough of the store for the service tests.
type stubDB struct {
	docs []models.Document
	hits []models.SearchHit

	upserted   []models.Document
	upsertErr  error
	matchCalls []matchCall
	matchErr   error
}

type matchCall struct {
	k     int
	caoID *string
}

func (s *stubDB) UpsertDocuments(_ context.Context, docs []models.Document) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = append(s.upserted, docs...)
	return nil
}

func (s *stubDB) ListDocumentsToProcess(_ context.Context, _ bool, _ int) ([]models.Document, error) {
	return s.docs, nil
}

func (s *stubDB) ListDocuments(_ context.Context, _ int) ([]models.Document, error) {
	return s.docs, nil
}

func (s *stubDB) MarkProcessed(_ context.Context, _ string) error { return nil }

func (s *stubDB) UpsertChunks(_ context.Context, _ []models.Chunk) error { return nil }

func (s *stubDB) CountChunks(_ context.Context, _ string) (int, error) { return 0, nil }

func (s *stubDB) PreviewChunks(_ context.Context, _ string, _ int) ([]models.Chunk, error) {
	return nil, nil
}

func (s *stubDB) MatchChunks(_ context.Context, _ []float32, k int, caoID *string) ([]models.SearchHit, error) {
	s.matchCalls = append(s.matchCalls, matchCall{k: k, caoID: caoID})
	if s.matchErr != nil {
		return nil, s.matchErr
	}
	return s.hits, nil
}

func (s *stubDB) Close() error { return nil }

var _ core.DbClient = (*stubDB)(nil)

type stubEmbedder struct {
	texts []string
	err   error
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	s.texts = append(s.texts, texts...)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

var _ core.EmbeddingProvider = (*stubEmbedder)(nil)

type stubStore struct {
	objects map[string][]byte
	deleted []string
}

func newStubStore() *stubStore { return &stubStore{objects: map[string][]byte{}} }

func (s *stubStore) Fetch(_ context.Context, bucket, key string) ([]byte, error) {
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, core.ErrStorageFetch
	}
	return data, nil
}

func (s *stubStore) Upload(_ context.Context, bucket, key string, data []byte, _ string) error {
	s.objects[bucket+"/"+key] = data
	return nil
}

func (s *stubStore) Delete(_ context.Context, bucket, key string) error {
	delete(s.objects, bucket+"/"+key)
	s.deleted = append(s.deleted, bucket+"/"+key)
	return nil
}

var _ core.ObjectClient = (*stubStore)(nil)
