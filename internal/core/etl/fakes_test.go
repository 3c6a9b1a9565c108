package etl

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/caoscope/caoscope/internal/core"
	"github.com/caoscope/caoscope/internal/core/pdftext"
	"github.com/caoscope/caoscope/internal/models"
)

type fakeDB struct {
	candidates []models.Document

	upsertedDocs []models.Document
	chunkCalls   [][]models.Chunk
	processed    []string
	upsertErr    error
	markErr      error
	chunksByID   map[string]models.Chunk
}

func newFakeDB(candidates ...models.Document) *fakeDB {
	return &fakeDB{candidates: candidates, chunksByID: map[string]models.Chunk{}}
}

func (f *fakeDB) UpsertDocuments(_ context.Context, docs []models.Document) error {
	f.upsertedDocs = append(f.upsertedDocs, docs...)
	return nil
}

func (f *fakeDB) ListDocumentsToProcess(_ context.Context, _ bool, limit int) ([]models.Document, error) {
	if limit < len(f.candidates) {
		return f.candidates[:limit], nil
	}
	return f.candidates, nil
}

func (f *fakeDB) ListDocuments(_ context.Context, _ int) ([]models.Document, error) {
	return f.candidates, nil
}

func (f *fakeDB) MarkProcessed(_ context.Context, caoID string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.processed = append(f.processed, caoID)
	return nil
}

func (f *fakeDB) UpsertChunks(_ context.Context, chunks []models.Chunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	batch := make([]models.Chunk, len(chunks))
	copy(batch, chunks)
	f.chunkCalls = append(f.chunkCalls, batch)
	for _, ch := range batch {
		f.chunksByID[ch.ID] = ch
	}
	return nil
}

func (f *fakeDB) CountChunks(_ context.Context, _ string) (int, error) { return len(f.chunksByID), nil }

func (f *fakeDB) PreviewChunks(_ context.Context, _ string, _ int) ([]models.Chunk, error) {
	return nil, nil
}

func (f *fakeDB) MatchChunks(_ context.Context, _ []float32, _ int, _ *string) ([]models.SearchHit, error) {
	return nil, nil
}

func (f *fakeDB) Close() error { return nil }

var _ core.DbClient = (*fakeDB)(nil)

type fakeStore struct {
	objects  map[string][]byte
	uploads  []string
	fetchErr error
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (f *fakeStore) key(bucket, key string) string { return bucket + "/" + key }

func (f *fakeStore) Fetch(_ context.Context, bucket, key string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	data, ok := f.objects[f.key(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("%w: missing object %s/%s", core.ErrStorageFetch, bucket, key)
	}
	return data, nil
}

func (f *fakeStore) Upload(_ context.Context, bucket, key string, data []byte, _ string) error {
	f.objects[f.key(bucket, key)] = data
	f.uploads = append(f.uploads, f.key(bucket, key))
	return nil
}

func (f *fakeStore) Delete(_ context.Context, bucket, key string) error {
	delete(f.objects, f.key(bucket, key))
	return nil
}

var _ core.ObjectClient = (*fakeStore)(nil)

// fakeExtractor pretends the stored bytes split into the configured pages.
type fakeExtractor struct {
	pages []string
	err   error
}

func (f fakeExtractor) ExtractTextWithPageMap(_ []byte) (string, []pdftext.PageSpan, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	flat, spans := pdftext.BuildPageMap(f.pages)
	return flat, spans, nil
}

// fakeEmbedder returns a deterministic hash-derived vector per text and can
// be told to fail the first failN calls.
type fakeEmbedder struct {
	calls int
	failN int
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failN {
		return nil, errors.New("embedding backend unavailable")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		sum := sha256.Sum256([]byte(t))
		vec := make([]float32, 4)
		for j := range vec {
			vec[j] = float32(sum[j])
		}
		out[i] = vec
	}
	return out, nil
}

var _ core.EmbeddingProvider = (*fakeEmbedder)(nil)
