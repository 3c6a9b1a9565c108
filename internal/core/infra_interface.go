package core

import (
	"context"

	"github.com/caoscope/caoscope/internal/models"
)

// DbClient defines all persistence operations the pipeline and services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	// UpsertDocuments writes document rows keyed on cao_id; re-ingesting the
	// same slug updates metadata instead of duplicating the row.
	UpsertDocuments(ctx context.Context, docs []models.Document) error
	// ListDocumentsToProcess returns the candidate set for one pipeline run.
	// onlyUnprocessed restricts to rows whose processed_at is still null.
	ListDocumentsToProcess(ctx context.Context, onlyUnprocessed bool, limit int) ([]models.Document, error)
	ListDocuments(ctx context.Context, limit int) ([]models.Document, error)
	// MarkProcessed sets processed_at to now for one document.
	MarkProcessed(ctx context.Context, caoID string) error

	// UpsertChunks writes one batch of chunk rows keyed on chunk_id with
	// insert-or-replace semantics.
	UpsertChunks(ctx context.Context, chunks []models.Chunk) error
	CountChunks(ctx context.Context, caoID string) (int, error)
	PreviewChunks(ctx context.Context, caoID string, limit int) ([]models.Chunk, error)

	// MatchChunks ranks the k nearest chunks to queryVec, optionally
	// restricted to a single document.
	MatchChunks(ctx context.Context, queryVec []float32, k int, caoID *string) ([]models.SearchHit, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Delete(ctx context.Context, bucket, key string) error
}
