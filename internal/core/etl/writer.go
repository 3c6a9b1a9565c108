package etl

import (
	"context"
	"fmt"

	"github.com/caoscope/caoscope/internal/core"
	"github.com/caoscope/caoscope/internal/models"
)

// ChunkWriter persists chunk rows in bounded batches and flips documents to
// processed. It never retries: the idempotent chunk key means the orchestrator
// can simply re-run a failed document later.
type ChunkWriter struct {
	db        core.DbClient
	batchSize int
}

func NewChunkWriter(db core.DbClient, batchSize int) (*ChunkWriter, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: upsert batch size must be positive, got %d", core.ErrInvalidConfiguration, batchSize)
	}
	return &ChunkWriter{db: db, batchSize: batchSize}, nil
}

// Upsert partitions rows into consecutive slices of the batch size and issues
// one upsert call per slice. Slices are independent writes; a failure in one
// does not roll back earlier slices, and the partial progress survives a
// later retry because rows are keyed on chunk_id.
func (w *ChunkWriter) Upsert(ctx context.Context, rows []models.Chunk) error {
	for i := 0; i < len(rows); i += w.batchSize {
		end := min(i+w.batchSize, len(rows))
		if err := w.db.UpsertChunks(ctx, rows[i:end]); err != nil {
			return fmt.Errorf("%w: upsert chunks [%d:%d): %v", core.ErrPersistence, i, end, err)
		}
	}
	return nil
}

func (w *ChunkWriter) MarkProcessed(ctx context.Context, caoID string) error {
	if err := w.db.MarkProcessed(ctx, caoID); err != nil {
		return fmt.Errorf("%w: mark processed %s: %v", core.ErrPersistence, caoID, err)
	}
	return nil
}
