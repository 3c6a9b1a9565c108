package etl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/caoscope/caoscope/internal/core"
	"github.com/caoscope/caoscope/internal/core/pdftext"
	"github.com/caoscope/caoscope/internal/models"
)

// ProcessConfig tunes one processing run.
//
// ChunkChars:      rune window per chunk.
// EmbedBatch:      chunk texts per embedding request.
// UpsertBatch:     chunk rows per store write; the in-memory buffer flushes
//                  as soon as it holds three batches, bounding peak memory
//                  for very large documents.
// EmbedDim:        expected vector dimensionality; vectors of any other size
//                  would be rejected by the store's vector column, so they
//                  are refused before the write.
// SleepPerBatch:   pause after each embedding request, for rate limits.
// Limit:           maximum documents per run.
// OnlyUnprocessed: restrict the candidate set to processed_at IS NULL.
// ContinueOnError: whether the batch driver keeps going past a failed
//                  document or aborts the run.
type ProcessConfig struct {
	ChunkChars      int
	EmbedBatch      int
	UpsertBatch     int
	EmbedDim        int
	SleepPerBatch   time.Duration
	Limit           int
	OnlyUnprocessed bool
	ContinueOnError bool
}

func (c ProcessConfig) validate() error {
	if c.ChunkChars <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrInvalidConfiguration, c.ChunkChars)
	}
	if c.EmbedBatch <= 0 {
		return fmt.Errorf("%w: embed batch size must be positive, got %d", core.ErrInvalidConfiguration, c.EmbedBatch)
	}
	if c.UpsertBatch <= 0 {
		return fmt.Errorf("%w: upsert batch size must be positive, got %d", core.ErrInvalidConfiguration, c.UpsertBatch)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive, got %d", core.ErrInvalidConfiguration, c.EmbedDim)
	}
	return nil
}

// TextExtractor is the PDF extraction backend boundary.
type TextExtractor interface {
	ExtractTextWithPageMap(data []byte) (string, []pdftext.PageSpan, error)
}

// Processor drives documents end to end: fetch, extract, chunk, resolve
// pages, embed in batches, flush periodically, mark processed. Everything is
// strictly sequential; the only suspension points are the network calls and
// the deliberate throttle sleep.
type Processor struct {
	db        core.DbClient
	store     core.ObjectClient
	extractor TextExtractor
	embedder  core.EmbeddingProvider
	writer    *ChunkWriter
	cfg       ProcessConfig
	log       *zap.Logger
	sleep     func(time.Duration)
}

func NewProcessor(db core.DbClient, store core.ObjectClient, extractor TextExtractor, embedder core.EmbeddingProvider, cfg ProcessConfig, log *zap.Logger) (*Processor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	writer, err := NewChunkWriter(db, cfg.UpsertBatch)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		db:        db,
		store:     store,
		extractor: extractor,
		embedder:  embedder,
		writer:    writer,
		cfg:       cfg,
		log:       log,
		sleep:     time.Sleep,
	}, nil
}

// Run fetches the candidate set and processes each document in order.
// Returns the total chunk count written. When ContinueOnError is unset, the
// first failed document aborts the run; either way a failed document keeps a
// null processed_at and is picked up again by the next run.
func (p *Processor) Run(ctx context.Context) (int, error) {
	docs, err := p.db.ListDocumentsToProcess(ctx, p.cfg.OnlyUnprocessed, p.cfg.Limit)
	if err != nil {
		return 0, fmt.Errorf("%w: list documents: %v", core.ErrPersistence, err)
	}
	if len(docs) == 0 {
		p.log.Info("no documents to process")
		return 0, nil
	}

	total := 0
	for i := range docs {
		n, err := p.ProcessOne(ctx, docs[i])
		if err != nil {
			if !p.cfg.ContinueOnError {
				return total, err
			}
			p.log.Error("document failed, continuing",
				zap.String("cao_id", docs[i].ID),
				zap.Error(err))
			continue
		}
		total += n
	}
	return total, nil
}

// ProcessOne runs the per-document state machine and returns the chunk count.
// On failure the document's processed_at stays null, so re-running is safe:
// chunk identifiers are a deterministic function of document and position,
// and upserts converge to the same rows.
func (p *Processor) ProcessOne(ctx context.Context, doc models.Document) (int, error) {
	log := p.log.With(zap.String("cao_id", doc.ID))
	log.Info("processing document",
		zap.String("cao_name", doc.Name),
		zap.String("bucket", doc.StorageBucket),
		zap.String("path", doc.StoragePath))

	data, err := p.store.Fetch(ctx, doc.StorageBucket, doc.StoragePath)
	if err != nil {
		return 0, err
	}

	flat, spans, err := p.extractor.ExtractTextWithPageMap(data)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(flat) == "" {
		log.Warn("empty extracted text")
		return 0, p.writer.MarkProcessed(ctx, doc.ID)
	}

	chunks, err := pdftext.ChunkText(flat, p.cfg.ChunkChars)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		return 0, p.writer.MarkProcessed(ctx, doc.ID)
	}

	var rows []models.Chunk
	flushAt := 3 * p.cfg.UpsertBatch

	for base := 0; base < len(chunks); base += p.cfg.EmbedBatch {
		end := min(base+p.cfg.EmbedBatch, len(chunks))
		batch := chunks[base:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Content
		}
		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return 0, err
		}
		for i, vec := range vectors {
			if len(vec) != p.cfg.EmbedDim {
				return 0, fmt.Errorf("%w: chunk %d: got a %d-dimensional vector, store expects %d",
					core.ErrEmbeddingBackend, base+i, len(vec), p.cfg.EmbedDim)
			}
		}

		for i := range batch {
			index := base + i
			pageStart, pageEnd := pdftext.PagesForChunk(spans, batch[i].Start, batch[i].End)
			rows = append(rows, models.Chunk{
				ID:         ChunkID(doc.ID, index),
				DocumentID: doc.ID,
				Index:      index,
				Content:    batch[i].Content,
				Embedding:  vectors[i],
				PageStart:  pageStart,
				PageEnd:    pageEnd,
				CharStart:  batch[i].Start,
				CharEnd:    batch[i].End,
			})
		}

		if p.cfg.SleepPerBatch > 0 {
			p.sleep(p.cfg.SleepPerBatch)
		}

		if len(rows) >= flushAt {
			if err := p.writer.Upsert(ctx, rows); err != nil {
				return 0, err
			}
			rows = rows[:0]
		}
	}

	if len(rows) > 0 {
		if err := p.writer.Upsert(ctx, rows); err != nil {
			return 0, err
		}
	}

	if err := p.writer.MarkProcessed(ctx, doc.ID); err != nil {
		return 0, err
	}

	log.Info("document processed", zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// ChunkID is the idempotency key: stable across re-runs of the same document
// with the same chunking parameters.
func ChunkID(caoID string, index int) string {
	return fmt.Sprintf("%s::%d", caoID, index)
}
