package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/caoscope/caoscope/internal/config"
	"github.com/caoscope/caoscope/internal/core"
	"github.com/caoscope/caoscope/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// UpsertDocuments writes document rows keyed on cao_id. Re-ingesting the same
// slug refreshes metadata; processed_at is left alone so the pipeline still
// knows which documents were already chunked.
func (c *DatabaseClient) UpsertDocuments(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	const q = `
		INSERT INTO cao_documents
			(cao_id, cao_name, source_url, storage_bucket, storage_path, file_sha256, file_bytes, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (cao_id) DO UPDATE SET
			cao_name       = EXCLUDED.cao_name,
			source_url     = EXCLUDED.source_url,
			storage_bucket = EXCLUDED.storage_bucket,
			storage_path   = EXCLUDED.storage_path,
			file_sha256    = EXCLUDED.file_sha256,
			file_bytes     = EXCLUDED.file_bytes,
			ingested_at    = EXCLUDED.ingested_at
	`
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range docs {
		d := &docs[i]
		if _, err := stmt.ExecContext(ctx,
			d.ID, d.Name, d.SourceURL, d.StorageBucket, d.StoragePath, d.FileSHA256, d.FileBytes, d.IngestedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) ListDocumentsToProcess(ctx context.Context, onlyUnprocessed bool, limit int) ([]models.Document, error) {
	q := `
		SELECT cao_id, cao_name, source_url, storage_bucket, storage_path, file_sha256, file_bytes, ingested_at, processed_at
		FROM cao_documents
	`
	if onlyUnprocessed {
		q += ` WHERE processed_at IS NULL`
	}
	q += ` ORDER BY cao_name LIMIT $1`

	return c.queryDocuments(ctx, q, limit)
}

func (c *DatabaseClient) ListDocuments(ctx context.Context, limit int) ([]models.Document, error) {
	const q = `
		SELECT cao_id, cao_name, source_url, storage_bucket, storage_path, file_sha256, file_bytes, ingested_at, processed_at
		FROM cao_documents
		ORDER BY cao_name
		LIMIT $1
	`
	return c.queryDocuments(ctx, q, limit)
}

func (c *DatabaseClient) queryDocuments(ctx context.Context, q string, args ...any) ([]models.Document, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.Name, &d.SourceURL, &d.StorageBucket, &d.StoragePath,
			&d.FileSHA256, &d.FileBytes, &d.IngestedAt, &d.ProcessedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) MarkProcessed(ctx context.Context, caoID string) error {
	const q = `
		UPDATE cao_documents
		SET processed_at = now()
		WHERE cao_id = $1
	`
	res, err := c.db.ExecContext(ctx, q, caoID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", caoID)
	}
	return nil
}

// UpsertChunks writes one batch of chunk rows with insert-or-replace
// semantics keyed on chunk_id. One call is one transaction; the caller
// decides the batch size.
func (c *DatabaseClient) UpsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	const q = `
		INSERT INTO cao_chunks
			(chunk_id, cao_id, chunk_index, chunk_content, embedding, page_start, page_end, char_start, char_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chunk_id) DO UPDATE SET
			chunk_content = EXCLUDED.chunk_content,
			embedding     = EXCLUDED.embedding,
			page_start    = EXCLUDED.page_start,
			page_end      = EXCLUDED.page_end,
			char_start    = EXCLUDED.char_start,
			char_end      = EXCLUDED.char_end
	`
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		vec := pgvector.NewVector(ch.Embedding)
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.Index, ch.Content, vec, ch.PageStart, ch.PageEnd, ch.CharStart, ch.CharEnd,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) CountChunks(ctx context.Context, caoID string) (int, error) {
	const q = `SELECT count(*) FROM cao_chunks WHERE cao_id = $1`
	var n int
	if err := c.db.QueryRowContext(ctx, q, caoID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *DatabaseClient) PreviewChunks(ctx context.Context, caoID string, limit int) ([]models.Chunk, error) {
	const q = `
		SELECT chunk_id, cao_id, chunk_index, chunk_content, page_start, page_end, char_start, char_end
		FROM cao_chunks
		WHERE cao_id = $1
		ORDER BY chunk_index ASC
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, caoID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Chunk
	for rows.Next() {
		var ch models.Chunk
		if err := rows.Scan(
			&ch.ID, &ch.DocumentID, &ch.Index, &ch.Content, &ch.PageStart, &ch.PageEnd, &ch.CharStart, &ch.CharEnd,
		); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// MatchChunks ranks the k nearest chunks to queryVec by cosine distance,
// optionally restricted to one document.
func (c *DatabaseClient) MatchChunks(ctx context.Context, queryVec []float32, k int, caoID *string) ([]models.SearchHit, error) {
	const q = `
		SELECT chunk_id, cao_id, chunk_index, chunk_content, page_start, page_end,
		       1 - (embedding <=> $1) AS similarity
		FROM cao_chunks
		WHERE $2::text IS NULL OR cao_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, vec, caoID, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SearchHit
	for rows.Next() {
		var h models.SearchHit
		if err := rows.Scan(
			&h.ChunkID, &h.DocumentID, &h.Index, &h.Content, &h.PageStart, &h.PageEnd, &h.Similarity,
		); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

var _ core.DbClient = (*DatabaseClient)(nil)
