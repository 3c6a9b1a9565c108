package models

import "time"

// Document is one collective labor agreement (CAO) PDF tracked in the store.
// ID is a slug derived from the human-readable name; re-ingesting the same
// slug upserts the row instead of duplicating it.
type Document struct {
	ID            string     `db:"cao_id" json:"cao_id"`
	Name          string     `db:"cao_name" json:"cao_name"`
	SourceURL     *string    `db:"source_url" json:"source_url,omitempty"`
	StorageBucket string     `db:"storage_bucket" json:"storage_bucket"`
	StoragePath   string     `db:"storage_path" json:"storage_path"`
	FileSHA256    string     `db:"file_sha256" json:"file_sha256"`
	FileBytes     int64      `db:"file_bytes" json:"file_bytes"`
	IngestedAt    time.Time  `db:"ingested_at" json:"ingested_at"`
	ProcessedAt   *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// Chunk is one embedded text window of a document. ID is
// "<cao_id>::<chunk_index>", the idempotency key for upserts: re-processing a
// document with the same chunking parameters rewrites the same rows.
type Chunk struct {
	ID         string    `db:"chunk_id" json:"chunk_id"`
	DocumentID string    `db:"cao_id" json:"cao_id"`
	Index      int       `db:"chunk_index" json:"chunk_index"`
	Content    string    `db:"chunk_content" json:"chunk_content"`
	Embedding  []float32 `db:"embedding" json:"-"`
	PageStart  *int      `db:"page_start" json:"page_start,omitempty"`
	PageEnd    *int      `db:"page_end" json:"page_end,omitempty"`
	CharStart  int       `db:"char_start" json:"char_start"`
	CharEnd    int       `db:"char_end" json:"char_end"`
}

// SearchHit is one ranked row returned by the vector match.
type SearchHit struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"cao_id"`
	Index      int     `json:"chunk_index"`
	Content    string  `json:"chunk_content"`
	PageStart  *int    `json:"page_start,omitempty"`
	PageEnd    *int    `json:"page_end,omitempty"`
	Similarity float64 `json:"similarity"`
}

// ManifestEntry is one line of the scraper's JSONL manifest.
type ManifestEntry struct {
	FileName  string  `json:"file_name"`
	SourceURL *string `json:"source_url"`
	PDFURL    *string `json:"pdf_url"`
	CaoName   string  `json:"cao_name"`
}
