package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/caoscope/caoscope/internal/core"
	"github.com/caoscope/caoscope/internal/core/etl"
	"github.com/caoscope/caoscope/internal/models"
)

// DocumentService covers the document-level surface: listing, chunk
// inspection, and one-off uploads outside the bulk ingest path.
type DocumentService struct {
	db     core.DbClient
	store  core.ObjectClient
	bucket string
}

func NewDocumentService(db core.DbClient, store core.ObjectClient, bucket string) *DocumentService {
	return &DocumentService{db: db, store: store, bucket: bucket}
}

func (s *DocumentService) List(ctx context.Context) ([]models.Document, error) {
	return s.db.ListDocuments(ctx, documentListLimit)
}

func (s *DocumentService) ChunkCount(ctx context.Context, caoID string) (int, error) {
	return s.db.CountChunks(ctx, caoID)
}

func (s *DocumentService) PreviewChunks(ctx context.Context, caoID string, limit int) ([]models.Chunk, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.db.PreviewChunks(ctx, caoID, limit)
}

// Upload stores a single PDF and upserts its document row. The CAO name
// defaults to the file stem; identity is the name's slug, so re-uploading the
// same agreement replaces its metadata.
func (s *DocumentService) Upload(ctx context.Context, fileName, caoName string, data []byte) (*models.Document, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, fmt.Errorf("%w: missing file name", core.ErrInvalidConfiguration)
	}
	if !strings.EqualFold(path.Ext(fileName), ".pdf") {
		return nil, fmt.Errorf("%w: only PDF uploads are accepted, got %q", core.ErrInvalidConfiguration, fileName)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", core.ErrInvalidConfiguration)
	}

	caoName = strings.TrimSpace(caoName)
	if caoName == "" {
		caoName = strings.TrimSuffix(fileName, path.Ext(fileName))
	}
	caoID := etl.Slugify(caoName)
	storagePath := path.Join(caoID, fileName)

	if err := s.store.Upload(ctx, s.bucket, storagePath, data, "application/pdf"); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	doc := models.Document{
		ID:            caoID,
		Name:          caoName,
		StorageBucket: s.bucket,
		StoragePath:   storagePath,
		FileSHA256:    hex.EncodeToString(sum[:]),
		FileBytes:     int64(len(data)),
		IngestedAt:    time.Now().UTC(),
	}
	if err := s.db.UpsertDocuments(ctx, []models.Document{doc}); err != nil {
		// Without its metadata row the object is unreachable; remove it so a
		// failed upload leaves no orphan blob behind.
		_ = s.store.Delete(ctx, s.bucket, storagePath)
		return nil, fmt.Errorf("%w: upsert document: %v", core.ErrPersistence, err)
	}
	return &doc, nil
}
