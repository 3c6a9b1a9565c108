package etl

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caoscope/caoscope/internal/core"
	"github.com/caoscope/caoscope/internal/models"
)

const uploadConcurrency = 4

// Ingestor uploads locally scraped CAO PDFs and upserts their document rows.
// Document identity is the slug of the CAO name, so re-running an ingest
// refreshes metadata instead of creating duplicates.
type Ingestor struct {
	db           core.DbClient
	store        core.ObjectClient
	bucket       string
	dataDir      string
	manifestPath string
	log          *zap.Logger
}

func NewIngestor(db core.DbClient, store core.ObjectClient, bucket, dataDir, manifestPath string, log *zap.Logger) *Ingestor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ingestor{db: db, store: store, bucket: bucket, dataDir: dataDir, manifestPath: manifestPath, log: log}
}

// Run ingests every manifest entry (or, without a manifest, every local PDF).
// Uploads fan out with bounded concurrency; the document upsert is one batch
// at the end. Returns the number of documents ingested.
func (i *Ingestor) Run(ctx context.Context) (int, error) {
	if _, err := os.Stat(i.dataDir); err != nil {
		i.log.Warn("data directory missing, nothing to ingest", zap.String("dir", i.dataDir))
		return 0, nil
	}

	entries, err := ReadManifest(i.manifestPath)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		entries, err = listLocalPDFs(i.dataDir)
		if err != nil {
			return 0, err
		}
	}

	now := time.Now().UTC()

	// Each goroutine fills its own manifest slot, so the result order is the
	// manifest order no matter how the uploads interleave.
	slots := make([]*models.Document, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for idx, entry := range entries {
		if entry.FileName == "" {
			continue
		}
		filePath := filepath.Join(i.dataDir, entry.FileName)
		if _, err := os.Stat(filePath); err != nil {
			i.log.Warn("manifest entry has no local file, skipping", zap.String("file", entry.FileName))
			continue
		}

		g.Go(func() error {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("read %s: %w", filePath, err)
			}

			caoName := entry.CaoName
			if caoName == "" {
				caoName = strings.TrimSuffix(entry.FileName, filepath.Ext(entry.FileName))
			}
			caoID := Slugify(caoName)
			storagePath := path.Join(caoID, entry.FileName)

			if err := i.store.Upload(gctx, i.bucket, storagePath, data, "application/pdf"); err != nil {
				return err
			}

			sum := sha256.Sum256(data)
			slots[idx] = &models.Document{
				ID:            caoID,
				Name:          caoName,
				SourceURL:     entry.SourceURL,
				StorageBucket: i.bucket,
				StoragePath:   storagePath,
				FileSHA256:    hex.EncodeToString(sum[:]),
				FileBytes:     int64(len(data)),
				IngestedAt:    now,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	rows := dedupeBySlug(slots)
	if len(rows) > 0 {
		if err := i.db.UpsertDocuments(ctx, rows); err != nil {
			return 0, fmt.Errorf("%w: upsert documents: %v", core.ErrPersistence, err)
		}
	}

	i.log.Info("ingest complete", zap.Int("documents", len(rows)))
	return len(rows), nil
}

// dedupeBySlug compacts the positional slots into rows ordered by manifest
// position. When two entries slugify to the same document id, the later
// manifest line wins, matching a sequential last-write-wins upsert.
func dedupeBySlug(slots []*models.Document) []models.Document {
	last := make(map[string]int, len(slots))
	for idx, doc := range slots {
		if doc != nil {
			last[doc.ID] = idx
		}
	}
	rows := make([]models.Document, 0, len(last))
	for idx, doc := range slots {
		if doc != nil && last[doc.ID] == idx {
			rows = append(rows, *doc)
		}
	}
	return rows
}

// ReadManifest parses the scraper's JSONL manifest. A missing file is not an
// error; malformed lines and entries without a file name are skipped.
func ReadManifest(path string) ([]models.ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var entries []models.ManifestEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry models.ManifestEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return entries, nil
}

func listLocalPDFs(dataDir string) ([]models.ManifestEntry, error) {
	dirEntries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dataDir, err)
	}
	var entries []models.ManifestEntry
	for _, e := range dirEntries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		name := e.Name()
		entries = append(entries, models.ManifestEntry{
			FileName: name,
			CaoName:  strings.TrimSuffix(name, filepath.Ext(name)),
		})
	}
	return entries, nil
}

// Slugify turns a CAO display name into its document identifier. Letters and
// digits are kept lowercased; separators collapse to single hyphens.
func Slugify(value string) string {
	var b strings.Builder
	for _, ch := range strings.ToLower(value) {
		switch {
		case unicode.IsLetter(ch) || unicode.IsDigit(ch):
			b.WriteRune(ch)
		case ch == '-' || ch == '_' || ch == ' ':
			b.WriteRune('-')
		}
	}
	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "cao"
	}
	return slug
}
