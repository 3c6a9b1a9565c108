package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/caoscope/caoscope/internal/config"
	"github.com/caoscope/caoscope/internal/core"
	db "github.com/caoscope/caoscope/internal/core/database"
	"github.com/caoscope/caoscope/internal/core/etl"
	"github.com/caoscope/caoscope/internal/core/llm"
	"github.com/caoscope/caoscope/internal/core/objectstore"
	"github.com/caoscope/caoscope/internal/core/pdftext"
	"github.com/caoscope/caoscope/internal/services"
)

// App wires configuration, storage, AI providers, the pipeline and the HTTP
// surface together. Construction fails fast: a component that cannot reach
// its backend stops startup instead of limping along.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	DB        core.DbClient
	Store     core.ObjectClient
	Ingestor  *etl.Ingestor
	Processor *etl.Processor
	Server    *Server
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(initCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	log.Info("database ready")

	store, err := objectstore.NewS3Client(initCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}
	log.Info("object store ready", zap.String("bucket", cfg.BucketName))

	embedder, err := llm.NewGeminiEmbedder(initCtx, cfg.AIAPIKey, cfg.EmbedModel, log)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	chat, err := llm.NewGeminiLLM(initCtx, cfg.AIAPIKey, cfg.ChatModel)
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}

	processor, err := etl.NewProcessor(dbClient, store, pdftext.NewExtractor(), embedder, etl.ProcessConfig{
		ChunkChars:      cfg.ChunkChars,
		EmbedBatch:      cfg.EmbedBatch,
		UpsertBatch:     cfg.UpsertBatch,
		EmbedDim:        cfg.EmbedDim,
		SleepPerBatch:   cfg.SleepPerBatch,
		Limit:           cfg.Limit,
		OnlyUnprocessed: cfg.OnlyUnprocessed,
		ContinueOnError: cfg.ContinueOnError,
	}, log)
	if err != nil {
		return nil, err
	}

	ingestor := etl.NewIngestor(dbClient, store, cfg.BucketName, cfg.DataDir, cfg.ManifestPath, log)

	searchSvc := services.NewSearchService(dbClient, embedder)
	ragSvc := services.NewRagService(searchSvc, chat)
	docSvc := services.NewDocumentService(dbClient, store, cfg.BucketName)

	server := NewServer(cfg, searchSvc, ragSvc, docSvc, log)

	return &App{
		Config:    cfg,
		Log:       log,
		DB:        dbClient,
		Store:     store,
		Ingestor:  ingestor,
		Processor: processor,
		Server:    server,
	}, nil
}

func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
