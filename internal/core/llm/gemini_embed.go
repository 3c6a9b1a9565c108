package llm

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/caoscope/caoscope/internal/core"
)

const embedAttempts = 3

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
	log       *zap.Logger
	sleep     func(time.Duration)
}

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, log *zap.Logger) (*GeminiEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "text-embedding-004"
	}
	return &GeminiEmbedder{client: cl, modelName: modelName, log: log, sleep: time.Sleep}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// EmbedTexts embeds one batch of texts in a single request, retrying
// transient backend failures. The response preserves input order and length,
// so callers zip vectors back onto chunks positionally.
func (g *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return embedWithRetry(ctx, texts, g.embedBatch, g.sleep, g.log)
}

func (g *GeminiEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	em := g.client.EmbeddingModel(g.modelName)

	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embed: %w", err)
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		out = append(out, e.Values)
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("gemini batch embed: got %d vectors for %d texts", len(out), len(texts))
	}
	return out, nil
}

// embedWithRetry gives the backend three total attempts, waiting
// 1.5^attempt seconds between failures. After the third failure the error is
// surfaced as an embedding backend error; no partial results are returned.
func embedWithRetry(
	ctx context.Context,
	texts []string,
	call func(context.Context, []string) ([][]float32, error),
	sleep func(time.Duration),
	log *zap.Logger,
) ([][]float32, error) {
	var lastErr error
	for attempt := 1; attempt <= embedAttempts; attempt++ {
		vecs, err := call(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if attempt == embedAttempts {
			break
		}
		backoff := time.Duration(math.Pow(1.5, float64(attempt)) * float64(time.Second))
		if log != nil {
			log.Warn("embedding failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		sleep(backoff)
	}
	return nil, fmt.Errorf("%w: %d attempts: %v", core.ErrEmbeddingBackend, embedAttempts, lastErr)
}

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)
