package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config carries every tunable of the system. Pipeline knobs default to the
// values the batch runs were tuned with; only DATABASE_URL has no default.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`

	AwsAccessKey string `env:"AWS_ACCESS_KEY"`
	AwsSecretKey string `env:"AWS_SECRET_KEY"`
	AwsRegion    string `env:"AWS_REGION" envDefault:"eu-west-1"`
	BucketName   string `env:"BUCKET_NAME" envDefault:"cao-pdfs"`

	AIAPIKey   string `env:"GEMINI_API_KEY"`
	EmbedModel string `env:"EMBED_MODEL" envDefault:"text-embedding-004"`
	// EmbedDim must match what EMBED_MODEL actually returns; it sizes the
	// vector column on first bootstrap and gates every chunk write.
	EmbedDim  int    `env:"EMBED_DIM" envDefault:"768"`
	ChatModel string `env:"CHAT_MODEL" envDefault:"gemini-1.5-flash"`

	ChunkChars      int           `env:"CHUNK_CHARS" envDefault:"500"`
	EmbedBatch      int           `env:"EMBED_BATCH" envDefault:"128"`
	UpsertBatch     int           `env:"UPSERT_BATCH" envDefault:"200"`
	SleepPerBatch   time.Duration `env:"SLEEP_PER_BATCH" envDefault:"200ms"`
	Limit           int           `env:"ETL_LIMIT" envDefault:"10"`
	OnlyUnprocessed bool          `env:"ETL_ONLY_UNPROCESSED" envDefault:"true"`
	ContinueOnError bool          `env:"ETL_CONTINUE_ON_ERROR" envDefault:"false"`

	DataDir      string `env:"DATA_DIR" envDefault:"data-raw"`
	ManifestPath string `env:"MANIFEST_PATH" envDefault:"data-raw/manifest.jsonl"`

	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}
