package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caoscope/caoscope/internal/app"
	"github.com/caoscope/caoscope/internal/config"
	"github.com/caoscope/caoscope/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "caoscope-etl",
	Short: "Batch pipeline for CAO PDF ingestion and embedding",
	Long: `Runs the offline side of caoscope: uploading scraped CAO PDFs into
object storage and turning unprocessed documents into embedded,
page-annotated chunks in the vector store.`,
	SilenceUsage: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Upload local PDFs and register their document rows",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			n, err := a.Ingestor.Run(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Ingested %d document(s).\n", n)
			return nil
		})
	},
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Chunk, embed and persist unprocessed documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			n, err := a.Processor.Run(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Wrote %d chunk(s).\n", n)
			return nil
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest then process in one go",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			docs, err := a.Ingestor.Run(ctx)
			if err != nil {
				return err
			}
			chunks, err := a.Processor.Run(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Ingested %d document(s), wrote %d chunk(s).\n", docs, chunks)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(runCmd)
}

// withApp builds the full application, runs fn, and tears down cleanly.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = zlog.Sync() }()

	a, err := app.New(ctx, cfg, zlog)
	if err != nil {
		zlog.Error("startup failed", zap.Error(err))
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
