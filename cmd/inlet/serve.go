package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/inlet/internal/adapters/driven/config/file"
	ollamaembed "github.com/custodia-labs/inlet/internal/adapters/driven/embedding/ollama"
	ollamallm "github.com/custodia-labs/inlet/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/inlet/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/inlet/internal/adapters/driving/api"
	"github.com/custodia-labs/inlet/internal/connectors"
	"github.com/custodia-labs/inlet/internal/core/services"
	"github.com/custodia-labs/inlet/internal/logger"
	"github.com/custodia-labs/inlet/internal/normalisers"
	"github.com/custodia-labs/inlet/internal/postprocessors/chunker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the indexing service (foreground)",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	fmt.Fprintf(os.Stderr, "inlet version %s\n", version)

	cfg, err := file.Load(cfgPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing storage: %v", err)
		}
	}()
	logger.Info("storage ready at %s", store.Path())

	summarizer := ollamallm.NewSummarizer(ollamallm.Config{
		BaseURL: cfg.Ollama.BaseURL,
		Model:   cfg.Ollama.LLMModel,
	})
	embedder := ollamaembed.NewEmbedder(ollamaembed.Config{
		BaseURL:    cfg.Ollama.BaseURL,
		Model:      cfg.Ollama.EmbeddingModel,
		Dimensions: cfg.Ollama.EmbeddingDimensions,
	})

	// Runs fail per-container when Ollama is down, so a failed ping is
	// a warning rather than a startup error.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := summarizer.Ping(pingCtx); err != nil {
		logger.Warn("ollama not reachable at %s: %v", cfg.Ollama.BaseURL, err)
	} else {
		logger.Info("ollama ready (llm=%s embed=%s)", summarizer.ModelName(), embedder.ModelName())
	}
	cancel()

	assembler := services.NewDocumentAssembler(
		summarizer,
		embedder,
		chunker.New(embedder,
			chunker.WithChunkSize(cfg.Indexing.ChunkSize),
			chunker.WithOverlap(cfg.Indexing.ChunkOverlap),
		),
	)

	runner := services.NewConnectorRunner(
		store.ConnectorStore(),
		store.DocumentStore(),
		store.RunReportStore(),
		connectors.NewFactory(),
		normalisers.NewRegistry(),
		assembler,
		services.WithContainerWorkers(cfg.Indexing.ContainerWorkers),
	)

	dispatcher, err := services.NewRunDispatcher(
		runner,
		store.RunLockStore(),
		services.WithRunWorkers(cfg.Indexing.Workers),
		services.WithRunLockTTL(time.Duration(cfg.Indexing.RunLockTTLMinutes)*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	srv := api.NewServer(
		cfg.Server.Addr,
		services.NewConnectorService(store.ConnectorStore()),
		dispatcher,
		store.RunReportStore(),
	)

	serveErr := srv.ListenAndServe(ctx)

	// Let in-flight runs finish before the store closes.
	logger.Info("waiting for in-flight runs...")
	if err := dispatcher.Close(); err != nil {
		logger.Warn("closing dispatcher: %v", err)
	}

	return serveErr
}
