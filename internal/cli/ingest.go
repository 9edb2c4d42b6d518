package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lumenworks/briefbase/internal/chunker"
	"github.com/lumenworks/briefbase/internal/config"
	"github.com/lumenworks/briefbase/internal/database"
	"github.com/lumenworks/briefbase/internal/domain"
	"github.com/lumenworks/briefbase/internal/jobs"
	"github.com/lumenworks/briefbase/internal/openai"
	"github.com/lumenworks/briefbase/internal/repository"
	"github.com/lumenworks/briefbase/internal/service"
)

// IngestCmd returns the ingest command for one-shot document ingestion
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Register and process a document from a local file",
		Long:  "Read a text file, register it as a document, and run chunking and embedding synchronously",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().String("tenant", "", "Tenant ID the document belongs to (required)")
	cmd.Flags().String("name", "", "Document name (defaults to the file name)")
	cmd.Flags().String("type", "document", "Source type: document or transcript")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required to ingest")
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	tenantID, _ := cmd.Flags().GetString("tenant")
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = filepath.Base(path)
	}
	sourceType, _ := cmd.Flags().GetString("type")

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewDocumentChunkRepository(pool)
	jobRepo := repository.NewIngestJobRepository(pool)

	estimator, err := buildEstimator(cfg)
	if err != nil {
		return err
	}

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:    cfg.OpenAIAPIKey,
		Estimator: estimator,
	})

	chunkOpts := chunker.Options{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		Estimator:    estimator,
	}
	transcriptOpts := chunker.TranscriptOptions{
		MaxChunkSize: cfg.ChunkSize,
		OverlapSize:  cfg.ChunkOverlap,
		Estimator:    estimator,
	}

	embeddingSvc := service.NewEmbeddingServiceWithOptions(embeddingClient, docRepo, chunkRepo, chunkOpts, transcriptOpts)
	ingestSvc := service.NewIngestService(docRepo, jobRepo, nil)

	doc, err := ingestSvc.RegisterDocument(ctx, service.RegisterDocumentInput{
		TenantID:   tenantID,
		Name:       name,
		SourceType: domain.SourceType(sourceType),
		Content:    string(content),
	})
	if err != nil {
		return fmt.Errorf("failed to register document: %w", err)
	}
	log.Printf("registered document %s (%s)", doc.ID, doc.Name)

	// Drain the pending job inline instead of waiting for a worker
	processor := jobs.NewIngestWorker(jobRepo, embeddingSvc)
	if err := processor.ProcessJobs(ctx); err != nil {
		return fmt.Errorf("failed to process document: %w", err)
	}

	chunkCount, err := chunkRepo.CountByDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}
	log.Printf("document %s processed into %d chunks", doc.ID, chunkCount)

	return nil
}
