package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/univera/campuschat/internal/config"
	"github.com/univera/campuschat/internal/database"
	"github.com/univera/campuschat/internal/extract"
	"github.com/univera/campuschat/internal/openai"
	"github.com/univera/campuschat/internal/repository"
	"github.com/univera/campuschat/internal/service"
	"github.com/univera/campuschat/internal/storage"
)

func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage uploaded documents",
		Long:  "Add, list and remove documents from the knowledge base",
	}

	cmd.AddCommand(DocsAddCmd())
	cmd.AddCommand(DocsListCmd())
	cmd.AddCommand(DocsRmCmd())
	cmd.AddCommand(DocsStatsCmd())

	return cmd
}

func DocsAddCmd() *cobra.Command {
	var (
		title       string
		description string
		category    string
	)

	cmd := &cobra.Command{
		Use:   "add <file.pdf>",
		Short: "Upload a PDF document",
		Long:  "Upload a PDF document and queue it for indexing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runDocsAdd(args[0], title, description, category, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringVar(&title, "title", "", "Display title (defaults to the filename)")
	cmd.Flags().StringVar(&description, "description", "", "Document description")
	cmd.Flags().StringVar(&category, "category", "", "Document category")

	return cmd
}

func runDocsAdd(path, title, description, category, outputFormat string) error {
	ctx := context.Background()

	env, err := newDocsEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	doc, err := env.docSvc.Upload(ctx, service.UploadDocumentInput{
		Filename:    filepath.Base(path),
		ContentType: "application/pdf",
		Size:        info.Size(),
		Content:     f,
		Title:       title,
		Description: description,
		Category:    category,
	})
	if err != nil {
		return fmt.Errorf("failed to upload document: %w", err)
	}

	if outputFormat == "json" {
		printJSON(map[string]interface{}{
			"id":       doc.ID,
			"filename": doc.OriginalFilename,
			"status":   string(doc.Status),
		})
	} else {
		fmt.Printf("Document queued for indexing: %s (%s)\n", doc.OriginalFilename, doc.ID)
	}

	return nil
}

func DocsListCmd() *cobra.Command {
	var (
		limit    int
		cursor   string
		category string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Long:  "List uploaded documents, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runDocsList(outputFormat, limit, cursor, category)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category")

	return cmd
}

func runDocsList(outputFormat string, limit int, cursor, category string) error {
	ctx := context.Background()

	env, err := newDocsEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.docSvc.List(ctx, service.ListDocumentsInput{
		Limit:    limit,
		Cursor:   cursor,
		Category: category,
	})
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if outputFormat == "json" {
		items := make([]map[string]interface{}, len(result.Items))
		for i, doc := range result.Items {
			items[i] = map[string]interface{}{
				"id":          doc.ID,
				"filename":    doc.OriginalFilename,
				"title":       doc.Title,
				"category":    doc.Category,
				"status":      string(doc.Status),
				"chunk_count": doc.ChunkCount,
				"uploaded_at": doc.UploadedAt,
			}
		}
		printJSON(map[string]interface{}{
			"items":    items,
			"cursor":   result.Cursor,
			"has_more": result.HasMore,
		})
	} else {
		for _, doc := range result.Items {
			fmt.Printf("%s  %-12s  %4d chunks  %s\n", doc.ID, doc.Status, doc.ChunkCount, doc.OriginalFilename)
		}
		if result.HasMore {
			fmt.Printf("more results: --cursor %s\n", result.Cursor)
		}
	}

	return nil
}

func DocsRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a document",
		Long:  "Remove a document, its stored file and its index entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runDocsRm(args[0], outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runDocsRm(id, outputFormat string) error {
	ctx := context.Background()

	env, err := newDocsEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.docSvc.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if outputFormat == "json" {
		printJSON(map[string]interface{}{"id": id, "status": "deleted"})
	} else {
		fmt.Printf("Document deleted: %s\n", id)
	}

	return nil
}

func DocsStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			return runDocsStats(outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runDocsStats(outputFormat string) error {
	ctx := context.Background()

	env, err := newDocsEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	stats, err := env.docSvc.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if outputFormat == "json" {
		printJSON(map[string]interface{}{
			"total_documents": stats.TotalDocuments,
			"processed":       stats.Processed,
			"processing":      stats.Processing,
			"unprocessed":     stats.Unprocessed,
			"failed":          stats.Failed,
			"total_chunks":    stats.TotalChunks,
		})
	} else {
		fmt.Printf("documents: %d (processed %d, processing %d, unprocessed %d, failed %d)\n",
			stats.TotalDocuments, stats.Processed, stats.Processing, stats.Unprocessed, stats.Failed)
		fmt.Printf("chunks:    %d\n", stats.TotalChunks)
	}

	return nil
}

// docsEnv wires the document service against the live database and object
// store for admin commands. The embedding client is only exercised by the
// ingest worker, so commands here work without an API key.
type docsEnv struct {
	pool   *pgxpool.Pool
	docSvc *service.DocumentService
}

func newDocsEnv(ctx context.Context) (*docsEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	docRepo := repository.NewDocumentRepository(pool)
	chunkIndex := repository.NewChunkIndexRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var store service.ObjectStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		store = s3Client
	} else {
		localStore, err := storage.NewLocalStore(cfg.UploadFolder)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create upload folder: %w", err)
		}
		store = localStore
	}

	retrievalSvc, err := service.NewRetrievalService(
		extract.NewPDFExtractor(),
		openai.NewClient(cfg.OpenAIAPIKey),
		chunkIndex,
		docRepo,
		service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
		cfg.TopK,
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create retrieval service: %w", err)
	}

	return &docsEnv{
		pool:   pool,
		docSvc: service.NewDocumentService(docRepo, store, retrievalSvc, txRunner),
	}, nil
}

func (e *docsEnv) Close() {
	e.pool.Close()
}

func printJSON(data map[string]interface{}) {
	jsonBytes, _ := json.MarshalIndent(data, "", "  ")
	fmt.Println(string(jsonBytes))
}
