package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"csv-rag-service/internal/ai"
	"csv-rag-service/internal/config"
	"csv-rag-service/internal/logger"
	"csv-rag-service/internal/vectorstore"
	"csv-rag-service/services"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/vectordb <command> [args]")
		fmt.Println("Commands:")
		fmt.Println("  stats                 - Show collections and chunk count")
		fmt.Println("  ingest <file>         - Index a CSV or XLSX file without the HTTP server")
		fmt.Println("  query <text> [k]      - Print the k closest chunks for text")
		os.Exit(1)
	}

	command := os.Args[1]

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	ctx := context.Background()

	embedder, err := ai.NewEmbedder(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("Failed to initialize embeddings: %v", err)
	}
	if c, ok := embedder.(io.Closer); ok {
		defer c.Close()
	}

	store, err := vectorstore.Open(ctx, cfg.VectorDBPath, cfg.CollectionName, embedder)
	if err != nil {
		log.Fatalf("Failed to open vector store: %v", err)
	}
	defer store.Close()

	switch command {
	case "stats":
		if err := printStats(ctx, store); err != nil {
			log.Fatalf("Stats failed: %v", err)
		}

	case "ingest":
		if len(os.Args) < 3 {
			log.Fatal("ingest requires a file path")
		}
		path := os.Args[2]
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", path, err)
		}
		n, err := services.NewIngestionService(store, cfg.IngestBatch, nil).Ingest(ctx, data, filepath.Base(path))
		if err != nil {
			log.Fatalf("Ingestion failed: %v", err)
		}
		fmt.Printf("Indexed %d chunks from %s\n", n, path)

	case "query":
		if len(os.Args) < 3 {
			log.Fatal("query requires text")
		}
		k := cfg.RetrievalTopK
		if len(os.Args) > 3 {
			if k, err = strconv.Atoi(os.Args[3]); err != nil {
				log.Fatalf("Invalid k %q: %v", os.Args[3], err)
			}
		}
		res, err := store.Query(ctx, os.Args[2], k)
		if err != nil {
			log.Fatalf("Query failed: %v", err)
		}
		for i, c := range res.Chunks {
			fmt.Printf("%d. [%.4f] %s (row %d of %s)\n", i+1, c.Distance, c.Text, c.Metadata.RowIndex, c.Metadata.Source)
		}

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func printStats(ctx context.Context, store *vectorstore.SQLiteStore) error {
	names, err := store.ListCollections(ctx)
	if err != nil {
		return err
	}
	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Collections (%d): %s\n", len(names), strings.Join(names, ", "))
	fmt.Printf("Chunks in %s: %d\n", store.Collection(), count)
	return nil
}
