package services

import (
	"context"
	"fmt"
	"time"

	"csv-rag-service/internal/logger"
	"csv-rag-service/internal/telemetry"
	"csv-rag-service/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultBatchSize is the number of chunks written per store call.
const DefaultBatchSize = 500

// ChunkWriter persists chunks. Implemented by the vector store.
type ChunkWriter interface {
	Add(ctx context.Context, documents []string, metadatas []models.ChunkMetadata, ids []string) error
}

// IngestionService turns an uploaded table into chunks and writes them in
// batches.
type IngestionService struct {
	store     ChunkWriter
	batchSize int
	metrics   *telemetry.Metrics
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(store ChunkWriter, batchSize int, metrics *telemetry.Metrics) *IngestionService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &IngestionService{
		store:     store,
		batchSize: batchSize,
		metrics:   metrics,
	}
}

// Ingest parses data, chunks every row and writes the chunks. Batches
// already written stay written when a later batch fails.
func (s *IngestionService) Ingest(ctx context.Context, data []byte, filename string) (int, error) {
	tracer := otel.Tracer("ingestion-service")
	ctx, span := tracer.Start(ctx, "ingestion.ingest")
	defer span.End()

	start := time.Now()
	span.SetAttributes(
		attribute.String("file.name", filename),
		attribute.Int("file.size", len(data)),
	)

	n, err := s.ingest(ctx, data, filename)
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.metrics.RecordIngest(n, time.Since(start).Seconds(), status)
	span.SetAttributes(attribute.Int("ingest.chunks", n))
	return n, err
}

func (s *IngestionService) ingest(ctx context.Context, data []byte, filename string) (int, error) {
	logger.InfoContext(ctx, "Uploading file", "filename", filename, "bytes", len(data))

	if len(data) == 0 {
		return 0, models.ErrEmptyInput
	}

	table, err := ParseTable(data)
	if err != nil {
		return 0, err
	}
	if len(table.Rows) == 0 || table.Columns() == 0 {
		return 0, models.ErrEmptyDataset
	}
	logger.InfoContext(ctx, "Table parsed", "rows", len(table.Rows), "columns", table.Columns())

	documents := make([]string, 0, len(table.Rows))
	metadatas := make([]models.ChunkMetadata, 0, len(table.Rows))
	ids := make([]string, 0, len(table.Rows))
	for i, row := range table.Rows {
		chunk := ChunkRow(row, i, filename)
		documents = append(documents, chunk.Text)
		metadatas = append(metadatas, chunk.Metadata)
		ids = append(ids, chunk.ID)
	}
	if len(documents) == 0 {
		return 0, models.ErrNoData
	}

	logger.InfoContext(ctx, "Adding chunks to vector store", "chunks", len(documents))

	for i := 0; i < len(documents); i += s.batchSize {
		end := i + s.batchSize
		if end > len(documents) {
			end = len(documents)
		}
		if err := s.store.Add(ctx, documents[i:end], metadatas[i:end], ids[i:end]); err != nil {
			return 0, fmt.Errorf("failed to add batch %d (%d-%d): %w", i/s.batchSize+1, i, end, err)
		}
		logger.InfoContext(ctx, "Batch added", "batch", i/s.batchSize+1, "start", i, "end", end)
	}

	return len(documents), nil
}
