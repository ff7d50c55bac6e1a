package routes

import (
	"context"
	"errors"
	"io"
	"net/http"

	"csv-rag-service/internal/logger"
	"csv-rag-service/models"
	"csv-rag-service/utils"

	"github.com/gin-gonic/gin"
)

const RootMessage = "CSV RAG API active. Use /upload or /ask endpoints."

// Ingester indexes an uploaded table.
type Ingester interface {
	Ingest(ctx context.Context, data []byte, filename string) (int, error)
}

// Asker answers a question from indexed rows.
type Asker interface {
	Ask(ctx context.Context, question string) (*models.Answer, error)
}

// HealthReporter exposes store statistics.
type HealthReporter interface {
	Count(ctx context.Context) (int, error)
	ListCollections(ctx context.Context) ([]string, error)
}

func SetupRAGRoutes(router *gin.Engine, ingester Ingester, asker Asker, health HealthReporter, maxFileSize int64) {
	router.GET("/", HandleRoot())
	router.POST("/upload", HandleUpload(ingester, maxFileSize))
	router.POST("/ask", HandleAsk(asker))
	router.GET("/health", HandleHealth(health))
}

func HandleRoot() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": RootMessage})
	}
}

// HandleUpload reads the multipart field "file" fully into memory and
// ingests it.
func HandleUpload(ingester Ingester, maxFileSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				utils.RespondWithTooLarge(c, maxFileSize)
				return
			}
			utils.RespondWithBadRequest(c, "no_file", "File not found")
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			utils.RespondWithTooLarge(c, maxFileSize)
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			logger.ErrorContext(c.Request.Context(), "Failed to read uploaded file", "filename", header.Filename, "error", err)
			utils.RespondWithInternalError(c, "internal_error", "Failed to read uploaded file")
			return
		}

		ctx, cancel := utils.WithLongTimeout(c.Request.Context())
		defer cancel()

		n, err := ingester.Ingest(ctx, data, header.Filename)
		if err != nil {
			logger.ErrorContext(c.Request.Context(), "Upload error", "filename", header.Filename, "bytes", len(data), "error", err)
			respondWithIngestError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.UploadResponse{Status: "success", ChunksIndexed: n})
	}
}

func respondWithIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrEmptyInput):
		utils.RespondWithBadRequest(c, "empty_file", "File is empty")
	case errors.Is(err, models.ErrEmptyDataset):
		utils.RespondWithBadRequest(c, "empty_dataset", "Dataset is empty")
	case errors.Is(err, models.ErrUnsupportedFormat):
		utils.RespondWithBadRequest(c, "unsupported_format", "File format not supported. Please upload a valid CSV or Excel file.")
	case errors.Is(err, models.ErrNoData):
		utils.RespondWithBadRequest(c, "no_data", "No data to process found")
	default:
		utils.RespondWithInternalError(c, "internal_error", err.Error())
	}
}

// HandleAsk accepts the question as a form field or a JSON body.
func HandleAsk(asker Asker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AskRequest
		if err := c.ShouldBind(&req); err != nil {
			utils.RespondWithBadRequest(c, "invalid_input", "Invalid request data")
			return
		}

		answer, err := asker.Ask(c.Request.Context(), req.Question)
		if err != nil {
			logger.ErrorContext(c.Request.Context(), "Ask error", "question_length", len(req.Question), "error", err)
			respondWithAskError(c, err)
			return
		}

		c.JSON(http.StatusOK, answer)
	}
}

func respondWithAskError(c *gin.Context, err error) {
	var upstream *models.UpstreamError
	var transport *models.TransportError

	switch {
	case errors.Is(err, models.ErrEmptyQuestion):
		utils.RespondWithBadRequest(c, "empty_question", "Question cannot be empty")
	case errors.Is(err, models.ErrMissingCredential):
		utils.RespondWithInternalError(c, "missing_credential", "GROQ_API_KEY is not defined")
	case errors.As(err, &upstream):
		status := upstream.StatusCode
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		utils.RespondWithError(c, status, "upstream_error",
			"Completion API error: "+upstream.Body,
			gin.H{"upstream_status": upstream.StatusCode})
	case errors.As(err, &transport):
		utils.RespondWithInternalError(c, "transport_error", transport.Error())
	default:
		utils.RespondWithInternalError(c, "internal_error", err.Error())
	}
}

func HandleHealth(health HealthReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		collections, err := health.ListCollections(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Health check failed", "error", err)
			utils.RespondWithInternalError(c, "internal_error", err.Error())
			return
		}
		count, err := health.Count(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Health check failed", "error", err)
			utils.RespondWithInternalError(c, "internal_error", err.Error())
			return
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:           "ok",
			CollectionsCount: len(collections),
			CollectionItems:  count,
		})
	}
}
