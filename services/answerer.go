package services

import (
	"context"
	"fmt"
	"strings"

	"csv-rag-service/internal/ai"
	"csv-rag-service/internal/logger"
	"csv-rag-service/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// RetrievalTopK is the number of chunks used as context.
	RetrievalTopK = 5

	NoInformationAnswer = "No information related to this question was found in the database."

	answerSystemPrompt = "You are a helpful assistant. Use the context to answer accurately."
	answerTemperature  = 0.3
)

// ChunkRetriever finds the chunks closest to a question.
type ChunkRetriever interface {
	Query(ctx context.Context, text string, k int) (*models.QueryResult, error)
}

// Completer produces a chat completion.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error)
}

// AnswerService answers questions from retrieved rows.
type AnswerService struct {
	retriever ChunkRetriever
	completer Completer
	topK      int
}

func NewAnswerService(retriever ChunkRetriever, completer Completer, topK int) *AnswerService {
	if topK <= 0 {
		topK = RetrievalTopK
	}
	return &AnswerService{retriever: retriever, completer: completer, topK: topK}
}

// Ask retrieves context for question and asks the completion API. An empty
// store is not an error: it yields NoInformationAnswer with no context.
func (s *AnswerService) Ask(ctx context.Context, question string) (*models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, models.ErrEmptyQuestion
	}

	tracer := otel.Tracer("answer-service")
	ctx, span := tracer.Start(ctx, "answer.ask")
	defer span.End()

	logger.InfoContext(ctx, "Question received", "question_length", len(question))

	result, err := s.retriever.Query(ctx, question, s.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}
	span.SetAttributes(attribute.Int("answer.context_chunks", result.Len()))

	if result.Len() == 0 {
		return &models.Answer{Text: NoInformationAnswer, Context: []string{}}, nil
	}

	chunks := result.Texts()
	logger.InfoContext(ctx, "Found context chunks", "count", len(chunks))

	completion, err := s.completer.Complete(ctx, ai.CompletionRequest{
		System:        answerSystemPrompt,
		User:          BuildUserPrompt(chunks, question),
		Temperature:   answerTemperature,
		ContextChunks: chunks,
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("answer.degraded", completion.Degraded))

	return &models.Answer{Text: completion.Text, Context: chunks}, nil
}

// BuildUserPrompt joins the chunks with newlines and appends the question.
func BuildUserPrompt(chunks []string, question string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", strings.Join(chunks, "\n"), question)
}
