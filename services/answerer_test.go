package services

import (
	"context"
	"errors"
	"testing"

	"csv-rag-service/internal/ai"
	"csv-rag-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	calls int
	last  ai.CompletionRequest
	resp  *ai.Completion
	err   error
}

func (s *stubCompleter) Complete(_ context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type failingRetriever struct{}

func (failingRetriever) Query(context.Context, string, int) (*models.QueryResult, error) {
	return nil, errors.New("database is locked")
}

func TestAsk_BlankQuestion(t *testing.T) {
	completer := &stubCompleter{}
	svc := NewAnswerService(&memStore{}, completer, 0)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := svc.Ask(context.Background(), q)
		assert.ErrorIs(t, err, models.ErrEmptyQuestion)
	}
	assert.Zero(t, completer.calls)
}

func TestAsk_EmptyStoreReturnsSentinel(t *testing.T) {
	completer := &stubCompleter{}
	svc := NewAnswerService(&memStore{}, completer, 0)

	ans, err := svc.Ask(context.Background(), "who lives in London?")
	require.NoError(t, err)
	assert.Equal(t, NoInformationAnswer, ans.Text)
	assert.Equal(t, []string{}, ans.Context)
	assert.Zero(t, completer.calls)
}

func TestAsk_BuildsPromptFromContext(t *testing.T) {
	store := &memStore{}
	ctx := context.Background()
	_, err := NewIngestionService(store, 0, nil).Ingest(ctx, []byte("name,age,city\nAda,36,London\nBob,41,Paris\n"), "people.csv")
	require.NoError(t, err)

	completer := &stubCompleter{resp: &ai.Completion{Text: "Ada lives in London.", Attempts: 1}}
	ans, err := NewAnswerService(store, completer, 0).Ask(ctx, "Who lives in London?")
	require.NoError(t, err)

	assert.Equal(t, "Ada lives in London.", ans.Text)
	assert.Equal(t, []string{"Ada | 36 | London", "Bob | 41 | Paris"}, ans.Context)

	require.Equal(t, 1, completer.calls)
	assert.Equal(t, "You are a helpful assistant. Use the context to answer accurately.", completer.last.System)
	assert.Equal(t, "Context:\nAda | 36 | London\nBob | 41 | Paris\n\nQuestion: Who lives in London?", completer.last.User)
	assert.InDelta(t, 0.3, completer.last.Temperature, 1e-9)
	assert.Equal(t, ans.Context, completer.last.ContextChunks)
}

func TestAsk_TopKLimitsContext(t *testing.T) {
	store := &memStore{}
	_, err := NewIngestionService(store, 0, nil).Ingest(context.Background(), csvWithRows(20), "f.csv")
	require.NoError(t, err)

	completer := &stubCompleter{resp: &ai.Completion{Text: "ok"}}
	ans, err := NewAnswerService(store, completer, 0).Ask(context.Background(), "row?")
	require.NoError(t, err)
	assert.Len(t, ans.Context, RetrievalTopK)
}

func TestAsk_PropagatesErrors(t *testing.T) {
	_, err := NewAnswerService(failingRetriever{}, &stubCompleter{}, 0).Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")

	store := &memStore{docs: []string{"Ada | 36"}, ids: []string{"a"}, metas: []models.ChunkMetadata{{}}}
	upstream := &models.UpstreamError{StatusCode: 429, Body: "slow down"}
	_, err = NewAnswerService(store, &stubCompleter{err: upstream}, 0).Ask(context.Background(), "q")

	var upErr *models.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, 429, upErr.StatusCode)
}

func TestAsk_DegradedAnswerIsSuccess(t *testing.T) {
	store := &memStore{docs: []string{"Ada | 36"}, ids: []string{"a"}, metas: []models.ChunkMetadata{{}}}
	completer := &stubCompleter{resp: &ai.Completion{Text: ai.DegradedAnswer([]string{"Ada | 36"}), Degraded: true, Attempts: 3}}

	ans, err := NewAnswerService(store, completer, 0).Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "- Ada")
	assert.Equal(t, []string{"Ada | 36"}, ans.Context)
}
