package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"csv-rag-service/middleware"
	"csv-rag-service/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIngester struct {
	n        int
	err      error
	gotData  []byte
	gotName  string
	received bool
}

func (s *stubIngester) Ingest(_ context.Context, data []byte, filename string) (int, error) {
	s.received = true
	s.gotData = data
	s.gotName = filename
	return s.n, s.err
}

type stubAsker struct {
	answer  *models.Answer
	err     error
	gotQues string
}

func (s *stubAsker) Ask(_ context.Context, q string) (*models.Answer, error) {
	s.gotQues = q
	if s.err != nil {
		return nil, s.err
	}
	if strings.TrimSpace(q) == "" {
		return nil, models.ErrEmptyQuestion
	}
	return s.answer, nil
}

type stubHealth struct {
	count int
	names []string
	err   error
}

func (s *stubHealth) Count(context.Context) (int, error) { return s.count, s.err }

func (s *stubHealth) ListCollections(context.Context) ([]string, error) { return s.names, s.err }

func newTestRouter(ing Ingester, ask Asker, health HealthReporter, maxSize int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestSizeLimit(maxSize))
	SetupRAGRoutes(r, ing, ask, health, maxSize)
	return r
}

func multipartUpload(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRoot(t *testing.T) {
	r := newTestRouter(&stubIngester{}, &stubAsker{}, &stubHealth{}, 1<<20)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, RootMessage, decode(t, w)["message"])
}

func TestUpload_Success(t *testing.T) {
	ing := &stubIngester{n: 2}
	r := newTestRouter(ing, &stubAsker{}, &stubHealth{}, 1<<20)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "file", "people.csv", []byte("name\nAda\nBob\n")))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(2), body["chunks_indexed"])
	assert.Equal(t, "people.csv", ing.gotName)
	assert.Equal(t, "name\nAda\nBob\n", string(ing.gotData))
}

func TestUpload_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{models.ErrEmptyInput, http.StatusBadRequest, "empty_file"},
		{models.ErrEmptyDataset, http.StatusBadRequest, "empty_dataset"},
		{models.ErrUnsupportedFormat, http.StatusBadRequest, "unsupported_format"},
		{models.ErrNoData, http.StatusBadRequest, "no_data"},
		{fmt.Errorf("failed to add batch 2: %w", errors.New("disk full")), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			r := newTestRouter(&stubIngester{err: tc.err}, &stubAsker{}, &stubHealth{}, 1<<20)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, multipartUpload(t, "file", "x.csv", []byte("x")))

			assert.Equal(t, tc.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tc.code, body["error_code"])
		})
	}
}

func TestUpload_MissingFile(t *testing.T) {
	ing := &stubIngester{}
	r := newTestRouter(ing, &stubAsker{}, &stubHealth{}, 1<<20)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "other", "x.csv", []byte("x")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "no_file", decode(t, w)["error_code"])
	assert.False(t, ing.received)
}

func TestUpload_TooLarge(t *testing.T) {
	ing := &stubIngester{}
	r := newTestRouter(ing, &stubAsker{}, &stubHealth{}, 64)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "file", "big.csv", bytes.Repeat([]byte("a,b\n"), 100)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, ing.received)
}

func TestAsk_FormAndJSON(t *testing.T) {
	asker := &stubAsker{answer: &models.Answer{Text: "Ada", Context: []string{"Ada | London"}}}
	r := newTestRouter(&stubIngester{}, asker, &stubHealth{}, 1<<20)

	form := url.Values{"question": {"Who lives in London?"}}
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Ada", body["answer"])
	assert.Equal(t, []any{"Ada | London"}, body["context"])
	assert.Equal(t, "Who lives in London?", asker.gotQues)

	req = httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"json question"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "json question", asker.gotQues)
}

func TestAsk_EmptyContextIsArray(t *testing.T) {
	asker := &stubAsker{answer: &models.Answer{Text: "nothing", Context: []string{}}}
	r := newTestRouter(&stubIngester{}, asker, &stubHealth{}, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"q"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.JSONEq(t, `{"answer":"nothing","context":[]}`, w.Body.String())
}

func TestAsk_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"blank", models.ErrEmptyQuestion, http.StatusBadRequest, "empty_question"},
		{"credential", models.ErrMissingCredential, http.StatusInternalServerError, "missing_credential"},
		{"upstream", &models.UpstreamError{StatusCode: 429, Body: "slow down"}, http.StatusTooManyRequests, "upstream_error"},
		{"transport", &models.TransportError{Attempts: 3, Err: errors.New("EOF")}, http.StatusInternalServerError, "transport_error"},
		{"other", errors.New("database is locked"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&stubIngester{}, &stubAsker{err: tc.err}, &stubHealth{}, 1<<20)
			req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"q"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tc.code, body["error_code"])
			if tc.name == "upstream" {
				assert.Equal(t, map[string]any{"upstream_status": float64(429)}, body["details"])
				assert.Contains(t, body["message"], "slow down")
			}
		})
	}
}

func TestAsk_MissingFieldIsEmptyQuestion(t *testing.T) {
	r := newTestRouter(&stubIngester{}, &stubAsker{}, &stubHealth{}, 1<<20)
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "empty_question", decode(t, w)["error_code"])
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&stubIngester{}, &stubAsker{}, &stubHealth{count: 42, names: []string{"csv_chunks"}}, 1<<20)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","collections_count":1,"collection_items":42}`, w.Body.String())

	r = newTestRouter(&stubIngester{}, &stubAsker{}, &stubHealth{err: errors.New("no such table")}, 1<<20)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", decode(t, w)["status"])
}
