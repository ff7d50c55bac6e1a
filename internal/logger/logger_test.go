package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		out = append(out, entry)
	}
	return out
}

func TestHelpersNoopBeforeInit(t *testing.T) {
	Logger = nil
	ctx := WithRequestID(context.Background(), "r-1")
	assert.NotPanics(t, func() {
		Info("x")
		Warn("x")
		Error("x")
		Debug("x")
		InfoContext(ctx, "x")
		ErrorContext(ctx, "x")
	})
}

func TestInitWith_ReleaseModeSkipsDebug(t *testing.T) {
	var buf bytes.Buffer
	initWith(&buf, "release", "csv-rag-service")
	t.Cleanup(func() { Logger = nil })

	Debug("hidden")
	Info("upload processed", "filename", "a.csv", "chunks", 3)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "upload processed", entries[0]["msg"])
	assert.Equal(t, "a.csv", entries[0]["filename"])
	assert.EqualValues(t, 3, entries[0]["chunks"])
	assert.Equal(t, "csv-rag-service", entries[0]["service"])
	assert.NotContains(t, entries[0], "request_id")
}

func TestContextHelpers_TagRequestID(t *testing.T) {
	var buf bytes.Buffer
	initWith(&buf, "release", "")
	t.Cleanup(func() { Logger = nil })

	ctx := WithRequestID(context.Background(), "req-42")
	InfoContext(ctx, "Question received", "question_length", 12)
	Logger.With("stage", "retrieve").WarnContext(ctx, "Found context chunks")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "req-42", entries[0]["request_id"])
	assert.NotContains(t, entries[0], "service")
	assert.Equal(t, "req-42", entries[1]["request_id"])
	assert.Equal(t, "retrieve", entries[1]["stage"])
}

func TestRequestID(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))
	assert.Equal(t, "abc", RequestID(WithRequestID(context.Background(), "abc")))

	ctx := context.Background()
	assert.Equal(t, ctx, WithRequestID(ctx, ""))
}
