package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"csv-rag-service/internal/ai"
	"csv-rag-service/models"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// DefaultTopK is used when Query is called with k <= 0.
const DefaultTopK = 5

// SQLiteStore is a persistent similarity-search collection. Chunks and their
// embeddings live in SQLite; queries embed the text and rank every chunk of
// the collection by cosine distance.
type SQLiteStore struct {
	db         *sql.DB
	collection string
	embedder   ai.Embedder

	mu  sync.Mutex
	dim int
}

// Open opens (creating if needed) the database at path and gets or creates
// the named collection. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path, collection string, embedder ai.Embedder) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("vectorstore: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open %s: %w", path, err)
	}
	// One connection serialises writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("vectorstore: pragma: %w", err)
	}

	store, err := NewSQLiteStore(ctx, db, collection, embedder)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an already opened database.
func NewSQLiteStore(ctx context.Context, db *sql.DB, collection string, embedder ai.Embedder) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("vectorstore: db is nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("vectorstore: embedder is nil")
	}
	if collection == "" {
		return nil, fmt.Errorf("vectorstore: collection name is empty")
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("vectorstore: ensure schema: %w", err)
	}

	s := &SQLiteStore{db: db, collection: collection, embedder: embedder}
	if err := s.getOrCreateCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// dimensioner is implemented by embedders whose vector size is fixed before
// the first call.
type dimensioner interface {
	Dimension() int
}

func (s *SQLiteStore) getOrCreateCollection(ctx context.Context) error {
	known := 0
	if d, ok := s.embedder.(dimensioner); ok {
		known = d.Dimension()
	}

	var fn string
	var dim int
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding_function, dimension FROM collections WHERE name = ?`, s.collection,
	).Scan(&fn, &dim)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO collections(name, embedding_function, dimension, created_at) VALUES(?, ?, ?, ?)`,
			s.collection, s.embedder.Name(), known, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("vectorstore: create collection %q: %w", s.collection, err)
		}
		s.dim = known
		return nil
	case err != nil:
		return fmt.Errorf("vectorstore: load collection %q: %w", s.collection, err)
	}

	if fn != s.embedder.Name() {
		return fmt.Errorf("vectorstore: collection %q was created with embedding function %q, configured %q",
			s.collection, fn, s.embedder.Name())
	}
	if known != 0 && dim != 0 && known != dim {
		return fmt.Errorf("vectorstore: collection %q stores %d-dimensional vectors, embedder produces %d",
			s.collection, dim, known)
	}
	s.dim = dim
	if s.dim == 0 {
		s.dim = known
	}
	return nil
}

// Collection returns the collection name.
func (s *SQLiteStore) Collection() string { return s.collection }

// Add embeds documents and appends them to the collection in one
// transaction. The three slices must have equal length. Duplicate ids fail
// the whole call.
func (s *SQLiteStore) Add(ctx context.Context, documents []string, metadatas []models.ChunkMetadata, ids []string) error {
	if len(documents) != len(metadatas) || len(documents) != len(ids) {
		return fmt.Errorf("vectorstore: length mismatch: %d documents, %d metadatas, %d ids",
			len(documents), len(metadatas), len(ids))
	}
	if len(documents) == 0 {
		return nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, documents)
	if err != nil {
		return fmt.Errorf("vectorstore: embed documents: %w", err)
	}
	if len(vectors) != len(documents) {
		return fmt.Errorf("vectorstore: embedder returned %d vectors for %d documents", len(vectors), len(documents))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dim
	for i, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("vectorstore: vector %d has dimension %d, collection uses %d", i, len(v), dim)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE collections SET dimension = ? WHERE name = ? AND dimension = 0`, dim, s.collection); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embeddings(id, collection, document, metadata, embedding) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range documents {
		meta, err := json.Marshal(metadatas[i])
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, ids[i], s.collection, documents[i], string(meta), packVector(vectors[i])); err != nil {
			return fmt.Errorf("vectorstore: insert %s: %w", ids[i], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.dim = dim
	return nil
}

type storedChunk struct {
	chunk     models.RetrievedChunk
	embedding []float32
}

// Query returns up to k chunks ranked by cosine distance to the embedding of
// text. An empty collection yields an empty result.
func (s *SQLiteStore) Query(ctx context.Context, text string, k int) (*models.QueryResult, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document, metadata, embedding FROM embeddings WHERE collection = ? ORDER BY seq`, s.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stored []storedChunk
	for rows.Next() {
		var (
			sc   storedChunk
			meta string
			blob []byte
		)
		if err := rows.Scan(&sc.chunk.ID, &sc.chunk.Text, &meta, &blob); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &sc.chunk.Metadata); err != nil {
			return nil, fmt.Errorf("vectorstore: decode metadata of %s: %w", sc.chunk.ID, err)
		}
		if sc.embedding, err = unpackVector(blob); err != nil {
			return nil, err
		}
		stored = append(stored, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &models.QueryResult{Chunks: []models.RetrievedChunk{}}
	if len(stored) == 0 {
		return result, nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("vectorstore: embedder returned %d vectors for the query", len(vectors))
	}

	for i := range stored {
		d, err := cosineDistance(vectors[0], stored[i].embedding)
		if err != nil {
			return nil, err
		}
		stored[i].chunk.Distance = d
	}
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].chunk.Distance < stored[j].chunk.Distance })

	if k > len(stored) {
		k = len(stored)
	}
	for _, sc := range stored[:k] {
		result.Chunks = append(result.Chunks, sc.chunk)
	}
	return result, nil
}

// Count returns the number of chunks in the collection.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings WHERE collection = ?`, s.collection).Scan(&n)
	return n, err
}

// ListCollections returns the names of all collections in the database.
func (s *SQLiteStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
