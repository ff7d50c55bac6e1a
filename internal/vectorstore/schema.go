package vectorstore

import (
	"context"
	"database/sql"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY,
    embedding_function TEXT NOT NULL,
    dimension INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS embeddings (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL,
    collection TEXT NOT NULL REFERENCES collections(name),
    document TEXT NOT NULL,
    metadata TEXT NOT NULL,
    embedding BLOB,
    UNIQUE(collection, id)
);
CREATE INDEX IF NOT EXISTS idx_embeddings_collection ON embeddings(collection);
`

// EnsureSchema creates the collections and embeddings tables if they do not
// already exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, storeSchema)
	return err
}
