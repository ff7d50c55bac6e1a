package models

// ChunkMetadata is stored alongside every chunk in the vector store.
type ChunkMetadata struct {
	RowIndex int    `json:"row_index"`
	Source   string `json:"source"`
}

// Chunk is one retrievable unit of text derived from a single source row.
type Chunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// RetrievedChunk is a chunk returned by a similarity query, with its cosine
// distance to the query (lower is closer).
type RetrievedChunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
	Distance float64       `json:"distance"`
}

// QueryResult holds retrieved chunks ordered best first.
type QueryResult struct {
	Chunks []RetrievedChunk `json:"chunks"`
}

// Texts returns the chunk texts in rank order.
func (r *QueryResult) Texts() []string {
	if r == nil {
		return []string{}
	}
	out := make([]string, 0, len(r.Chunks))
	for _, c := range r.Chunks {
		out = append(out, c.Text)
	}
	return out
}

// Len returns the number of retrieved chunks.
func (r *QueryResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Chunks)
}
