package services

import (
	"fmt"
	"strings"

	"csv-rag-service/models"

	"github.com/google/uuid"
)

// ChunkDelimiter separates cell values in a chunk's text.
const ChunkDelimiter = " | "

// Row is one data row of a parsed table. A nil cell is an empty source cell.
type Row []any

// ChunkRow converts one row into a chunk with a fresh random id. The
// delimiter is not escaped inside cell values.
func ChunkRow(row Row, rowIndex int, source string) models.Chunk {
	return models.Chunk{
		ID:   uuid.New().String(),
		Text: RowText(row),
		Metadata: models.ChunkMetadata{
			RowIndex: rowIndex,
			Source:   source,
		},
	}
}

// RowText renders every cell and joins them with ChunkDelimiter.
func RowText(row Row) string {
	values := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		values[i] = fmt.Sprint(v)
	}
	return strings.Join(values, ChunkDelimiter)
}
