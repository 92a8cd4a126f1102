package vectorindex

import (
	"encoding/json"
	"fmt"
	"os"
)

type vectorRow struct {
	BookID int       `json:"book_id"`
	Vector []float64 `json:"vector"`
}

// LoadJSON builds a memory index from a precomputed embeddings artifact:
// a JSON array of {book_id, vector} rows. Rows with the wrong dimension
// are rejected, not skipped, so a bad artifact fails loudly at startup.
func LoadJSON(path string, dim int) (*MemoryIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}

	var rows []vectorRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse vectors: %w", err)
	}

	idx := NewMemoryIndex(dim)
	for i, row := range rows {
		if err := idx.Add(row.BookID, row.Vector); err != nil {
			return nil, fmt.Errorf("vector row %d (book %d): %w", i, row.BookID, err)
		}
	}
	return idx, nil
}
