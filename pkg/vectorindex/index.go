package vectorindex

import (
	"context"
	"errors"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
)

var ErrDimensionMismatch = errors.New("vectorindex: query dimension does not match index dimension")

// Hit is a single nearest-neighbour result. Distance is the L2 distance
// between the query and the stored vector, smaller is closer.
type Hit struct {
	ID       int
	Distance float64
}

// Index answers k-nearest-neighbour queries over embedding vectors.
type Index interface {
	Search(ctx context.Context, vector []float64, k int) ([]Hit, error)
	Len() int
}

// MemoryIndex is a brute-force index holding all vectors in memory. Suits
// catalogs up to a few hundred thousand entries; swap for an ANN backend
// behind the same interface beyond that.
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	ids     []int
	vectors [][]float64
	scratch sync.Pool
}

func NewMemoryIndex(dim int) *MemoryIndex {
	idx := &MemoryIndex{dim: dim}
	idx.scratch.New = func() interface{} {
		buf := make([]float64, dim)
		return &buf
	}
	return idx
}

// Add registers a vector under id. Vectors shorter or longer than the
// index dimension are rejected.
func (m *MemoryIndex) Add(id int, vector []float64) error {
	if len(vector) != m.dim {
		return ErrDimensionMismatch
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, id)
	m.vectors = append(m.vectors, vector)
	return nil
}

func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

func (m *MemoryIndex) Search(ctx context.Context, vector []float64, k int) ([]Hit, error) {
	if len(vector) != m.dim {
		return nil, ErrDimensionMismatch
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}

	diff := *(m.scratch.Get().(*[]float64))
	defer m.scratch.Put(&diff)

	hits := make([]Hit, len(m.ids))
	for i, v := range m.vectors {
		floats.SubTo(diff, vector, v)
		hits[i] = Hit{ID: m.ids[i], Distance: floats.Norm(diff, 2)}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}
