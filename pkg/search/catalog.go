package search

import (
	"encoding/json"
	"fmt"
	"os"

	"book-agent-be/pkg/store"
)

// Book is one catalog row. Characters only exists for a subset of the
// dataset and is empty elsewhere.
type Book struct {
	ID          int      `json:"book_id"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Genres      []string `json:"genres"`
	Characters  []string `json:"characters,omitempty"`
	Rating      float64  `json:"rating"`
	NumRatings  int      `json:"num_ratings"`
	Description string   `json:"description"`
}

// Ref projects the catalog row into the wire shape with the given
// retrieval method and score attached.
func (b Book) Ref(method string, score float64) store.BookRef {
	return store.BookRef{
		BookID:          b.ID,
		Title:           b.Title,
		Authors:         b.Authors,
		Genres:          b.Genres,
		Rating:          b.Rating,
		NumRatings:      b.NumRatings,
		Description:     b.Description,
		SimilarityScore: score,
		SearchMethod:    method,
	}
}

// Catalog is the in-memory book dataset. Loaded once at startup,
// read-only afterwards.
type Catalog struct {
	books []Book
	byID  map[int]int // book id -> index into books
}

func NewCatalog(books []Book) *Catalog {
	c := &Catalog{
		books: books,
		byID:  make(map[int]int, len(books)),
	}
	for i, b := range books {
		if _, ok := c.byID[b.ID]; !ok {
			c.byID[b.ID] = i
		}
	}
	return c
}

// LoadCatalog reads a JSON array of catalog rows from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var books []Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(books), nil
}

func (c *Catalog) Len() int {
	return len(c.books)
}

func (c *Catalog) All() []Book {
	return c.books
}

func (c *Catalog) ByID(id int) (Book, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Book{}, false
	}
	return c.books[i], true
}
