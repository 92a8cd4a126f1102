package store

// Search method provenance tags. Every BookRef carries exactly one of these
// so callers can tell which retrieval path produced it.
const (
	MethodSemantic   = "semantic"
	MethodTextual    = "textual"
	MethodGenre      = "genre"
	MethodAuthor     = "author"
	MethodPopularity = "popularity"
	MethodIDLookup   = "id_lookup"
)

// BookRef is the single tagged shape for a catalog book flowing through the
// pipeline: retrieval result, session memory entry and API payload alike.
type BookRef struct {
	BookID          int      `json:"book_id"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Genres          []string `json:"genres"`
	Rating          float64  `json:"rating"`
	NumRatings      int      `json:"num_ratings"`
	Description     string   `json:"description"`
	SimilarityScore float64  `json:"similarity_score"`
	SearchMethod    string   `json:"search_method"`
}

// FirstAuthor returns the leading author or "" when none is known.
func (b BookRef) FirstAuthor() string {
	if len(b.Authors) == 0 {
		return ""
	}
	return b.Authors[0]
}
