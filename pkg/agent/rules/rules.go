// Package rules holds the keyword, lexicon and pattern tables that drive
// intent classification, topic detection and reference extraction. The
// tables are plain data so they can be tested in isolation and swapped per
// locale without touching the cascade logic that consumes them.
package rules

import "regexp"

// TopicRule maps a topic name to its trigger keywords. Order matters: the
// first rule whose keywords match wins.
type TopicRule struct {
	Name     string
	Keywords []string
}

// Language bundles the per-locale lexicons. Portuguese and English are the
// two catalog locales.
type Language struct {
	// Phrases that indicate the user refers back to already shown books.
	ReferringBack []string
	// Refine/compare words that upgrade a continuation to a boosted search.
	RefineCompare []string
	// Phrases that are never book titles.
	StopPhrases []string
	// Short function words; a candidate title made only of these is rejected.
	CommonShortWords []string
	// Messages matching any of these are always general library requests.
	GeneralRequest []*regexp.Regexp
	// Words that introduce a title span in free text.
	TitleIndicators []string
	// Words that terminate a title span.
	TitleTerminators []string
}

// Rules is the full rule set consumed by the analyzer, the retrieval engine
// and the reference resolver.
type Rules struct {
	CareerKeywords  []string
	GenreKeywords   []string
	RequestKeywords []string
	AuthorKeywords  []string
	KnownAuthors    []string
	ClosingKeywords []string

	// Ordered topic table; ties broken by position.
	Topics []TopicRule

	// Canonical genre -> localized/synonym catalog values.
	GenreSynonyms map[string][]string

	Languages map[string]Language
}

// Lang returns the lexicon for code, falling back to English.
func (r *Rules) Lang(code string) Language {
	if l, ok := r.Languages[code]; ok {
		return l
	}
	return r.Languages["en"]
}

// Default returns the built-in bilingual rule set.
func Default() *Rules {
	return &Rules{
		CareerKeywords: []string{
			"promovido", "promoção", "carreira", "liderança", "líder", "gestor", "gerente",
			"promoted", "promotion", "career", "leadership", "leader", "manager",
		},
		GenreKeywords: []string{
			"fantasia", "fantasy", "ficção científica", "sci-fi", "science fiction",
			"romance", "terror", "horror", "mistério", "mystery", "suspense",
			"história", "history", "biografia", "biography", "autoajuda", "self-help",
			"negócios", "business", "ciência", "science", "tecnologia", "technology",
		},
		RequestKeywords: []string{
			"recomende", "recomenda", "recomendação", "sugestão", "sugere", "indica",
			"livro", "livros",
			"recommend", "recommendation", "suggestion", "suggest", "book", "books",
		},
		AuthorKeywords: []string{
			"autor", "autora", "writer", "author", "escritor", "escritora",
			"livros de", "obras de", "books by",
		},
		KnownAuthors: []string{
			"j.k. rowling", "jk rowling", "stephen king", "george orwell",
			"agatha christie", "j.r.r. tolkien", "dan brown", "paulo coelho",
			"suzanne collins", "veronica roth", "rick riordan",
		},
		ClosingKeywords: []string{
			"obrigado", "obrigada", "valeu", "thank you", "thanks", "bye", "tchau",
			"até logo", "goodbye", "adeus",
		},
		Topics: []TopicRule{
			{Name: "programming", Keywords: []string{
				"python", "java", "javascript", "c++", "programming", "coding",
				"software", "algorithm", "data structure", "web development",
				"programação", "programacao", "código", "codigo", "algoritmo",
			}},
			{Name: "data_science", Keywords: []string{
				"data science", "machine learning", "artificial intelligence",
				"data analysis", "statistics", "big data",
				"ciência de dados", "ciencia de dados", "aprendizado de máquina",
				"inteligência artificial", "inteligencia artificial",
			}},
			{Name: "physics", Keywords: []string{
				"physics", "física", "fisica", "mechanics", "quantum", "relativity",
				"thermodynamics", "optics", "mecânica", "mecanica", "óptica", "optica",
			}},
			{Name: "mathematics", Keywords: []string{
				"mathematics", "math", "calculus", "algebra", "geometry",
				"probability", "matemática", "matematica", "cálculo", "calculo", "álgebra",
			}},
			{Name: "leadership", Keywords: []string{
				"leadership", "management", "team", "lead", "manager",
				"liderança", "lideranca", "gestão", "gestao", "chefia", "equipe",
			}},
			{Name: "business", Keywords: []string{
				"business", "entrepreneurship", "marketing", "finance", "economics",
				"negócios", "negocios", "empreendedorismo", "finanças",
			}},
			{Name: "fiction", Keywords: []string{
				"fiction", "novel", "story", "fantasy", "science fiction", "romance",
				"ficção", "ficcao", "fantasia", "ficção científica",
			}},
			{Name: "self_help", Keywords: []string{
				"self help", "self-help", "personal development", "motivation",
				"autoajuda", "auto-ajuda", "desenvolvimento pessoal", "motivação",
			}},
		},
		GenreSynonyms: map[string][]string{
			"fantasia":          {"fantasia", "fantasy"},
			"ficção científica": {"ficção científica", "science fiction", "sci-fi", "scifi", "ficcao cientifica"},
			"romance":           {"romance", "romantic"},
			"terror":            {"terror", "horror"},
			"mistério":          {"mistério", "mystery", "suspense"},
			"história":          {"história", "history", "historical", "historia"},
			"biografia":         {"biografia", "biography"},
			"autoajuda":         {"autoajuda", "self-help", "self help"},
			"negócios":          {"negócios", "business"},
			"ciência":           {"ciência", "science"},
			"tecnologia":        {"tecnologia", "technology"},
			"culinária":         {"culinária", "culinaria", "cooking", "gastronomy"},
			"poesia":            {"poesia", "poetry"},
			"drama":             {"drama", "dramatic"},
			"comédia":           {"comédia", "comedia", "comedy"},
		},
		Languages: map[string]Language{
			"pt": {
				ReferringBack: []string{
					"algum dos", "alguma das", "os livros", "as recomendações",
					"já recomendados", "que você recomendou", "anteriores",
					"desse", "dessa", "aquele", "esse",
				},
				RefineCompare: []string{"melhor", "mais", "recomenda", "indica", "sugere"},
				StopPhrases: []string{
					"me recomenda", "recomenda", "quais", "livros",
					"tenho interesse", "gostaria", "para estudar",
					"qual o contexto", "em relação aos",
					"para iniciantes", "tem livros",
					"mudando de assunto", "gostaria de estudar",
					"tem disponível", "tem disponivel", "disponível",
					"da saga", "esse livro", "este livro", "aquele livro",
					"o livro", "os livros", "queria saber", "poderia me dizer",
					"você tem", "você conhece", "qual seria", "quais são", "quais seriam",
				},
				CommonShortWords: []string{
					"qual", "que", "como", "onde", "quando", "porque", "para", "com",
					"sem", "em", "de", "e", "ou", "a", "o", "os", "as", "um", "uma",
				},
				GeneralRequest: compile(
					`me\s+recomenda[dr]?\s+livros?`,
					`quais\s+livros`,
					`tenho\s+interesse\s+em`,
					`gostaria\s+de\s+(?:estudar|aprender|saber)`,
					`para\s+estudar`,
					`livros\s+(?:para|sobre|de)`,
					`tem\s+livros`,
					`buscar\s+livros`,
					`procurar\s+livros`,
					`preciso\s+de\s+livros`,
					`mudando\s+de\s+assunto`,
					`qual\s+o\s+contexto`,
					`em\s+relação\s+aos`,
					`da\s+saga`,
					`para\s+iniciantes`,
				),
				TitleIndicators:  []string{"livro", "obra", "romance", "conto", "novela", "título", "chamado", "intitulado"},
				TitleTerminators: []string{"é", "foi", "tem", "possui", "do autor", "escrito", "publicado"},
			},
			"en": {
				ReferringBack: []string{
					"any of the", "the books", "the recommendations",
					"already recommended", "that you recommended", "previous",
					"that one", "this one",
				},
				RefineCompare: []string{"best", "better", "more", "recommend", "suggest"},
				StopPhrases: []string{
					"recommend", "recommends", "which", "books",
					"i have interest", "i would like", "to study",
					"what is the context", "in relation to",
					"for beginners", "are there books",
					"changing subject", "available",
					"from the saga", "this book", "that book", "the book",
					"a book", "the books", "i wanted to know", "could you tell me",
					"do you have", "do you know", "what would be", "what are",
				},
				CommonShortWords: []string{
					"what", "which", "how", "where", "when", "why", "for", "with",
					"without", "in", "of", "and", "or", "a", "an", "the",
				},
				GeneralRequest: compile(
					`recommend\s+(?:me\s+)?books?`,
					`which\s+books`,
					`i\s+have\s+interest\s+in`,
					`i\s+would\s+like\s+to\s+(?:study|learn|know)`,
					`to\s+study`,
					`books\s+(?:for|about|on)`,
					`are\s+there\s+books`,
					`search\s+for\s+books`,
					`look\s+for\s+books`,
					`i\s+need\s+books`,
					`changing\s+subject`,
					`what\s+is\s+the\s+context`,
					`in\s+relation\s+to`,
					`from\s+the\s+saga`,
					`for\s+beginners`,
				),
				TitleIndicators:  []string{"book", "novel", "story", "tale", "title", "called", "named", "titled"},
				TitleTerminators: []string{"is", "was", "has", "by", "written", "published", "author"},
			},
		},
	}
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}
