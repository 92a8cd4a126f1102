// Package resolver turns free-text mentions of books into concrete catalog
// entries. Parsing classifies the message and extracts an id or candidate
// title; resolution matches the candidate against the session's last shown
// books and then the catalog.
package resolver

import (
	"regexp"
	"strconv"
	"strings"

	"book-agent-be/pkg/agent/rules"
)

// Reference kinds produced by Parse.
const (
	RefNone  = "none"
	RefID    = "id"
	RefTitle = "title"
)

// Reference is one extracted book mention.
type Reference struct {
	Kind  string
	ID    int
	Title string
}

var (
	idPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bid\s*[:#]?\s*(\d{1,10})\b`),
		regexp.MustCompile(`(?i)\b(?:book|livro)\s*#\s*(\d{1,10})\b`),
		regexp.MustCompile(`(?i)\b(?:book|livro)\b[^\d]{0,20}\b(\d{4,10})\b`),
	}
	doubleQuoted = regexp.MustCompile(`"([^"]{2,120})"`)
	singleQuoted = regexp.MustCompile(`'([^']{2,120})'`)
	calledTitle  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:the\s+book|book)\s+(?:called|named|titled)\s+(.{2,80})$`),
		regexp.MustCompile(`(?i)\b(?:o\s+livro|livro)\s+(?:chamado|intitulado)\s+(.{2,80})$`),
	}
)

// Parser extracts book references from messages using the per-language
// lexicons.
type Parser struct {
	rules *rules.Rules
}

func NewParser(r *rules.Rules) *Parser {
	if r == nil {
		r = rules.Default()
	}
	return &Parser{rules: r}
}

// Parse classifies the message and extracts at most one reference.
// Malformed input never errors; it degrades to RefNone.
func (p *Parser) Parse(message, lang string) Reference {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reference{Kind: RefNone}
	}

	lex := p.rules.Lang(lang)

	// General library requests ("recommend me books about X") are never
	// references to a specific book, even when they would match a title
	// heuristic below.
	for _, re := range lex.GeneralRequest {
		if re.MatchString(message) {
			return Reference{Kind: RefNone}
		}
	}

	if id, ok := extractID(message); ok {
		return Reference{Kind: RefID, ID: id}
	}

	if title, ok := p.extractTitle(message, lex); ok {
		return Reference{Kind: RefTitle, Title: title}
	}

	return Reference{Kind: RefNone}
}

// DetectAll extracts every distinct reference in the message, first-seen
// order. Used for comparison questions ("X vs Y").
func (p *Parser) DetectAll(message, lang string) []Reference {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}

	lex := p.rules.Lang(lang)
	for _, re := range lex.GeneralRequest {
		if re.MatchString(message) {
			return nil
		}
	}

	var refs []Reference
	seen := make(map[string]bool)
	add := func(r Reference) {
		key := r.Kind + "|" + strconv.Itoa(r.ID) + "|" + strings.ToLower(r.Title)
		if !seen[key] {
			seen[key] = true
			refs = append(refs, r)
		}
	}

	for _, re := range idPatterns {
		for _, m := range re.FindAllStringSubmatch(message, -1) {
			if id, err := strconv.Atoi(m[1]); err == nil {
				add(Reference{Kind: RefID, ID: id})
			}
		}
	}
	for _, re := range []*regexp.Regexp{doubleQuoted, singleQuoted} {
		for _, m := range re.FindAllStringSubmatch(message, -1) {
			if title, ok := p.acceptTitle(m[1], lex); ok {
				add(Reference{Kind: RefTitle, Title: title})
			}
		}
	}
	if len(refs) == 0 {
		if ref := p.Parse(message, lang); ref.Kind != RefNone {
			add(ref)
		}
	}
	return refs
}

func extractID(message string) (int, bool) {
	for _, re := range idPatterns {
		if m := re.FindStringSubmatch(message); m != nil {
			if id, err := strconv.Atoi(m[1]); err == nil {
				return id, true
			}
		}
	}
	return 0, false
}

// extractTitle tries the extraction sources in priority order: double
// quotes, single quotes, "book called X" patterns, then the
// indicator/terminator span heuristic.
func (p *Parser) extractTitle(message string, lex rules.Language) (string, bool) {
	if m := doubleQuoted.FindStringSubmatch(message); m != nil {
		if title, ok := p.acceptTitle(m[1], lex); ok {
			return title, true
		}
	}
	if m := singleQuoted.FindStringSubmatch(message); m != nil {
		if title, ok := p.acceptTitle(m[1], lex); ok {
			return title, true
		}
	}
	for _, re := range calledTitle {
		if m := re.FindStringSubmatch(message); m != nil {
			if title, ok := p.acceptTitle(strings.Trim(m[1], ` ."?!`), lex); ok {
				return title, true
			}
		}
	}
	if title, ok := p.spanAfterIndicator(message, lex); ok {
		return title, true
	}
	return "", false
}

// spanAfterIndicator takes the words following a title indicator ("the book
// X is...") up to the first terminator word.
func (p *Parser) spanAfterIndicator(message string, lex rules.Language) (string, bool) {
	words := strings.Fields(message)
	for i, w := range words {
		if !containsFold(lex.TitleIndicators, strings.Trim(w, ".,!?")) {
			continue
		}
		var span []string
		for _, next := range words[i+1:] {
			clean := strings.Trim(next, ".,!?\"'")
			if containsFold(lex.TitleTerminators, clean) {
				break
			}
			span = append(span, clean)
			if len(span) == 6 {
				break
			}
		}
		if len(span) == 0 {
			continue
		}
		if title, ok := p.acceptTitle(strings.Join(span, " "), lex); ok {
			return title, true
		}
	}
	return "", false
}

// acceptTitle applies the rejection rules: minimum length, stop phrases,
// and candidates made only of common short words.
func (p *Parser) acceptTitle(candidate string, lex rules.Language) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if len([]rune(candidate)) < 4 {
		return "", false
	}

	lower := strings.ToLower(candidate)
	for _, stop := range lex.StopPhrases {
		if lower == stop || strings.HasPrefix(lower, stop+" ") {
			return "", false
		}
	}

	tokens := strings.Fields(lower)
	if len(tokens) <= 3 {
		allCommon := true
		for _, t := range tokens {
			if !containsFold(lex.CommonShortWords, t) {
				allCommon = false
				break
			}
		}
		if allCommon {
			return "", false
		}
	}
	return candidate, true
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
