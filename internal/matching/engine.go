package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/tsiory/mpanampy/internal/knowledge"
	"github.com/tsiory/mpanampy/internal/locale"
)

const (
	// An entry is only returned when its score is strictly above this.
	matchThreshold = 5

	keywordPoints     = 10
	questionHitPoints = 3
	commonWordPoints  = 2

	// Tokens of 2 runes or fewer carry no signal and are discarded.
	minTokenRunes = 3
)

// Engine ranks knowledge base entries against free-text queries.
// Scoring is pure; the engine holds only the immutable corpus.
type Engine struct {
	corpus *knowledge.Corpus
}

// NewEngine wraps a corpus. A nil corpus is valid and never matches.
func NewEngine(corpus *knowledge.Corpus) *Engine {
	return &Engine{corpus: corpus}
}

// Score computes the confidence that entry answers query:
//   - +10 per entry keyword appearing as a case-insensitive substring
//     of the query;
//   - +3 per query token (length > 2) appearing as a substring of the
//     entry question;
//   - +2 per distinct token shared between query and question, applied
//     only when more than one token is shared.
func Score(query string, entry knowledge.Entry) int {
	lowered := strings.ToLower(query)
	queryWords := tokenize(lowered)

	score := 0
	for _, kw := range entry.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lowered, kw) {
			score += keywordPoints
		}
	}

	loweredQuestion := strings.ToLower(entry.Question)
	for _, w := range queryWords {
		if strings.Contains(loweredQuestion, w) {
			score += questionHitPoints
		}
	}

	questionWords := make(map[string]struct{})
	for _, w := range tokenize(loweredQuestion) {
		questionWords[w] = struct{}{}
	}
	common := 0
	seen := make(map[string]struct{})
	for _, w := range queryWords {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := questionWords[w]; ok {
			common++
		}
	}
	if common > 1 {
		score += commonWordPoints * common
	}

	return score
}

// BestMatch returns the highest-scoring entry of the requested language
// whose score exceeds the threshold. Ties keep the entry seen first in
// corpus order; consumers rely on that ordering, so it must not change.
// An empty query, an unloaded corpus, or no candidate above threshold
// all report no match.
func (e *Engine) BestMatch(query string, lang locale.Language) (knowledge.Entry, int, bool) {
	var best knowledge.Entry
	bestScore := 0
	found := false

	for _, entry := range e.corpus.EntriesFor(lang) {
		s := Score(query, entry)
		if s > bestScore {
			best = entry
			bestScore = s
			found = true
		}
	}

	if !found || bestScore <= matchThreshold {
		return knowledge.Entry{}, bestScore, false
	}
	return best, bestScore, true
}

func tokenize(lowered string) []string {
	fields := strings.Fields(lowered)
	words := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenRunes {
			words = append(words, f)
		}
	}
	return words
}
