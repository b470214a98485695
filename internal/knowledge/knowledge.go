package knowledge

import (
	"github.com/tsiory/mpanampy/internal/locale"
)

// Entry is one curated question/answer record. Entries are immutable
// once loaded; an entry only matches queries in its own language.
type Entry struct {
	ID       string          `json:"id"`
	Question string          `json:"question"`
	Answer   string          `json:"answer"`
	Keywords []string        `json:"keywords"`
	Language locale.Language `json:"language"`
	Category string          `json:"category"`
}

// Corpus holds the loaded knowledge base, preserving document order.
// Match candidates are always iterated in that order.
type Corpus struct {
	entries []Entry
	byLang  map[locale.Language][]Entry
}

// NewCorpus builds a corpus from entries, keeping the given order.
// A nil or empty slice yields a valid corpus that matches nothing.
func NewCorpus(entries []Entry) *Corpus {
	c := &Corpus{
		entries: append([]Entry(nil), entries...),
		byLang:  make(map[locale.Language][]Entry),
	}
	for _, e := range c.entries {
		c.byLang[e.Language] = append(c.byLang[e.Language], e)
	}
	return c
}

// EntriesFor returns the match candidates for a language in document order.
// Callers must not mutate the returned slice.
func (c *Corpus) EntriesFor(lang locale.Language) []Entry {
	if c == nil {
		return nil
	}
	return c.byLang[lang]
}

// Len reports the total number of entries across all languages.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}
