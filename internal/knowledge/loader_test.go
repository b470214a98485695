package knowledge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tsiory/mpanampy/internal/locale"
)

const sampleDoc = `[
	{"id": "faq-1", "question": "Qui est Ali Tawarath ?", "answer": "Ancêtre des Anakara.", "keywords": ["Ali Tawarath"], "language": "fr", "category": "histoire"},
	{"id": "faq-2", "question": "Who is Ali Tawarath?", "answer": "Ancestor of the Anakara.", "keywords": ["Ali Tawarath"], "language": "en", "category": "history"},
	{"id": "bad-1", "question": "", "answer": "orphan", "keywords": [], "language": "fr", "category": ""},
	{"id": "bad-2", "question": "Frage", "answer": "Antwort", "keywords": [], "language": "de", "category": ""}
]`

func TestLoadFromFileSkipsInvalidEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.json")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	corpus, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if corpus.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (invalid entries skipped)", corpus.Len())
	}
	fr := corpus.EntriesFor(locale.French)
	if len(fr) != 1 || fr[0].ID != "faq-1" {
		t.Fatalf("EntriesFor(fr) = %+v, want single faq-1", fr)
	}
	if len(corpus.EntriesFor(locale.Malagasy)) != 0 {
		t.Fatalf("EntriesFor(mg) should be empty")
	}
}

func TestLoadFromHTTPWithWrappedDocument(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"faqs": [{"id": "faq-1", "question": "Q", "answer": "A", "keywords": [], "language": "en", "category": "x"}]}`))
	}))
	defer ts.Close()

	corpus, err := Load(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if corpus.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", corpus.Len())
	}
}

func TestLoadFailures(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("Load() on missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(context.Background(), path); err == nil {
		t.Fatalf("Load() on malformed document should fail")
	}
}

func TestNilCorpusMatchesNothing(t *testing.T) {
	var c *Corpus
	if c.Len() != 0 {
		t.Fatalf("nil corpus Len() = %d, want 0", c.Len())
	}
	if got := c.EntriesFor(locale.French); got != nil {
		t.Fatalf("nil corpus EntriesFor() = %v, want nil", got)
	}
}
