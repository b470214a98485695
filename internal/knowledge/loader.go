package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tsiory/mpanampy/internal/locale"
)

const fetchTimeout = 10 * time.Second

// document is the on-disk shape of the knowledge base. Both a bare
// array of entries and an object wrapping them under "faqs" are accepted.
type document struct {
	Faqs []Entry `json:"faqs"`
}

// Load reads the knowledge base document from a filesystem path or an
// http(s) URL. Invalid entries are skipped with a log line rather than
// failing the whole load; a hard failure is returned to the caller,
// which is expected to degrade to an empty corpus.
func Load(ctx context.Context, path string) (*Corpus, error) {
	data, err := readDocument(ctx, path)
	if err != nil {
		return nil, err
	}

	entries, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}

	valid := make([]Entry, 0, len(entries))
	for i, e := range entries {
		lang, err := locale.Parse(string(e.Language))
		if err != nil {
			log.Printf("knowledge: skipping entry %d (%s): %v", i, e.ID, err)
			continue
		}
		e.Language = lang
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			log.Printf("knowledge: skipping entry %d (%s): empty question or answer", i, e.ID)
			continue
		}
		valid = append(valid, e)
	}

	return NewCorpus(valid), nil
}

func readDocument(ctx context.Context, path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("knowledge base path is empty")
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, path, nil)
		if err != nil {
			return nil, fmt.Errorf("build knowledge base request: %w", err)
		}
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch knowledge base: %w", err)
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch knowledge base: unexpected status %d", res.StatusCode)
		}
		data, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, fmt.Errorf("read knowledge base response: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base file: %w", err)
	}
	return data, nil
}

func parseDocument(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err == nil {
		return entries, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Faqs, nil
}
