package suggest

import (
	"math/rand/v2"

	"github.com/tsiory/mpanampy/internal/locale"
)

// DefaultBatchSize is how many prompts a widget shows at once.
const DefaultBatchSize = 4

// Rotator draws random, duplicate-free batches of suggested prompts
// from static per-language pools. Batches are ephemeral and never
// persisted.
type Rotator struct {
	pools map[locale.Language][]string
}

// NewRotator uses the built-in localized pools.
func NewRotator() *Rotator {
	pools := make(map[locale.Language][]string)
	for _, l := range locale.All() {
		pools[l] = locale.SuggestionPool(l)
	}
	return &Rotator{pools: pools}
}

// NewRotatorWithPools overrides the pools, mainly for tests.
func NewRotatorWithPools(pools map[locale.Language][]string) *Rotator {
	return &Rotator{pools: pools}
}

// Sample returns count prompts for a language, drawn uniformly without
// replacement. When the pool is smaller than count the whole pool is
// returned, shuffled.
func (r *Rotator) Sample(lang locale.Language, count int) []string {
	pool := r.pools[lang]
	if len(pool) == 0 {
		return nil
	}
	if count <= 0 {
		count = DefaultBatchSize
	}

	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if count > len(shuffled) {
		count = len(shuffled)
	}
	return shuffled[:count]
}
