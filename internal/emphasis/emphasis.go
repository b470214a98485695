package emphasis

import "regexp"

// Cosmetic markup pass over bot answers: known proper nouns, numbers
// and years are wrapped in markdown bold markers. Purely textual, no
// semantic effect on matching or storage.

var highlightPattern = regexp.MustCompile(
	`(?i)\b(` +
		`ali tawarath` +
		`|anakara` +
		`|antemoro` +
		`|matitanana` +
		`|vatomasina` +
		`|vohipeno` +
		`|sorabe` +
		`|[0-9]+` +
		`)\b`)

// Apply bolds every highlight term in text. A single combined pattern
// keeps matches non-overlapping, so nothing is wrapped twice.
func Apply(text string) string {
	return highlightPattern.ReplaceAllString(text, "**$1**")
}
