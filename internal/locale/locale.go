package locale

import (
	"fmt"
	"strings"
)

// Language identifies one of the three site languages.
type Language string

const (
	Malagasy Language = "mg"
	French   Language = "fr"
	English  Language = "en"
)

// Parse normalizes a language code coming from config or API payloads.
func Parse(raw string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(raw))) {
	case Malagasy:
		return Malagasy, nil
	case French:
		return French, nil
	case English:
		return English, nil
	default:
		return "", fmt.Errorf("unknown language %q (expected mg|fr|en)", raw)
	}
}

// All lists the supported languages in site order.
func All() []Language {
	return []Language{Malagasy, French, English}
}

var welcome = map[Language]string{
	Malagasy: "Manahoana! Izaho no mpanampin'ny fikambanana. Anontanio aho momba ny tantaranay, ny asanay na ny fidirana ho mpikambana.",
	French:   "Bonjour ! Je suis l'assistant de l'association. Posez-moi vos questions sur notre histoire, nos activités ou l'adhésion.",
	English:  "Hello! I am the association's assistant. Ask me about our history, our activities or how to become a member.",
}

var fallback = map[Language]string{
	Malagasy: "Miala tsiny, tsy nahita valiny mifanandrify tamin'ny fanontanianao aho. Mifandraisa aminay amin'ny alalan'ny pejy fifandraisana.",
	French:   "Désolé, je n'ai pas trouvé de réponse à votre question. N'hésitez pas à nous contacter via la page contact.",
	English:  "Sorry, I could not find an answer to your question. Please reach out to us through the contact page.",
}

var errorReply = map[Language]string{
	Malagasy: "Nisy olana kely. Andramo indray azafady.",
	French:   "Une erreur est survenue. Merci de réessayer dans un instant.",
	English:  "Something went wrong. Please try again in a moment.",
}

var suggestionPools = map[Language][]string{
	Malagasy: {
		"Iza moa i Ali Tawarath ?",
		"Inona ny tantaran'ny Anakara ?",
		"Ahoana ny fidirana ho mpikambana ?",
		"Inona avy ny asa ataonareo ?",
		"Aiza ny foiben'ny fikambanana ?",
		"Inona ny soratra Sorabe ?",
	},
	French: {
		"Qui est Ali Tawarath ?",
		"Quelle est l'histoire des Anakara ?",
		"Comment devenir membre ?",
		"Quelles sont vos activités ?",
		"Où se trouve l'association ?",
		"Qu'est-ce que l'écriture Sorabe ?",
	},
	English: {
		"Who is Ali Tawarath?",
		"What is the history of the Anakara?",
		"How do I become a member?",
		"What are your activities?",
		"Where is the association based?",
		"What is the Sorabe script?",
	},
}

// Welcome returns the seed message text for a fresh conversation.
func Welcome(l Language) string { return lookup(welcome, l) }

// Fallback returns the "no answer found, contact us" reply.
func Fallback(l Language) string { return lookup(fallback, l) }

// ErrorReply returns the generic turn-failure reply.
func ErrorReply(l Language) string { return lookup(errorReply, l) }

// SuggestionPool returns a copy of the full prompt pool for a language.
func SuggestionPool(l Language) []string {
	pool, ok := suggestionPools[l]
	if !ok {
		pool = suggestionPools[French]
	}
	out := make([]string, len(pool))
	copy(out, pool)
	return out
}

func lookup(m map[Language]string, l Language) string {
	if v, ok := m[l]; ok {
		return v
	}
	// French is the site's primary language; unknown codes fall back to it.
	return m[French]
}
