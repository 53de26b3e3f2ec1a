package llm

import "strings"

var stopWords = map[string]bool{
	"how": true, "does": true, "the": true, "what": true, "is": true,
	"are": true, "show": true, "me": true, "find": true, "where": true,
	"when": true, "why": true, "can": true, "you": true, "explain": true,
	"trace": true, "flow": true, "work": true, "works": true,
	"working": true, "a": true, "an": true, "in": true, "to": true,
	"for": true, "of": true, "and": true, "or": true, "this": true,
	"that": true, "these": true, "those": true, "i": true, "want": true,
}

const maxKeywords = 10

// ExtractKeywords pulls search terms out of a free-text query: lowercase
// words minus stop words and anything too short to be discriminating.
func ExtractKeywords(query string) []string {
	var out []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, `.,;:!?"'()[]{}`)
		if len(word) <= 2 || stopWords[word] {
			continue
		}
		out = append(out, word)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}
