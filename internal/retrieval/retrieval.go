// Package retrieval ranks analyzed files against the user's query so the
// graph builder and pruner know which parts of the repository the question
// is actually about.
package retrieval

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/codemap-dev/codemapd/internal/analyzer"
)

// Underscores are separators so snake_case identifiers match their word
// parts ("authenticate_user" answers for "user").
var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Score is one file's relevance to the query.
type Score struct {
	Path  string  `json:"path"`
	Value float64 `json:"value"`
}

// Retriever ranks files by relevance to a free-text query.
type Retriever interface {
	Rank(query string, rs analyzer.ResultSet, limit int) []Score
}

// document is one file flattened into weighted terms.
type document struct {
	path   string
	length int
	terms  map[string]int
}

// KeywordRetriever is a BM25 ranker over symbol names, file paths and
// docstrings. It needs no external service, which keeps generation working
// when no embedding backend is configured.
type KeywordRetriever struct {
	k1 float64
	b  float64
}

func NewKeywordRetriever() *KeywordRetriever {
	return &KeywordRetriever{k1: 1.2, b: 0.75}
}

func (r *KeywordRetriever) Rank(query string, rs analyzer.ResultSet, limit int) []Score {
	if limit <= 0 {
		limit = 20
	}
	queryTerms := uniqueTerms(tokenize(query))
	if len(queryTerms) == 0 || len(rs) == 0 {
		return nil
	}

	docs, docFreq, avgLen := buildIndex(rs)

	n := float64(len(docs))
	if avgLen <= 0 {
		avgLen = 1
	}

	results := make([]Score, 0)
	for _, doc := range docs {
		score := 0.0
		docLen := float64(doc.length)
		for _, term := range queryTerms {
			tf := float64(doc.terms[term])
			if tf <= 0 {
				continue
			}
			df := float64(docFreq[term])
			idf := math.Log(1.0 + ((n - df + 0.5) / (df + 0.5)))
			score += idf * (tf * (r.k1 + 1.0)) / (tf + r.k1*(1.0-r.b+r.b*(docLen/avgLen)))
		}
		if score > 0 {
			results = append(results, Score{Path: doc.path, Value: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Value != results[j].Value {
			return results[i].Value > results[j].Value
		}
		return results[i].Path < results[j].Path
	})
	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		return fuzzyFallback(docs, query, limit)
	}
	return results
}

// ByPath folds scores into a lookup map.
func ByPath(scores []Score) map[string]float64 {
	m := make(map[string]float64, len(scores))
	for _, s := range scores {
		m[s.Path] = s.Value
	}
	return m
}

func buildIndex(rs analyzer.ResultSet) ([]document, map[string]int, float64) {
	docFreq := make(map[string]int)
	docs := make([]document, 0, len(rs))
	total := 0

	for _, path := range rs.Paths() {
		fa := rs[path]
		terms := make(map[string]int)
		addWeighted(terms, path, 2)
		for _, sym := range fa.Symbols {
			addWeighted(terms, sym.Name, 4)
			addWeighted(terms, sym.Docstring, 1)
		}
		for _, imp := range fa.Imports {
			addWeighted(terms, imp.Module, 1)
		}

		length := 0
		for _, count := range terms {
			length += count
		}
		if length == 0 {
			continue
		}
		docs = append(docs, document{path: path, length: length, terms: terms})
		total += length
		for term := range terms {
			docFreq[term]++
		}
	}

	avgLen := 0.0
	if len(docs) > 0 {
		avgLen = float64(total) / float64(len(docs))
	}
	return docs, docFreq, avgLen
}

func addWeighted(terms map[string]int, value string, weight int) {
	for _, token := range tokenize(value) {
		terms[token] += weight
	}
}

func tokenize(value string) []string {
	value = strings.ToLower(value)
	if value == "" {
		return nil
	}
	return tokenPattern.FindAllString(value, -1)
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// fuzzyFallback catches near-miss symbol names (typos in the query) when
// exact term matching finds nothing.
func fuzzyFallback(docs []document, query string, limit int) []Score {
	needle := strings.Join(tokenize(query), "")
	if needle == "" {
		return nil
	}

	results := make([]Score, 0)
	for _, doc := range docs {
		best := -1
		for term := range doc.terms {
			distance := levenshtein(needle, term)
			threshold := len(term) / 3
			if threshold < 2 {
				threshold = 2
			}
			if distance > threshold {
				continue
			}
			if best < 0 || distance < best {
				best = distance
			}
		}
		if best >= 0 {
			results = append(results, Score{Path: doc.path, Value: 1.0 / float64(1+best)})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Value != results[j].Value {
			return results[i].Value > results[j].Value
		}
		return results[i].Path < results[j].Path
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		current := make([]int, len(b)+1)
		current[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			current[j] = min(current[j-1]+1, min(prev[j]+1, prev[j-1]+cost))
		}
		prev = current
	}
	return prev[len(b)]
}
