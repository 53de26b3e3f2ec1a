// Package analyzer extracts structural facts from source files: symbols,
// imports, and calls. Extraction is per-language behind a registry, with a
// generic heuristic fallback for languages without a dedicated extractor.
package analyzer

import (
	"sort"
	"strconv"
	"strings"

	"github.com/codemap-dev/codemapd/internal/model"
)

// Symbol is one extracted definition. Immutable once produced.
type Symbol struct {
	Name       string               `json:"name"`
	Kind       model.NodeType       `json:"kind"`
	Location   model.SourceLocation `json:"location"`
	Docstring  string               `json:"docstring,omitempty"`
	Decorators []string             `json:"decorators,omitempty"`
	Bases      []string             `json:"bases,omitempty"`
	Parameters []string             `json:"parameters,omitempty"`
	ReturnType string               `json:"return_type,omitempty"`
	Async      bool                 `json:"async,omitempty"`
	Exported   bool                 `json:"exported,omitempty"`
}

// Import is one raw import statement. ResolvedPath is empty until the
// cross-file resolver matches it to a file in the analyzed set; unresolved
// imports become external nodes.
type Import struct {
	Module       string                `json:"module"`
	Names        []string              `json:"names,omitempty"` // empty means whole-module import
	Alias        string                `json:"alias,omitempty"`
	Location     *model.SourceLocation `json:"location,omitempty"`
	Relative     bool                  `json:"relative,omitempty"`
	ResolvedPath string                `json:"resolved_path,omitempty"`
}

// Call is one call site attributed to its innermost enclosing function or
// method. Calls at module top level are not recorded.
type Call struct {
	Caller   string                `json:"caller"`
	Callee   string                `json:"callee"` // possibly a dotted attribute chain
	Location *model.SourceLocation `json:"location,omitempty"`
}

// FileAnalysis aggregates everything extracted from one file.
type FileAnalysis struct {
	Path     string   `json:"path"`
	Language string   `json:"language"`
	Symbols  []Symbol `json:"symbols"`
	Imports  []Import `json:"imports"`
	Calls    []Call   `json:"calls"`
}

// Empty returns a FileAnalysis with no facts, used when a file cannot be
// parsed: extraction never raises past the per-file boundary.
func Empty(path, language string) *FileAnalysis {
	return &FileAnalysis{Path: path, Language: language}
}

// ResultSet is the merged analysis for a request, keyed by repo-relative
// file path. Read-only once handed to later stages.
type ResultSet map[string]*FileAnalysis

// Paths returns the analyzed file paths in sorted order. Later stages
// iterate in this order so output is independent of analysis scheduling.
func (rs ResultSet) Paths() []string {
	paths := make([]string, 0, len(rs))
	for p := range rs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Counts returns total symbols, imports, and calls across the set.
func (rs ResultSet) Counts() (symbols, imports, calls int) {
	for _, fa := range rs {
		symbols += len(fa.Symbols)
		imports += len(fa.Imports)
		calls += len(fa.Calls)
	}
	return
}

// PrimaryLanguage returns the most common language tag in the set, breaking
// ties alphabetically.
func (rs ResultSet) PrimaryLanguage() string {
	counts := make(map[string]int)
	for _, fa := range rs {
		counts[fa.Language]++
	}
	best, bestCount := "unknown", 0
	for lang, n := range counts {
		if lang == "" || lang == "unknown" {
			continue
		}
		if n > bestCount || (n == bestCount && lang < best) {
			best, bestCount = lang, n
		}
	}
	return best
}

func normalizeSymbols(symbols []Symbol) []Symbol {
	out := symbols[:0]
	for _, s := range symbols {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" || !s.Location.Valid() {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Location.LineStart != out[j].Location.LineStart {
			return out[i].Location.LineStart < out[j].Location.LineStart
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func normalizeCalls(calls []Call) []Call {
	seen := make(map[string]bool, len(calls))
	out := calls[:0]
	for _, c := range calls {
		c.Caller = strings.TrimSpace(c.Caller)
		c.Callee = strings.TrimSpace(c.Callee)
		if c.Caller == "" || c.Callee == "" {
			continue
		}
		key := c.Caller + "\x00" + c.Callee
		if c.Location != nil {
			key += "\x00" + strconv.Itoa(c.Location.LineStart)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := 0, 0
		if out[i].Location != nil {
			li = out[i].Location.LineStart
		}
		if out[j].Location != nil {
			lj = out[j].Location.LineStart
		}
		if li != lj {
			return li < lj
		}
		if out[i].Caller != out[j].Caller {
			return out[i].Caller < out[j].Caller
		}
		return out[i].Callee < out[j].Callee
	})
	return out
}
