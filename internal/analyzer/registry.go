package analyzer

import (
	"path/filepath"
	"strings"
)

// Extractor parses one file's content into structural facts. Implementations
// are pure functions over the given content: no filesystem or network access,
// and a parse failure yields an empty FileAnalysis rather than an error that
// escapes the per-file boundary.
type Extractor interface {
	// Language returns the language tag (e.g. "python").
	Language() string

	// Extensions returns the file extensions this extractor handles,
	// lowercase with leading dot.
	Extensions() []string

	// Analyze extracts symbols, imports, and calls from content.
	Analyze(content []byte, path string) *FileAnalysis
}

// Registry dispatches files to extractors by extension, with a generic
// fallback for everything unrecognized.
type Registry struct {
	extractors map[string]Extractor // language -> extractor
	extToLang  map[string]string    // extension -> language
	fallback   Extractor
}

// NewRegistry creates an empty registry with the given fallback extractor.
func NewRegistry(fallback Extractor) *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
		extToLang:  make(map[string]string),
		fallback:   fallback,
	}
}

// Register adds an extractor; later registrations win on extension conflict.
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Language()] = e
	for _, ext := range e.Extensions() {
		r.extToLang[ext] = e.Language()
	}
}

// ForFile returns the extractor for the file's extension, or the generic
// fallback when no language claims it.
func (r *Registry) ForFile(path string) Extractor {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := r.extToLang[ext]; ok {
		if e, ok := r.extractors[lang]; ok {
			return e
		}
	}
	return r.fallback
}

// ForLanguage returns the extractor registered for a language tag.
func (r *Registry) ForLanguage(lang string) (Extractor, bool) {
	e, ok := r.extractors[lang]
	return e, ok
}

// SupportedExtensions returns the extensions claimed by registered
// extractors, excluding the fallback.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extToLang))
	for ext := range r.extToLang {
		exts = append(exts, ext)
	}
	return exts
}

// NewDefaultRegistry wires up every built-in extractor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry(NewGenericExtractor())
	r.Register(NewPythonExtractor())
	r.Register(NewJavaScriptExtractor())
	r.Register(NewTypeScriptExtractor())
	r.Register(NewGoExtractor())
	return r
}
