package analyzer

import (
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// defaultExcludes are directories and files that never carry useful
// structure for a codemap.
var defaultExcludes = []string{
	".git/",
	"node_modules/",
	"vendor/",
	"dist/",
	"build/",
	"target/",
	"__pycache__/",
	".venv/",
	"venv/",
	".tox/",
	".mypy_cache/",
	".pytest_cache/",
	"*.min.js",
	"*.min.css",
	"*.lock",
	"*.pb.go",
	"*_pb2.py",
}

// PathFilter decides which repository files take part in analysis. Include
// rules, when present, form an allow-list checked before the exclude rules;
// exclude rules are gitignore-style patterns layered on top of the defaults.
type PathFilter struct {
	includes  *gitignore.GitIgnore
	excludes  *gitignore.GitIgnore
	fileTypes map[string]bool
	hasInc    bool
}

// NewPathFilter builds a filter from user-supplied gitignore-style include
// and exclude patterns and an optional extension allow-list (".go", "py",
// leading dot optional).
func NewPathFilter(includePatterns, excludePatterns, fileTypes []string) *PathFilter {
	f := &PathFilter{}

	if len(includePatterns) > 0 {
		f.includes = gitignore.CompileIgnoreLines(includePatterns...)
		f.hasInc = true
	}
	f.excludes = gitignore.CompileIgnoreLines(append(append([]string{}, defaultExcludes...), excludePatterns...)...)

	if len(fileTypes) > 0 {
		f.fileTypes = make(map[string]bool, len(fileTypes))
		for _, ft := range fileTypes {
			ft = strings.ToLower(strings.TrimSpace(ft))
			if ft == "" {
				continue
			}
			if !strings.HasPrefix(ft, ".") {
				ft = "." + ft
			}
			f.fileTypes[ft] = true
		}
	}
	return f
}

// Admit reports whether the repo-relative path participates in analysis.
// Directory paths carry a trailing slash and see only the exclusion rules:
// include patterns and the extension allow-list describe files, and pruning
// a directory on them would hide every file beneath it.
func (f *PathFilter) Admit(path string) bool {
	path = filepath.ToSlash(path)

	if f.excludes.MatchesPath(path) {
		return false
	}
	if strings.HasSuffix(path, "/") {
		return true
	}
	if f.hasInc && !f.includes.MatchesPath(path) {
		return false
	}
	if f.fileTypes != nil && !f.fileTypes[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	return true
}
