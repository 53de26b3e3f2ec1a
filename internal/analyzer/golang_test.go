package analyzer

import (
	"testing"

	"github.com/codemap-dev/codemapd/internal/model"
)

const goSample = `package store

import (
	"fmt"
	sql "database/sql"
)

const defaultLimit = 100

var ErrMissing = fmt.Errorf("missing")

type Store struct {
	db *sql.DB
}

type Reader interface {
	Get(id string) (string, error)
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(id string) (string, error) {
	row := s.db.QueryRow("select v from kv where k = ?", id)
	return scanOne(row)
}
`

func TestGoSymbols(t *testing.T) {
	fa := NewGoExtractor().Analyze([]byte(goSample), "internal/store/store.go")

	if fa.Language != "go" {
		t.Errorf("language = %q", fa.Language)
	}

	store := findSymbol(t, fa, "Store")
	if store.Kind != model.NodeClass {
		t.Errorf("Store kind = %q, want class", store.Kind)
	}
	reader := findSymbol(t, fa, "Reader")
	if reader.Kind != model.NodeInterface {
		t.Errorf("Reader kind = %q", reader.Kind)
	}

	open := findSymbol(t, fa, "Open")
	if open.Kind != model.NodeFunction || !open.Exported {
		t.Errorf("Open = %+v", open)
	}
	get := findSymbol(t, fa, "Get")
	if get.Kind != model.NodeMethod {
		t.Errorf("Get kind = %q", get.Kind)
	}

	limit := findSymbol(t, fa, "defaultLimit")
	if limit.Kind != model.NodeConstant || limit.Exported {
		t.Errorf("defaultLimit = %+v", limit)
	}
	errMissing := findSymbol(t, fa, "ErrMissing")
	if errMissing.Kind != model.NodeVariable {
		t.Errorf("ErrMissing kind = %q", errMissing.Kind)
	}
}

func TestGoImportsAndCalls(t *testing.T) {
	fa := NewGoExtractor().Analyze([]byte(goSample), "internal/store/store.go")

	byModule := make(map[string]Import)
	for _, imp := range fa.Imports {
		byModule[imp.Module] = imp
	}
	if _, ok := byModule["fmt"]; !ok {
		t.Error("missing fmt import")
	}
	if byModule["database/sql"].Alias != "sql" {
		t.Errorf("database/sql alias = %q", byModule["database/sql"].Alias)
	}

	callers := make(map[string]string)
	for _, c := range fa.Calls {
		callers[c.Callee] = c.Caller
	}
	if callers["sql.Open"] != "Open" {
		t.Errorf("sql.Open caller = %q", callers["sql.Open"])
	}
	if callers["s.db.QueryRow"] != "Get" {
		t.Errorf("s.db.QueryRow caller = %q", callers["s.db.QueryRow"])
	}
	if callers["scanOne"] != "Get" {
		t.Errorf("scanOne caller = %q", callers["scanOne"])
	}
}

func TestGenericExtractor(t *testing.T) {
	src := `use std::collections::HashMap;

pub struct Config {
    entries: HashMap<String, String>,
}

pub trait Loader {
    fn load(&self) -> Config;
}

pub fn parse(input: &str) -> Config {
    Config::default()
}
`
	fa := NewGenericExtractor().Analyze([]byte(src), "src/config.rs")

	if fa.Language != "rust" {
		t.Errorf("language = %q, want rust", fa.Language)
	}
	cfg := findSymbol(t, fa, "Config")
	if cfg.Kind != model.NodeClass {
		t.Errorf("Config kind = %q", cfg.Kind)
	}
	loader := findSymbol(t, fa, "Loader")
	if loader.Kind != model.NodeInterface {
		t.Errorf("Loader kind = %q", loader.Kind)
	}
	parse := findSymbol(t, fa, "parse")
	if parse.Kind != model.NodeFunction {
		t.Errorf("parse kind = %q", parse.Kind)
	}
	if len(fa.Imports) == 0 {
		t.Error("expected at least one import")
	}
	if len(fa.Calls) != 0 {
		t.Errorf("generic extraction should not report calls, got %v", fa.Calls)
	}
}

func TestRegistryFallback(t *testing.T) {
	reg := NewDefaultRegistry()

	if got := reg.ForFile("a/b.py").Language(); got != "python" {
		t.Errorf("b.py -> %q", got)
	}
	if got := reg.ForFile("a/b.tsx").Language(); got != "typescript" {
		t.Errorf("b.tsx -> %q", got)
	}
	if got := reg.ForFile("a/b.go").Language(); got != "go" {
		t.Errorf("b.go -> %q", got)
	}
	if got := reg.ForFile("a/b.rs").Language(); got != "generic" {
		t.Errorf("b.rs -> %q", got)
	}
}
