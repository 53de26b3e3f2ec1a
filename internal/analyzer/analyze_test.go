package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAnalyzeRepo(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app/main.py", "from app.util import helper\n\ndef main():\n    helper()\n")
	writeFile(t, root, "app/util.py", "def helper():\n    pass\n")
	writeFile(t, root, "node_modules/pkg/index.js", "export function hidden() {}\n")
	writeFile(t, root, "assets/logo.bin", "\x00\x01\x02")

	a := New(NewDefaultRegistry(), zaptest.NewLogger(t).Sugar())
	rs, err := a.AnalyzeRepo(context.Background(), root, NewPathFilter(nil, nil, nil))
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := rs["app/main.py"]; !ok {
		t.Fatal("app/main.py missing from results")
	}
	if _, ok := rs["node_modules/pkg/index.js"]; ok {
		t.Error("node_modules content should be filtered")
	}
	if _, ok := rs["assets/logo.bin"]; ok {
		t.Error("binary content should be skipped")
	}

	main := rs["app/main.py"]
	if len(main.Imports) != 1 || main.Imports[0].ResolvedPath != "app/util.py" {
		t.Errorf("imports = %+v", main.Imports)
	}
	if lang := rs.PrimaryLanguage(); lang != "python" {
		t.Errorf("primary language = %q", lang)
	}
}

func TestAnalyzeRepoFileTypeFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.py", "def main():\n    pass\n")
	writeFile(t, root, "src/web/app.js", "export function app() {}\n")

	a := New(NewDefaultRegistry(), zaptest.NewLogger(t).Sugar())
	rs, err := a.AnalyzeRepo(context.Background(), root, NewPathFilter(nil, nil, []string{"py"}))
	if err != nil {
		t.Fatal(err)
	}

	// Nested files must survive the extension allow-list; directories on the
	// way down have no extension.
	if _, ok := rs["src/main.py"]; !ok {
		t.Fatalf("src/main.py not analyzed with file_types=[py]; analyzed=%d", len(rs))
	}
	if _, ok := rs["src/web/app.js"]; ok {
		t.Error("js file admitted despite py-only allow-list")
	}
}

func TestAnalyzeRepoMissingRoot(t *testing.T) {
	a := New(NewDefaultRegistry(), zaptest.NewLogger(t).Sugar())
	_, err := a.AnalyzeRepo(context.Background(), filepath.Join(t.TempDir(), "absent"), NewPathFilter(nil, nil, nil))
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestAnalyzeRepoUsesCache(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    pass\n")

	cache := NewCache(16)
	a := New(NewDefaultRegistry(), zaptest.NewLogger(t).Sugar(), WithCache(cache), WithWorkers(2))

	if _, err := a.AnalyzeRepo(context.Background(), root, NewPathFilter(nil, nil, nil)); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 1 {
		t.Fatalf("cache len = %d, want 1", cache.Len())
	}
	if _, err := a.AnalyzeRepo(context.Background(), root, NewPathFilter(nil, nil, nil)); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 1 {
		t.Fatalf("cache len after rerun = %d", cache.Len())
	}
}
