package analyzer

import "testing"

func TestPathFilterDefaults(t *testing.T) {
	f := NewPathFilter(nil, nil, nil)

	cases := []struct {
		path string
		want bool
	}{
		{"src/main.py", true},
		{"node_modules/react/index.js", false},
		{"vendor/lib/lib.go", false},
		{"app/__pycache__/mod.pyc", false},
		{"dist/bundle.min.js", false},
		{"poetry.lock", false},
		{"internal/server/server.go", true},
	}
	for _, tc := range cases {
		if got := f.Admit(tc.path); got != tc.want {
			t.Errorf("Admit(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestPathFilterIncludes(t *testing.T) {
	f := NewPathFilter([]string{"src/**"}, nil, nil)

	if !f.Admit("src/api/handler.py") {
		t.Error("included path rejected")
	}
	if f.Admit("docs/readme.md") {
		t.Error("path outside include list admitted")
	}
}

func TestPathFilterExcludesAndTypes(t *testing.T) {
	f := NewPathFilter(nil, []string{"*_test.go", "migrations/"}, []string{"go", ".py"})

	if f.Admit("internal/store/store_test.go") {
		t.Error("excluded pattern admitted")
	}
	if f.Admit("migrations/001_init.sql") {
		t.Error("excluded dir admitted")
	}
	if !f.Admit("internal/store/store.go") {
		t.Error("go file rejected")
	}
	if !f.Admit("api/app.py") {
		t.Error("py file rejected")
	}
	if f.Admit("web/index.html") {
		t.Error("file type outside allow-list admitted")
	}
}

func TestPathFilterAdmitsDirectories(t *testing.T) {
	f := NewPathFilter([]string{"src/**"}, []string{"migrations/"}, []string{"py"})

	// Directory paths have no extension and rarely match include patterns;
	// only exclusion rules may prune them.
	if !f.Admit("src/") {
		t.Error("directory rejected by file-type allow-list")
	}
	if !f.Admit("src/api/") {
		t.Error("nested directory rejected by include patterns")
	}
	if f.Admit("migrations/") {
		t.Error("excluded directory admitted")
	}
	if !f.Admit("src/api/handler.py") {
		t.Error("matching file rejected")
	}
	if f.Admit("src/api/handler.go") {
		t.Error("file outside type allow-list admitted")
	}
}

func TestResolvePythonImports(t *testing.T) {
	rs := ResultSet{
		"app/main.py":              {Path: "app/main.py", Language: "python", Imports: []Import{{Module: "app.services.user"}, {Module: "os"}}},
		"app/services/user.py":     {Path: "app/services/user.py", Language: "python", Imports: []Import{{Module: "helpers", Names: []string{"slugify"}, Relative: true}}},
		"app/services/helpers.py":  {Path: "app/services/helpers.py", Language: "python"},
		"app/services/__init__.py": {Path: "app/services/__init__.py", Language: "python"},
	}
	ResolveImports(rs)

	main := rs["app/main.py"]
	if got := main.Imports[0].ResolvedPath; got != "app/services/user.py" {
		t.Errorf("app.services.user resolved to %q", got)
	}
	if got := main.Imports[1].ResolvedPath; got != "" {
		t.Errorf("os should stay unresolved, got %q", got)
	}
	user := rs["app/services/user.py"]
	if got := user.Imports[0].ResolvedPath; got != "app/services/helpers.py" {
		t.Errorf("relative helpers resolved to %q", got)
	}
}

func TestResolveJSImports(t *testing.T) {
	rs := ResultSet{
		"src/app.js":         {Path: "src/app.js", Language: "javascript", Imports: []Import{{Module: "./utils", Relative: true}, {Module: "react"}}},
		"src/utils/index.js": {Path: "src/utils/index.js", Language: "javascript"},
	}
	ResolveImports(rs)

	app := rs["src/app.js"]
	if got := app.Imports[0].ResolvedPath; got != "src/utils/index.js" {
		t.Errorf("./utils resolved to %q", got)
	}
	if got := app.Imports[1].ResolvedPath; got != "" {
		t.Errorf("react should stay unresolved, got %q", got)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(10)
	content := []byte("def f():\n    pass\n")
	fa := Empty("a.py", "python")

	if _, ok := c.Get("a.py", content); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	c.Put("a.py", content, fa)
	got, ok := c.Get("a.py", content)
	if !ok || got != fa {
		t.Fatal("cache miss after put")
	}
	// Same content under a different path is a different entry.
	if _, ok := c.Get("b.py", content); ok {
		t.Fatal("path should participate in the cache key")
	}
	// Changed content misses.
	if _, ok := c.Get("a.py", []byte("def g(): pass")); ok {
		t.Fatal("stale content hit")
	}
}
