package analyzer

import (
	"testing"

	"github.com/codemap-dev/codemapd/internal/model"
)

const pythonSample = `import os
import numpy as np
from collections import OrderedDict, defaultdict
from .helpers import slugify

CONFIG_PATH = "/etc/app.conf"

def top_level(a, b=1):
    """Adds things together."""
    return slugify(a) + b

async def fetch(url):
    return await client.get(url)

class Service(BaseService):
    """Coordinates workers."""

    @retry(times=3)
    def run(self, job):
        self.validate(job)
        return execute(job)

    def _internal(self):
        pass
`

func analyzePythonSample(t *testing.T) *FileAnalysis {
	t.Helper()
	fa := NewPythonExtractor().Analyze([]byte(pythonSample), "app/service.py")
	if fa == nil {
		t.Fatal("nil analysis")
	}
	return fa
}

func findSymbol(t *testing.T, fa *FileAnalysis, name string) Symbol {
	t.Helper()
	for _, s := range fa.Symbols {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("symbol %q not found in %v", name, fa.Symbols)
	return Symbol{}
}

func TestPythonSymbols(t *testing.T) {
	fa := analyzePythonSample(t)

	if fa.Language != "python" {
		t.Errorf("language = %q, want python", fa.Language)
	}

	top := findSymbol(t, fa, "top_level")
	if top.Kind != model.NodeFunction {
		t.Errorf("top_level kind = %q, want function", top.Kind)
	}
	if top.Docstring != "Adds things together." {
		t.Errorf("top_level docstring = %q", top.Docstring)
	}
	if len(top.Parameters) != 2 || top.Parameters[0] != "a" || top.Parameters[1] != "b" {
		t.Errorf("top_level params = %v", top.Parameters)
	}

	fetch := findSymbol(t, fa, "fetch")
	if !fetch.Async {
		t.Error("fetch should be async")
	}

	svc := findSymbol(t, fa, "Service")
	if svc.Kind != model.NodeClass {
		t.Errorf("Service kind = %q, want class", svc.Kind)
	}
	if svc.Docstring != "Coordinates workers." {
		t.Errorf("Service docstring = %q", svc.Docstring)
	}
	if len(svc.Bases) != 1 || svc.Bases[0] != "BaseService" {
		t.Errorf("Service bases = %v", svc.Bases)
	}
	if svc.Location.LineEnd <= svc.Location.LineStart {
		t.Errorf("Service span = %d..%d", svc.Location.LineStart, svc.Location.LineEnd)
	}

	run := findSymbol(t, fa, "run")
	if run.Kind != model.NodeMethod {
		t.Errorf("run kind = %q, want method", run.Kind)
	}
	if len(run.Decorators) != 1 || run.Decorators[0] != "retry" {
		t.Errorf("run decorators = %v", run.Decorators)
	}

	internal := findSymbol(t, fa, "_internal")
	if internal.Exported {
		t.Error("_internal should not be exported")
	}
}

func TestPythonImports(t *testing.T) {
	fa := analyzePythonSample(t)

	byModule := make(map[string]Import)
	for _, imp := range fa.Imports {
		byModule[imp.Module] = imp
	}

	if _, ok := byModule["os"]; !ok {
		t.Error("missing import os")
	}
	np, ok := byModule["numpy"]
	if !ok || np.Alias != "np" {
		t.Errorf("numpy import = %+v", np)
	}
	coll, ok := byModule["collections"]
	if !ok || len(coll.Names) != 2 {
		t.Errorf("collections import = %+v", coll)
	}
	helpers, ok := byModule["helpers"]
	if !ok || !helpers.Relative {
		t.Errorf("helpers import = %+v", helpers)
	}
}

func TestPythonCalls(t *testing.T) {
	fa := analyzePythonSample(t)

	want := map[string]string{
		"slugify":       "top_level",
		"execute":       "run",
		"self.validate": "run",
		"client.get":    "fetch",
	}
	got := make(map[string]string)
	for _, c := range fa.Calls {
		got[c.Callee] = c.Caller
	}
	for callee, caller := range want {
		if got[callee] != caller {
			t.Errorf("call %s: caller = %q, want %q", callee, got[callee], caller)
		}
	}
	// Decorator call at class scope has no enclosing function and is dropped.
	for _, c := range fa.Calls {
		if c.Callee == "retry" {
			t.Error("retry decorator should not be attributed as a call")
		}
	}
}

func TestPythonMalformedSource(t *testing.T) {
	fa := NewPythonExtractor().Analyze([]byte("def broken(:\n  ???"), "bad.py")
	if fa == nil {
		t.Fatal("malformed source must still produce a result")
	}
	if fa.Path != "bad.py" {
		t.Errorf("path = %q", fa.Path)
	}
}
