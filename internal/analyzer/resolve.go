package analyzer

import (
	"path"
	"strings"
)

// jsCandidateSuffixes are tried in order when resolving an ECMAScript
// relative import to a concrete file.
var jsCandidateSuffixes = []string{
	"", ".js", ".jsx", ".ts", ".tsx", ".mjs",
	"/index.js", "/index.jsx", "/index.ts", "/index.tsx",
}

// ResolveImports links imports to repository files in place. Resolution is
// purely lexical over the analyzed file set, so the outcome does not depend
// on the order files were analyzed in. Imports that do not land on a file in
// the set stay unresolved and later surface as external nodes.
func ResolveImports(rs ResultSet) {
	moduleMap := pythonModuleMap(rs)

	for _, fa := range rs {
		dir := path.Dir(fa.Path)
		for i := range fa.Imports {
			imp := &fa.Imports[i]
			if imp.ResolvedPath != "" {
				continue
			}
			switch fa.Language {
			case "python":
				imp.ResolvedPath = resolvePythonImport(imp, dir, moduleMap)
			case "javascript", "typescript":
				imp.ResolvedPath = resolveJSImport(imp, dir, rs)
			}
		}
	}
}

// pythonModuleMap maps dotted module names to file paths. A package's
// __init__.py answers for the package name itself.
func pythonModuleMap(rs ResultSet) map[string]string {
	m := make(map[string]string)
	for p, fa := range rs {
		if fa.Language != "python" {
			continue
		}
		name := strings.TrimSuffix(p, ".py")
		if base := path.Base(name); base == "__init__" {
			name = path.Dir(name)
			if name == "." {
				continue
			}
		}
		m[strings.ReplaceAll(name, "/", ".")] = p
	}
	return m
}

func resolvePythonImport(imp *Import, dir string, moduleMap map[string]string) string {
	module := imp.Module
	if imp.Relative && dir != "." {
		prefix := strings.ReplaceAll(dir, "/", ".")
		if module == "" {
			module = prefix
		} else {
			module = prefix + "." + module
		}
	}
	if p, ok := moduleMap[module]; ok {
		return p
	}
	// from pkg.mod import Name may really target pkg/mod/Name-the-module.
	for _, name := range imp.Names {
		if p, ok := moduleMap[module+"."+name]; ok {
			return p
		}
	}
	return ""
}

func resolveJSImport(imp *Import, dir string, rs ResultSet) string {
	if !imp.Relative {
		return ""
	}
	base := path.Join(dir, imp.Module)
	for _, suffix := range jsCandidateSuffixes {
		candidate := base + suffix
		if _, ok := rs[candidate]; ok {
			return candidate
		}
	}
	return ""
}
