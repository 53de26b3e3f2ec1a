package analyzer

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/codemap-dev/codemapd/internal/model"
)

// PythonExtractor parses Python sources with tree-sitter.
type PythonExtractor struct {
	lang *sitter.Language
}

func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{lang: python.GetLanguage()}
}

func (p *PythonExtractor) Language() string { return "python" }

func (p *PythonExtractor) Extensions() []string { return []string{".py", ".pyw"} }

func (p *PythonExtractor) Analyze(content []byte, path string) *FileAnalysis {
	tree, err := parseTree(p.lang, content)
	if err != nil || tree == nil {
		return Empty(path, "python")
	}
	defer tree.Close()

	fa := Empty(path, "python")
	walkPython(tree.RootNode(), content, path, fa, pyScope{})
	fa.Symbols = normalizeSymbols(fa.Symbols)
	fa.Calls = normalizeCalls(fa.Calls)
	return fa
}

// parseTree builds a throwaway parser per call; sitter.Parser is not safe
// for concurrent use and files are analyzed in parallel.
func parseTree(lang *sitter.Language, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)
	return parser.ParseCtx(context.Background(), nil, content)
}

// pyScope tracks lexical enclosure during the walk: the enclosing class (for
// method classification) and the innermost enclosing callable (for call
// attribution).
type pyScope struct {
	class    string
	function string
}

func walkPython(node *sitter.Node, content []byte, path string, fa *FileAnalysis, scope pyScope) {
	switch node.Type() {
	case "decorated_definition":
		decorators := pythonDecorators(node, content)
		if def := node.ChildByFieldName("definition"); def != nil {
			walkPythonDefinition(def, content, path, fa, scope, decorators)
		}
		return

	case "function_definition", "class_definition":
		walkPythonDefinition(node, content, path, fa, scope, nil)
		return

	case "import_statement":
		fa.Imports = append(fa.Imports, pythonImports(node, content, path)...)

	case "import_from_statement":
		if imp := pythonFromImport(node, content, path); imp != nil {
			fa.Imports = append(fa.Imports, *imp)
		}

	case "call":
		if scope.function != "" {
			if callee := pythonCallName(node.ChildByFieldName("function"), content); callee != "" {
				fa.Calls = append(fa.Calls, Call{
					Caller:   scope.function,
					Callee:   callee,
					Location: pointLocation(node, path),
				})
			}
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkPython(node.Child(i), content, path, fa, scope)
	}
}

func walkPythonDefinition(node *sitter.Node, content []byte, path string, fa *FileAnalysis, scope pyScope, decorators []string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(content)

	switch node.Type() {
	case "class_definition":
		fa.Symbols = append(fa.Symbols, Symbol{
			Name:       name,
			Kind:       model.NodeClass,
			Location:   spanLocation(node, path),
			Docstring:  pythonDocstring(node.ChildByFieldName("body"), content),
			Decorators: decorators,
			Bases:      pythonBases(node.ChildByFieldName("superclasses"), content),
			Exported:   !strings.HasPrefix(name, "_"),
		})
		// Walk the body with the class in scope so nested defs classify as
		// methods.
		if body := node.ChildByFieldName("body"); body != nil {
			inner := scope
			inner.class = name
			for i := 0; i < int(body.ChildCount()); i++ {
				walkPython(body.Child(i), content, path, fa, inner)
			}
		}

	case "function_definition":
		kind := model.NodeFunction
		if scope.class != "" {
			kind = model.NodeMethod
		}
		fa.Symbols = append(fa.Symbols, Symbol{
			Name:       name,
			Kind:       kind,
			Location:   spanLocation(node, path),
			Docstring:  pythonDocstring(node.ChildByFieldName("body"), content),
			Decorators: decorators,
			Parameters: pythonParameters(node.ChildByFieldName("parameters"), content),
			ReturnType: nodeContent(node.ChildByFieldName("return_type"), content),
			Async:      pythonIsAsync(node),
			Exported:   !strings.HasPrefix(name, "_"),
		})
		// Nested functions re-attribute calls to the innermost callable.
		if body := node.ChildByFieldName("body"); body != nil {
			inner := scope
			inner.function = name
			for i := 0; i < int(body.ChildCount()); i++ {
				walkPython(body.Child(i), content, path, fa, inner)
			}
		}
	}
}

func pythonIsAsync(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "async" {
			return true
		}
	}
	return false
}

// pythonDecorators recovers dotted decorator names, stripping call
// arguments when the decorator is itself invoked.
func pythonDecorators(decorated *sitter.Node, content []byte) []string {
	var out []string
	for i := 0; i < int(decorated.ChildCount()); i++ {
		child := decorated.Child(i)
		if child.Type() != "decorator" {
			continue
		}
		// The decorator expression is the child after "@".
		for j := 0; j < int(child.ChildCount()); j++ {
			expr := child.Child(j)
			if expr.Type() == "@" || expr.Type() == "comment" {
				continue
			}
			if name := pythonCallName(expr, content); name != "" {
				out = append(out, name)
			}
			break
		}
	}
	return out
}

func pythonBases(superclasses *sitter.Node, content []byte) []string {
	if superclasses == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(superclasses.ChildCount()); i++ {
		child := superclasses.Child(i)
		switch child.Type() {
		case "identifier", "attribute":
			if name := pythonCallName(child, content); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func pythonParameters(params *sitter.Node, content []byte) []string {
	if params == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(params.ChildCount()); i++ {
		child := params.Child(i)
		switch child.Type() {
		case "identifier":
			out = append(out, child.Content(content))
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			if id := firstChildOfType(child, "identifier"); id != nil {
				out = append(out, id.Content(content))
			}
		}
	}
	return out
}

func pythonDocstring(body *sitter.Node, content []byte) string {
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Type() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	expr := first.Child(0)
	if expr.Type() != "string" {
		return ""
	}
	return trimPythonString(expr.Content(content))
}

func trimPythonString(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(raw, q) && strings.HasSuffix(raw, q) && len(raw) >= 2*len(q) {
			return strings.TrimSpace(raw[len(q) : len(raw)-len(q)])
		}
	}
	return raw
}

// pythonCallName resolves a call/attribute expression to its dotted path
// (a.b.c). Call expressions unwrap to the called function; anything else
// yields "".
func pythonCallName(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier":
		return node.Content(content)
	case "attribute":
		object := pythonCallName(node.ChildByFieldName("object"), content)
		attr := nodeContent(node.ChildByFieldName("attribute"), content)
		if attr == "" {
			return ""
		}
		if object == "" {
			return attr
		}
		return object + "." + attr
	case "call":
		return pythonCallName(node.ChildByFieldName("function"), content)
	}
	return ""
}

func pythonImports(node *sitter.Node, content []byte, path string) []Import {
	var out []Import
	loc := pointLocation(node, path)
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			if module := strings.TrimSpace(child.Content(content)); module != "" {
				out = append(out, Import{Module: module, Location: loc})
			}
		case "aliased_import":
			module := nodeContent(child.ChildByFieldName("name"), content)
			alias := nodeContent(child.ChildByFieldName("alias"), content)
			if module != "" {
				out = append(out, Import{Module: module, Alias: alias, Location: loc})
			}
		}
	}
	return out
}

func pythonFromImport(node *sitter.Node, content []byte, path string) *Import {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return nil
	}
	module := strings.TrimSpace(moduleNode.Content(content))
	if module == "" {
		return nil
	}

	imp := &Import{
		Module:   strings.TrimLeft(module, "."),
		Relative: strings.HasPrefix(module, "."),
		Location: pointLocation(node, path),
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.FieldNameForChild(i) != "name" {
			continue
		}
		child := node.Child(i)
		switch child.Type() {
		case "aliased_import":
			if name := nodeContent(child.ChildByFieldName("name"), content); name != "" {
				imp.Names = append(imp.Names, name)
			}
		case "dotted_name", "identifier":
			if name := strings.TrimSpace(child.Content(content)); name != "" {
				imp.Names = append(imp.Names, name)
			}
		}
	}
	return imp
}

// shared tree-sitter helpers

func spanLocation(node *sitter.Node, path string) model.SourceLocation {
	return model.SourceLocation{
		FilePath:    path,
		LineStart:   int(node.StartPoint().Row) + 1,
		LineEnd:     int(node.EndPoint().Row) + 1,
		ColumnStart: int(node.StartPoint().Column),
		ColumnEnd:   int(node.EndPoint().Column),
	}
}

func pointLocation(node *sitter.Node, path string) *model.SourceLocation {
	loc := model.SourceLocation{
		FilePath:  path,
		LineStart: int(node.StartPoint().Row) + 1,
		LineEnd:   int(node.StartPoint().Row) + 1,
	}
	return &loc
}

func nodeContent(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return strings.TrimSpace(node.Content(content))
}

func firstChildOfType(node *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == typ {
			return node.Child(i)
		}
	}
	return nil
}
