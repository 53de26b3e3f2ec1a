package analyzer

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/codemap-dev/codemapd/internal/model"
)

// JavaScriptExtractor parses JavaScript sources with tree-sitter.
type JavaScriptExtractor struct {
	lang *sitter.Language
}

func NewJavaScriptExtractor() *JavaScriptExtractor {
	return &JavaScriptExtractor{lang: javascript.GetLanguage()}
}

func (j *JavaScriptExtractor) Language() string { return "javascript" }

func (j *JavaScriptExtractor) Extensions() []string {
	return []string{".js", ".jsx", ".mjs", ".cjs"}
}

func (j *JavaScriptExtractor) Analyze(content []byte, path string) *FileAnalysis {
	return ecmaAnalyze(j.lang, content, path, "javascript")
}

// TypeScriptExtractor parses TypeScript sources. It shares the walk with the
// JavaScript extractor since the grammars overlap; TS-only declarations
// (interfaces, type aliases, enums) are handled in the common walker.
type TypeScriptExtractor struct {
	lang *sitter.Language
}

func NewTypeScriptExtractor() *TypeScriptExtractor {
	return &TypeScriptExtractor{lang: typescript.GetLanguage()}
}

func (t *TypeScriptExtractor) Language() string { return "typescript" }

func (t *TypeScriptExtractor) Extensions() []string { return []string{".ts", ".tsx"} }

func (t *TypeScriptExtractor) Analyze(content []byte, path string) *FileAnalysis {
	return ecmaAnalyze(t.lang, content, path, "typescript")
}

func ecmaAnalyze(lang *sitter.Language, content []byte, path, language string) *FileAnalysis {
	tree, err := parseTree(lang, content)
	if err != nil || tree == nil {
		return Empty(path, language)
	}
	defer tree.Close()

	fa := Empty(path, language)
	walkEcma(tree.RootNode(), content, path, fa, ecmaScope{})
	fa.Symbols = normalizeSymbols(fa.Symbols)
	fa.Calls = normalizeCalls(fa.Calls)
	return fa
}

type ecmaScope struct {
	class    string
	function string
	exported bool
}

func walkEcma(node *sitter.Node, content []byte, path string, fa *FileAnalysis, scope ecmaScope) {
	switch node.Type() {
	case "export_statement":
		inner := scope
		inner.exported = true
		for i := 0; i < int(node.ChildCount()); i++ {
			walkEcma(node.Child(i), content, path, fa, inner)
		}
		return

	case "function_declaration", "generator_function_declaration":
		if name := nodeContent(node.ChildByFieldName("name"), content); name != "" {
			fa.Symbols = append(fa.Symbols, Symbol{
				Name:       name,
				Kind:       model.NodeFunction,
				Location:   spanLocation(node, path),
				Parameters: ecmaParameters(node.ChildByFieldName("parameters"), content),
				ReturnType: ecmaReturnType(node.ChildByFieldName("return_type"), content),
				Async:      hasChildOfType(node, "async"),
				Exported:   scope.exported,
			})
			walkEcmaBody(node, content, path, fa, scope, name)
		}
		return

	case "method_definition":
		if name := nodeContent(node.ChildByFieldName("name"), content); name != "" {
			fa.Symbols = append(fa.Symbols, Symbol{
				Name:       name,
				Kind:       model.NodeMethod,
				Location:   spanLocation(node, path),
				Parameters: ecmaParameters(node.ChildByFieldName("parameters"), content),
				ReturnType: ecmaReturnType(node.ChildByFieldName("return_type"), content),
				Async:      hasChildOfType(node, "async"),
				Exported:   scope.exported,
			})
			walkEcmaBody(node, content, path, fa, scope, name)
		}
		return

	case "class_declaration":
		if name := nodeContent(node.ChildByFieldName("name"), content); name != "" {
			fa.Symbols = append(fa.Symbols, Symbol{
				Name:     name,
				Kind:     model.NodeClass,
				Location: spanLocation(node, path),
				Bases:    ecmaHeritage(node, content),
				Exported: scope.exported,
			})
			if body := node.ChildByFieldName("body"); body != nil {
				inner := scope
				inner.class = name
				for i := 0; i < int(body.ChildCount()); i++ {
					walkEcma(body.Child(i), content, path, fa, inner)
				}
			}
		}
		return

	case "interface_declaration":
		if name := nodeContent(node.ChildByFieldName("name"), content); name != "" {
			fa.Symbols = append(fa.Symbols, Symbol{
				Name:     name,
				Kind:     model.NodeInterface,
				Location: spanLocation(node, path),
				Bases:    ecmaHeritage(node, content),
				Exported: scope.exported,
			})
		}
		return

	case "type_alias_declaration", "enum_declaration":
		if name := nodeContent(node.ChildByFieldName("name"), content); name != "" {
			fa.Symbols = append(fa.Symbols, Symbol{
				Name:     name,
				Kind:     model.NodeTypeDef,
				Location: spanLocation(node, path),
				Exported: scope.exported,
			})
		}
		return

	case "lexical_declaration", "variable_declaration":
		ecmaVariableDeclarations(node, content, path, fa, scope)
		return

	case "import_statement":
		if imp := ecmaImport(node, content, path); imp != nil {
			fa.Imports = append(fa.Imports, *imp)
		}
		return

	case "call_expression":
		if imp := ecmaRequire(node, content, path); imp != nil {
			fa.Imports = append(fa.Imports, *imp)
		} else if scope.function != "" {
			if callee := ecmaCallName(node.ChildByFieldName("function"), content); callee != "" {
				fa.Calls = append(fa.Calls, Call{
					Caller:   scope.function,
					Callee:   callee,
					Location: pointLocation(node, path),
				})
			}
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkEcma(node.Child(i), content, path, fa, scope)
	}
}

func walkEcmaBody(node *sitter.Node, content []byte, path string, fa *FileAnalysis, scope ecmaScope, name string) {
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	inner := scope
	inner.function = name
	for i := 0; i < int(body.ChildCount()); i++ {
		walkEcma(body.Child(i), content, path, fa, inner)
	}
}

// ecmaVariableDeclarations lifts `const f = () => {}` and
// `const f = function() {}` bindings into function symbols. Other bindings
// are plain variables (constants for const declarations).
func ecmaVariableDeclarations(node *sitter.Node, content []byte, path string, fa *FileAnalysis, scope ecmaScope) {
	isConst := strings.HasPrefix(nodeContent(node, content), "const")
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		valueNode := child.ChildByFieldName("value")
		if nameNode == nil || nameNode.Type() != "identifier" {
			continue
		}
		name := nameNode.Content(content)

		if valueNode != nil && (valueNode.Type() == "arrow_function" || valueNode.Type() == "function" || valueNode.Type() == "function_expression") {
			fa.Symbols = append(fa.Symbols, Symbol{
				Name:       name,
				Kind:       model.NodeFunction,
				Location:   spanLocation(child, path),
				Parameters: ecmaParameters(valueNode.ChildByFieldName("parameters"), content),
				ReturnType: ecmaReturnType(valueNode.ChildByFieldName("return_type"), content),
				Async:      hasChildOfType(valueNode, "async"),
				Exported:   scope.exported,
			})
			inner := scope
			inner.function = name
			if body := valueNode.ChildByFieldName("body"); body != nil {
				walkEcma(body, content, path, fa, inner)
			}
			continue
		}

		// Module-level bindings only; locals inside functions are noise.
		if scope.function == "" && scope.class == "" {
			kind := model.NodeVariable
			if isConst {
				kind = model.NodeConstant
			}
			fa.Symbols = append(fa.Symbols, Symbol{
				Name:     name,
				Kind:     kind,
				Location: spanLocation(child, path),
				Exported: scope.exported,
			})
		}
		if valueNode != nil {
			walkEcma(valueNode, content, path, fa, scope)
		}
	}
}

func ecmaHeritage(node *sitter.Node, content []byte) []string {
	var out []string
	collect := func(clause *sitter.Node) {
		for i := 0; i < int(clause.ChildCount()); i++ {
			child := clause.Child(i)
			switch child.Type() {
			case "identifier", "member_expression", "type_identifier", "generic_type":
				if name := ecmaCallName(child, content); name != "" {
					out = append(out, name)
				} else if id := firstChildOfType(child, "type_identifier"); id != nil {
					out = append(out, id.Content(content))
				}
			}
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "class_heritage":
			for j := 0; j < int(child.ChildCount()); j++ {
				sub := child.Child(j)
				switch sub.Type() {
				case "extends_clause", "implements_clause":
					collect(sub)
				case "identifier", "member_expression":
					if name := ecmaCallName(sub, content); name != "" {
						out = append(out, name)
					}
				}
			}
		case "extends_clause", "extends_type_clause", "implements_clause":
			collect(child)
		}
	}
	return out
}

func ecmaParameters(params *sitter.Node, content []byte) []string {
	if params == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(params.ChildCount()); i++ {
		child := params.Child(i)
		switch child.Type() {
		case "identifier":
			out = append(out, child.Content(content))
		case "required_parameter", "optional_parameter":
			if pattern := child.ChildByFieldName("pattern"); pattern != nil && pattern.Type() == "identifier" {
				out = append(out, pattern.Content(content))
			}
		case "assignment_pattern":
			if left := child.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
				out = append(out, left.Content(content))
			}
		case "rest_pattern":
			if id := firstChildOfType(child, "identifier"); id != nil {
				out = append(out, "..."+id.Content(content))
			}
		}
	}
	return out
}

func ecmaReturnType(node *sitter.Node, content []byte) string {
	raw := nodeContent(node, content)
	return strings.TrimSpace(strings.TrimPrefix(raw, ":"))
}

// ecmaCallName resolves an expression to its dotted path (a.b.c).
func ecmaCallName(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier", "type_identifier", "property_identifier":
		return node.Content(content)
	case "member_expression":
		object := ecmaCallName(node.ChildByFieldName("object"), content)
		property := nodeContent(node.ChildByFieldName("property"), content)
		if property == "" {
			return ""
		}
		if object == "" {
			return property
		}
		return object + "." + property
	case "this":
		return "this"
	case "call_expression":
		return ecmaCallName(node.ChildByFieldName("function"), content)
	case "parenthesized_expression", "non_null_expression":
		for i := 0; i < int(node.ChildCount()); i++ {
			if name := ecmaCallName(node.Child(i), content); name != "" {
				return name
			}
		}
	}
	return ""
}

func ecmaImport(node *sitter.Node, content []byte, path string) *Import {
	source := firstChildOfType(node, "string")
	if source == nil {
		return nil
	}
	module := unquote(source.Content(content))
	if module == "" {
		return nil
	}
	imp := &Import{
		Module:   module,
		Relative: strings.HasPrefix(module, "."),
		Location: pointLocation(node, path),
	}
	if clause := firstChildOfType(node, "import_clause"); clause != nil {
		ecmaImportClause(clause, content, imp)
	}
	return imp
}

func ecmaImportClause(clause *sitter.Node, content []byte, imp *Import) {
	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		switch child.Type() {
		case "identifier":
			imp.Alias = child.Content(content)
		case "namespace_import":
			if id := firstChildOfType(child, "identifier"); id != nil {
				imp.Alias = id.Content(content)
			}
		case "named_imports":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				if name := nodeContent(spec.ChildByFieldName("name"), content); name != "" {
					imp.Names = append(imp.Names, name)
				}
			}
		}
	}
}

// ecmaRequire recognizes require("mod") and dynamic import("mod") calls as
// imports regardless of where they appear.
func ecmaRequire(node *sitter.Node, content []byte, path string) *Import {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return nil
	}
	name := nodeContent(fn, content)
	if name != "require" && name != "import" {
		return nil
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	source := firstChildOfType(args, "string")
	if source == nil {
		return nil
	}
	module := unquote(source.Content(content))
	if module == "" {
		return nil
	}
	return &Import{
		Module:   module,
		Relative: strings.HasPrefix(module, "."),
		Location: pointLocation(node, path),
	}
}

func unquote(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		if first == last && (first == '"' || first == '\'' || first == '`') {
			return raw[1 : len(raw)-1]
		}
	}
	return raw
}

func hasChildOfType(node *sitter.Node, typ string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == typ {
			return true
		}
	}
	return false
}
