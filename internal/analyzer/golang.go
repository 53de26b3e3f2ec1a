package analyzer

import (
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/codemap-dev/codemapd/internal/model"
)

// GoExtractor parses Go sources with tree-sitter.
type GoExtractor struct {
	lang *sitter.Language
}

func NewGoExtractor() *GoExtractor {
	return &GoExtractor{lang: golang.GetLanguage()}
}

func (g *GoExtractor) Language() string { return "go" }

func (g *GoExtractor) Extensions() []string { return []string{".go"} }

func (g *GoExtractor) Analyze(content []byte, path string) *FileAnalysis {
	tree, err := parseTree(g.lang, content)
	if err != nil || tree == nil {
		return Empty(path, "go")
	}
	defer tree.Close()

	fa := Empty(path, "go")
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		goTopLevel(root.Child(i), content, path, fa)
	}
	fa.Symbols = normalizeSymbols(fa.Symbols)
	fa.Calls = normalizeCalls(fa.Calls)
	return fa
}

func goTopLevel(node *sitter.Node, content []byte, path string, fa *FileAnalysis) {
	switch node.Type() {
	case "function_declaration":
		name := nodeContent(node.ChildByFieldName("name"), content)
		if name == "" {
			return
		}
		fa.Symbols = append(fa.Symbols, Symbol{
			Name:       name,
			Kind:       model.NodeFunction,
			Location:   spanLocation(node, path),
			Parameters: goParameters(node.ChildByFieldName("parameters"), content),
			ReturnType: nodeContent(node.ChildByFieldName("result"), content),
			Exported:   goExported(name),
		})
		goCollectCalls(node.ChildByFieldName("body"), content, path, fa, name)

	case "method_declaration":
		name := nodeContent(node.ChildByFieldName("name"), content)
		if name == "" {
			return
		}
		fa.Symbols = append(fa.Symbols, Symbol{
			Name:       name,
			Kind:       model.NodeMethod,
			Location:   spanLocation(node, path),
			Parameters: goParameters(node.ChildByFieldName("parameters"), content),
			ReturnType: nodeContent(node.ChildByFieldName("result"), content),
			Exported:   goExported(name),
		})
		goCollectCalls(node.ChildByFieldName("body"), content, path, fa, name)

	case "type_declaration":
		for i := 0; i < int(node.ChildCount()); i++ {
			spec := node.Child(i)
			if spec.Type() != "type_spec" && spec.Type() != "type_alias" {
				continue
			}
			name := nodeContent(spec.ChildByFieldName("name"), content)
			if name == "" {
				continue
			}
			kind := model.NodeTypeDef
			switch underlying := spec.ChildByFieldName("type"); {
			case underlying == nil:
			case underlying.Type() == "struct_type":
				kind = model.NodeClass
			case underlying.Type() == "interface_type":
				kind = model.NodeInterface
			}
			fa.Symbols = append(fa.Symbols, Symbol{
				Name:     name,
				Kind:     kind,
				Location: spanLocation(spec, path),
				Exported: goExported(name),
			})
		}

	case "const_declaration", "var_declaration":
		kind := model.NodeConstant
		if node.Type() == "var_declaration" {
			kind = model.NodeVariable
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			spec := node.Child(i)
			if spec.Type() != "const_spec" && spec.Type() != "var_spec" {
				continue
			}
			for j := 0; j < int(spec.ChildCount()); j++ {
				id := spec.Child(j)
				if id.Type() != "identifier" || spec.FieldNameForChild(j) != "name" {
					continue
				}
				name := id.Content(content)
				if name == "_" {
					continue
				}
				fa.Symbols = append(fa.Symbols, Symbol{
					Name:     name,
					Kind:     kind,
					Location: spanLocation(spec, path),
					Exported: goExported(name),
				})
			}
		}

	case "import_declaration":
		goImports(node, content, path, fa)
	}
}

func goImports(node *sitter.Node, content []byte, path string, fa *FileAnalysis) {
	var specs []*sitter.Node
	if list := firstChildOfType(node, "import_spec_list"); list != nil {
		for i := 0; i < int(list.ChildCount()); i++ {
			if list.Child(i).Type() == "import_spec" {
				specs = append(specs, list.Child(i))
			}
		}
	} else if spec := firstChildOfType(node, "import_spec"); spec != nil {
		specs = append(specs, spec)
	}
	for _, spec := range specs {
		module := unquote(nodeContent(spec.ChildByFieldName("path"), content))
		if module == "" {
			continue
		}
		alias := nodeContent(spec.ChildByFieldName("name"), content)
		if alias == "_" || alias == "." {
			alias = ""
		}
		fa.Imports = append(fa.Imports, Import{
			Module:   module,
			Alias:    alias,
			Location: pointLocation(spec, path),
		})
	}
}

func goCollectCalls(body *sitter.Node, content []byte, path string, fa *FileAnalysis, caller string) {
	if body == nil {
		return
	}
	if body.Type() == "call_expression" {
		if callee := goCallName(body.ChildByFieldName("function"), content); callee != "" {
			fa.Calls = append(fa.Calls, Call{
				Caller:   caller,
				Callee:   callee,
				Location: pointLocation(body, path),
			})
		}
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		goCollectCalls(body.Child(i), content, path, fa, caller)
	}
}

func goCallName(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier":
		return node.Content(content)
	case "selector_expression":
		operand := goCallName(node.ChildByFieldName("operand"), content)
		field := nodeContent(node.ChildByFieldName("field"), content)
		if field == "" {
			return ""
		}
		if operand == "" {
			return field
		}
		return operand + "." + field
	case "parenthesized_expression":
		for i := 0; i < int(node.ChildCount()); i++ {
			if name := goCallName(node.Child(i), content); name != "" {
				return name
			}
		}
	}
	return ""
}

func goParameters(params *sitter.Node, content []byte) []string {
	if params == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(params.ChildCount()); i++ {
		decl := params.Child(i)
		if decl.Type() != "parameter_declaration" && decl.Type() != "variadic_parameter_declaration" {
			continue
		}
		named := false
		for j := 0; j < int(decl.ChildCount()); j++ {
			if decl.FieldNameForChild(j) == "name" {
				out = append(out, decl.Child(j).Content(content))
				named = true
			}
		}
		// Unnamed parameter: fall back to the type.
		if !named {
			if typ := nodeContent(decl.ChildByFieldName("type"), content); typ != "" {
				out = append(out, typ)
			}
		}
	}
	return out
}

func goExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}
