package analyzer

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/codemap-dev/codemapd/internal/model"
)

// GenericExtractor is the fallback for languages without a tree-sitter
// grammar. It finds function-like and class-like definitions plus import
// statements with regular expressions. Calls are not extracted: without a
// real parse they are mostly noise.
type GenericExtractor struct{}

func NewGenericExtractor() *GenericExtractor { return &GenericExtractor{} }

var (
	genericFuncRe = regexp.MustCompile(
		`(?m)(?:^|\s)(?:pub(?:lic)?\s+)?(?:static\s+)?(?:async\s+)?` +
			`(?:def|func|function|fn|fun|sub|proc|method)\s+(\w+)\s*\(`)
	genericClassRe = regexp.MustCompile(
		`(?m)(?:^|\s)(?:pub(?:lic)?\s+)?(?:abstract\s+)?` +
			`(?:class|struct|interface|trait|enum|type)\s+(\w+)`)
	genericImportRe = regexp.MustCompile(
		`(?m)(?:^|\s)(?:import|include|require|use|using|from)\s+["']?([^\s"';\n]+)`)
)

// genericLanguages maps extensions to language names for files the
// grammar-backed extractors do not claim.
var genericLanguages = map[string]string{
	".java":  "java",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".rs":    "rust",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".cs":    "csharp",
	".kt":    "kotlin",
	".scala": "scala",
	".r":     "r",
	".sql":   "sql",
	".sh":    "bash",
	".lua":   "lua",
	".ex":    "elixir",
	".exs":   "elixir",
}

func (g *GenericExtractor) Language() string { return "generic" }

// Extensions is empty: the generic extractor is never registered for a
// specific extension, it is the registry fallback.
func (g *GenericExtractor) Extensions() []string { return nil }

func (g *GenericExtractor) Analyze(content []byte, path string) *FileAnalysis {
	ext := strings.ToLower(filepath.Ext(path))
	language := genericLanguages[ext]
	if language == "" {
		language = "unknown"
	}
	fa := Empty(path, language)
	source := string(content)

	for _, m := range genericFuncRe.FindAllStringSubmatchIndex(source, -1) {
		line := lineAt(source, m[0])
		fa.Symbols = append(fa.Symbols, Symbol{
			Name: source[m[2]:m[3]],
			Kind: model.NodeFunction,
			Location: model.SourceLocation{
				FilePath:  path,
				LineStart: line,
				LineEnd:   line,
			},
		})
	}

	for _, m := range genericClassRe.FindAllStringSubmatchIndex(source, -1) {
		matched := strings.ToLower(source[m[0]:m[1]])
		kind := model.NodeClass
		if strings.Contains(matched, "interface") || strings.Contains(matched, "trait") {
			kind = model.NodeInterface
		} else if strings.Contains(matched, "enum") {
			kind = model.NodeTypeDef
		}
		line := lineAt(source, m[0])
		fa.Symbols = append(fa.Symbols, Symbol{
			Name: source[m[2]:m[3]],
			Kind: kind,
			Location: model.SourceLocation{
				FilePath:  path,
				LineStart: line,
				LineEnd:   line,
			},
		})
	}

	for _, m := range genericImportRe.FindAllStringSubmatchIndex(source, -1) {
		module := strings.Trim(source[m[2]:m[3]], `"'<>;`)
		if module == "" {
			continue
		}
		line := lineAt(source, m[0])
		loc := model.SourceLocation{FilePath: path, LineStart: line, LineEnd: line}
		fa.Imports = append(fa.Imports, Import{
			Module:   module,
			Relative: strings.HasPrefix(module, "."),
			Location: &loc,
		})
	}

	fa.Symbols = normalizeSymbols(fa.Symbols)
	return fa
}

func lineAt(source string, offset int) int {
	return strings.Count(source[:offset], "\n") + 1
}
