package generator

import (
	"fmt"
	"strings"

	"github.com/codemap-dev/codemapd/internal/analyzer"
	"github.com/codemap-dev/codemapd/internal/model"
)

// BuildNodes creates one node per file plus one per symbol, deduplicating by
// id. File iteration is sorted so node order is stable across runs.
func BuildNodes(rs analyzer.ResultSet, intent *model.Intent) []model.Node {
	seen := make(map[string]bool)
	var nodes []model.Node

	for _, path := range rs.Paths() {
		node := fileNode(path, rs[path])
		nodes = append(nodes, node)
		seen[node.ID] = true
	}
	for _, path := range rs.Paths() {
		fileID := FileNodeID(path)
		for _, sym := range rs[path].Symbols {
			node := symbolNode(sym, fileID, intent)
			if seen[node.ID] {
				continue
			}
			seen[node.ID] = true
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func fileNode(path string, fa *analyzer.FileAnalysis) model.Node {
	label := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		label = path[idx+1:]
	}

	importance := model.ImportanceLow
	switch count := len(fa.Symbols); {
	case count > 10:
		importance = model.ImportanceHigh
	case count > 5:
		importance = model.ImportanceMedium
	}

	return model.Node{
		ID:          FileNodeID(path),
		Label:       label,
		Type:        model.NodeFile,
		Location:    &model.SourceLocation{FilePath: path, LineStart: 1, LineEnd: 1},
		Description: "File: " + path,
		Importance:  importance,
		Group:       pathGroup(path),
		Metadata: model.Meta{
			"full_path":    model.MetaStr(path),
			"language":     model.MetaStr(fa.Language),
			"symbol_count": model.MetaNum(float64(len(fa.Symbols))),
		},
	}
}

func symbolNode(sym analyzer.Symbol, parentID string, intent *model.Intent) model.Node {
	var snippet *model.Snippet
	if sym.Docstring != "" {
		code := sym.Docstring
		if len(code) > 200 {
			code = code[:200] + "..."
		}
		snippet = &model.Snippet{Code: code, Language: "text"}
	}

	loc := sym.Location
	meta := model.Meta{
		"is_async":    model.MetaFlag(sym.Async),
		"is_exported": model.MetaFlag(sym.Exported),
	}
	if len(sym.Decorators) > 0 {
		meta["decorators"] = model.MetaStrings(sym.Decorators)
	}
	if len(sym.Bases) > 0 {
		meta["bases"] = model.MetaStrings(sym.Bases)
	}
	if len(sym.Parameters) > 0 {
		meta["parameters"] = model.MetaStrings(sym.Parameters)
	}
	if sym.ReturnType != "" {
		meta["return_type"] = model.MetaStr(sym.ReturnType)
	}

	return model.Node{
		ID:          SymbolNodeID(sym),
		Label:       sym.Name,
		Type:        sym.Kind,
		Location:    &loc,
		Description: symbolDescription(sym),
		Importance:  symbolImportance(sym, intent),
		Snippet:     snippet,
		ParentID:    parentID,
		Group:       pathGroup(sym.Location.FilePath),
		Metadata:    meta,
	}
}

var kindScores = map[model.NodeType]int{
	model.NodeClass:     3,
	model.NodeInterface: 3,
	model.NodeFunction:  2,
	model.NodeMethod:    1,
	model.NodeTypeDef:   1,
}

func symbolImportance(sym analyzer.Symbol, intent *model.Intent) model.Importance {
	score := kindScores[sym.Kind]
	if sym.Exported {
		score += 2
	}
	if sym.Docstring != "" {
		score++
	}
	if len(sym.Bases) > 0 {
		score++
	}
	if intent != nil {
		lower := strings.ToLower(sym.Name)
		for _, kw := range intent.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				score += 3
			}
		}
		for _, focus := range intent.FocusAreas {
			if strings.Contains(lower, strings.ToLower(focus)) {
				score += 2
			}
		}
	}

	switch {
	case score >= 7:
		return model.ImportanceCritical
	case score >= 5:
		return model.ImportanceHigh
	case score >= 3:
		return model.ImportanceMedium
	}
	return model.ImportanceLow
}

func symbolDescription(sym analyzer.Symbol) string {
	var parts []string
	if sym.Async {
		parts = append(parts, "async")
	}
	parts = append(parts, string(sym.Kind), sym.Name)

	if len(sym.Parameters) > 0 {
		params := sym.Parameters
		suffix := ""
		if len(params) > 5 {
			params = params[:5]
			suffix = ", ..."
		}
		parts = append(parts, "("+strings.Join(params, ", ")+suffix+")")
	}
	if sym.ReturnType != "" {
		parts = append(parts, "-> "+sym.ReturnType)
	}
	if len(sym.Bases) > 0 {
		parts = append(parts, "extends "+strings.Join(sym.Bases, ", "))
	}
	return strings.Join(parts, " ")
}

// pathGroup names the first meaningful directory of a path; generic wrapper
// dirs don't make useful groups.
func pathGroup(path string) string {
	for _, part := range strings.Split(path, "/") {
		if part == "" || strings.HasPrefix(part, ".") {
			continue
		}
		if part == "src" || part == "lib" || part == "app" {
			continue
		}
		return part
	}
	return "root"
}

// externalNode represents a dependency outside the analyzed tree.
func externalNode(name string) model.Node {
	return model.Node{
		ID:          ExternalNodeID(name),
		Label:       name,
		Type:        model.NodeExternal,
		Description: fmt.Sprintf("External dependency: %s", name),
		Importance:  model.ImportanceLow,
		Group:       "external",
	}
}
