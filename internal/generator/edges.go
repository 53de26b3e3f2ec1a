package generator

import (
	"sort"
	"strings"

	"github.com/codemap-dev/codemapd/internal/analyzer"
	"github.com/codemap-dev/codemapd/internal/llm"
	"github.com/codemap-dev/codemapd/internal/model"
)

const (
	weightImport   = 1.0
	weightCall     = 1.5
	weightExtend   = 2.0
	weightContains = 0.5
)

// edgeSet accumulates edges, deduplicating on (source, type, target) and
// creating external nodes on demand for targets outside the analyzed tree.
type edgeSet struct {
	edges    []model.Edge
	seen     map[string]bool
	known    map[string]bool
	external []model.Node
}

func newEdgeSet(nodes []model.Node) *edgeSet {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}
	return &edgeSet{seen: make(map[string]bool), known: known}
}

func (s *edgeSet) add(e model.Edge) {
	key := e.Source + "->" + string(e.Type) + "->" + e.Target
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.edges = append(s.edges, e)
}

// ensureExternal registers an external node for name and returns its id.
func (s *edgeSet) ensureExternal(name string) string {
	id := ExternalNodeID(name)
	if !s.known[id] {
		s.known[id] = true
		s.external = append(s.external, externalNode(name))
	}
	return id
}

// BuildEdges derives import, call, inheritance and containment edges from the
// analysis results. It returns the edges plus any external nodes minted for
// unresolved targets.
func BuildEdges(rs analyzer.ResultSet, nodes []model.Node) ([]model.Edge, []model.Node) {
	set := newEdgeSet(nodes)

	// Callable symbols keyed both by "{path}:{name}" and bare name, so calls
	// resolve within a file first and fall back to any file after.
	funcMap := make(map[string]string)
	for _, path := range rs.Paths() {
		for _, sym := range rs[path].Symbols {
			if sym.Kind != model.NodeFunction && sym.Kind != model.NodeMethod && sym.Kind != model.NodeClass {
				continue
			}
			id := SymbolNodeID(sym)
			funcMap[path+":"+sym.Name] = id
			if _, ok := funcMap[sym.Name]; !ok {
				funcMap[sym.Name] = id
			}
		}
	}

	for _, path := range rs.Paths() {
		fa := rs[path]
		fileID := FileNodeID(path)

		for _, imp := range fa.Imports {
			target := ""
			if imp.ResolvedPath != "" {
				target = FileNodeID(imp.ResolvedPath)
				if !set.known[target] {
					target = set.ensureExternal(imp.Module)
				}
			} else {
				target = set.ensureExternal(imp.Module)
			}
			meta := model.Meta{"is_relative": model.MetaFlag(imp.Relative)}
			if len(imp.Names) > 0 {
				meta["names"] = model.MetaStrings(imp.Names)
			}
			set.add(model.Edge{
				ID:          EdgeID(fileID, target, model.EdgeImports),
				Source:      fileID,
				Target:      target,
				Type:        model.EdgeImports,
				Description: "Imports " + imp.Module,
				Weight:      weightImport,
				Metadata:    meta,
			})
		}

		for _, call := range fa.Calls {
			source := funcMap[path+":"+call.Caller]
			if source == "" {
				source = funcMap[call.Caller]
			}
			if source == "" {
				source = fileID
			}
			target := resolveCallee(funcMap, path, call.Callee)
			if target == "" || target == source {
				continue
			}
			set.add(model.Edge{
				ID:          EdgeID(source, target, model.EdgeCalls),
				Source:      source,
				Target:      target,
				Type:        model.EdgeCalls,
				Description: "Calls " + call.Callee,
				Weight:      weightCall,
			})
		}

		for _, sym := range fa.Symbols {
			symID := SymbolNodeID(sym)

			set.add(model.Edge{
				ID:     EdgeID(fileID, symID, model.EdgeContains),
				Source: fileID,
				Target: symID,
				Type:   model.EdgeContains,
				Weight: weightContains,
			})

			for _, base := range sym.Bases {
				target := funcMap[path+":"+base]
				if target == "" {
					target = set.ensureExternal(base)
				}
				set.add(model.Edge{
					ID:          EdgeID(symID, target, model.EdgeExtends),
					Source:      symID,
					Target:      target,
					Type:        model.EdgeExtends,
					Description: sym.Name + " extends " + base,
					Weight:      weightExtend,
				})
			}
		}
	}

	return set.edges, set.external
}

// resolveCallee maps a call target to a node id. Dotted callees fall back to
// matching any known method by its final segment.
func resolveCallee(funcMap map[string]string, path, callee string) string {
	if id := funcMap[path+":"+callee]; id != "" {
		return id
	}
	if id := funcMap[callee]; id != "" {
		return id
	}
	if idx := strings.LastIndex(callee, "."); idx >= 0 {
		method := callee[idx+1:]
		if id := funcMap[path+":"+method]; id != "" {
			return id
		}
		if id := funcMap[method]; id != "" {
			return id
		}
	}
	return ""
}

var relationshipWeights = map[model.Importance]float64{
	model.ImportanceCritical: 3.0,
	model.ImportanceHigh:     2.0,
	model.ImportanceMedium:   1.0,
	model.ImportanceLow:      0.5,
}

// refIndex resolves the "{path}:{symbol}" references inferred relationships
// use to graph node ids. Bare file paths and literal node ids also resolve.
func refIndex(nodes []model.Node) map[string]string {
	refs := make(map[string]string, len(nodes)*2)
	for _, n := range nodes {
		refs[n.ID] = n.ID
		if n.Location == nil {
			continue
		}
		if n.Type == model.NodeFile {
			refs[n.Location.FilePath] = n.ID
			continue
		}
		refs[n.Location.FilePath+":"+n.Label] = n.ID
	}
	return refs
}

// MergeRelationships folds LLM-inferred relationships into the edge list.
// Endpoint references are resolved against the graph's symbols; unresolvable
// references drop the relationship.
func MergeRelationships(edges []model.Edge, nodes []model.Node, rels []llm.Relationship) []model.Edge {
	refs := refIndex(nodes)
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		seen[e.Source+"->"+string(e.Type)+"->"+e.Target] = true
	}

	for _, rel := range rels {
		source, target := refs[rel.Source], refs[rel.Target]
		if source == "" || target == "" || source == target {
			continue
		}
		key := source + "->" + string(rel.Type) + "->" + target
		if seen[key] {
			continue
		}
		seen[key] = true
		edges = append(edges, model.Edge{
			ID:          EdgeID(source, target, rel.Type),
			Source:      source,
			Target:      target,
			Type:        rel.Type,
			Label:       strings.ReplaceAll(string(rel.Type), "_", " "),
			Description: rel.Description,
			Weight:      relationshipWeights[rel.Importance],
			Metadata:    model.Meta{"source": model.MetaStr("llm")},
		})
	}
	return edges
}

// BuildGraph assembles the full graph from analysis results and optional
// inferred relationships.
func BuildGraph(rs analyzer.ResultSet, intent *model.Intent, rels []llm.Relationship) *model.Graph {
	nodes := BuildNodes(rs, intent)
	edges, external := BuildEdges(rs, nodes)
	nodes = append(nodes, external...)
	edges = MergeRelationships(edges, nodes, rels)

	var roots []string
	for _, n := range nodes {
		if n.ParentID == "" && n.Type == model.NodeFile {
			roots = append(roots, n.ID)
		}
	}
	sort.Strings(roots)
	if len(roots) > 5 {
		roots = roots[:5]
	}

	return &model.Graph{
		Nodes:     nodes,
		Edges:     edges,
		RootNodes: roots,
		Clusters:  map[string][]string{},
	}
}
