package generator

import (
	"sort"
	"strings"

	"github.com/codemap-dev/codemapd/internal/model"
)

// PruneWeights tunes the scoring used to decide which nodes survive pruning.
type PruneWeights struct {
	Critical  float64
	High      float64
	Medium    float64
	Low       float64
	InDegree  float64
	OutDegree float64
	Relevance float64
}

// DefaultPruneWeights is the stock scoring configuration.
var DefaultPruneWeights = PruneWeights{
	Critical:  100,
	High:      50,
	Medium:    20,
	Low:       5,
	InDegree:  3,
	OutDegree: 2,
	Relevance: 50,
}

func (w PruneWeights) importance(imp model.Importance) float64 {
	switch imp {
	case model.ImportanceCritical:
		return w.Critical
	case model.ImportanceHigh:
		return w.High
	case model.ImportanceMedium:
		return w.Medium
	}
	return w.Low
}

// Pruner trims a graph down to its most relevant nodes.
type Pruner struct {
	MaxNodes int
	Weights  PruneWeights
}

func NewPruner(maxNodes int) *Pruner {
	if maxNodes <= 0 {
		maxNodes = 50
	}
	return &Pruner{MaxNodes: maxNodes, Weights: DefaultPruneWeights}
}

// Prune keeps the top-scoring nodes, drops edges with a missing endpoint and
// removes orphans that aren't important enough to stand alone. Graphs already
// within the budget pass through untouched.
func (p *Pruner) Prune(g *model.Graph, intent *model.Intent) *model.Graph {
	if len(g.Nodes) <= p.MaxNodes {
		return g
	}

	in := make(map[string]int)
	out := make(map[string]int)
	for _, e := range g.Edges {
		out[e.Source]++
		in[e.Target]++
	}

	type scored struct {
		node  model.Node
		score float64
	}
	ranked := make([]scored, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		score := p.Weights.importance(n.Importance)
		score += float64(in[n.ID]) * p.Weights.InDegree
		score += float64(out[n.ID]) * p.Weights.OutDegree
		score += relevance(n, intent) * p.Weights.Relevance
		if n.Description != "" {
			score += 5
		}
		if n.Snippet != nil {
			score += 3
		}
		ranked = append(ranked, scored{n, score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].node.ID < ranked[j].node.ID
	})

	keep := make(map[string]bool, p.MaxNodes)
	for _, s := range ranked[:p.MaxNodes] {
		keep[s.node.ID] = true
	}

	var edges []model.Edge
	connected := make(map[string]bool)
	for _, e := range g.Edges {
		if keep[e.Source] && keep[e.Target] {
			edges = append(edges, e)
			connected[e.Source] = true
			connected[e.Target] = true
		}
	}

	var nodes []model.Node
	for _, n := range g.Nodes {
		if !keep[n.ID] {
			continue
		}
		if !connected[n.ID] && n.Importance != model.ImportanceCritical && n.Importance != model.ImportanceHigh {
			continue
		}
		nodes = append(nodes, n)
	}

	kept := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		kept[n.ID] = true
	}
	var roots []string
	for _, id := range g.RootNodes {
		if kept[id] {
			roots = append(roots, id)
		}
	}

	return &model.Graph{Nodes: nodes, Edges: edges, RootNodes: roots, Clusters: map[string][]string{}}
}

// relevance measures how strongly a node matches the query intent, capped so
// keyword stuffing can't dominate structural signals.
func relevance(n model.Node, intent *model.Intent) float64 {
	if intent == nil {
		return 0
	}
	label := strings.ToLower(n.Label)
	desc := strings.ToLower(n.Description)
	path := ""
	if n.Location != nil {
		path = strings.ToLower(n.Location.FilePath)
	}

	var score float64
	for _, kw := range intent.Keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(label, kw) {
			score += 1.0
		}
		if strings.Contains(desc, kw) {
			score += 0.5
		}
		if strings.Contains(path, kw) {
			score += 0.3
		}
	}
	for _, focus := range intent.FocusAreas {
		if focus != "" && strings.Contains(label, strings.ToLower(focus)) {
			score += 0.8
		}
	}
	if score > 5.0 {
		score = 5.0
	}
	return score
}

// PruneByDepth keeps only nodes reachable from the roots within maxDepth hops
// over outgoing edges.
func PruneByDepth(g *model.Graph, maxDepth int) *model.Graph {
	if maxDepth <= 0 || len(g.RootNodes) == 0 {
		return g
	}

	adj := make(map[string][]string)
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	depth := make(map[string]int)
	queue := make([]string, 0, len(g.RootNodes))
	for _, id := range g.RootNodes {
		depth[id] = 0
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth[cur] >= maxDepth {
			continue
		}
		for _, next := range adj[cur] {
			if _, ok := depth[next]; ok {
				continue
			}
			depth[next] = depth[cur] + 1
			queue = append(queue, next)
		}
	}

	var nodes []model.Node
	for _, n := range g.Nodes {
		if _, ok := depth[n.ID]; ok {
			nodes = append(nodes, n)
		}
	}
	var edges []model.Edge
	for _, e := range g.Edges {
		if _, ok := depth[e.Source]; !ok {
			continue
		}
		if _, ok := depth[e.Target]; !ok {
			continue
		}
		edges = append(edges, e)
	}
	return &model.Graph{Nodes: nodes, Edges: edges, RootNodes: g.RootNodes, Clusters: g.Clusters}
}
