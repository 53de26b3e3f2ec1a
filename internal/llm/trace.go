package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/codemap-dev/codemapd/internal/model"
)

// TraceWriter produces the narrative guide that walks a reader through the
// generated graph. When the model cannot answer, a structural fallback guide
// grouped by node type keeps the artifact complete.
type TraceWriter struct {
	completer Completer
	log       *zap.SugaredLogger
}

func NewTraceWriter(completer Completer, log *zap.SugaredLogger) *TraceWriter {
	return &TraceWriter{completer: completer, log: log}
}

func (w *TraceWriter) Write(ctx context.Context, query, language string, graph *model.Graph) *model.TraceGuide {
	roots := graph.RootNodes
	if len(roots) > 5 {
		roots = roots[:5]
	}
	user := fmt.Sprintf(traceUserPrompt,
		query,
		language,
		len(graph.Nodes),
		len(graph.Edges),
		strings.Join(roots, ", "),
		buildNodesSummary(graph),
		buildEdgesSummary(graph),
		buildClustersSummary(graph),
	)

	raw, err := w.completer.Complete(ctx, traceSystemPrompt, user)
	if err != nil {
		w.log.Warnw("trace guide completion failed", "error", err)
		return fallbackGuide(query, graph)
	}

	guide, err := parseTraceGuide(raw)
	if err != nil {
		w.log.Warnw("unparseable trace guide reply", "error", err)
		return fallbackGuide(query, graph)
	}

	pruneUnknownNodeIDs(guide, graph)
	return guide
}

func parseTraceGuide(raw string) (*model.TraceGuide, error) {
	payload := stripFences(raw)

	var guide model.TraceGuide
	if err := json.Unmarshal([]byte(payload), &guide); err != nil {
		extracted := firstJSONValue(payload)
		if extracted == "" {
			return nil, err
		}
		if err := json.Unmarshal([]byte(extracted), &guide); err != nil {
			return nil, err
		}
	}

	if guide.Title == "" {
		guide.Title = "Code Trace Guide"
	}
	if guide.Summary == "" {
		guide.Summary = "Analysis of the requested code flow."
	}
	for i := range guide.Sections {
		if guide.Sections[i].ID == "" {
			guide.Sections[i].ID = fmt.Sprintf("section-%d", i+1)
		}
		if guide.Sections[i].Title == "" {
			guide.Sections[i].Title = fmt.Sprintf("Section %d", i+1)
		}
	}
	sort.SliceStable(guide.Sections, func(i, j int) bool {
		return guide.Sections[i].Order < guide.Sections[j].Order
	})
	return &guide, nil
}

// pruneUnknownNodeIDs drops section references to nodes that are not in the
// graph; hallucinated ids would otherwise break front-end highlighting.
func pruneUnknownNodeIDs(guide *model.TraceGuide, graph *model.Graph) {
	known := graph.NodeIDs()
	for i := range guide.Sections {
		kept := guide.Sections[i].NodeIDs[:0]
		for _, id := range guide.Sections[i].NodeIDs {
			if known[id] {
				kept = append(kept, id)
			}
		}
		guide.Sections[i].NodeIDs = kept
	}
}

func buildNodesSummary(graph *model.Graph) string {
	nodes := make([]model.Node, len(graph.Nodes))
	copy(nodes, graph.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Importance.Rank() > nodes[j].Importance.Rank()
	})
	if len(nodes) > 20 {
		nodes = nodes[:20]
	}

	var lines []string
	for _, node := range nodes {
		location := ""
		if node.Location != nil {
			location = fmt.Sprintf(" (%s:%d)", node.Location.FilePath, node.Location.LineStart)
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s: %s%s", node.Importance, node.Type, node.Label, location))
		if node.Description != "" {
			desc := node.Description
			if len(desc) > 100 {
				desc = desc[:100]
			}
			lines = append(lines, "  Description: "+desc)
		}
	}
	return strings.Join(lines, "\n")
}

func buildEdgesSummary(graph *model.Graph) string {
	byType := make(map[model.EdgeType][]model.Edge)
	for _, edge := range graph.Edges {
		byType[edge.Type] = append(byType[edge.Type], edge)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)

	var lines []string
	for _, t := range types {
		edges := byType[model.EdgeType(t)]
		lines = append(lines, fmt.Sprintf("%s relationships (%d total):", strings.ToUpper(t), len(edges)))
		show := edges
		if len(show) > 10 {
			show = show[:10]
		}
		for _, edge := range show {
			label := ""
			if edge.Label != "" {
				label = fmt.Sprintf(" (%s)", edge.Label)
			}
			lines = append(lines, fmt.Sprintf("  - %s -> %s%s", edge.Source, edge.Target, label))
		}
	}
	return strings.Join(lines, "\n")
}

func buildClustersSummary(graph *model.Graph) string {
	if len(graph.Clusters) == 0 {
		return "No clusters defined"
	}
	names := make([]string, 0, len(graph.Clusters))
	for name := range graph.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("- %s: %d nodes", name, len(graph.Clusters[name])))
	}
	return strings.Join(lines, "\n")
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// fallbackGuide builds a purely structural guide grouped by node type.
func fallbackGuide(query string, graph *model.Graph) *model.TraceGuide {
	byType := make(map[model.NodeType][]model.Node)
	for _, node := range graph.Nodes {
		byType[node.Type] = append(byType[node.Type], node)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)

	var sections []model.TraceSection
	for order, t := range types {
		nodes := byType[model.NodeType(t)]
		show := nodes
		if len(show) > 10 {
			show = show[:10]
		}
		var content []string
		for _, node := range show {
			desc := node.Description
			if desc == "" {
				desc = "No description"
			}
			content = append(content, fmt.Sprintf("- **%s**: %s", node.Label, desc))
		}
		ids := make([]string, len(nodes))
		for i, node := range nodes {
			ids[i] = node.ID
		}
		sections = append(sections, model.TraceSection{
			ID:      "section-" + t,
			Title:   titleWords(strings.ReplaceAll(t, "_", " ")) + "s",
			Content: strings.Join(content, "\n"),
			NodeIDs: ids,
			Order:   order,
		})
	}

	title := "Code Map: " + query
	if len(query) > 50 {
		title = "Code Map: " + query[:50] + "..."
	}
	return &model.TraceGuide{
		Title:      title,
		Summary:    fmt.Sprintf("This code map shows %d components and %d relationships.", len(graph.Nodes), len(graph.Edges)),
		Sections:   sections,
		Conclusion: "Explore the graph to understand how these components interact.",
	}
}
