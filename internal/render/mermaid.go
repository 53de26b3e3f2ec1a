// Package render turns a laid-out graph into its export formats: a Mermaid
// flowchart, a viewer-oriented JSON document, and a standalone HTML page.
package render

import (
	"regexp"
	"sort"
	"strings"

	"github.com/codemap-dev/codemapd/internal/model"
)

func sortedClusterNames(clusters map[string][]string) []string {
	names := make([]string, 0, len(clusters))
	for name := range clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type shape struct{ open, close string }

var nodeShapes = map[model.NodeType]shape{
	model.NodeFile:      {"([", "])"},
	model.NodeModule:    {"[[", "]]"},
	model.NodeClass:     {"[", "]"},
	model.NodeInterface: {"{{", "}}"},
	model.NodeFunction:  {"(", ")"},
	model.NodeMethod:    {"(", ")"},
	model.NodeTypeDef:   {"[/", "/]"},
	model.NodeEndpoint:  {">", "]"},
	model.NodeDatabase:  {"[(", ")]"},
	model.NodeExternal:  {"((", "))"},
	model.NodeVariable:  {"[", "]"},
	model.NodeConstant:  {"[", "]"},
}

var edgeStyles = map[model.EdgeType]string{
	model.EdgeImports:      "-->",
	model.EdgeExports:      "-->",
	model.EdgeCalls:        "==>",
	model.EdgeExtends:      "-.->",
	model.EdgeImplements:   "-.->",
	model.EdgeUses:         "-->",
	model.EdgeReturns:      "-->",
	model.EdgeInstantiates: "-->",
	model.EdgeDataFlow:     "~~~",
	model.EdgeControlFlow:  "-->",
	model.EdgeDependsOn:    "-->",
	model.EdgeContains:     "-->",
}

var nodePrefixes = map[model.NodeType]string{
	model.NodeClass:     "📦 ",
	model.NodeInterface: "📦 ",
	model.NodeFunction:  "⚙️ ",
	model.NodeMethod:    "🔧 ",
	model.NodeFile:      "📄 ",
	model.NodeEndpoint:  "🌐 ",
	model.NodeDatabase:  "🗄️ ",
}

// Mermaid renders graphs as Mermaid flowchart source for mermaid.js.
type Mermaid struct{}

// Render produces a flowchart with cluster subgraphs. Force-layout intents
// read better left-to-right; everything else flows top-to-bottom.
func (m *Mermaid) Render(g *model.Graph, intent *model.Intent) string {
	direction := "TB"
	if intent != nil && intent.PreferredLayout == "force" {
		direction = "LR"
	}

	var b strings.Builder
	b.WriteString("flowchart " + direction + "\n\n")
	writeStyles(&b)
	b.WriteString("\n")

	rendered := make(map[string]bool)
	for _, name := range sortedClusterNames(g.Clusters) {
		ids := g.Clusters[name]
		if len(ids) < 2 {
			continue
		}
		writeSubgraph(&b, name, ids, g.Nodes)
		for _, id := range ids {
			rendered[id] = true
		}
	}

	b.WriteString("\n")
	for _, n := range g.Nodes {
		if !rendered[n.ID] {
			b.WriteString(renderNode(n, "    ") + "\n")
		}
	}

	b.WriteString("\n")
	for _, e := range g.Edges {
		b.WriteString(renderEdge(e) + "\n")
	}
	return b.String()
}

// RenderSimple skips subgraphs; useful when clusters confuse the renderer.
func (m *Mermaid) RenderSimple(g *model.Graph) string {
	var b strings.Builder
	b.WriteString("flowchart TB\n")
	for _, n := range g.Nodes {
		b.WriteString(renderNode(n, "    ") + "\n")
	}
	b.WriteString("\n")
	for _, e := range g.Edges {
		b.WriteString(renderEdge(e) + "\n")
	}
	return b.String()
}

func renderNode(n model.Node, indent string) string {
	sh, ok := nodeShapes[n.Type]
	if !ok {
		sh = shape{"[", "]"}
	}
	label := nodePrefixes[n.Type] + sanitizeLabel(n.Label)
	return indent + sanitizeID(n.ID) + sh.open + label + sh.close
}

func renderEdge(e model.Edge) string {
	style, ok := edgeStyles[e.Type]
	if !ok {
		style = "-->"
	}
	src, dst := sanitizeID(e.Source), sanitizeID(e.Target)
	if e.Label != "" {
		return "    " + src + " " + style + "|" + sanitizeLabel(e.Label) + "| " + dst
	}
	return "    " + src + " " + style + " " + dst
}

func writeSubgraph(b *strings.Builder, name string, ids []string, nodes []model.Node) {
	member := make(map[string]bool, len(ids))
	for _, id := range ids {
		member[id] = true
	}
	var cluster []model.Node
	for _, n := range nodes {
		if member[n.ID] {
			cluster = append(cluster, n)
		}
	}
	if len(cluster) == 0 {
		return
	}

	b.WriteString("    subgraph " + sanitizeID(name) + "[" + clusterDisplayName(name) + "]\n")
	for _, n := range cluster {
		b.WriteString(renderNode(n, "        ") + "\n")
	}
	b.WriteString("    end\n")
}

func clusterDisplayName(name string) string {
	switch {
	case strings.HasPrefix(name, "dir:"):
		return name[4:]
	case strings.HasPrefix(name, "type:"):
		rest := name[5:]
		if rest == "" {
			return rest
		}
		return strings.ToUpper(rest[:1]) + rest[1:]
	case strings.HasPrefix(name, "component:"):
		return "Component " + name[10:]
	}
	return name
}

func writeStyles(b *strings.Builder) {
	b.WriteString("    %% Styles\n")
	b.WriteString("    classDef fileNode fill:#e1f5fe,stroke:#01579b,stroke-width:2px\n")
	b.WriteString("    classDef classNode fill:#fff3e0,stroke:#e65100,stroke-width:2px\n")
	b.WriteString("    classDef funcNode fill:#e8f5e9,stroke:#1b5e20,stroke-width:2px\n")
	b.WriteString("    classDef interfaceNode fill:#f3e5f5,stroke:#4a148c,stroke-width:2px\n")
	b.WriteString("    classDef externalNode fill:#fafafa,stroke:#757575,stroke-width:1px,stroke-dasharray: 5 5\n")
}

var idUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_]`)

func sanitizeID(id string) string {
	s := idUnsafe.ReplaceAllString(id, "_")
	if s != "" && !isAlpha(s[0]) {
		s = "n" + s
	}
	return s
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

var labelReplacer = strings.NewReplacer(
	`"`, "'",
	"[", "(",
	"]", ")",
	"{", "(",
	"}", ")",
	"<", "&lt;",
	">", "&gt;",
)

func sanitizeLabel(label string) string {
	label = labelReplacer.Replace(label)
	if runes := []rune(label); len(runes) > 30 {
		label = string(runes[:27]) + "..."
	}
	return label
}
