package render

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/codemap-dev/codemapd/internal/model"
)

// GraphDoc is the JSON export format. It wraps the graph with counts so
// viewers can size themselves without walking the arrays.
type GraphDoc struct {
	Nodes     []model.Node        `json:"nodes"`
	Edges     []model.Edge        `json:"edges"`
	RootNodes []string            `json:"root_nodes"`
	Clusters  map[string][]string `json:"clusters"`
	Metadata  GraphDocMeta        `json:"metadata"`
}

type GraphDocMeta struct {
	NodeCount    int `json:"node_count"`
	EdgeCount    int `json:"edge_count"`
	ClusterCount int `json:"cluster_count"`
}

// JSONGraph serializes a graph to the export document.
func JSONGraph(g *model.Graph) (string, error) {
	doc := GraphDoc{
		Nodes:     g.Nodes,
		Edges:     g.Edges,
		RootNodes: g.RootNodes,
		Clusters:  g.Clusters,
		Metadata: GraphDocMeta{
			NodeCount:    len(g.Nodes),
			EdgeCount:    len(g.Edges),
			ClusterCount: len(g.Clusters),
		},
	}
	if doc.RootNodes == nil {
		doc.RootNodes = []string{}
	}
	if doc.Clusters == nil {
		doc.Clusters = map[string][]string{}
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal graph")
	}
	return string(out), nil
}

// ParseJSONGraph reverses JSONGraph; exports survive a round trip.
func ParseJSONGraph(data string) (*model.Graph, error) {
	var doc GraphDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, errors.Wrap(err, "unmarshal graph")
	}
	return &model.Graph{
		Nodes:     doc.Nodes,
		Edges:     doc.Edges,
		RootNodes: doc.RootNodes,
		Clusters:  doc.Clusters,
	}, nil
}

// d3Node and d3Link follow the force-directed input shape D3 expects.
type d3Node struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Group      string  `json:"group"`
	Type       string  `json:"type"`
	Importance string  `json:"importance"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

type d3Link struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Value  float64 `json:"value"`
}

type d3Doc struct {
	Nodes []d3Node `json:"nodes"`
	Links []d3Link `json:"links"`
}

// D3Graph renders the graph in D3's force-directed format.
func D3Graph(g *model.Graph) (string, error) {
	doc := d3Doc{Nodes: make([]d3Node, 0, len(g.Nodes)), Links: make([]d3Link, 0, len(g.Edges))}
	for _, n := range g.Nodes {
		group := n.Group
		if group == "" {
			group = string(n.Type)
		}
		doc.Nodes = append(doc.Nodes, d3Node{
			ID:         n.ID,
			Label:      n.Label,
			Group:      group,
			Type:       string(n.Type),
			Importance: string(n.Importance),
			X:          n.X,
			Y:          n.Y,
		})
	}
	for _, e := range g.Edges {
		doc.Links = append(doc.Links, d3Link{Source: e.Source, Target: e.Target, Type: string(e.Type), Value: e.Weight})
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal d3 graph")
	}
	return string(out), nil
}
