package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codemap-dev/codemapd/internal/model"
)

const (
	minClusterSize = 2
	maxClusterSize = 20
)

// Clusterer groups graph nodes into named clusters for rendering. Strategies
// are tried in order and the first that produces usable clusters wins.
type Clusterer struct{}

// Cluster assigns g.Clusters according to the requested strategy: "directory",
// "type", "connectivity", or "auto" which tries each in turn.
func (c *Clusterer) Cluster(g *model.Graph, strategy string) {
	var clusters map[string][]string
	switch strategy {
	case "type":
		clusters = clusterByType(g)
	case "connectivity":
		clusters = clusterByConnectivity(g)
	case "directory":
		clusters = clusterByDirectory(g)
	default:
		clusters = clusterByDirectory(g)
		if len(clusters) == 0 {
			clusters = clusterByType(g)
		}
		if len(clusters) == 0 {
			clusters = clusterByConnectivity(g)
		}
	}
	g.Clusters = refineClusters(clusters, g)
}

// clusterByDirectory groups nodes by the first two path levels of their
// source location, falling back to the node's declared group.
func clusterByDirectory(g *model.Graph) map[string][]string {
	clusters := make(map[string][]string)
	for _, n := range g.Nodes {
		name := ""
		switch {
		case n.Location != nil && n.Location.FilePath != "":
			parts := strings.Split(n.Location.FilePath, "/")
			if len(parts) > 1 {
				depth := len(parts) - 1
				if depth > 2 {
					depth = 2
				}
				name = "dir:" + strings.Join(parts[:depth], "/")
			} else {
				name = "dir:root"
			}
		case n.Group != "":
			name = "dir:" + n.Group
		default:
			continue
		}
		clusters[name] = append(clusters[name], n.ID)
	}
	return clusters
}

// clusterByType groups nodes of the same kind, keeping only kinds with at
// least three members.
func clusterByType(g *model.Graph) map[string][]string {
	byType := make(map[string][]string)
	for _, n := range g.Nodes {
		key := "type:" + string(n.Type)
		byType[key] = append(byType[key], n.ID)
	}
	clusters := make(map[string][]string)
	for name, ids := range byType {
		if len(ids) >= 3 {
			clusters[name] = ids
		}
	}
	return clusters
}

// clusterByConnectivity finds connected components over structural edges via
// union-find; singleton components are dropped.
func clusterByConnectivity(g *model.Graph) map[string][]string {
	parent := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		parent[n.ID] = n.ID
	}
	var find func(string) string
	find = func(x string) string {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for _, e := range g.Edges {
		switch e.Type {
		case model.EdgeImports, model.EdgeCalls, model.EdgeExtends:
			if _, ok := parent[e.Source]; !ok {
				continue
			}
			if _, ok := parent[e.Target]; !ok {
				continue
			}
			union(e.Source, e.Target)
		}
	}

	components := make(map[string][]string)
	for _, n := range g.Nodes {
		root := find(n.ID)
		components[root] = append(components[root], n.ID)
	}

	roots := make([]string, 0, len(components))
	for root, ids := range components {
		if len(ids) >= 2 {
			roots = append(roots, root)
		}
	}
	sort.Strings(roots)

	clusters := make(map[string][]string)
	for i, root := range roots {
		clusters[fmt.Sprintf("component:%d", i)] = components[root]
	}
	return clusters
}

// refineClusters drops undersized clusters and splits oversized ones by
// subdirectory, then node type.
func refineClusters(clusters map[string][]string, g *model.Graph) map[string][]string {
	byID := make(map[string]model.Node, len(g.Nodes))
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}

	refined := make(map[string][]string)
	for name, ids := range clusters {
		sort.Strings(ids)
		switch {
		case len(ids) < minClusterSize:
			continue
		case len(ids) > maxClusterSize:
			for sub, subIDs := range splitCluster(name, ids, byID) {
				if len(subIDs) >= minClusterSize {
					sort.Strings(subIDs)
					refined[sub] = subIDs
				}
			}
		default:
			refined[name] = ids
		}
	}
	return refined
}

func splitCluster(name string, ids []string, byID map[string]model.Node) map[string][]string {
	bySubdir := make(map[string][]string)
	for _, id := range ids {
		n := byID[id]
		key := name + "/misc"
		if n.Location != nil {
			parts := strings.Split(n.Location.FilePath, "/")
			if len(parts) > 1 {
				key = name + "/" + parts[1]
			}
		}
		bySubdir[key] = append(bySubdir[key], id)
	}
	if len(bySubdir) > 1 {
		return bySubdir
	}

	byType := make(map[string][]string)
	for _, id := range ids {
		byType[name+"/"+string(byID[id].Type)] = append(byType[name+"/"+string(byID[id].Type)], id)
	}
	return byType
}
