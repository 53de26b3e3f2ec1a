package generator

import (
	"crypto/md5"
	"encoding/binary"
	"math"
	"math/rand"
	"sort"

	"github.com/codemap-dev/codemapd/internal/model"
)

const (
	nodeWidth  = 150.0
	nodeHeight = 50.0
	hSpacing   = 50.0
	vSpacing   = 80.0
)

// LayoutEngine assigns x/y coordinates to every node in a graph.
type LayoutEngine struct{}

// Apply runs the named layout ("hierarchical", "force", or "radial") and
// marks every node as placed. Unknown names fall back to hierarchical.
func (l *LayoutEngine) Apply(g *model.Graph, layout string) {
	switch layout {
	case "force":
		layoutForce(g)
	case "radial":
		layoutRadial(g)
	default:
		layoutHierarchical(g)
	}
	for i := range g.Nodes {
		g.Nodes[i].Width = nodeWidth
		g.Nodes[i].Height = nodeHeight
		g.Nodes[i].Placed = true
	}
}

// layoutHierarchical arranges nodes in BFS levels from the roots, each level
// a horizontal row centered on x=0.
func layoutHierarchical(g *model.Graph) {
	if len(g.Nodes) == 0 {
		return
	}

	adj := make(map[string][]string)
	incoming := make(map[string]int)
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		incoming[e.Target]++
	}

	roots := layoutRoots(g, incoming)

	level := make(map[string]int)
	queue := make([]string, 0, len(roots))
	for _, id := range roots {
		level[id] = 0
		queue = append(queue, id)
	}
	maxLevel := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if _, ok := level[next]; ok {
				continue
			}
			level[next] = level[cur] + 1
			if level[next] > maxLevel {
				maxLevel = level[next]
			}
			queue = append(queue, next)
		}
	}
	for _, n := range g.Nodes {
		if _, ok := level[n.ID]; !ok {
			level[n.ID] = maxLevel + 1
		}
	}

	byLevel := make(map[int][]int)
	for i, n := range g.Nodes {
		byLevel[level[n.ID]] = append(byLevel[level[n.ID]], i)
	}
	for lv, idxs := range byLevel {
		sort.Slice(idxs, func(a, b int) bool { return g.Nodes[idxs[a]].ID < g.Nodes[idxs[b]].ID })
		total := float64(len(idxs))*(nodeWidth+hSpacing) - hSpacing
		startX := -total / 2
		y := float64(lv) * (nodeHeight + vSpacing)
		for i, idx := range idxs {
			g.Nodes[idx].X = startX + float64(i)*(nodeWidth+hSpacing)
			g.Nodes[idx].Y = y
		}
	}
}

// layoutRoots picks hierarchy roots: nodes with no incoming edge, else up to
// five file nodes, else the three most-connected nodes.
func layoutRoots(g *model.Graph, incoming map[string]int) []string {
	var roots []string
	for _, n := range g.Nodes {
		if incoming[n.ID] == 0 {
			roots = append(roots, n.ID)
		}
	}
	if len(roots) > 0 {
		sort.Strings(roots)
		return roots
	}

	for _, n := range g.Nodes {
		if n.Type == model.NodeFile {
			roots = append(roots, n.ID)
			if len(roots) == 5 {
				break
			}
		}
	}
	if len(roots) > 0 {
		return roots
	}

	out := make(map[string]int)
	for _, e := range g.Edges {
		out[e.Source]++
	}
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		if out[ids[i]] != out[ids[j]] {
			return out[ids[i]] > out[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > 3 {
		ids = ids[:3]
	}
	return ids
}

// layoutForce runs a Fruchterman-Reingold simulation. The initial placement
// comes from a PRNG seeded from the node id set, so the same graph always
// lays out identically.
func layoutForce(g *model.Graph) {
	n := len(g.Nodes)
	if n == 0 {
		return
	}

	ids := make([]string, 0, n)
	for _, node := range g.Nodes {
		ids = append(ids, node.ID)
	}
	sort.Strings(ids)
	h := md5.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	seed := int64(binary.BigEndian.Uint64(h.Sum(nil)[:8]))
	rng := rand.New(rand.NewSource(seed))

	area := float64(n) * 10000
	k := math.Sqrt(area / float64(n))
	bound := area / 2

	pos := make(map[string][2]float64, n)
	for _, id := range ids {
		pos[id] = [2]float64{rng.Float64()*area - area/2, rng.Float64()*area - area/2}
	}

	for iter := 0; iter < 50; iter++ {
		temp := area / 10 / float64(iter+1)
		disp := make(map[string][2]float64, n)

		for i, a := range ids {
			for _, b := range ids[i+1:] {
				dx := pos[a][0] - pos[b][0]
				dy := pos[a][1] - pos[b][1]
				dist := math.Hypot(dx, dy)
				if dist < 0.01 {
					dist = 0.01
				}
				force := k * k / dist
				fx, fy := dx/dist*force, dy/dist*force
				da, db := disp[a], disp[b]
				da[0] += fx
				da[1] += fy
				db[0] -= fx
				db[1] -= fy
				disp[a] = da
				disp[b] = db
			}
		}

		for _, e := range g.Edges {
			pa, aok := pos[e.Source]
			pb, bok := pos[e.Target]
			if !aok || !bok {
				continue
			}
			dx := pa[0] - pb[0]
			dy := pa[1] - pb[1]
			dist := math.Hypot(dx, dy)
			if dist < 0.01 {
				dist = 0.01
			}
			force := dist * dist / k
			fx, fy := dx/dist*force, dy/dist*force
			da, db := disp[e.Source], disp[e.Target]
			da[0] -= fx
			da[1] -= fy
			db[0] += fx
			db[1] += fy
			disp[e.Source] = da
			disp[e.Target] = db
		}

		for _, id := range ids {
			d := disp[id]
			mag := math.Hypot(d[0], d[1])
			if mag < 0.01 {
				continue
			}
			step := math.Min(mag, temp)
			p := pos[id]
			p[0] += d[0] / mag * step
			p[1] += d[1] / mag * step
			p[0] = math.Max(-bound, math.Min(bound, p[0]))
			p[1] = math.Max(-bound, math.Min(bound, p[1]))
			pos[id] = p
		}
	}

	for i := range g.Nodes {
		p := pos[g.Nodes[i].ID]
		g.Nodes[i].X = p[0]
		g.Nodes[i].Y = p[1]
	}
}

// layoutRadial places the best-connected node at the center with the rest on
// concentric rings by BFS distance.
func layoutRadial(g *model.Graph) {
	if len(g.Nodes) == 0 {
		return
	}

	degree := make(map[string]int)
	adj := make(map[string][]string)
	for _, e := range g.Edges {
		degree[e.Source]++
		degree[e.Target]++
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}

	center := g.Nodes[0].ID
	for _, n := range g.Nodes {
		if degree[n.ID] > degree[center] || (degree[n.ID] == degree[center] && n.ID < center) {
			center = n.ID
		}
	}

	level := map[string]int{center: 0}
	queue := []string{center}
	maxLevel := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if _, ok := level[next]; ok {
				continue
			}
			level[next] = level[cur] + 1
			if level[next] > maxLevel {
				maxLevel = level[next]
			}
			queue = append(queue, next)
		}
	}
	for _, n := range g.Nodes {
		if _, ok := level[n.ID]; !ok {
			level[n.ID] = maxLevel + 1
		}
	}

	byLevel := make(map[int][]int)
	for i, n := range g.Nodes {
		byLevel[level[n.ID]] = append(byLevel[level[n.ID]], i)
	}
	for lv, idxs := range byLevel {
		sort.Slice(idxs, func(a, b int) bool { return g.Nodes[idxs[a]].ID < g.Nodes[idxs[b]].ID })
		if lv == 0 {
			for _, idx := range idxs {
				g.Nodes[idx].X = 0
				g.Nodes[idx].Y = 0
			}
			continue
		}
		radius := 150.0 * float64(lv)
		for i, idx := range idxs {
			angle := float64(i) * 2 * math.Pi / float64(len(idxs))
			g.Nodes[idx].X = radius * math.Cos(angle)
			g.Nodes[idx].Y = radius * math.Sin(angle)
		}
	}
}
