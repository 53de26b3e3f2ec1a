// Package model defines the codemap data model shared by every stage of the
// generation pipeline: graph nodes and edges, the trace guide, the persisted
// Codemap artifact, and the progress/request wire shapes.
package model

import (
	"strings"
	"time"
)

// NodeType classifies a graph node. Superset of the extracted symbol kinds
// plus endpoint/database/external for nodes that have no source location.
type NodeType string

const (
	NodeFile      NodeType = "file"
	NodeModule    NodeType = "module"
	NodeClass     NodeType = "class"
	NodeFunction  NodeType = "function"
	NodeMethod    NodeType = "method"
	NodeVariable  NodeType = "variable"
	NodeConstant  NodeType = "constant"
	NodeInterface NodeType = "interface"
	NodeTypeDef   NodeType = "type"
	NodeEndpoint  NodeType = "endpoint"
	NodeDatabase  NodeType = "database"
	NodeExternal  NodeType = "external"
)

// EdgeType classifies a relationship between two nodes.
type EdgeType string

const (
	EdgeImports      EdgeType = "imports"
	EdgeExports      EdgeType = "exports"
	EdgeCalls        EdgeType = "calls"
	EdgeExtends      EdgeType = "extends"
	EdgeImplements   EdgeType = "implements"
	EdgeUses         EdgeType = "uses"
	EdgeReturns      EdgeType = "returns"
	EdgeInstantiates EdgeType = "instantiates"
	EdgeDataFlow     EdgeType = "data_flow"
	EdgeControlFlow  EdgeType = "control_flow"
	EdgeDependsOn    EdgeType = "depends_on"
	EdgeContains     EdgeType = "contains"
)

// ParseEdgeType maps a free-form string (typically LLM output) to an
// EdgeType, defaulting to depends_on for anything unrecognized.
func ParseEdgeType(raw string) EdgeType {
	t := EdgeType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case EdgeImports, EdgeExports, EdgeCalls, EdgeExtends, EdgeImplements,
		EdgeUses, EdgeReturns, EdgeInstantiates, EdgeDataFlow,
		EdgeControlFlow, EdgeDependsOn, EdgeContains:
		return t
	}
	return EdgeDependsOn
}

// Importance is the relevance tier of a node.
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
	ImportanceLow      Importance = "low"
)

// Rank orders importance tiers for sorting; higher is more important.
func (i Importance) Rank() int {
	switch i {
	case ImportanceCritical:
		return 4
	case ImportanceHigh:
		return 3
	case ImportanceMedium:
		return 2
	case ImportanceLow:
		return 1
	}
	return 0
}

// ParseImportance maps a free-form string to an Importance tier, defaulting
// to medium.
func ParseImportance(raw string) Importance {
	switch Importance(strings.ToLower(strings.TrimSpace(raw))) {
	case ImportanceCritical:
		return ImportanceCritical
	case ImportanceHigh:
		return ImportanceHigh
	case ImportanceLow:
		return ImportanceLow
	}
	return ImportanceMedium
}

// Status is the lifecycle state of a codemap. Transitions are strictly
// forward; failed is reachable from any non-terminal state and terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAnalyzing  Status = "analyzing"
	StatusGenerating Status = "generating"
	StatusRendering  Status = "rendering"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// seq orders the forward states; failed sits outside the sequence.
func (s Status) seq() int {
	switch s {
	case StatusPending:
		return 0
	case StatusAnalyzing:
		return 1
	case StatusGenerating:
		return 2
	case StatusRendering:
		return 3
	case StatusCompleted:
		return 4
	}
	return -1
}

// CanTransition reports whether moving from s to next respects the forward
// ordering of the state machine.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return next.seq() > s.seq()
}

// SourceLocation is an exact span in a repository file. Lines are 1-based;
// columns, when present, are 0-based.
type SourceLocation struct {
	FilePath    string `json:"file_path"`
	LineStart   int    `json:"line_start"`
	LineEnd     int    `json:"line_end"`
	ColumnStart int    `json:"column_start,omitempty"`
	ColumnEnd   int    `json:"column_end,omitempty"`
}

// Valid reports whether the location satisfies its invariants.
func (l SourceLocation) Valid() bool {
	return l.FilePath != "" && l.LineStart >= 1 && l.LineEnd >= l.LineStart
}

// Snippet is a short code preview attached to a node.
type Snippet struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Node is one vertex of a codemap graph. X/Y/Width/Height are zero until the
// layout engine assigns them; Placed distinguishes "laid out at origin" from
// "not laid out".
type Node struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	Type        NodeType        `json:"type"`
	Location    *SourceLocation `json:"location,omitempty"`
	Description string          `json:"description,omitempty"`
	Importance  Importance      `json:"importance"`
	Snippet     *Snippet        `json:"snippet,omitempty"`
	ParentID    string          `json:"parent_id,omitempty"`
	Group       string          `json:"group,omitempty"`
	Metadata    Meta            `json:"metadata,omitempty"`

	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Placed bool    `json:"placed,omitempty"`
}

// Edge is one relationship between two nodes. Source and Target must
// reference nodes present in the same graph; the builder and the pruner both
// enforce this.
type Edge struct {
	ID          string   `json:"id"`
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	Type        EdgeType `json:"type"`
	Label       string   `json:"label,omitempty"`
	Description string   `json:"description,omitempty"`
	Weight      float64  `json:"weight"`
	Metadata    Meta     `json:"metadata,omitempty"`
}

// Graph is the assembled codemap graph. Node and edge order is significant
// and deterministic for a given analysis.
type Graph struct {
	Nodes     []Node              `json:"nodes"`
	Edges     []Edge              `json:"edges"`
	RootNodes []string            `json:"root_nodes"`
	Clusters  map[string][]string `json:"clusters"`
}

// NodeIDs returns the set of node ids present in the graph.
func (g *Graph) NodeIDs() map[string]bool {
	ids := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	return ids
}

// TraceSection is one ordered step of the narrative guide.
type TraceSection struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	NodeIDs []string `json:"node_ids"`
	Order   int      `json:"order"`
}

// TraceGuide is the narrative explanation of a codemap.
type TraceGuide struct {
	Title      string         `json:"title"`
	Summary    string         `json:"summary"`
	Sections   []TraceSection `json:"sections"`
	Conclusion string         `json:"conclusion,omitempty"`
}

// RenderOutput carries the rendered formats of a graph.
type RenderOutput struct {
	Mermaid   string `json:"mermaid"`
	JSONGraph string `json:"json_graph"`
	HTML      string `json:"html,omitempty"`
}

// Codemap is the complete persisted artifact of one generation request.
type Codemap struct {
	ID string `json:"id"`

	RepoURL    string `json:"repo_url"`
	RepoOwner  string `json:"repo_owner"`
	RepoName   string `json:"repo_name"`
	CommitHash string `json:"commit_hash,omitempty"`

	Query        string `json:"query"`
	AnalysisType string `json:"analysis_type"`

	Title       string       `json:"title"`
	Description string       `json:"description"`
	Graph       Graph        `json:"graph"`
	TraceGuide  TraceGuide   `json:"trace_guide"`
	Render      RenderOutput `json:"render"`

	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	GenerationMS int64     `json:"generation_time_ms"`
	ModelUsed    string    `json:"model_used"`

	IsPublic       bool       `json:"is_public"`
	ShareToken     string     `json:"share_token,omitempty"`
	ShareExpiresAt *time.Time `json:"share_expires_at,omitempty"`
}

// Progress is one streamed update during generation. Ephemeral: emitted to
// the progress sink, never persisted.
type Progress struct {
	CodemapID       string `json:"codemap_id"`
	Status          Status `json:"status"`
	ProgressPercent int    `json:"progress_percent"`
	CurrentStep     string `json:"current_step"`
	Details         string `json:"details,omitempty"`

	NodesFound    int `json:"nodes_found"`
	EdgesFound    int `json:"edges_found"`
	FilesAnalyzed int `json:"files_analyzed"`
	TotalFiles    int `json:"total_files"`
}

// Intent is the structured reading of the user's query produced by the
// intent classifier. Every downstream ranking decision consumes it.
type Intent struct {
	Intent          string   `json:"intent"`
	FocusAreas      []string `json:"focus_areas"`
	AnalysisType    string   `json:"analysis_type"`
	PreferredLayout string   `json:"preferred_layout"`
	Depth           int      `json:"depth"`
	Keywords        []string `json:"keywords"`
}
