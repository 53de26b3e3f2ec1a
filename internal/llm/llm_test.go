package llm

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/codemap-dev/codemapd/internal/analyzer"
	"github.com/codemap-dev/codemapd/internal/errdefs"
	"github.com/codemap-dev/codemapd/internal/model"
)

// stubCompleter replays a canned reply or error.
type stubCompleter struct {
	reply string
	err   error

	lastSystem string
	lastUser   string
}

func (s *stubCompleter) Complete(_ context.Context, system, user string) (string, error) {
	s.lastSystem = system
	s.lastUser = user
	return s.reply, s.err
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"{\"a\": 1}", "{\"a\": 1}"},
		{"```json\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"```\n[1, 2]\n```", "[1, 2]"},
		{"```json\n{\"a\": 1}", "{\"a\": 1}"},
	}
	for _, tc := range cases {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFirstJSONValue(t *testing.T) {
	got := firstJSONValue(`Here is the result: {"intent": "understand_flow", "note": "a {brace} in string"} hope it helps`)
	want := `{"intent": "understand_flow", "note": "a {brace} in string"}`
	if got != want {
		t.Errorf("got %q", got)
	}
	if firstJSONValue("no json here") != "" {
		t.Error("expected empty result for prose")
	}
}

func TestClassifyWellFormed(t *testing.T) {
	stub := &stubCompleter{reply: "```json\n" + `{
		"intent": "find_dependencies",
		"focus_areas": ["auth"],
		"analysis_type": "dependencies",
		"preferred_layout": "radial",
		"depth": 9,
		"keywords": ["auth", "login"]
	}` + "\n```"}

	intent, err := NewIntentClassifier(stub, zaptest.NewLogger(t).Sugar()).
		Classify(context.Background(), "what depends on auth?", "python", "")
	if err != nil {
		t.Fatal(err)
	}
	if intent.Intent != "find_dependencies" || intent.AnalysisType != "dependencies" {
		t.Errorf("intent = %+v", intent)
	}
	if intent.Depth != 5 {
		t.Errorf("depth should clamp to 5, got %d", intent.Depth)
	}
	if intent.PreferredLayout != "radial" {
		t.Errorf("layout = %q", intent.PreferredLayout)
	}
	if !strings.Contains(stub.lastUser, "what depends on auth?") {
		t.Error("query missing from prompt")
	}
}

func TestClassifyMalformedIsFatal(t *testing.T) {
	stub := &stubCompleter{reply: "I think the user wants to see the login flow."}
	_, err := NewIntentClassifier(stub, zaptest.NewLogger(t).Sugar()).
		Classify(context.Background(), "login flow", "python", "")
	if err == nil {
		t.Fatal("expected error for malformed reply")
	}
	if !errdefs.Is(err, errdefs.ErrIntentParse) {
		t.Errorf("error should be an intent-parse failure, got %v", err)
	}
}

func TestClassifyDefaultsUnknownFields(t *testing.T) {
	stub := &stubCompleter{reply: `{"intent": "become_sentient", "analysis_type": "vibes", "preferred_layout": "spiral"}`}
	intent, err := NewIntentClassifier(stub, zaptest.NewLogger(t).Sugar()).
		Classify(context.Background(), "show me the payment code", "go", "main.go")
	if err != nil {
		t.Fatal(err)
	}
	if intent.Intent != "understand_flow" {
		t.Errorf("intent = %q", intent.Intent)
	}
	if intent.AnalysisType != "general" {
		t.Errorf("analysis_type = %q", intent.AnalysisType)
	}
	if intent.PreferredLayout != "hierarchical" {
		t.Errorf("layout = %q", intent.PreferredLayout)
	}
	if intent.Depth != 3 {
		t.Errorf("depth = %d", intent.Depth)
	}
	if len(intent.Keywords) == 0 {
		t.Error("keywords should fall back to query extraction")
	}
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("How does the authentication flow work in the API?")
	want := []string{"authentication", "api"}
	if len(got) != len(want) {
		t.Fatalf("keywords = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keywords = %v, want %v", got, want)
		}
	}
}

func TestInferParsesRelationships(t *testing.T) {
	stub := &stubCompleter{reply: `[
		{"source": "a.py:f", "target": "b.py:g", "type": "data-flow", "description": "passes records", "importance": "critical"},
		{"source": "", "target": "b.py:g", "type": "calls"}
	]`}
	rs := analyzer.ResultSet{"a.py": analyzer.Empty("a.py", "python")}
	rels := NewRelationshipInferencer(stub, zaptest.NewLogger(t).Sugar()).
		Infer(context.Background(), "q", rs, &model.Intent{})

	if len(rels) != 1 {
		t.Fatalf("rels = %+v", rels)
	}
	if rels[0].Type != model.EdgeDataFlow {
		t.Errorf("type = %q", rels[0].Type)
	}
	if rels[0].Importance != model.ImportanceCritical {
		t.Errorf("importance = %q", rels[0].Importance)
	}
}

func TestInferFailureIsEmpty(t *testing.T) {
	stub := &stubCompleter{err: context.DeadlineExceeded}
	rs := analyzer.ResultSet{}
	rels := NewRelationshipInferencer(stub, zaptest.NewLogger(t).Sugar()).
		Infer(context.Background(), "q", rs, nil)
	if len(rels) != 0 {
		t.Errorf("expected no relationships, got %v", rels)
	}
}

func traceTestGraph() *model.Graph {
	return &model.Graph{
		Nodes: []model.Node{
			{ID: "n1", Label: "main", Type: model.NodeFunction, Importance: model.ImportanceCritical},
			{ID: "n2", Label: "helper", Type: model.NodeFunction, Importance: model.ImportanceLow},
		},
		Edges: []model.Edge{
			{ID: "e1", Source: "n1", Target: "n2", Type: model.EdgeCalls},
		},
		RootNodes: []string{"n1"},
	}
}

func TestTraceWriterStripsUnknownNodeIDs(t *testing.T) {
	stub := &stubCompleter{reply: `{
		"title": "Flow",
		"summary": "Summary.",
		"sections": [
			{"id": "s1", "title": "Entry", "content": "c", "node_ids": ["n1", "made-up"], "order": 1}
		]
	}`}
	guide := NewTraceWriter(stub, zaptest.NewLogger(t).Sugar()).
		Write(context.Background(), "q", "python", traceTestGraph())

	if len(guide.Sections) != 1 {
		t.Fatalf("sections = %+v", guide.Sections)
	}
	ids := guide.Sections[0].NodeIDs
	if len(ids) != 1 || ids[0] != "n1" {
		t.Errorf("node_ids = %v", ids)
	}
}

func TestTraceWriterFallback(t *testing.T) {
	stub := &stubCompleter{reply: "sorry, I cannot do that"}
	guide := NewTraceWriter(stub, zaptest.NewLogger(t).Sugar()).
		Write(context.Background(), "how does main work", "python", traceTestGraph())

	if guide.Title == "" || guide.Summary == "" {
		t.Fatalf("fallback guide incomplete: %+v", guide)
	}
	if len(guide.Sections) == 0 {
		t.Fatal("fallback guide should have sections")
	}
	for _, section := range guide.Sections {
		for _, id := range section.NodeIDs {
			if id != "n1" && id != "n2" {
				t.Errorf("fallback referenced unknown node %q", id)
			}
		}
	}
}
