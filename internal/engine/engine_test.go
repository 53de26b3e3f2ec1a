package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/codemap-dev/codemapd/internal/analyzer"
	"github.com/codemap-dev/codemapd/internal/errdefs"
	"github.com/codemap-dev/codemapd/internal/llm"
	"github.com/codemap-dev/codemapd/internal/model"
	"github.com/codemap-dev/codemapd/internal/repofetch"
	"github.com/codemap-dev/codemapd/internal/retrieval"
)

// scriptedCompleter returns canned replies per system prompt marker.
type scriptedCompleter struct {
	intentReply string
	inferReply  string
	traceReply  string
	intentErr   error
	inferErr    error
	traceErr    error
	calls       int
}

func (s *scriptedCompleter) Complete(_ context.Context, system, _ string) (string, error) {
	s.calls++
	switch {
	case s.calls == 1:
		return s.intentReply, s.intentErr
	case s.calls == 2:
		return s.inferReply, s.inferErr
	}
	return s.traceReply, s.traceErr
}

type memorySaver struct {
	mu    sync.Mutex
	saved []*model.Codemap
}

func (m *memorySaver) Save(_ context.Context, cm *model.Codemap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, cm)
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	updates []model.Progress
}

func (r *recordingSink) Publish(p model.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, p)
}

const goodIntent = `{"intent": "understand_flow", "focus_areas": ["auth"], "analysis_type": "call_graph", "preferred_layout": "hierarchical", "depth": 3, "keywords": ["login"]}`

func writeRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"auth.py": "def login(username, password):\n    \"\"\"Log a user in.\"\"\"\n    return check(username)\n\ndef check(username):\n    return True\n",
		"app.py":  "import auth\n\ndef main():\n    auth.login('a', 'b')\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testEngine(t *testing.T, completer llm.Completer, saver Saver) *Engine {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	return New(Config{
		Fetcher:    repofetch.New(log),
		Analyzer:   analyzer.New(analyzer.NewDefaultRegistry(), log),
		Retriever:  retrieval.NewKeywordRetriever(),
		Intents:    llm.NewIntentClassifier(completer, log),
		Inferencer: llm.NewRelationshipInferencer(completer, log),
		Tracer:     llm.NewTraceWriter(completer, log),
		Store:      saver,
		Log:        log,
		ModelName:  "test-model",
	})
}

func TestGenerateHappyPath(t *testing.T) {
	completer := &scriptedCompleter{
		intentReply: goodIntent,
		inferReply:  `[]`,
		traceReply:  `{"title": "Login Trace", "summary": "How login works.", "sections": [], "conclusion": "Done."}`,
	}
	saver := &memorySaver{}
	sink := &recordingSink{}

	cm, err := testEngine(t, completer, saver).Generate(context.Background(), model.GenerateRequest{
		RepoURL: writeRepo(t),
		Query:   "how does login work?",
	}, sink)
	if err != nil {
		t.Fatal(err)
	}

	if cm.Status != model.StatusCompleted {
		t.Errorf("status = %q", cm.Status)
	}
	if len(cm.Graph.Nodes) == 0 || len(cm.Graph.Edges) == 0 {
		t.Fatalf("empty graph: %d nodes %d edges", len(cm.Graph.Nodes), len(cm.Graph.Edges))
	}
	if cm.Render.Mermaid == "" || cm.Render.JSONGraph == "" {
		t.Error("render outputs missing")
	}
	if cm.Title != "How Does Login Work?" {
		t.Errorf("title = %q", cm.Title)
	}
	if cm.ModelUsed != "test-model" {
		t.Errorf("model = %q", cm.ModelUsed)
	}
	if len(saver.saved) != 1 {
		t.Fatalf("saved %d codemaps, want 1", len(saver.saved))
	}

	// every node placed by the layout stage
	for _, n := range cm.Graph.Nodes {
		if !n.Placed {
			t.Errorf("node %s not placed", n.ID)
		}
	}
}

func TestProgressMonotonicAndComplete(t *testing.T) {
	completer := &scriptedCompleter{intentReply: goodIntent, inferReply: `[]`, traceReply: `{}`}
	sink := &recordingSink{}

	_, err := testEngine(t, completer, &memorySaver{}).Generate(context.Background(), model.GenerateRequest{
		RepoURL: writeRepo(t),
		Query:   "trace the login flow",
	}, sink)
	if err != nil {
		t.Fatal(err)
	}

	if len(sink.updates) == 0 {
		t.Fatal("no progress updates")
	}
	last := 0
	for _, p := range sink.updates {
		if p.ProgressPercent < last {
			t.Fatalf("progress went backwards: %d after %d (%s)", p.ProgressPercent, last, p.CurrentStep)
		}
		last = p.ProgressPercent
	}
	final := sink.updates[len(sink.updates)-1]
	if final.ProgressPercent != 100 || final.Status != model.StatusCompleted {
		t.Errorf("final update = %+v", final)
	}
}

func TestGenerateIntentParseFatal(t *testing.T) {
	completer := &scriptedCompleter{intentReply: "I cannot answer that."}
	saver := &memorySaver{}
	sink := &recordingSink{}

	_, err := testEngine(t, completer, saver).Generate(context.Background(), model.GenerateRequest{
		RepoURL: writeRepo(t),
		Query:   "what is this?",
	}, sink)
	if !errdefs.Is(err, errdefs.ErrIntentParse) {
		t.Fatalf("err = %v, want ErrIntentParse", err)
	}
	if len(saver.saved) != 0 {
		t.Error("failed run must not persist")
	}

	final := sink.updates[len(sink.updates)-1]
	if final.Status != model.StatusFailed || final.ProgressPercent != 0 {
		t.Errorf("failure update = %+v", final)
	}
	if final.Details == "" {
		t.Error("failure update missing details")
	}
}

func TestGenerateInferenceFailureStillCompletes(t *testing.T) {
	completer := &scriptedCompleter{
		intentReply: goodIntent,
		inferErr:    errdefs.New("model overloaded"),
		traceErr:    errdefs.New("model overloaded"),
	}
	saver := &memorySaver{}

	cm, err := testEngine(t, completer, saver).Generate(context.Background(), model.GenerateRequest{
		RepoURL: writeRepo(t),
		Query:   "how does login work?",
	}, &recordingSink{})
	if err != nil {
		t.Fatal(err)
	}
	if cm.Status != model.StatusCompleted {
		t.Errorf("status = %q", cm.Status)
	}
	// trace writer must have fallen back rather than failing the run
	if cm.TraceGuide.Title == "" {
		t.Error("missing fallback trace guide")
	}
}

func TestGenerateRepoUnavailable(t *testing.T) {
	completer := &scriptedCompleter{intentReply: goodIntent}
	saver := &memorySaver{}

	_, err := testEngine(t, completer, saver).Generate(context.Background(), model.GenerateRequest{
		RepoURL: "/no/such/repo",
		Query:   "anything",
	}, &recordingSink{})
	if !errdefs.Is(err, errdefs.ErrRepoUnavailable) {
		t.Fatalf("err = %v, want ErrRepoUnavailable", err)
	}
	if len(saver.saved) != 0 {
		t.Error("failed run must not persist")
	}
}

func TestGenerateValidation(t *testing.T) {
	_, err := testEngine(t, &scriptedCompleter{}, &memorySaver{}).Generate(context.Background(), model.GenerateRequest{
		RepoURL: "",
		Query:   "q",
	}, nil)
	if !errdefs.Is(err, errdefs.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestGenerateContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testEngine(t, &scriptedCompleter{intentReply: goodIntent}, &memorySaver{}).Generate(ctx, model.GenerateRequest{
		RepoURL: writeRepo(t),
		Query:   "how does login work?",
	}, nil)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestDeriveTitle(t *testing.T) {
	cases := []struct{ in, want string }{
		{"how does auth work", "How Does Auth Work"},
		{"trace the request path from router to database layer", "Trace The Request Path From Router..."},
	}
	for _, c := range cases {
		if got := deriveTitle(c.in); got != c.want {
			t.Errorf("deriveTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
