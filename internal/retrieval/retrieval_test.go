package retrieval

import (
	"testing"

	"github.com/codemap-dev/codemapd/internal/analyzer"
	"github.com/codemap-dev/codemapd/internal/model"
)

func fileWithSymbols(path string, names ...string) *analyzer.FileAnalysis {
	fa := analyzer.Empty(path, "python")
	for i, name := range names {
		fa.Symbols = append(fa.Symbols, analyzer.Symbol{
			Name: name,
			Kind: model.NodeFunction,
			Location: model.SourceLocation{
				FilePath:  path,
				LineStart: i + 1,
				LineEnd:   i + 1,
			},
		})
	}
	return fa
}

func TestRankPrefersMatchingSymbols(t *testing.T) {
	rs := analyzer.ResultSet{
		"app/auth/login.py":  fileWithSymbols("app/auth/login.py", "authenticate_user", "check_password"),
		"app/billing/inv.py": fileWithSymbols("app/billing/inv.py", "create_invoice", "send_invoice"),
		"app/main.py":        fileWithSymbols("app/main.py", "main"),
	}

	scores := NewKeywordRetriever().Rank("how does user authentication work", rs, 10)
	if len(scores) == 0 {
		t.Fatal("no results")
	}
	if scores[0].Path != "app/auth/login.py" {
		t.Errorf("top result = %q, want app/auth/login.py", scores[0].Path)
	}
	for _, s := range scores {
		if s.Path == "app/billing/inv.py" {
			t.Error("billing file should not match an auth query")
		}
	}
}

func TestRankDeterministicTieBreak(t *testing.T) {
	rs := analyzer.ResultSet{
		"b.py": fileWithSymbols("b.py", "handler"),
		"a.py": fileWithSymbols("a.py", "handler"),
	}
	first := NewKeywordRetriever().Rank("handler", rs, 10)
	second := NewKeywordRetriever().Rank("handler", rs, 10)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("lens = %d, %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("unstable ranking: %v vs %v", first, second)
		}
	}
}

func TestRankFuzzyFallback(t *testing.T) {
	rs := analyzer.ResultSet{
		"app/sched.py": fileWithSymbols("app/sched.py", "scheduler"),
	}
	scores := NewKeywordRetriever().Rank("schedulr", rs, 10)
	if len(scores) != 1 || scores[0].Path != "app/sched.py" {
		t.Errorf("fuzzy fallback = %v", scores)
	}
}

func TestRankEmptyInputs(t *testing.T) {
	if got := NewKeywordRetriever().Rank("", analyzer.ResultSet{}, 10); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	rs := analyzer.ResultSet{"a.py": fileWithSymbols("a.py", "f")}
	if got := NewKeywordRetriever().Rank("", rs, 10); got != nil {
		t.Errorf("empty query should rank nothing, got %v", got)
	}
}

func TestByPath(t *testing.T) {
	m := ByPath([]Score{{Path: "a.py", Value: 2.5}})
	if m["a.py"] != 2.5 {
		t.Errorf("m = %v", m)
	}
}
