package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/codemap-dev/codemapd/internal/analyzer"
	"github.com/codemap-dev/codemapd/internal/model"
)

// Relationship is one model-inferred connection between two symbols,
// referenced as "file_path:symbol_name".
type Relationship struct {
	Source      string
	Target      string
	Type        model.EdgeType
	Description string
	Importance  model.Importance
}

// RelationshipInferencer asks the model for semantic connections that static
// analysis cannot see. It is strictly best-effort: any failure yields an
// empty list and the generation carries on with static edges only.
type RelationshipInferencer struct {
	completer Completer
	log       *zap.SugaredLogger
}

func NewRelationshipInferencer(completer Completer, log *zap.SugaredLogger) *RelationshipInferencer {
	return &RelationshipInferencer{completer: completer, log: log}
}

func (r *RelationshipInferencer) Infer(ctx context.Context, query string, rs analyzer.ResultSet, intent *model.Intent) []Relationship {
	user := fmt.Sprintf(inferUserPrompt,
		query,
		buildAnalysisSummary(rs),
		buildSymbolsList(rs, intent),
		buildImportsList(rs),
		buildCallsList(rs),
	)

	raw, err := r.completer.Complete(ctx, inferSystemPrompt, user)
	if err != nil {
		r.log.Warnw("relationship inference failed", "error", err)
		return nil
	}

	rels := parseRelationships(raw)
	r.log.Infow("relationships inferred", "count", len(rels))
	return rels
}

type relationshipReply struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Importance  string `json:"importance"`
}

func parseRelationships(raw string) []Relationship {
	payload := stripFences(raw)

	var replies []relationshipReply
	if err := json.Unmarshal([]byte(payload), &replies); err != nil {
		// Tolerate a single bare object or prose-wrapped payloads.
		var single relationshipReply
		if err := json.Unmarshal([]byte(payload), &single); err == nil {
			replies = []relationshipReply{single}
		} else if extracted := firstJSONValue(payload); extracted != "" {
			if err := json.Unmarshal([]byte(extracted), &replies); err != nil {
				return nil
			}
		} else {
			return nil
		}
	}

	out := make([]Relationship, 0, len(replies))
	for _, reply := range replies {
		if reply.Source == "" || reply.Target == "" {
			continue
		}
		typ := strings.ReplaceAll(strings.ToLower(reply.Type), "-", "_")
		out = append(out, Relationship{
			Source:      reply.Source,
			Target:      reply.Target,
			Type:        model.ParseEdgeType(typ),
			Description: reply.Description,
			Importance:  model.ParseImportance(reply.Importance),
		})
	}
	return out
}

func buildAnalysisSummary(rs analyzer.ResultSet) string {
	symbols, imports, calls := rs.Counts()
	languages := make(map[string]bool)
	for _, fa := range rs {
		languages[fa.Language] = true
	}
	names := make([]string, 0, len(languages))
	for lang := range languages {
		names = append(names, lang)
	}
	sort.Strings(names)

	return fmt.Sprintf(`Files analyzed: %d
Total symbols found: %d
Total imports: %d
Total function calls: %d
Languages: %s`,
		len(rs), symbols, imports, calls, strings.Join(names, ", "))
}

func buildSymbolsList(rs analyzer.ResultSet, intent *model.Intent) string {
	type scored struct {
		relevance float64
		line      string
	}
	var entries []scored

	for _, path := range rs.Paths() {
		for _, sym := range rs[path].Symbols {
			line := fmt.Sprintf("- %s: %s:%s", sym.Kind, path, sym.Name)
			if len(sym.Bases) > 0 {
				line += fmt.Sprintf(" (extends: %s)", strings.Join(sym.Bases, ", "))
			}
			if sym.Docstring != "" {
				doc := strings.ReplaceAll(sym.Docstring, "\n", " ")
				if len(doc) > 100 {
					doc = doc[:100]
				}
				line += fmt.Sprintf(" - %q", doc)
			}
			entries = append(entries, scored{
				relevance: symbolRelevance(sym.Name, intent),
				line:      line,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].relevance > entries[j].relevance
	})
	if len(entries) > 50 {
		entries = entries[:50]
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.line
	}
	return strings.Join(lines, "\n")
}

func symbolRelevance(name string, intent *model.Intent) float64 {
	if intent == nil {
		return 0
	}
	score := 0.0
	lower := strings.ToLower(name)
	for _, kw := range intent.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			score += 2.0
		}
	}
	for _, focus := range intent.FocusAreas {
		if strings.Contains(lower, strings.ToLower(focus)) {
			score += 1.5
		}
	}
	return score
}

func buildImportsList(rs analyzer.ResultSet) string {
	var lines []string
	for _, path := range rs.Paths() {
		for _, imp := range rs[path].Imports {
			switch {
			case imp.ResolvedPath != "":
				lines = append(lines, fmt.Sprintf("- %s imports %s", path, imp.ResolvedPath))
			case !imp.Relative:
				lines = append(lines, fmt.Sprintf("- %s imports external: %s", path, imp.Module))
			}
			if len(lines) == 30 {
				return strings.Join(lines, "\n")
			}
		}
	}
	return strings.Join(lines, "\n")
}

func buildCallsList(rs analyzer.ResultSet) string {
	var lines []string
	for _, path := range rs.Paths() {
		for _, call := range rs[path].Calls {
			lines = append(lines, fmt.Sprintf("- %s:%s -> %s", path, call.Caller, call.Callee))
			if len(lines) == 40 {
				return strings.Join(lines, "\n")
			}
		}
	}
	return strings.Join(lines, "\n")
}
