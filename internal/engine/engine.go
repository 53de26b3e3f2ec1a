// Package engine orchestrates codemap generation: request validation, repo
// acquisition, analysis, graph construction, layout, rendering, and the
// trace guide, with progress streamed to an observer at every stage.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codemap-dev/codemapd/internal/analyzer"
	"github.com/codemap-dev/codemapd/internal/errdefs"
	"github.com/codemap-dev/codemapd/internal/generator"
	"github.com/codemap-dev/codemapd/internal/llm"
	"github.com/codemap-dev/codemapd/internal/model"
	"github.com/codemap-dev/codemapd/internal/render"
	"github.com/codemap-dev/codemapd/internal/repofetch"
	"github.com/codemap-dev/codemapd/internal/retrieval"
)

// Progress percent checkpoints, one per stage.
const (
	pctIntent   = 5
	pctRepo     = 10
	pctScan     = 20
	pctAnalyze  = 35
	pctInfer    = 50
	pctBuild    = 65
	pctLayout   = 75
	pctRender   = 85
	pctTrace    = 95
	pctComplete = 100
)

// retrievalLimit caps how many ranked files feed graph construction.
const retrievalLimit = 100

// ProgressSink receives progress updates. Implementations must not block;
// the engine calls it inline between stages.
type ProgressSink interface {
	Publish(p model.Progress)
}

// ProgressFunc adapts a function to the ProgressSink interface.
type ProgressFunc func(p model.Progress)

func (f ProgressFunc) Publish(p model.Progress) { f(p) }

type nopSink struct{}

func (nopSink) Publish(model.Progress) {}

// Saver persists completed codemaps.
type Saver interface {
	Save(ctx context.Context, cm *model.Codemap) error
}

// Engine runs the generation pipeline.
type Engine struct {
	fetcher    *repofetch.Fetcher
	analyzer   *analyzer.Analyzer
	retriever  retrieval.Retriever
	intents    *llm.IntentClassifier
	inferencer *llm.RelationshipInferencer
	tracer     *llm.TraceWriter
	store      Saver
	log        *zap.SugaredLogger

	pruneWeights generator.PruneWeights
	modelName    string
	now          func() time.Time
}

// Config wires the engine's collaborators.
type Config struct {
	Fetcher    *repofetch.Fetcher
	Analyzer   *analyzer.Analyzer
	Retriever  retrieval.Retriever
	Intents    *llm.IntentClassifier
	Inferencer *llm.RelationshipInferencer
	Tracer     *llm.TraceWriter
	Store      Saver
	Log        *zap.SugaredLogger

	PruneWeights *generator.PruneWeights
	ModelName    string
}

func New(cfg Config) *Engine {
	e := &Engine{
		fetcher:      cfg.Fetcher,
		analyzer:     cfg.Analyzer,
		retriever:    cfg.Retriever,
		intents:      cfg.Intents,
		inferencer:   cfg.Inferencer,
		tracer:       cfg.Tracer,
		store:        cfg.Store,
		log:          cfg.Log,
		pruneWeights: generator.DefaultPruneWeights,
		modelName:    cfg.ModelName,
		now:          time.Now,
	}
	if cfg.PruneWeights != nil {
		e.pruneWeights = *cfg.PruneWeights
	}
	if e.modelName == "" {
		e.modelName = "default"
	}
	return e
}

// run tracks one generation request: status machine and monotonic percent.
type run struct {
	id      string
	status  model.Status
	percent int
	sink    ProgressSink
}

func (r *run) transition(next model.Status) {
	if r.status.CanTransition(next) {
		r.status = next
	}
}

// emit publishes a progress update; percent never moves backwards.
func (r *run) emit(percent int, step string, p model.Progress) {
	if percent > r.percent {
		r.percent = percent
	}
	p.CodemapID = r.id
	p.Status = r.status
	p.ProgressPercent = r.percent
	p.CurrentStep = step
	r.sink.Publish(p)
}

func (r *run) fail(details string) {
	r.status = model.StatusFailed
	r.sink.Publish(model.Progress{
		CodemapID:       r.id,
		Status:          model.StatusFailed,
		ProgressPercent: 0,
		CurrentStep:     "failed",
		Details:         details,
	})
}

// Generate runs the full pipeline for one request. The codemap is persisted
// only when every stage succeeds; any fatal error leaves storage untouched.
func (e *Engine) Generate(ctx context.Context, req model.GenerateRequest, sink ProgressSink) (*model.Codemap, error) {
	if sink == nil {
		sink = nopSink{}
	}
	req.Normalize()

	r := &run{id: uuid.NewString(), status: model.StatusPending, sink: sink}
	started := e.now()

	cm, err := e.generate(ctx, &req, r)
	if errdefs.IsFatal(err) {
		e.log.Errorw("generation failed", "codemap_id", r.id, "error", err)
		r.fail(safeDetails(err))
		return nil, err
	}

	cm.GenerationMS = e.now().Sub(started).Milliseconds()
	cm.ModelUsed = e.modelName
	if err := e.store.Save(ctx, cm); err != nil {
		e.log.Errorw("persist failed", "codemap_id", r.id, "error", err)
		r.fail(safeDetails(err))
		return nil, err
	}

	r.transition(model.StatusCompleted)
	r.emit(pctComplete, "complete", model.Progress{
		NodesFound: len(cm.Graph.Nodes),
		EdgesFound: len(cm.Graph.Edges),
	})
	e.log.Infow("codemap generated",
		"codemap_id", cm.ID,
		"nodes", len(cm.Graph.Nodes),
		"edges", len(cm.Graph.Edges),
		"elapsed_ms", cm.GenerationMS,
	)
	return cm, nil
}

func (e *Engine) generate(ctx context.Context, req *model.GenerateRequest, r *run) (*model.Codemap, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Every intermediate product is derived before anything is persisted.
	r.transition(model.StatusAnalyzing)
	r.emit(pctIntent, "parsing query", model.Progress{})

	checkout, err := e.fetcher.Fetch(ctx, req.RepoURL)
	if err != nil {
		return nil, err
	}
	defer checkout.Cleanup()
	r.emit(pctRepo, "repository ready", model.Progress{})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter := analyzer.NewPathFilter(
		append(append([]string{}, req.IncludedDirs...), req.IncludedFiles...),
		append(append([]string{}, req.ExcludedDirs...), req.ExcludedFiles...),
		req.FileTypes,
	)

	r.emit(pctScan, "scanning repository", model.Progress{})
	results, err := e.analyzer.AnalyzeRepo(ctx, checkout.Path, filter)
	if err != nil {
		return nil, err
	}
	language := results.PrimaryLanguage()
	symbols, _, _ := results.Counts()
	r.emit(pctAnalyze, "analysis complete", model.Progress{
		FilesAnalyzed: len(results),
		TotalFiles:    len(results),
	})
	e.log.Debugw("analysis complete", "files", len(results), "symbols", symbols, "language", language)

	intent, err := e.intents.Classify(ctx, req.Query, language, strings.Join(topFiles(results, e.retriever, req.Query), ", "))
	if err != nil {
		return nil, err
	}
	if req.AnalysisType != model.DefaultAnalysisType {
		intent.AnalysisType = req.AnalysisType
	}
	if req.Depth > 0 {
		intent.Depth = req.Depth
	}

	// Rank files against the query and keep only the most relevant slice.
	results = selectRelevant(results, e.retriever, req.Query)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Inference is best-effort: a failed or malformed reply yields no
	// relationships, never an error.
	r.transition(model.StatusGenerating)
	rels := e.inferencer.Infer(ctx, req.Query, results, intent)
	r.emit(pctInfer, "relationships inferred", model.Progress{})

	graph := generator.BuildGraph(results, intent, rels)
	pruner := &generator.Pruner{MaxNodes: req.MaxNodes, Weights: e.pruneWeights}
	graph = pruner.Prune(graph, intent)
	if intent.Depth > 0 && intent.Depth < 5 {
		graph = generator.PruneByDepth(graph, intent.Depth)
	}
	(&generator.Clusterer{}).Cluster(graph, clusterStrategy(intent))
	r.emit(pctBuild, "graph built", model.Progress{
		NodesFound: len(graph.Nodes),
		EdgesFound: len(graph.Edges),
	})

	(&generator.LayoutEngine{}).Apply(graph, intent.PreferredLayout)
	r.emit(pctLayout, "layout applied", model.Progress{})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.transition(model.StatusRendering)
	mermaid := (&render.Mermaid{}).Render(graph, intent)
	jsonGraph, err := render.JSONGraph(graph)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.ErrRender, err.Error())
	}
	r.emit(pctRender, "rendered", model.Progress{})

	guide := e.tracer.Write(ctx, req.Query, language, graph)
	r.emit(pctTrace, "trace guide written", model.Progress{})

	now := e.now().UTC()
	return &model.Codemap{
		ID:           r.id,
		RepoURL:      req.RepoURL,
		RepoOwner:    checkout.Owner,
		RepoName:     checkout.Name,
		CommitHash:   checkout.CommitHash,
		Query:        req.Query,
		AnalysisType: intent.AnalysisType,
		Title:        deriveTitle(req.Query),
		Description:  guide.Summary,
		Graph:        *graph,
		TraceGuide:   *guide,
		Render:       model.RenderOutput{Mermaid: mermaid, JSONGraph: jsonGraph},
		Status:       model.StatusCompleted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// selectRelevant keeps the retrievalLimit best-ranked files. Small result
// sets pass through whole.
func selectRelevant(rs analyzer.ResultSet, retriever retrieval.Retriever, query string) analyzer.ResultSet {
	if retriever == nil || len(rs) <= retrievalLimit {
		return rs
	}
	scores := retriever.Rank(query, rs, retrievalLimit)
	kept := make(analyzer.ResultSet, len(scores))
	for path := range retrieval.ByPath(scores) {
		kept[path] = rs[path]
	}
	if len(kept) == 0 {
		return rs
	}
	return kept
}

// topFiles names the best-ranked files for the intent prompt.
func topFiles(rs analyzer.ResultSet, retriever retrieval.Retriever, query string) []string {
	if retriever == nil {
		return nil
	}
	scores := retriever.Rank(query, rs, 5)
	paths := make([]string, 0, len(scores))
	for _, sc := range scores {
		paths = append(paths, sc.Path)
	}
	return paths
}

func clusterStrategy(intent *model.Intent) string {
	if intent != nil && intent.AnalysisType == "architecture" {
		return "connectivity"
	}
	return "auto"
}

// deriveTitle takes the first six words of the query, title-cased.
func deriveTitle(query string) string {
	words := strings.Fields(query)
	truncated := false
	if len(words) > 6 {
		words = words[:6]
		truncated = true
	}
	for i, w := range words {
		runes := []rune(w)
		words[i] = strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
	title := strings.Join(words, " ")
	if truncated {
		title += "..."
	}
	return title
}

// safeDetails reduces an error to its leaf message for the progress stream.
// Sentinel wrapping keeps stage context in the message; tokens never appear
// in error strings by construction.
func safeDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
