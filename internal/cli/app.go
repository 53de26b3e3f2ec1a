package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/codemap-dev/codemapd/internal/analyzer"
	"github.com/codemap-dev/codemapd/internal/config"
	"github.com/codemap-dev/codemapd/internal/engine"
	"github.com/codemap-dev/codemapd/internal/generator"
	"github.com/codemap-dev/codemapd/internal/llm"
	"github.com/codemap-dev/codemapd/internal/repofetch"
	"github.com/codemap-dev/codemapd/internal/retrieval"
	"github.com/codemap-dev/codemapd/internal/storage"
)

// app bundles the wired collaborators every command starts from.
type app struct {
	cfg *config.Config
	log *zap.SugaredLogger
}

func loadApp(cmd *cobra.Command) (*app, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to read --config flag: %w", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log}, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Sugar(), nil
}

func (a *app) openStore() (*storage.Store, error) {
	return storage.Open(a.cfg.Storage.Path, a.log,
		storage.WithShareTTL(a.cfg.Storage.ShareTokenTTL))
}

func (a *app) buildEngine(store engine.Saver) *engine.Engine {
	completer := llm.NewHTTPCompleter(llm.Config{
		BaseURL: a.cfg.LLM.BaseURL,
		APIKey:  a.cfg.LLM.APIKey,
		Model:   a.cfg.LLM.Model,
		Timeout: a.cfg.LLM.Timeout,
	}, a.log)

	pw := a.cfg.Generation.PruneWeights
	weights := generator.PruneWeights{
		Critical:  pw.Critical,
		High:      pw.High,
		Medium:    pw.Medium,
		Low:       pw.Low,
		InDegree:  pw.InDegree,
		OutDegree: pw.OutDegree,
		Relevance: pw.Relevance,
	}

	return engine.New(engine.Config{
		Fetcher:      repofetch.New(a.log),
		Analyzer:     analyzer.New(analyzer.NewDefaultRegistry(), a.log),
		Retriever:    retrieval.NewKeywordRetriever(),
		Intents:      llm.NewIntentClassifier(completer, a.log),
		Inferencer:   llm.NewRelationshipInferencer(completer, a.log),
		Tracer:       llm.NewTraceWriter(completer, a.log),
		Store:        store,
		Log:          a.log,
		PruneWeights: &weights,
		ModelName:    a.cfg.LLM.Model,
	})
}
