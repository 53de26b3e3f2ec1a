package analyzer

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codemap-dev/codemapd/internal/errdefs"
)

// maxFileSize caps the content handed to an extractor. Larger files are
// almost always generated or vendored.
const maxFileSize = 1 << 20

// Analyzer walks a checked-out repository and runs the registered
// extractors over every admitted file.
type Analyzer struct {
	registry *Registry
	cache    *Cache
	log      *zap.SugaredLogger
	workers  int
}

type Option func(*Analyzer)

// WithCache memoizes per-file analysis across runs keyed by content hash.
func WithCache(c *Cache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithWorkers overrides the parse concurrency.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

func New(registry *Registry, log *zap.SugaredLogger, opts ...Option) *Analyzer {
	a := &Analyzer{
		registry: registry,
		log:      log,
		workers:  8,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeRepo analyzes every admitted file under root and returns the
// per-file results keyed by repo-relative path. Individual file failures are
// logged and counted, not raised; only a failure to read the tree itself is
// an error. Imports are resolved across the final file set, so results do
// not depend on analysis order.
func (a *Analyzer) AnalyzeRepo(ctx context.Context, root string, filter *PathFilter) (ResultSet, error) {
	paths, err := a.listFiles(root, filter)
	if err != nil {
		return nil, errdefs.Wrapf(errdefs.ErrRepoUnavailable, "walk %s: %v", root, err)
	}

	var (
		mu      sync.Mutex
		results = make(ResultSet, len(paths))
		skipped int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for _, rel := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fa, err := a.analyzeFile(root, rel)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.log.Warnw("file analysis failed", "path", rel, "error", err)
				skipped++
				return nil
			}
			if fa != nil {
				results[rel] = fa
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ResolveImports(results)

	symbols, imports, calls := results.Counts()
	a.log.Infow("repository analyzed",
		"files", len(results), "skipped", skipped,
		"symbols", symbols, "imports", imports, "calls", calls)
	return results, nil
}

func (a *Analyzer) listFiles(root string, filter *PathFilter) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if !filter.Admit(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !filter.Admit(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	return paths, err
}

// analyzeFile returns nil, nil for files worth skipping silently (binary
// content, oversized files).
func (a *Analyzer) analyzeFile(root, rel string) (*FileAnalysis, error) {
	info, err := os.Stat(filepath.Join(root, rel))
	if err != nil {
		return nil, err
	}
	if info.Size() > maxFileSize {
		return nil, nil
	}

	content, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return nil, nil
	}

	extractor := a.registry.ForFile(rel)

	if a.cache != nil {
		if fa, ok := a.cache.Get(rel, content); ok {
			return fa, nil
		}
	}
	fa := extractor.Analyze(content, rel)
	if a.cache != nil {
		a.cache.Put(rel, content, fa)
	}
	return fa, nil
}
