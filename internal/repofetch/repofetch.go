// Package repofetch resolves repository references to local source trees.
// Remote URLs are shallow-cloned into a temp directory; local paths are used
// in place. A malformed or unreachable reference is reported as
// ErrRepoUnavailable before any analysis starts.
package repofetch

import (
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/codemap-dev/codemapd/internal/errdefs"
)

// Checkout is a resolved source tree. Cleanup must be called when done; it is
// a no-op for local paths.
type Checkout struct {
	Path       string
	Owner      string
	Name       string
	CommitHash string
	Cloned     bool

	cleanup func()
}

// Cleanup removes the temp clone, if any. Safe to call more than once.
func (c *Checkout) Cleanup() {
	if c.cleanup != nil {
		c.cleanup()
		c.cleanup = nil
	}
}

// Fetcher resolves repository references.
type Fetcher struct {
	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Fetcher {
	return &Fetcher{log: log}
}

// Fetch resolves ref, which is either a git URL or a local directory.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*Checkout, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, errdefs.Wrap(errdefs.ErrRepoUnavailable, "empty repository reference")
	}
	if IsRepoURL(ref) {
		return f.clone(ctx, ref)
	}

	info, err := os.Stat(ref)
	if err != nil || !info.IsDir() {
		return nil, errdefs.Wrapf(errdefs.ErrRepoUnavailable, "not a directory: %s", ref)
	}
	owner, name := splitOwnerRepo(ref)
	return &Checkout{
		Path:       ref,
		Owner:      owner,
		Name:       name,
		CommitHash: headHash(ref),
	}, nil
}

func (f *Fetcher) clone(ctx context.Context, url string) (*Checkout, error) {
	normalized := normalizeRepoURL(url)
	owner, name := splitOwnerRepo(url)

	tempDir, err := os.MkdirTemp("", "codemapd-"+name+"-*")
	if err != nil {
		return nil, errdefs.Wrapf(errdefs.ErrRepoUnavailable, "temp dir: %v", err)
	}

	f.log.Infow("cloning repository", "url", normalized, "depth", 1)
	_, err = git.PlainCloneContext(ctx, tempDir, false, &git.CloneOptions{
		URL:   normalized,
		Depth: 1,
	})
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, errdefs.Wrapf(errdefs.ErrRepoUnavailable, "clone %s: %v", normalized, err)
	}

	return &Checkout{
		Path:       tempDir,
		Owner:      owner,
		Name:       name,
		CommitHash: headHash(tempDir),
		Cloned:     true,
		cleanup: func() {
			f.log.Debugw("removing clone", "path", tempDir)
			os.RemoveAll(tempDir)
		},
	}, nil
}

// headHash returns the short HEAD hash, or "" when the tree is not a git
// repository (plain local directories are still analyzable).
func headHash(path string) string {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	return head.Hash().String()[:7]
}

// IsRepoURL reports whether ref looks like a remote git reference rather
// than a local path.
func IsRepoURL(ref string) bool {
	switch {
	case strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "http://"):
		return true
	case strings.HasPrefix(ref, "git@"), strings.HasPrefix(ref, "git://"):
		return true
	}
	return false
}

func normalizeRepoURL(url string) string {
	if strings.HasSuffix(url, ".git") {
		return url
	}
	url = strings.TrimSuffix(url, "/")
	if strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://") {
		return url + ".git"
	}
	return url
}

var urlPathRe = regexp.MustCompile(`^(?:https?|git)://[^/]+/(.+)$`)

// splitOwnerRepo extracts owner and repository name from a URL or path.
func splitOwnerRepo(ref string) (owner, name string) {
	ref = strings.TrimSuffix(strings.TrimSuffix(ref, "/"), ".git")

	if strings.HasPrefix(ref, "git@") {
		if idx := strings.Index(ref, ":"); idx >= 0 {
			ref = ref[idx+1:]
		}
	} else if m := urlPathRe.FindStringSubmatch(ref); len(m) > 1 {
		ref = m[1]
	}

	parts := strings.Split(ref, "/")
	name = parts[len(parts)-1]
	if len(parts) > 1 {
		owner = parts[len(parts)-2]
	}
	return owner, name
}
