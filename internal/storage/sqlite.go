// Package storage persists completed codemaps and their share tokens in
// SQLite. Lookups by expired or unknown share tokens both return ErrNotFound;
// callers cannot tell the two apart.
package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/codemap-dev/codemapd/internal/errdefs"
	"github.com/codemap-dev/codemapd/internal/model"
)

// DefaultShareTTL is how long an issued share token stays valid.
const DefaultShareTTL = 30 * 24 * time.Hour

// Store is a SQLite-backed codemap repository.
type Store struct {
	db       *sql.DB
	log      *zap.SugaredLogger
	shareTTL time.Duration
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithShareTTL overrides the share-token lifetime.
func WithShareTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.shareTTL = ttl
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string, log *zap.SugaredLogger, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errdefs.Wrap(errdefs.ErrStorage, err.Error())
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errdefs.Wrapf(errdefs.ErrStorage, "open database: %v", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errdefs.Wrapf(errdefs.ErrStorage, "set pragma: %v", err)
		}
	}

	s := &Store{db: db, log: log, shareTTL: DefaultShareTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS codemaps (
			id TEXT PRIMARY KEY,
			repo_url TEXT NOT NULL,
			repo_owner TEXT NOT NULL DEFAULT '',
			repo_name TEXT NOT NULL DEFAULT '',
			commit_hash TEXT NOT NULL DEFAULT '',
			query TEXT NOT NULL,
			analysis_type TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			document TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_codemaps_repo ON codemaps(repo_owner, repo_name);
		CREATE INDEX IF NOT EXISTS idx_codemaps_created ON codemaps(created_at DESC);

		CREATE TABLE IF NOT EXISTS share_tokens (
			token TEXT PRIMARY KEY,
			codemap_id TEXT NOT NULL REFERENCES codemaps(id) ON DELETE CASCADE,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_share_codemap ON share_tokens(codemap_id);

		CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errdefs.Wrapf(errdefs.ErrStorage, "init schema: %v", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a codemap. The full document is stored as JSON;
// the indexed columns are duplicated for queries.
func (s *Store) Save(ctx context.Context, cm *model.Codemap) error {
	doc, err := json.Marshal(cm)
	if err != nil {
		return errdefs.Wrapf(errdefs.ErrStorage, "encode codemap: %v", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO codemaps
			(id, repo_url, repo_owner, repo_name, commit_hash, query, analysis_type,
			 title, description, status, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cm.ID, cm.RepoURL, cm.RepoOwner, cm.RepoName, cm.CommitHash,
		cm.Query, cm.AnalysisType, cm.Title, cm.Description, string(cm.Status),
		string(doc), cm.CreatedAt.UTC().Format(time.RFC3339), cm.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errdefs.Wrapf(errdefs.ErrStorage, "save codemap: %v", err)
	}
	s.log.Debugw("codemap saved", "codemap_id", cm.ID)
	return nil
}

// Get loads one codemap by id.
func (s *Store) Get(ctx context.Context, id string) (*model.Codemap, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM codemaps WHERE id = ?`, id).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, errdefs.Wrapf(errdefs.ErrNotFound, "codemap %s", id)
	}
	if err != nil {
		return nil, errdefs.Wrapf(errdefs.ErrStorage, "get codemap: %v", err)
	}
	return decodeCodemap(doc)
}

// Delete removes a codemap and, by cascade, its share tokens.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM codemaps WHERE id = ?`, id)
	if err != nil {
		return errdefs.Wrapf(errdefs.ErrStorage, "delete codemap: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errdefs.Wrapf(errdefs.ErrNotFound, "codemap %s", id)
	}
	return nil
}

// Summary is the listing row shape: everything except the graph document.
type Summary struct {
	ID           string       `json:"id"`
	RepoURL      string       `json:"repo_url"`
	RepoOwner    string       `json:"repo_owner"`
	RepoName     string       `json:"repo_name"`
	CommitHash   string       `json:"commit_hash,omitempty"`
	Query        string       `json:"query"`
	AnalysisType string       `json:"analysis_type"`
	Title        string       `json:"title"`
	Status       model.Status `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// List returns the newest codemaps first, capped at limit (default 20, max 100).
func (s *Store) List(ctx context.Context, limit, offset int) ([]Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_url, repo_owner, repo_name, commit_hash, query, analysis_type, title, status, created_at
		FROM codemaps ORDER BY created_at DESC, id LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, errdefs.Wrapf(errdefs.ErrStorage, "list codemaps: %v", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// ByRepo returns codemaps for one repository, newest first.
func (s *Store) ByRepo(ctx context.Context, owner, name string) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo_url, repo_owner, repo_name, commit_hash, query, analysis_type, title, status, created_at
		FROM codemaps WHERE repo_owner = ? AND repo_name = ?
		ORDER BY created_at DESC, id
	`, owner, name)
	if err != nil {
		return nil, errdefs.Wrapf(errdefs.ErrStorage, "list by repo: %v", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// IssueShareToken mints a share token for an existing codemap. The token is
// returned to the caller exactly once and is never logged.
func (s *Store) IssueShareToken(ctx context.Context, codemapID string) (string, time.Time, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM codemaps WHERE id = ?`, codemapID).Scan(&exists)
	if err == sql.ErrNoRows {
		return "", time.Time{}, errdefs.Wrapf(errdefs.ErrNotFound, "codemap %s", codemapID)
	}
	if err != nil {
		return "", time.Time{}, errdefs.Wrapf(errdefs.ErrStorage, "check codemap: %v", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, errdefs.Wrapf(errdefs.ErrStorage, "token entropy: %v", err)
	}
	token := hex.EncodeToString(buf)

	now := s.now().UTC()
	expires := now.Add(s.shareTTL)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO share_tokens (token, codemap_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, token, codemapID, now.Format(time.RFC3339), expires.Format(time.RFC3339))
	if err != nil {
		return "", time.Time{}, errdefs.Wrapf(errdefs.ErrStorage, "issue token: %v", err)
	}
	s.log.Infow("share token issued", "codemap_id", codemapID, "expires_at", expires)
	return token, expires, nil
}

// ByShareToken resolves a share token to its codemap. Unknown and expired
// tokens both come back as ErrNotFound.
func (s *Store) ByShareToken(ctx context.Context, token string) (*model.Codemap, error) {
	var codemapID, expiresAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT codemap_id, expires_at FROM share_tokens WHERE token = ?
	`, token).Scan(&codemapID, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, errdefs.Wrap(errdefs.ErrNotFound, "share token")
	}
	if err != nil {
		return nil, errdefs.Wrapf(errdefs.ErrStorage, "resolve token: %v", err)
	}

	expires, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil || !s.now().UTC().Before(expires) {
		return nil, errdefs.Wrap(errdefs.ErrNotFound, "share token")
	}
	return s.Get(ctx, codemapID)
}

// PurgeExpiredTokens deletes tokens past their expiry, returning the count.
func (s *Store) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM share_tokens WHERE expires_at < ?`,
		s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, errdefs.Wrapf(errdefs.ErrStorage, "purge tokens: %v", err)
	}
	return res.RowsAffected()
}

func decodeCodemap(doc string) (*model.Codemap, error) {
	var cm model.Codemap
	if err := json.Unmarshal([]byte(doc), &cm); err != nil {
		return nil, errdefs.Wrapf(errdefs.ErrStorage, "decode codemap: %v", err)
	}
	return &cm, nil
}

func scanSummaries(rows *sql.Rows) ([]Summary, error) {
	var out []Summary
	for rows.Next() {
		var sum Summary
		var status, createdAt string
		if err := rows.Scan(&sum.ID, &sum.RepoURL, &sum.RepoOwner, &sum.RepoName,
			&sum.CommitHash, &sum.Query, &sum.AnalysisType, &sum.Title, &status, &createdAt); err != nil {
			return nil, errdefs.Wrapf(errdefs.ErrStorage, "scan row: %v", err)
		}
		sum.Status = model.Status(status)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			sum.CreatedAt = t
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errdefs.Wrapf(errdefs.ErrStorage, "iterate rows: %v", err)
	}
	return out, nil
}
