// Package server exposes the generation pipeline over HTTP and WebSocket.
// The WebSocket stream carries one request in and progress updates out,
// ending with a complete or error frame. Export endpoints serve persisted
// artifacts only; they never re-run analysis.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/codemap-dev/codemapd/internal/engine"
	"github.com/codemap-dev/codemapd/internal/errdefs"
	"github.com/codemap-dev/codemapd/internal/model"
	"github.com/codemap-dev/codemapd/internal/render"
	"github.com/codemap-dev/codemapd/internal/storage"
)

// Generator runs one generation request. Satisfied by *engine.Engine.
type Generator interface {
	Generate(ctx context.Context, req model.GenerateRequest, sink engine.ProgressSink) (*model.Codemap, error)
}

// Storage is the persistence surface the server needs.
type Storage interface {
	Get(ctx context.Context, id string) (*model.Codemap, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]storage.Summary, error)
	ByRepo(ctx context.Context, owner, name string) ([]storage.Summary, error)
	IssueShareToken(ctx context.Context, codemapID string) (string, time.Time, error)
	ByShareToken(ctx context.Context, token string) (*model.Codemap, error)
}

// Server routes codemap requests.
type Server struct {
	gen   Generator
	store Storage
	log   *zap.SugaredLogger
}

func New(gen Generator, store Storage, log *zap.SugaredLogger) *Server {
	return &Server{gen: gen, store: store, log: log}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/codemaps", s.handleGenerate)
	mux.HandleFunc("GET /api/codemaps", s.handleList)
	mux.HandleFunc("GET /api/codemaps/{id}", s.handleGet)
	mux.HandleFunc("DELETE /api/codemaps/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/codemaps/{id}/share", s.handleShare)
	mux.HandleFunc("GET /api/codemaps/{id}/export/{format}", s.handleExport)
	mux.HandleFunc("GET /api/repos/{owner}/{name}/codemaps", s.handleByRepo)
	mux.HandleFunc("GET /api/shared/{token}", s.handleShared)
	mux.HandleFunc("GET /ws/generate", s.handleGenerateWS)
	return mux
}

// errorBody is the wire shape of every error response.
type errorBody struct {
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errdefs.IsNotFound(err):
		status, msg = http.StatusNotFound, "not found"
	case errdefs.Is(err, errdefs.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errdefs.Is(err, errdefs.ErrRepoUnavailable):
		status, msg = http.StatusBadGateway, err.Error()
	case errdefs.Is(err, errdefs.ErrIntentParse):
		status, msg = http.StatusBadGateway, err.Error()
	}
	if status == http.StatusInternalServerError {
		s.log.Errorw("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "malformed request body"})
		return
	}
	s.log.Infow("generate request", "repo_url", req.RepoURL, "query", req.Query)

	cm, err := s.gen.Generate(r.Context(), req, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cm)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	list, err := s.store.List(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []storage.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"codemaps": list})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	cm, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cm)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleByRepo(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ByRepo(r.Context(), r.PathValue("owner"), r.PathValue("name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []storage.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"codemaps": list})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	token, expires, err := s.store.IssueShareToken(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"share_token": token,
		"expires_at":  expires.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleShared(w http.ResponseWriter, r *http.Request) {
	cm, err := s.store.ByShareToken(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cm)
}

// handleExport serves persisted render artifacts. The html and simple
// formats are derived on the fly from the stored graph, never re-analyzed.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	cm, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	switch r.PathValue("format") {
	case "mermaid":
		body := cm.Render.Mermaid
		if r.URL.Query().Get("simple") == "1" {
			body = (&render.Mermaid{}).RenderSimple(&cm.Graph)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(body))
	case "json":
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cm.Render.JSONGraph))
	case "html":
		page, err := render.HTML(cm)
		if err != nil {
			s.writeError(w, errdefs.Wrap(errdefs.ErrRender, err.Error()))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "unknown export format"})
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
