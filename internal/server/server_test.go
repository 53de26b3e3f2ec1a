package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/codemap-dev/codemapd/internal/engine"
	"github.com/codemap-dev/codemapd/internal/errdefs"
	"github.com/codemap-dev/codemapd/internal/model"
	"github.com/codemap-dev/codemapd/internal/storage"
)

type stubGenerator struct {
	cm       *model.Codemap
	err      error
	progress []model.Progress
}

func (g *stubGenerator) Generate(_ context.Context, _ model.GenerateRequest, sink engine.ProgressSink) (*model.Codemap, error) {
	if sink != nil {
		for _, p := range g.progress {
			sink.Publish(p)
		}
	}
	return g.cm, g.err
}

type stubStorage struct {
	codemaps map[string]*model.Codemap
	tokens   map[string]string
}

func newStubStorage() *stubStorage {
	return &stubStorage{codemaps: map[string]*model.Codemap{}, tokens: map[string]string{}}
}

func (s *stubStorage) Get(_ context.Context, id string) (*model.Codemap, error) {
	if cm, ok := s.codemaps[id]; ok {
		return cm, nil
	}
	return nil, errdefs.Wrapf(errdefs.ErrNotFound, "codemap %s", id)
}

func (s *stubStorage) Delete(_ context.Context, id string) error {
	if _, ok := s.codemaps[id]; !ok {
		return errdefs.Wrapf(errdefs.ErrNotFound, "codemap %s", id)
	}
	delete(s.codemaps, id)
	return nil
}

func (s *stubStorage) List(_ context.Context, _, _ int) ([]storage.Summary, error) {
	var out []storage.Summary
	for id := range s.codemaps {
		out = append(out, storage.Summary{ID: id})
	}
	return out, nil
}

func (s *stubStorage) ByRepo(_ context.Context, owner, name string) ([]storage.Summary, error) {
	var out []storage.Summary
	for id, cm := range s.codemaps {
		if cm.RepoOwner == owner && cm.RepoName == name {
			out = append(out, storage.Summary{ID: id})
		}
	}
	return out, nil
}

func (s *stubStorage) IssueShareToken(_ context.Context, id string) (string, time.Time, error) {
	if _, ok := s.codemaps[id]; !ok {
		return "", time.Time{}, errdefs.Wrapf(errdefs.ErrNotFound, "codemap %s", id)
	}
	token := "tok-" + id
	s.tokens[token] = id
	return token, time.Now().Add(time.Hour), nil
}

func (s *stubStorage) ByShareToken(_ context.Context, token string) (*model.Codemap, error) {
	if id, ok := s.tokens[token]; ok {
		return s.Get(context.Background(), id)
	}
	return nil, errdefs.Wrap(errdefs.ErrNotFound, "share token")
}

func storedCodemap(id string) *model.Codemap {
	return &model.Codemap{
		ID:        id,
		RepoOwner: "acme",
		RepoName:  "shop",
		Title:     "Checkout flow",
		Query:     "how does checkout work?",
		Status:    model.StatusCompleted,
		CreatedAt: time.Now().UTC(),
		Graph: model.Graph{
			Nodes:     []model.Node{{ID: "file:a.py", Label: "a.py", Type: model.NodeFile, Importance: model.ImportanceLow}},
			RootNodes: []string{"file:a.py"},
			Clusters:  map[string][]string{},
		},
		Render: model.RenderOutput{
			Mermaid:   "flowchart TB\n    a[py]",
			JSONGraph: `{"nodes":[]}`,
		},
	}
}

func testServer(t *testing.T, gen Generator, store Storage) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(gen, store, zaptest.NewLogger(t).Sugar()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateEndpoint(t *testing.T) {
	gen := &stubGenerator{cm: storedCodemap("cm-1")}
	srv := testServer(t, gen, newStubStorage())

	body := bytes.NewBufferString(`{"repo_url": "https://github.com/acme/shop", "query": "how does checkout work?"}`)
	resp, err := http.Post(srv.URL+"/api/codemaps", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var cm model.Codemap
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cm))
	assert.Equal(t, "cm-1", cm.ID)
}

func TestGenerateValidationError(t *testing.T) {
	gen := &stubGenerator{err: errdefs.Wrap(errdefs.ErrValidation, "query must be non-empty")}
	srv := testServer(t, gen, newStubStorage())

	resp, err := http.Post(srv.URL+"/api/codemaps", "application/json", strings.NewReader(`{"repo_url": "x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetAndDelete(t *testing.T) {
	store := newStubStorage()
	store.codemaps["cm-1"] = storedCodemap("cm-1")
	srv := testServer(t, &stubGenerator{}, store)

	resp, err := http.Get(srv.URL + "/api/codemaps/cm-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/codemaps/cm-1", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/codemaps/cm-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestShareFlow(t *testing.T) {
	store := newStubStorage()
	store.codemaps["cm-1"] = storedCodemap("cm-1")
	srv := testServer(t, &stubGenerator{}, store)

	resp, err := http.Post(srv.URL+"/api/codemaps/cm-1/share", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var share struct {
		ShareToken string `json:"share_token"`
		ExpiresAt  string `json:"expires_at"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&share))
	require.NotEmpty(t, share.ShareToken)

	got, err := http.Get(srv.URL + "/api/shared/" + share.ShareToken)
	require.NoError(t, err)
	got.Body.Close()
	assert.Equal(t, http.StatusOK, got.StatusCode)

	missing, err := http.Get(srv.URL + "/api/shared/unknown-token")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestExportEndpoints(t *testing.T) {
	store := newStubStorage()
	store.codemaps["cm-1"] = storedCodemap("cm-1")
	srv := testServer(t, &stubGenerator{}, store)

	cases := []struct {
		format      string
		contentType string
		contains    string
	}{
		{"mermaid", "text/plain", "flowchart TB"},
		{"json", "application/json", `"nodes"`},
		{"html", "text/html", "<title>Checkout flow</title>"},
	}
	for _, c := range cases {
		resp, err := http.Get(srv.URL + "/api/codemaps/cm-1/export/" + c.format)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, c.format)
		assert.Contains(t, resp.Header.Get("Content-Type"), c.contentType, c.format)
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		resp.Body.Close()
		assert.Contains(t, buf.String(), c.contains, c.format)
	}

	resp, err := http.Get(srv.URL + "/api/codemaps/cm-1/export/pdf")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportMermaidSimple(t *testing.T) {
	store := newStubStorage()
	store.codemaps["cm-1"] = storedCodemap("cm-1")
	srv := testServer(t, &stubGenerator{}, store)

	resp, err := http.Get(srv.URL + "/api/codemaps/cm-1/export/mermaid?simple=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.NotContains(t, buf.String(), "subgraph")
	assert.Contains(t, buf.String(), "file_a_py")
}

func TestByRepo(t *testing.T) {
	store := newStubStorage()
	store.codemaps["cm-1"] = storedCodemap("cm-1")
	srv := testServer(t, &stubGenerator{}, store)

	resp, err := http.Get(srv.URL + "/api/repos/acme/shop/codemaps")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Codemaps []storage.Summary `json:"codemaps"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Codemaps, 1)
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/generate"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketStream(t *testing.T) {
	gen := &stubGenerator{
		cm: storedCodemap("cm-1"),
		progress: []model.Progress{
			{Status: model.StatusAnalyzing, ProgressPercent: 35, CurrentStep: "analysis complete"},
			{Status: model.StatusRendering, ProgressPercent: 85, CurrentStep: "rendered"},
		},
	}
	srv := testServer(t, gen, newStubStorage())
	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteJSON(model.GenerateRequest{
		RepoURL: "https://github.com/acme/shop",
		Query:   "how does checkout work?",
	}))

	var frames []wsFrame
	for i := 0; i < 3; i++ {
		var f wsFrame
		require.NoError(t, conn.ReadJSON(&f))
		frames = append(frames, f)
	}

	assert.Equal(t, frameProgress, frames[0].Type)
	assert.Equal(t, 35, frames[0].Progress.ProgressPercent)
	assert.Equal(t, frameProgress, frames[1].Type)
	require.Equal(t, frameComplete, frames[2].Type)
	assert.Equal(t, "cm-1", frames[2].Codemap.ID)
}

func TestWebSocketError(t *testing.T) {
	gen := &stubGenerator{err: errdefs.Wrap(errdefs.ErrRepoUnavailable, "clone failed")}
	srv := testServer(t, gen, newStubStorage())
	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteJSON(model.GenerateRequest{RepoURL: "bad", Query: "q"}))

	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, frameError, f.Type)
	assert.Contains(t, f.Message, "repository unavailable")
	assert.Nil(t, f.Codemap)
}

func TestWebSocketInternalErrorIsGeneric(t *testing.T) {
	gen := &stubGenerator{err: errdefs.New("secret internal detail")}
	srv := testServer(t, gen, newStubStorage())
	conn := dialWS(t, srv)

	require.NoError(t, conn.WriteJSON(model.GenerateRequest{RepoURL: "x", Query: "q"}))

	var f wsFrame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, frameError, f.Type)
	assert.Equal(t, "generation failed", f.Message)
}
