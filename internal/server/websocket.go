package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/codemap-dev/codemapd/internal/engine"
	"github.com/codemap-dev/codemapd/internal/errdefs"
	"github.com/codemap-dev/codemapd/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// origin policy belongs to the fronting proxy
		return true
	},
}

// Frame types on the generation stream.
const (
	frameProgress = "progress"
	frameComplete = "complete"
	frameError    = "error"
)

// wsFrame is one message on the stream. Exactly one payload field is set,
// per Type.
type wsFrame struct {
	Type     string          `json:"type"`
	Progress *model.Progress `json:"progress,omitempty"`
	Codemap  *model.Codemap  `json:"codemap,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// wsWriter serializes concurrent frame writes onto one connection.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) send(f wsFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(f)
}

// handleGenerateWS runs one generation per connection: the client sends a
// single request frame, receives progress frames, and finally a complete
// or error frame. The connection closing cancels the run.
func (s *Server) handleGenerateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req model.GenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.log.Warnw("malformed websocket request", "error", err)
		_ = (&wsWriter{conn: conn}).send(wsFrame{Type: frameError, Message: "malformed request"})
		return
	}
	s.log.Infow("websocket generate", "repo_url", req.RepoURL, "query", req.Query)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain reads so close frames are noticed; any further client message
	// or disconnect cancels the run.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	writer := &wsWriter{conn: conn}
	sink := engine.ProgressFunc(func(p model.Progress) {
		if err := writer.send(wsFrame{Type: frameProgress, Progress: &p}); err != nil {
			cancel()
		}
	})

	cm, err := s.gen.Generate(ctx, req, sink)
	if err != nil {
		_ = writer.send(wsFrame{Type: frameError, Message: wsErrorMessage(err)})
		return
	}
	_ = writer.send(wsFrame{Type: frameComplete, Codemap: cm})
}

// wsErrorMessage maps an error to a client-safe message. Unclassified
// failures get a generic message so internals stay server-side.
func wsErrorMessage(err error) string {
	switch {
	case errdefs.Is(err, errdefs.ErrValidation),
		errdefs.Is(err, errdefs.ErrRepoUnavailable),
		errdefs.Is(err, errdefs.ErrIntentParse):
		return err.Error()
	case errdefs.IsNotFound(err):
		return "not found"
	}
	return "generation failed"
}
