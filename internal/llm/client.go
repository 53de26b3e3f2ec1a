// Package llm holds the language-model glue: intent classification,
// relationship inference and trace-guide writing over a minimal
// chat-completion client.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/codemap-dev/codemapd/internal/errdefs"
)

// Completer is the single seam to a language model. Implementations send a
// system+user prompt pair and return the raw text reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config configures the HTTP completer.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// HTTPCompleter talks to any OpenAI-compatible chat completions endpoint.
type HTTPCompleter struct {
	cfg    Config
	client *http.Client
	log    *zap.SugaredLogger
}

func NewHTTPCompleter(cfg Config, log *zap.SugaredLogger) *HTTPCompleter {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &HTTPCompleter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *HTTPCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", errdefs.Wrap(err, "marshal completion request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", errdefs.Wrap(err, "build completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", errdefs.Wrap(err, "send completion request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", errdefs.Wrap(err, "read completion response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errdefs.Newf("completion request failed with status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", errdefs.Wrap(err, "decode completion response")
	}
	if len(parsed.Choices) == 0 {
		return "", errdefs.New("completion response has no choices")
	}

	c.log.Debugw("completion finished",
		"model", c.cfg.Model, "elapsed", time.Since(start))
	return parsed.Choices[0].Message.Content, nil
}
