package model

import (
	"strings"

	"github.com/codemap-dev/codemapd/internal/errdefs"
)

// Request bounds. Requests outside these ranges are rejected before any
// pipeline stage runs.
const (
	MinDepth    = 1
	MaxDepth    = 10
	MinMaxNodes = 10
	MaxMaxNodes = 200

	DefaultDepth        = 3
	DefaultMaxNodes     = 50
	DefaultAnalysisType = "auto"
)

// AnalysisTypes enumerates the accepted analysis_type values.
var AnalysisTypes = map[string]bool{
	"auto":         true,
	"data_flow":    true,
	"control_flow": true,
	"dependencies": true,
	"call_graph":   true,
	"architecture": true,
}

// GenerateRequest is one codemap generation request as received over the
// wire. Token is never echoed back in responses or logs.
type GenerateRequest struct {
	RepoURL string `json:"repo_url"`
	Query   string `json:"query"`

	AnalysisType string `json:"analysis_type,omitempty"`
	Depth        int    `json:"depth,omitempty"`
	MaxNodes     int    `json:"max_nodes,omitempty"`

	IncludedDirs  []string `json:"included_dirs,omitempty"`
	IncludedFiles []string `json:"included_files,omitempty"`
	ExcludedDirs  []string `json:"excluded_dirs,omitempty"`
	ExcludedFiles []string `json:"excluded_files,omitempty"`
	FileTypes     []string `json:"file_types,omitempty"`

	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Normalize fills defaults in place. Call before Validate.
func (r *GenerateRequest) Normalize() {
	r.Query = strings.TrimSpace(r.Query)
	r.RepoURL = strings.TrimSpace(r.RepoURL)
	if r.AnalysisType == "" {
		r.AnalysisType = DefaultAnalysisType
	}
	if r.Depth == 0 {
		r.Depth = DefaultDepth
	}
	if r.MaxNodes == 0 {
		r.MaxNodes = DefaultMaxNodes
	}
}

// Validate checks the request against the documented bounds. All violations
// wrap errdefs.ErrValidation.
func (r *GenerateRequest) Validate() error {
	if r.RepoURL == "" {
		return errdefs.Wrap(errdefs.ErrValidation, "repo_url is required")
	}
	if r.Query == "" {
		return errdefs.Wrap(errdefs.ErrValidation, "query must be non-empty")
	}
	if !AnalysisTypes[r.AnalysisType] {
		return errdefs.Wrapf(errdefs.ErrValidation, "unknown analysis_type %q", r.AnalysisType)
	}
	if r.Depth < MinDepth || r.Depth > MaxDepth {
		return errdefs.Wrapf(errdefs.ErrValidation, "depth %d out of range [%d,%d]", r.Depth, MinDepth, MaxDepth)
	}
	if r.MaxNodes < MinMaxNodes || r.MaxNodes > MaxMaxNodes {
		return errdefs.Wrapf(errdefs.ErrValidation, "max_nodes %d out of range [%d,%d]", r.MaxNodes, MinMaxNodes, MaxMaxNodes)
	}
	return nil
}

// Redacted returns a copy safe for logging: the access token is blanked.
func (r GenerateRequest) Redacted() GenerateRequest {
	if r.Token != "" {
		r.Token = "[redacted]"
	}
	return r
}
